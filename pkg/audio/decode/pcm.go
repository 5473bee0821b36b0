// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bitDepth int
	width    int
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		width:    format.BitDepth / 8,
	}, nil
}

// BitDepth returns the wire bit depth
func (d *PCMDecoder) BitDepth() int {
	return d.bitDepth
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	return d.DecodeInto(make([]int32, 0, len(data)/d.width), data)
}

// DecodeInto appends the samples in data to dst. Data must hold whole samples.
func (d *PCMDecoder) DecodeInto(dst []int32, data []byte) ([]int32, error) {
	if len(data)%d.width != 0 {
		return dst, fmt.Errorf("%w: %d bytes at %d bits", ErrPartialSample, len(data), d.bitDepth)
	}

	switch d.width {
	case 3:
		for i := 0; i < len(data); i += 3 {
			dst = append(dst, audio.SampleFrom24Bit([3]byte{data[i], data[i+1], data[i+2]}))
		}
	default:
		for i := 0; i < len(data); i += 2 {
			dst = append(dst, audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i:]))))
		}
	}
	return dst, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}

var _ Decoder = (*PCMDecoder)(nil)
