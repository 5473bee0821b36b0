// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (*PCMEncoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Encode converts int32 samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	return e.AppendEncoded(make([]byte, 0, len(samples)*e.bitDepth/8), samples), nil
}

// AppendEncoded appends the PCM bytes for samples to dst. Samples outside
// the 24-bit range wrap, so callers clamp first.
func (e *PCMEncoder) AppendEncoded(dst []byte, samples []int32) []byte {
	if e.bitDepth == 24 {
		for _, sample := range samples {
			b := audio.SampleTo24Bit(sample)
			dst = append(dst, b[0], b[1], b[2])
		}
		return dst
	}

	for _, sample := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(audio.SampleToInt16(sample)))
	}
	return dst
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

var _ Encoder = (*PCMEncoder)(nil)
