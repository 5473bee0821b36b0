// ABOUTME: WAV file writer for integer PCM
// ABOUTME: Pulls int32 samples from a reader and streams them into a RIFF container
package encode

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// SampleReader yields interleaved samples in the 24-bit range. Read returns
// io.EOF once the stream is exhausted.
type SampleReader interface {
	Read(samples []int32) (int, error)
}

// wavHeader is the canonical 44-byte RIFF header of a PCM WAV file
type wavHeader struct {
	RIFF          [4]byte
	FileSize      uint32
	WAVE          [4]byte
	Fmt           [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Data          [4]byte
	DataSize      uint32
}

const wavHeaderSize = 44

func newWAVHeader(format audio.Format, dataSize uint32) wavHeader {
	blockAlign := format.Channels * format.BitDepth / 8
	return wavHeader{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      wavHeaderSize - 8 + dataSize,
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1,
		NumChannels:   uint16(format.Channels),
		SampleRate:    uint32(format.SampleRate),
		ByteRate:      uint32(format.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(format.BitDepth),
		Data:          [4]byte{'d', 'a', 't', 'a'},
		DataSize:      dataSize,
	}
}

// WriteWAV encodes everything r yields into w as a PCM WAV file. format gives
// the sample rate, channel count and bit depth of the file; r must produce
// interleaved frames with format.Channels channels. Samples are written as
// the exact integers the PCM encoder produces, so the full range of the bit
// depth survives. A Read that returns no samples and no error ends the
// stream.
func WriteWAV(w io.WriteSeeker, r SampleReader, format audio.Format) error {
	format.Codec = "pcm"
	if err := format.Validate(); err != nil {
		return fmt.Errorf("invalid wav format: %w", err)
	}
	enc, err := NewPCM(format)
	if err != nil {
		return err
	}

	start, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, newWAVHeader(format, 0)); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}

	buf := make([]int32, 4096*format.Channels)
	var data []byte
	var samples int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			data = enc.AppendEncoded(data[:0], buf[:n])
			if _, err := bw.Write(data); err != nil {
				return fmt.Errorf("failed to write wav: %w", err)
			}
			samples += int64(n)
		}
		if errors.Is(readErr, io.EOF) || (n == 0 && readErr == nil) {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if samples%int64(format.Channels) != 0 {
		return fmt.Errorf("wav stream ended mid-frame after %d samples", samples)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}

	dataSize := samples * int64(format.BitDepth/8)
	if dataSize > 1<<32-1-wavHeaderSize {
		return fmt.Errorf("wav data of %d bytes exceeds the RIFF size limit", dataSize)
	}

	// Patch the sizes now that the length is known
	end, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if _, err := w.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, newWAVHeader(format, uint32(dataSize))); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	if _, err := w.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("failed to write wav: %w", err)
	}
	return nil
}
