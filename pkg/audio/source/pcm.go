// ABOUTME: Raw PCM source for headerless little-endian files and pipes
// ABOUTME: Decodes 16-bit or 24-bit interleaved samples through the PCM decoder
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/decode"
)

// PCM reads headerless interleaved PCM
type PCM struct {
	r       *bufio.Reader
	closer  io.Closer
	decoder *decode.PCMDecoder
	format  audio.Format
	frames  int64
	title   string
	buf     []byte
}

// NewPCM reads PCM described by format from r. Close closes r when it is an
// io.Closer.
func NewPCM(r io.Reader, format audio.Format) (*PCM, error) {
	format.Codec = "pcm"
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raw PCM format: %w", err)
	}

	decoder, err := decode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	s := &PCM{
		r:       bufio.NewReader(r),
		decoder: decoder,
		format:  format,
		title:   "Raw PCM",
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// OpenPCM opens a raw PCM file
func OpenPCM(filePath string, sampleRate, channels, bitDepth int) (*PCM, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCM file: %w", err)
	}

	format := audio.Format{SampleRate: sampleRate, Channels: channels, BitDepth: bitDepth}
	s, err := NewPCM(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}

	if info, err := f.Stat(); err == nil {
		s.frames = info.Size() / int64(s.format.BytesPerFrame())
	}
	s.title = titleFromPath(filePath)
	return s, nil
}

func (s *PCM) Read(samples []int32) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	width := s.format.BitDepth / 8
	need := len(samples) * width
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]

	n, err := io.ReadFull(s.r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		return 0, err
	}

	// A trailing partial sample is dropped
	n -= n % width
	out, err := s.decoder.DecodeInto(samples[:0], buf[:n])
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, io.EOF
	}
	return len(out), nil
}

func (s *PCM) SampleRate() int { return s.format.SampleRate }
func (s *PCM) Channels() int   { return s.format.Channels }
func (s *PCM) Frames() int64   { return s.frames }
func (s *PCM) Metadata() (string, string, string) {
	return s.title, "", ""
}
func (s *PCM) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
