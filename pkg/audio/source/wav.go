// ABOUTME: WAV file source built on beep's wav decoder
// ABOUTME: Rescales beep's float frames back to the exact integer samples of the file
package source

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
)

// WAV reads from a WAV file
type WAV struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	bitDepth int
	title    string
	frames   [][2]float64
}

// NewWAV opens a mono or stereo WAV file
func NewWAV(filePath string) (*WAV, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	if format.NumChannels != 1 && format.NumChannels != 2 {
		streamer.Close()
		return nil, fmt.Errorf("%w: WAV with %d channels", ErrUnsupported, format.NumChannels)
	}
	if format.Precision != 2 && format.Precision != 3 {
		streamer.Close()
		return nil, fmt.Errorf("%w: %d-bit WAV (supported: 16, 24)", ErrUnsupported, format.Precision*8)
	}

	s := &WAV{
		streamer: streamer,
		format:   format,
		bitDepth: format.Precision * 8,
		title:    titleFromPath(filePath),
	}

	log.Printf("Loaded WAV: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, int(format.SampleRate), format.NumChannels, s.bitDepth)

	return s, nil
}

func (s *WAV) Read(samples []int32) (int, error) {
	channels := s.format.NumChannels
	want := len(samples) / channels
	if want == 0 {
		return 0, fmt.Errorf("buffer of %d samples is smaller than one frame", len(samples))
	}
	if cap(s.frames) < want {
		s.frames = make([][2]float64, want)
	}
	frames := s.frames[:want]

	n, ok := s.streamer.Stream(frames)
	if !ok && n == 0 {
		if err := s.streamer.Err(); err != nil {
			return 0, fmt.Errorf("failed to read WAV: %w", err)
		}
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = audio.SampleFromWAVFloat(frames[i][ch], s.bitDepth)
		}
	}
	return n * channels, nil
}

func (s *WAV) SampleRate() int { return int(s.format.SampleRate) }
func (s *WAV) Channels() int   { return s.format.NumChannels }
func (s *WAV) Frames() int64   { return int64(s.streamer.Len()) }
func (s *WAV) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *WAV) Close() error {
	return s.streamer.Close()
}
