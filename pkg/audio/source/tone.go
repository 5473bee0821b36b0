// ABOUTME: Test tone generator source
// ABOUTME: Generates a sine wave in the 24-bit range, endless or of fixed length
package source

import (
	"io"
	"math"
	"sync"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// ToneConfig describes a generated tone
type ToneConfig struct {
	SampleRate int
	Channels   int
	// Frequency in Hz, default 440 (A4)
	Frequency float64
	// Amplitude relative to full scale, default 0.5
	Amplitude float64
	// Frames bounds the tone; zero means endless
	Frames int64
}

// Tone generates a sine wave on every channel
type Tone struct {
	config      ToneConfig
	sampleIndex int64
	sampleMu    sync.Mutex
}

// NewTone creates a new test tone generator
func NewTone(config ToneConfig) *Tone {
	if config.SampleRate == 0 {
		config.SampleRate = 48000
	}
	if config.Channels == 0 {
		config.Channels = 2
	}
	if config.Frequency == 0 {
		config.Frequency = 440.0
	}
	if config.Amplitude == 0 {
		config.Amplitude = 0.5
	}
	return &Tone{config: config}
}

func (s *Tone) Read(samples []int32) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	channels := s.config.Channels
	numFrames := int64(len(samples) / channels)
	if s.config.Frames > 0 {
		remaining := s.config.Frames - s.sampleIndex
		if remaining <= 0 {
			return 0, io.EOF
		}
		numFrames = min(numFrames, remaining)
	}

	rate := float64(s.config.SampleRate)
	scale := s.config.Amplitude * audio.Max24Bit
	for i := int64(0); i < numFrames; i++ {
		t := float64(s.sampleIndex+i) / rate
		value := int32(math.Round(scale * math.Sin(2*math.Pi*s.config.Frequency*t)))

		for ch := 0; ch < channels; ch++ {
			samples[int(i)*channels+ch] = value
		}
	}

	s.sampleIndex += numFrames
	return int(numFrames) * channels, nil
}

func (s *Tone) SampleRate() int { return s.config.SampleRate }
func (s *Tone) Channels() int   { return s.config.Channels }
func (s *Tone) Frames() int64   { return s.config.Frames }
func (s *Tone) Metadata() (string, string, string) {
	return "Test Tone", "Resample", "Test Signal"
}
func (s *Tone) Close() error { return nil }
