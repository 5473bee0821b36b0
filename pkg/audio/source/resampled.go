// ABOUTME: Source wrapper that converts another source to a target sample rate
// ABOUTME: Pulls chunks from the inner source and drives the streaming resampler
package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resample-go/pkg/audio/resample"
)

// DefaultChunkFrames is the number of frames pulled from the inner source
// per resampler pass
const DefaultChunkFrames = 4096

// Resampled wraps a Source and resamples it to a target sample rate
type Resampled struct {
	source     Source
	resampler  *resample.Resampler
	targetRate int
	channels   int

	inputBuffer []int32
	// chunk read from source and not yet accepted by the resampler
	pending []int32
	loaded  bool

	sourceEOF bool
	consumed  int64
}

// NewResampled wraps source so it reads at targetRate. chunkFrames sets how
// many frames are pulled from source at a time; zero means
// DefaultChunkFrames.
func NewResampled(source Source, targetRate, chunkFrames int) (*Resampled, error) {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}

	r, err := resample.New(resample.Config{
		InputRate:  source.SampleRate(),
		OutputRate: targetRate,
		Channels:   source.Channels(),
		BitDepth:   24,
		Capacity:   max(resample.DefaultCapacity, 2*chunkFrames),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	chunkFrames = min(chunkFrames, r.Capacity()-2*r.Margin())
	channels := source.Channels()

	return &Resampled{
		source:      source,
		resampler:   r,
		targetRate:  targetRate,
		channels:    channels,
		inputBuffer: make([]int32, chunkFrames*channels),
	}, nil
}

func (s *Resampled) Read(samples []int32) (int, error) {
	out := samples[:len(samples)/s.channels*s.channels]
	if len(out) == 0 {
		return 0, fmt.Errorf("buffer of %d samples is smaller than one frame", len(samples))
	}

	for {
		if !s.loaded && !s.resampler.Draining() {
			if err := s.fill(); err != nil {
				return 0, err
			}
		}

		var in []int32
		if s.loaded {
			in = s.pending
		}

		produced, consumed, err := s.resampler.ProcessInterleaved(in, out, s.sourceEOF)
		if err != nil {
			return 0, err
		}

		if s.loaded && consumed == len(s.pending) {
			s.consumed += int64(consumed / s.channels)
			s.pending = nil
			s.loaded = false
		}

		if produced > 0 {
			return produced, nil
		}
	}
}

// fill reads the next chunk from the source, stopping early only at the end
// of the source
func (s *Resampled) fill() error {
	n := 0
	for n < len(s.inputBuffer) && !s.sourceEOF {
		m, err := s.source.Read(s.inputBuffer[n:])
		n += m
		if errors.Is(err, io.EOF) {
			s.sourceEOF = true
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read source: %w", err)
		}
		if m == 0 {
			break
		}
	}

	n -= n % s.channels
	s.pending = s.inputBuffer[:n]
	s.loaded = true
	return nil
}

// Consumed returns the number of input frames the resampler has accepted
func (s *Resampled) Consumed() int64 {
	return s.consumed
}

func (s *Resampled) SampleRate() int {
	return s.targetRate
}

func (s *Resampled) Channels() int {
	return s.channels
}

func (s *Resampled) Metadata() (string, string, string) {
	return s.source.Metadata()
}

// Frames predicts the output length when the inner source is Sized
func (s *Resampled) Frames() int64 {
	sized, ok := s.source.(Sized)
	if !ok || sized.Frames() <= 0 {
		return 0
	}
	return int64(resample.OutputLength(int(sized.Frames()), s.source.SampleRate(), s.targetRate))
}

func (s *Resampled) Close() error {
	s.resampler.Close()
	return s.source.Close()
}
