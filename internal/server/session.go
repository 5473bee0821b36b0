// ABOUTME: Per-stream resampling session
// ABOUTME: Decodes client PCM, runs it through a dedicated resampler and frames the output
package server

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/resample-go/internal/protocol"
	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/resample"
	"github.com/google/uuid"
)

// Session is one resampling stream on a connection. It is driven only by
// the connection's read loop.
type Session struct {
	ID      string
	Format  protocol.StreamStart
	Started time.Time

	resampler *resample.Resampler
	decoder   *decode.PCMDecoder
	encoder   *encode.PCMEncoder

	samples []int32
	scratch []int32

	inFrames  int64
	outFrames int64
}

// newSession validates a stream/start request and builds its pipeline.
// Client PCM is decoded into the 24-bit domain, so the resampler saturates
// there regardless of the wire bit depth.
func newSession(start protocol.StreamStart, capacity int) (*Session, error) {
	in := audio.Format{Codec: "pcm", SampleRate: start.InputRate, Channels: start.Channels, BitDepth: start.BitDepth}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	decoder, err := decode.NewPCM(in)
	if err != nil {
		return nil, err
	}

	out := in
	out.SampleRate = start.OutputRate
	encoder, err := encode.NewPCM(out)
	if err != nil {
		return nil, err
	}

	r, err := resample.New(resample.Config{
		InputRate:  start.InputRate,
		OutputRate: start.OutputRate,
		Channels:   start.Channels,
		BitDepth:   24,
		Capacity:   capacity,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:        uuid.NewString(),
		Format:    start,
		Started:   time.Now(),
		resampler: r,
		decoder:   decoder,
		encoder:   encoder,
		scratch:   make([]int32, r.OutputCapacity()*start.Channels),
	}, nil
}

// Ready describes the session for stream/ready
func (s *Session) Ready() protocol.StreamReady {
	return protocol.StreamReady{
		SessionID:      s.ID,
		InputRate:      s.Format.InputRate,
		OutputRate:     s.Format.OutputRate,
		Channels:       s.Format.Channels,
		BitDepth:       s.Format.BitDepth,
		MaxChunkFrames: s.resampler.Capacity() - 2*s.resampler.Margin(),
	}
}

// Write resamples one audio message. index must continue the stream
// exactly where the previous message ended.
func (s *Session) Write(index int64, pcm []byte, emit func([]byte) error) error {
	if index != s.inFrames {
		return fmt.Errorf("audio frame index %d, expected %d", index, s.inFrames)
	}

	samples, err := s.decoder.DecodeInto(s.samples[:0], pcm)
	if err != nil {
		return err
	}
	s.samples = samples

	channels := s.Format.Channels
	if len(samples)%channels != 0 {
		return fmt.Errorf("audio message of %d samples is not a whole number of %d-channel frames", len(samples), channels)
	}

	if err := s.resampler.Feed(samples, s.scratch, false, s.emitter(emit)); err != nil {
		return fmt.Errorf("%s: %w", protocol.ErrorResample, err)
	}
	s.inFrames += int64(len(samples) / channels)
	return nil
}

// Finish flushes the tail of the stream
func (s *Session) Finish(emit func([]byte) error) (protocol.StreamDone, error) {
	if err := s.resampler.Feed(nil, s.scratch, true, s.emitter(emit)); err != nil {
		return protocol.StreamDone{}, fmt.Errorf("%s: %w", protocol.ErrorResample, err)
	}
	return protocol.StreamDone{
		SessionID:    s.ID,
		InputFrames:  s.inFrames,
		OutputFrames: s.outFrames,
	}, nil
}

// emitter frames each resampled block as an audio message
func (s *Session) emitter(emit func([]byte) error) func([]int32) error {
	bytesPerSample := s.Format.BitDepth / 8
	return func(block []int32) error {
		frame := make([]byte, 0, protocol.AudioHeaderSize+len(block)*bytesPerSample)
		frame = protocol.AppendAudioFrame(frame, protocol.AudioOutMessageType, s.outFrames, nil)
		frame = s.encoder.AppendEncoded(frame, block)
		s.outFrames += int64(len(block) / s.Format.Channels)
		return emit(frame)
	}
}

// Frames returns the input and output frame counts so far
func (s *Session) Frames() (in, out int64) {
	return s.inFrames, s.outFrames
}

// Close releases the resampler
func (s *Session) Close() error {
	return s.resampler.Close()
}
