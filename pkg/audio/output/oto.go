// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays 16-bit PCM through a persistent oto player fed by a pipe
package output

import (
	"fmt"
	"io"
	"log"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
	"github.com/Resonate-Protocol/resample-go/pkg/audio/encode"
	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	encoder    *encode.PCMEncoder
	sampleRate int
	channels   int
	volume     int
	scratch    []int32
	bytes      []byte
	ready      bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{volume: 100}
}

// Open initializes the output device. oto plays 16-bit samples only, and
// allows one context per process, so a second Open with a different format
// fails.
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	if bitDepth != 16 {
		log.Printf("Warning: oto only supports 16-bit output, ignoring requested bitDepth=%d", bitDepth)
	}

	if o.otoCtx != nil {
		if o.sampleRate == sampleRate && o.channels == channels {
			return nil
		}
		return fmt.Errorf("oto cannot change format (%dHz %dch -> %dHz %dch)",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	encoder, err := encode.NewPCM(audio.Format{Codec: "pcm", SampleRate: sampleRate, Channels: channels, BitDepth: 16})
	if err != nil {
		return err
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.encoder = encoder
	o.sampleRate = sampleRate
	o.channels = channels

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	o.scratch = applyVolume(o.scratch[:0], samples, o.volume)
	o.bytes = o.encoder.AppendEncoded(o.bytes[:0], o.scratch)

	if _, err := o.pipeWriter.Write(o.bytes); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	o.ready = false
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.volume = max(0, min(100, volume))
}

// Volume returns current volume
func (o *Oto) Volume() int {
	return o.volume
}

// applyVolume appends samples scaled by volume percent to dst, clamped to
// the 24-bit range
func applyVolume(dst, samples []int32, volume int) []int32 {
	if volume == 100 {
		return append(dst, samples...)
	}

	multiplier := float64(volume) / 100.0
	for _, sample := range samples {
		scaled := int64(float64(sample) * multiplier)
		dst = append(dst, int32(max(audio.Min24Bit, min(audio.Max24Bit, scaled))))
	}
	return dst
}
