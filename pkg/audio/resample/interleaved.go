// ABOUTME: Interleaved-buffer entry points for the resampler
// ABOUTME: Splits frames into channels and drives Process with backpressure handling
package resample

import (
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

// ProcessInterleaved is Process for interleaved buffers. Counts are in
// samples (frames times channels), like the buffers themselves.
func (r *Resampler) ProcessInterleaved(in, out []int32, last bool) (produced, consumed int, err error) {
	if r == nil {
		return 0, 0, fmt.Errorf("%w: nil resampler", ErrUsage)
	}
	if r.closed {
		return 0, 0, ErrClosed
	}

	channels := r.config.Channels
	if len(in)%channels != 0 {
		return 0, 0, fmt.Errorf("%w: %d input samples is not a whole number of %d-channel frames", ErrUsage, len(in), channels)
	}

	if channels == 1 {
		var chunk [][]int32
		if len(in) > 0 {
			chunk = [][]int32{in}
		}
		return r.Process(chunk, [][]int32{out}, last)
	}

	inFrames := len(in) / channels
	outFrames := min(len(out)/channels, r.outCap)

	if r.split == nil {
		r.split = make([][]int32, channels)
		r.join = make([][]int32, channels)
		for ch := range channels {
			r.split[ch] = make([]int32, r.config.Capacity)
			r.join[ch] = make([]int32, r.outCap)
		}
	}
	if inFrames > len(r.split[0]) {
		return 0, 0, fmt.Errorf("%w: chunk of %d frames, capacity %d", ErrCapacityExceeded, inFrames, len(r.split[0]))
	}

	var chunk [][]int32
	if inFrames > 0 {
		chunk = make([][]int32, channels)
		for ch := range channels {
			chunk[ch] = r.split[ch][:inFrames]
		}
		audio.Deinterleave(in, chunk)
	}

	dst := make([][]int32, channels)
	for ch := range channels {
		dst[ch] = r.join[ch][:outFrames]
	}

	produced, consumed, err = r.Process(chunk, dst, last)
	if produced > 0 {
		audio.Interleave(dst, produced, out)
	}
	return produced * channels, consumed * channels, err
}

// Feed pushes an interleaved buffer of any length through the resampler,
// handing each block of produced output to emit. out is scratch space for
// those blocks; emit must not retain it. Feed splits in into chunks the
// engine accepts, drains pending output before resubmitting a chunk, and
// when last is set flushes the stream completely.
func (r *Resampler) Feed(in, out []int32, last bool, emit func([]int32) error) error {
	if r == nil {
		return fmt.Errorf("%w: nil resampler", ErrUsage)
	}
	channels := r.config.Channels
	if len(out) < channels {
		return fmt.Errorf("%w: output scratch smaller than one frame", ErrUsage)
	}
	if len(in)%channels != 0 {
		return fmt.Errorf("%w: %d input samples is not a whole number of %d-channel frames", ErrUsage, len(in), channels)
	}

	for {
		frames := min(len(in)/channels, r.Capacity()-2*r.margin)
		chunk := in[:frames*channels]
		final := last && len(chunk) == len(in)

		if err := r.feedChunk(chunk, out, final, emit); err != nil {
			return err
		}

		in = in[len(chunk):]
		if len(in) == 0 {
			return nil
		}
	}
}

// feedChunk submits one chunk until it is consumed, then drains.
func (r *Resampler) feedChunk(chunk, out []int32, last bool, emit func([]int32) error) error {
	submitted := false
	for {
		wasDraining := r.Draining()

		var in []int32
		if !submitted {
			in = chunk
		}

		produced, _, err := r.ProcessInterleaved(in, out, last && !submitted)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if produced > 0 {
			if err := emit(out[:produced]); err != nil {
				return err
			}
		}

		if !wasDraining {
			submitted = true
		}
		if submitted && !r.Draining() {
			return nil
		}
	}
}

// Capacity returns the per-channel staging capacity.
func (r *Resampler) Capacity() int {
	if r == nil {
		return 0
	}
	return r.config.Capacity
}
