// ABOUTME: Stateful streaming resampler built on the interpolation kernel
// ABOUTME: Carries history, cursor and undelivered output across Process calls
package resample

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resample-go/pkg/audio"
)

const (
	// DefaultCapacity is the per-channel staging capacity in samples.
	DefaultCapacity = 8192

	// DefaultMargin is the minimum number of history samples kept on each
	// side of the interpolation window.
	DefaultMargin = 10

	// DefaultBitDepth is used when Config.BitDepth is zero.
	DefaultBitDepth = 16

	// MaxChannels is the largest supported channel count.
	MaxChannels = 2

	// MaxRate bounds both sample rates so the cursor arithmetic fits in 64 bits.
	MaxRate = 1 << 24

	// MaxBufferSamples bounds any single internal buffer.
	MaxBufferSamples = 1 << 26
)

// Config describes one stream.
type Config struct {
	InputRate  int
	OutputRate int
	Channels   int

	// BitDepth selects the saturation range of the output: 16 or 24.
	// Zero means DefaultBitDepth.
	BitDepth int

	// Capacity is the per-channel staging capacity in samples. It bounds the
	// largest chunk a single Process call accepts. Zero means DefaultCapacity.
	Capacity int
}

// State is the lifecycle state of a Resampler.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateDraining holds undelivered output; input is not consumed until
	// it has been drained.
	StateDraining
	// StateFinished has processed its last chunk; only draining remains.
	StateFinished
	// StateClosed has released its buffers.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateFinished:
		return "finished"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resampler converts one mono or stereo stream. It is not safe for
// concurrent use; independent Resamplers are.
type Resampler struct {
	config Config
	ratio  float64
	step   uint64
	margin int
	lo, hi int32

	// time is the read cursor into staging, in FracBits fixed point.
	// Every channel shares it.
	time uint64

	staging []*window
	pending []*window
	scratch [][]int32
	outCap  int

	// interleaved staging for ProcessInterleaved
	split [][]int32
	join  [][]int32

	finished bool
	closed   bool
}

// New validates config and allocates a Resampler for it.
func New(config Config) (*Resampler, error) {
	if config.BitDepth == 0 {
		config.BitDepth = DefaultBitDepth
	}
	if config.Capacity == 0 {
		config.Capacity = DefaultCapacity
	}

	if config.InputRate <= 0 || config.InputRate > MaxRate {
		return nil, fmt.Errorf("%w: input rate %d out of range (1-%d)", ErrConfig, config.InputRate, MaxRate)
	}
	if config.OutputRate <= 0 || config.OutputRate > MaxRate {
		return nil, fmt.Errorf("%w: output rate %d out of range (1-%d)", ErrConfig, config.OutputRate, MaxRate)
	}
	if config.Channels < 1 || config.Channels > MaxChannels {
		return nil, fmt.Errorf("%w: unsupported channel count %d (supported: 1, 2)", ErrConfig, config.Channels)
	}
	if config.BitDepth != 16 && config.BitDepth != 24 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d (supported: 16, 24)", ErrConfig, config.BitDepth)
	}

	step := Step(config.InputRate, config.OutputRate)

	// The margin must cover the cursor overshoot of one step past the
	// window so the retained tail never goes negative.
	margin := max(DefaultMargin, int(step>>FracBits)+2)
	if config.Capacity < 4*margin {
		return nil, fmt.Errorf("%w: capacity %d too small for history margin %d", ErrConfig, config.Capacity, margin)
	}
	if config.Capacity+margin > MaxBufferSamples {
		return nil, fmt.Errorf("%w: staging buffer of %d samples", ErrAllocation, config.Capacity+margin)
	}

	outCap := Count(0, step, config.Capacity) + 2
	if outCap > MaxBufferSamples {
		return nil, fmt.Errorf("%w: output buffer of %d samples", ErrAllocation, outCap)
	}

	lo, hi := audio.SampleRange(config.BitDepth)

	r := &Resampler{
		config:  config,
		ratio:   float64(config.OutputRate) / float64(config.InputRate),
		step:    step,
		margin:  margin,
		lo:      lo,
		hi:      hi,
		outCap:  outCap,
		staging: make([]*window, config.Channels),
		pending: make([]*window, config.Channels),
		scratch: make([][]int32, config.Channels),
	}
	for ch := range config.Channels {
		r.staging[ch] = newWindow(config.Capacity + margin)
		r.pending[ch] = newWindow(outCap)
		r.scratch[ch] = make([]int32, outCap)
	}
	r.rewind()

	return r, nil
}

// rewind puts the stream back at its start: silent history, cursor on the
// first real sample, nothing pending.
func (r *Resampler) rewind() {
	for ch := range r.staging {
		r.staging[ch].Reset(r.margin)
		r.pending[ch].Reset(0)
	}
	r.time = uint64(r.margin) << FracBits
	r.finished = false
}

// Process consumes one chunk of per-channel input and writes output into out.
//
// in holds one slice per channel (or is empty when there is no new input);
// out holds one caller-allocated slice per channel, all the same length.
// last marks the final chunk of the stream.
//
// When output from an earlier call is still pending, Process only drains it
// into out and returns consumed == 0; the caller must submit the same chunk
// again. Otherwise the whole chunk is consumed and consumed equals its length.
// After the last chunk has been processed and drained, Process returns io.EOF.
func (r *Resampler) Process(in, out [][]int32, last bool) (produced, consumed int, err error) {
	if r == nil {
		return 0, 0, fmt.Errorf("%w: nil resampler", ErrUsage)
	}
	if r.closed {
		return 0, 0, ErrClosed
	}

	n, err := r.checkBuffers(in, out)
	if err != nil {
		return 0, 0, err
	}

	if r.pending[0].Len() > 0 {
		return r.drain(out), 0, nil
	}

	if r.finished {
		if n > 0 {
			return 0, 0, ErrStreamEnded
		}
		return 0, 0, io.EOF
	}

	if n > r.MaxChunk() {
		return 0, 0, fmt.Errorf("%w: chunk of %d samples, %d free", ErrCapacityExceeded, n, r.MaxChunk())
	}

	for ch, w := range r.staging {
		if n > 0 {
			w.Append(in[ch][:n])
		}
		if last {
			w.AppendZeros(r.margin)
		}
	}

	if last {
		r.finished = true
	}

	// The cursor sits margin samples into staging and must stop margin
	// samples short of its end. On the last chunk that tail is the zero
	// padding, so the run reaches the true end of the signal.
	available := r.staging[0].Len() - 2*r.margin
	if available <= 0 {
		return 0, n, nil
	}

	count := r.interpolate(available)
	r.retire(available)

	for ch := range r.scratch {
		r.pending[ch].Append(r.scratch[ch][:count])
	}
	return r.drain(out), n, nil
}

// checkBuffers validates buffer shapes and returns the chunk length.
func (r *Resampler) checkBuffers(in, out [][]int32) (int, error) {
	channels := r.config.Channels

	if len(out) != channels {
		return 0, fmt.Errorf("%w: %d output buffers for %d channels", ErrUsage, len(out), channels)
	}
	for ch := 1; ch < channels; ch++ {
		if len(out[ch]) != len(out[0]) {
			return 0, fmt.Errorf("%w: output buffers differ in length", ErrUsage)
		}
	}
	if len(out[0]) == 0 {
		return 0, fmt.Errorf("%w: empty output buffer", ErrUsage)
	}

	if len(in) == 0 {
		return 0, nil
	}
	if len(in) != channels {
		return 0, fmt.Errorf("%w: %d input buffers for %d channels", ErrUsage, len(in), channels)
	}
	for ch := 1; ch < channels; ch++ {
		if len(in[ch]) != len(in[0]) {
			return 0, fmt.Errorf("%w: input buffers differ in length", ErrUsage)
		}
	}
	return len(in[0]), nil
}

// interpolate runs the kernel over available new samples on every channel
// and advances the shared cursor. The pass ends on the sample boundary
// margin+available, not relative to the cursor, so the fraction carried in
// from the previous pass never extends a pass past its input.
func (r *Resampler) interpolate(available int) int {
	var count int
	var next uint64
	end := uint64(r.margin+available) << FracBits

	for ch, w := range r.staging {
		t := r.time
		count = InterpolateUntil(w.Samples(), r.scratch[ch], r.step, &t, end, r.lo, r.hi)
		next = t
	}

	r.time = next
	return count
}

// retire rebases the cursor after a pass and drops input that no future
// output can reach.
func (r *Resampler) retire(available int) {
	r.time -= uint64(available) << FracBits
	drop := available

	// Whole samples the cursor stepped past the history margin are creep;
	// move them out of the cursor and into the retired input.
	if creep := int(r.time>>FracBits) - r.margin; creep > 0 {
		r.time -= uint64(creep) << FracBits
		drop += creep
	}

	for _, w := range r.staging {
		w.Retire(drop)
	}
}

// drain moves pending output into out and returns the count per channel.
func (r *Resampler) drain(out [][]int32) int {
	var n int
	for ch, w := range r.pending {
		n = w.Drain(out[ch])
	}
	return n
}

// Close releases the Resampler's buffers. Closing twice is a no-op.
func (r *Resampler) Close() error {
	if r == nil {
		return fmt.Errorf("%w: nil resampler", ErrUsage)
	}
	if r.closed {
		return nil
	}

	for ch := range r.staging {
		r.staging[ch].release()
		r.pending[ch].release()
	}
	r.staging, r.pending, r.scratch = nil, nil, nil
	r.split, r.join = nil, nil
	r.closed = true
	return nil
}

// Reset discards all buffered input and output and starts a new stream with
// the same configuration.
func (r *Resampler) Reset() error {
	if r == nil {
		return fmt.Errorf("%w: nil resampler", ErrUsage)
	}
	if r.closed {
		return ErrClosed
	}
	r.rewind()
	return nil
}

// State reports the lifecycle state. A nil Resampler reports StateClosed,
// since it accepts no calls either.
func (r *Resampler) State() State {
	switch {
	case r == nil || r.closed:
		return StateClosed
	case r.pending[0].Len() > 0:
		return StateDraining
	case r.finished:
		return StateFinished
	default:
		return StateReady
	}
}

// Pending returns the number of undelivered output samples per channel.
func (r *Resampler) Pending() int {
	if r == nil || r.closed {
		return 0
	}
	return r.pending[0].Len()
}

// Draining reports whether the next Process call will only drain output.
func (r *Resampler) Draining() bool {
	return r.Pending() > 0
}

// Finished reports whether the last chunk has been processed.
func (r *Resampler) Finished() bool {
	return r != nil && r.finished
}

// MaxChunk returns the largest chunk, in samples per channel, the next
// Process call accepts. It is never less than the capacity minus twice the
// history margin.
func (r *Resampler) MaxChunk() int {
	if r == nil || r.closed {
		return 0
	}
	return r.staging[0].Free() - r.margin
}

// OutputCapacity returns the most output samples per channel one pass can
// produce. An output buffer this large never leaves output pending.
func (r *Resampler) OutputCapacity() int {
	if r == nil {
		return 0
	}
	return r.outCap
}

// Ratio returns outputRate / inputRate.
func (r *Resampler) Ratio() float64 {
	if r == nil {
		return 0
	}
	return r.ratio
}

// Channels returns the channel count.
func (r *Resampler) Channels() int {
	if r == nil {
		return 0
	}
	return r.config.Channels
}

// Config returns the configuration with defaults applied.
func (r *Resampler) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

// Margin returns the history margin in samples.
func (r *Resampler) Margin() int {
	if r == nil {
		return 0
	}
	return r.margin
}

// Time returns the fixed-point read cursor relative to the start of the
// staging buffer.
func (r *Resampler) Time() uint64 {
	if r == nil {
		return 0
	}
	return r.time
}

// OutputLength predicts the total number of output frames for a stream of
// inputFrames, including the final flush.
func OutputLength(inputFrames, inputRate, outputRate int) int {
	if inputFrames <= 0 || inputRate <= 0 || outputRate <= 0 {
		return 0
	}
	return Count(0, Step(inputRate, outputRate), inputFrames)
}
