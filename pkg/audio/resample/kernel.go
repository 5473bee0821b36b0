// ABOUTME: Fixed-point linear interpolation kernel
// ABOUTME: Pure function producing output samples from a history-padded input run
package resample

const (
	// FracBits is the number of fractional bits in the time cursor.
	FracBits = 32

	// FracMask selects the fractional part of the time cursor.
	FracMask = 1<<FracBits - 1

	// WeightBits is the precision of the interpolation weight. The weight is
	// the top WeightBits of the cursor fraction, which keeps the weighted sum
	// of two int32 samples inside int64.
	WeightBits = 16

	weightOne   = 1 << WeightBits
	weightShift = FracBits - WeightBits
	roundBias   = 1 << (WeightBits - 1)
)

// Step returns the fixed-point cursor increment per output sample,
// round(inputRate/outputRate * 2^FracBits), computed in integers.
// Both rates must be positive and no larger than MaxRate.
func Step(inputRate, outputRate int) uint64 {
	in := uint64(inputRate)
	out := uint64(outputRate)
	return (in<<FracBits + out/2) / out
}

// Count returns how many samples Interpolate writes for a cursor t and n
// new input samples when y is large enough.
func Count(t, step uint64, n int) int {
	if n <= 0 || step == 0 {
		return 0
	}
	end := t + uint64(n)<<FracBits
	if t >= end {
		return 0
	}
	return int((end - t + step - 1) / step)
}

// Interpolate writes linearly interpolated samples of x into y.
//
// The cursor *t addresses x in FracBits fixed point; x must hold valid
// samples at index (*t >> FracBits) + 1 for every output produced, which the
// caller guarantees with history padding. Output continues while the cursor is
// below its starting value plus n input samples, advancing by step each time.
// Results outside [lo, hi] saturate to the nearer bound.
//
// Interpolate stops early if y fills up; *t then addresses the next
// unwritten output. It returns the number of samples written.
func Interpolate(x, y []int32, step uint64, t *uint64, n int, lo, hi int32) int {
	if n <= 0 {
		return 0
	}
	return InterpolateUntil(x, y, step, t, *t+uint64(n)<<FracBits, lo, hi)
}

// InterpolateUntil is Interpolate bounded by an absolute cursor position:
// output continues while *t is below end.
func InterpolateUntil(x, y []int32, step uint64, t *uint64, end uint64, lo, hi int32) int {
	cur := *t
	written := 0

	for cur < end && written < len(y) {
		i := cur >> FracBits
		w := int64((cur & FracMask) >> weightShift)

		v := int64(x[i])*(weightOne-w) + int64(x[i+1])*w
		y[written] = Saturate((v+roundBias)>>WeightBits, lo, hi)

		written++
		cur += step
	}

	*t = cur
	return written
}

// Saturate clamps v to [lo, hi].
func Saturate(v int64, lo, hi int32) int32 {
	if v > int64(hi) {
		return hi
	}
	if v < int64(lo) {
		return lo
	}
	return int32(v)
}
