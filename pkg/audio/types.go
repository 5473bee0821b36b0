// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, sample ranges and frame layout helpers
package audio

import (
	"fmt"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Validate checks that the format describes a stream the resampler can carry
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels)
	}
	if f.BitDepth != 16 && f.BitDepth != 24 {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", f.BitDepth)
	}
	return nil
}

// BytesPerFrame returns the size of one interleaved PCM frame
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitDepth / 8
}

// SampleRange returns the smallest and largest sample for a bit depth.
// Depths other than 16 use the 24-bit range.
func SampleRange(bitDepth int) (lo, hi int32) {
	if bitDepth == 16 {
		return math.MinInt16, math.MaxInt16
	}
	return Min24Bit, Max24Bit
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// SampleFromWAVFloat converts a float sample as produced by beep's wav
// decoder, an n-bit integer divided by 2^n - 1, back to an int32 sample in
// the 24-bit range. Depths other than 16 are read as 24-bit.
func SampleFromWAVFloat(x float64, bitDepth int) int32 {
	lo, hi := SampleRange(bitDepth)
	span := math.Exp2(float64(bitDepth)) - 1
	if bitDepth != 16 {
		span = math.Exp2(24) - 1
	}

	v := int32(max(float64(lo), min(float64(hi), math.Round(x*span))))
	if bitDepth == 16 {
		return SampleFromInt16(int16(v))
	}
	return v
}

// Deinterleave splits interleaved frames into one slice per channel.
// Each dst slice must hold len(in)/len(dst) samples.
func Deinterleave(in []int32, dst [][]int32) {
	channels := len(dst)
	if channels == 1 {
		copy(dst[0], in)
		return
	}
	for i, s := range in {
		dst[i%channels][i/channels] = s
	}
}

// Interleave writes the first frames samples of each channel into out
func Interleave(src [][]int32, frames int, out []int32) {
	channels := len(src)
	if channels == 1 {
		copy(out, src[0][:frames])
		return
	}
	for f := 0; f < frames; f++ {
		for ch := 0; ch < channels; ch++ {
			out[f*channels+ch] = src[ch][f]
		}
	}
}
