// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, sample ranges and sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// This package defines core types used throughout the resampler:
//   - Format: Describes audio stream format (codec, sample rate, channels, bit depth)
//   - SampleRange: Saturation bounds for 16-bit and 24-bit samples
//
// Samples travel through the pipeline as int32 in the 24-bit range. It also
// provides utilities for converting between sample layouts:
//   - 16-bit ↔ 24-bit conversions
//   - int32 ↔ packed byte conversions
//   - interleaved ↔ per-channel frames
//
// Example:
//
//	format := audio.Format{
//	    Codec:      "pcm",
//	    SampleRate: 48000,
//	    Channels:   2,
//	    BitDepth:   24,
//	}
//
//	// Convert 16-bit sample to 24-bit range
//	sample24 := audio.SampleFromInt16(sample16)
package audio
