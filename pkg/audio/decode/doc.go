// ABOUTME: Audio decoder package for little-endian PCM
// ABOUTME: Provides the Decoder interface and the PCM implementation
// Package decode turns wire-format audio into samples.
//
// Supports: PCM (16-bit and 24-bit, little-endian, interleaved)
//
// Decoders output int32 samples in the 24-bit range, the sample domain the
// resampling pipeline runs in. Compressed files are read by pkg/audio/source.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	samples, err := decoder.Decode(audioData)
package decode
