// ABOUTME: Audio encoder package for PCM and WAV output
// ABOUTME: Provides the Encoder interface, the PCM encoder and a WAV file writer
// Package encode turns samples into wire formats and files.
//
// Supports: PCM (16-bit and 24-bit, little-endian) and WAV files.
//
// All encoders accept int32 samples in the 24-bit range.
//
// Example:
//
//	encoder, err := encode.NewPCM(format)
//	data, err := encoder.Encode(samples)
//
//	f, _ := os.Create("out.wav")
//	err = encode.WriteWAV(f, source, format)
package encode
