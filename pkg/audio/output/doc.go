// ABOUTME: Audio output package for playing resampled audio
// ABOUTME: Provides the Output interface, an oto backend and an in-memory recorder
// Package output provides audio playback interfaces.
//
// Oto plays through the system audio device at 16 bits. Recorder keeps the
// samples in memory.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 2, 16)
//	err = out.Write(samples)
package output
