// ABOUTME: Audio output interface definition and an in-memory recorder
// ABOUTME: Common interface for playback backends and sinks
package output

import (
	"fmt"
	"sync"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output for a stream format
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs interleaved samples in the 24-bit range (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// Recorder is an Output that keeps everything written to it
type Recorder struct {
	mu         sync.Mutex
	samples    []int32
	sampleRate int
	channels   int
	bitDepth   int
	open       bool
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Open records the stream format
func (r *Recorder) Open(sampleRate, channels, bitDepth int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid output format: %dHz %dch", sampleRate, channels)
	}
	r.sampleRate, r.channels, r.bitDepth = sampleRate, channels, bitDepth
	r.open = true
	return nil
}

// Write appends samples
func (r *Recorder) Write(samples []int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return fmt.Errorf("output not initialized")
	}
	r.samples = append(r.samples, samples...)
	return nil
}

// Close stops accepting samples
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	return nil
}

// Samples returns a copy of everything written
func (r *Recorder) Samples() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int32(nil), r.samples...)
}

// Format returns the format passed to Open
func (r *Recorder) Format() (sampleRate, channels, bitDepth int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sampleRate, r.channels, r.bitDepth
}
