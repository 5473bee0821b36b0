// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for wire-format audio decoders
package decode

import "errors"

// ErrPartialSample is returned when a buffer ends in the middle of a sample.
var ErrPartialSample = errors.New("data is not a whole number of samples")

// Decoder turns wire-format audio into int32 samples in the 24-bit range
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// DecodeInto appends the decoded samples to dst and returns it
	DecodeInto(dst []int32, data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}
