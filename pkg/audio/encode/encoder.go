// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for wire-format audio encoders
package encode

// Encoder encodes int32 samples in the 24-bit range to a wire format
type Encoder interface {
	// Encode converts PCM samples to encoded audio data
	Encode(samples []int32) ([]byte, error)

	// AppendEncoded appends the encoding of samples to dst and returns it
	AppendEncoded(dst []byte, samples []int32) []byte

	// Close releases encoder resources
	Close() error
}
