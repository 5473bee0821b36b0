// ABOUTME: Error values returned by the resampler
// ABOUTME: Configuration, allocation, usage and capacity failures
package resample

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig reports an invalid rate, channel count, bit depth or capacity.
	ErrConfig = errors.New("resample: invalid configuration")

	// ErrAllocation reports a buffer that cannot be allocated for the
	// requested configuration.
	ErrAllocation = errors.New("resample: allocation failed")

	// ErrUsage reports a call on a nil, closed or finished resampler, or
	// with mismatched buffers.
	ErrUsage = errors.New("resample: invalid use")

	// ErrCapacityExceeded reports a chunk larger than the staging buffer
	// can hold. The chunk is not consumed.
	ErrCapacityExceeded = errors.New("resample: chunk exceeds staging capacity")

	// ErrClosed is returned by Process after Close.
	ErrClosed = fmt.Errorf("%w: resampler is closed", ErrUsage)

	// ErrStreamEnded is returned when input arrives after the last chunk.
	ErrStreamEnded = fmt.Errorf("%w: stream already ended", ErrUsage)
)
