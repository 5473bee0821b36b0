// ABOUTME: Streaming sample rate conversion using fixed-point linear interpolation
// ABOUTME: Converts chunked audio so that output is independent of chunk boundaries
// Package resample provides streaming audio sample rate conversion.
//
// A Resampler converts one stream (mono or stereo) from an input rate to an
// output rate with linear interpolation. Input arrives in chunks of any size;
// the Resampler keeps a short history tail and a fixed-point read cursor
// between calls, so feeding a signal in 64-sample chunks produces the same
// output as feeding it in 4096-sample chunks.
//
// The interpolation kernel (Interpolate) is exported for callers that manage
// their own buffers.
//
// Example:
//
//	r, err := resample.New(resample.Config{InputRate: 44100, OutputRate: 48000, Channels: 2})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	err = r.Feed(interleaved, out, last, func(block []int32) error {
//	    return sink.Write(block)
//	})
package resample
