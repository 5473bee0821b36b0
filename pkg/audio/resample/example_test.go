// ABOUTME: Runnable example of the streaming resampler
// ABOUTME: Upsamples a short mono signal in one final chunk
package resample_test

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/resample-go/pkg/audio/resample"
)

func Example() {
	r, err := resample.New(resample.Config{InputRate: 8000, OutputRate: 16000, Channels: 1})
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	out := [][]int32{make([]int32, 16)}
	produced, _, err := r.Process([][]int32{{100, 200, 100, 0}}, out, true)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(out[0][:produced])
	// Output: [100 150 200 150 100 50 0 0]
}

func ExampleResampler_Feed() {
	r, err := resample.New(resample.Config{InputRate: 48000, OutputRate: 24000, Channels: 2})
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	in := make([]int32, 2*4800)
	total := 0
	err = r.Feed(in, make([]int32, 1024), true, func(block []int32) error {
		total += len(block) / 2
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(total)
	// Output: 2400
}
