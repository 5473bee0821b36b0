// ABOUTME: Parallel batch conversion
// ABOUTME: Bounds running jobs with a weighted semaphore, each job with its own resampler
package convert

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunBatch converts jobs with at most workers running at once. Jobs that
// play audio share one output, so they run one at a time in a single slot.
// The first failure cancels the jobs still running; results are in job
// order and hold zero values for jobs that did not finish.
func RunBatch(ctx context.Context, jobs []Job, workers int, opts Options) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]Result, len(jobs))
	slots := semaphore.NewWeighted(int64(workers))

	g, gctx := errgroup.WithContext(ctx)

	// run holds one worker slot while it converts the given jobs in order.
	// The slot is acquired inside the goroutine so a cancelled batch never
	// starts the jobs still waiting.
	run := func(indices ...int) func() error {
		return func() error {
			if err := slots.Acquire(gctx, 1); err != nil {
				return fmt.Errorf("failed to acquire worker slot: %w", err)
			}
			defer slots.Release(1)

			for _, i := range indices {
				res, err := Run(gctx, jobs[i], opts)
				if err != nil {
					return fmt.Errorf("job %s (%s): %w", jobs[i].ID, jobs[i].Input, err)
				}
				results[i] = res
			}
			return nil
		}
	}

	var playing []int
	for i, job := range jobs {
		if job.Play {
			playing = append(playing, i)
			continue
		}
		g.Go(run(i))
	}
	if len(playing) > 0 {
		g.Go(run(playing...))
	}

	if err := g.Wait(); err != nil {
		log.Printf("Batch failed: %v", err)
		return results, err
	}

	log.Printf("Batch finished: %d jobs", len(jobs))
	return results, nil
}
