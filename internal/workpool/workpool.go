// Package workpool implements a small bounded worker pool for the
// embarrassingly-parallel cell operations of the linalg package. It is
// adapted from the channel-based resource-manager pattern used elsewhere in
// the CKKS ecosystem for dispatching concurrent work over a fixed pool of
// reusable resources (here, goroutine slots rather than a shared resource),
// generalized to plain index-parallel jobs with first-error reporting.
package workpool

import "sync"

// Task is a unit of work indexed by i, one of n total jobs submitted to Run.
type Task func(i int) error

// Run executes f(0), f(1), ..., f(n-1) using up to workers goroutines at a
// time, and returns the first error encountered, if any. If workers <= 1,
// the jobs run sequentially on the calling goroutine and results are
// identical to the parallel case: Run never changes what a job computes,
// only when it runs.
func Run(n, workers int, f Task) error {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	jobs := make(chan int, n)
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)

	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := f(i); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
