package optimizer

import "sync"

// runPool executes jobs with at most maxWorkers concurrently and waits for
// every job to finish. The barrier matters: an aggregate over a dataset must
// be complete before any phase-exit decision reads it.
func runPool(maxWorkers int, jobs []func()) {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, maxWorkers)

	for _, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j func()) {
			defer wg.Done()
			defer func() { <-sem }()
			j()
		}(job)
	}
	wg.Wait()
}
