package rangesearch

import "sync"

// forEachChunk splits [0, n) into contiguous chunks and runs fn on each from
// its own goroutine. workers <= 1 runs fn(0, n) on the calling goroutine.
// Chunks never overlap, so workers writing only to their own slots need no
// synchronization and the combined output matches the serial run.
func forEachChunk(n, workers int, fn func(start, end int)) {
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	perWorker := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > n {
			end = n
		}
		if start >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}

	wg.Wait()
}
