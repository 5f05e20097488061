// Package parallel splits index ranges across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per CPU core, and
// runs fn(start, end) for each range concurrently. It returns when every
// range is done.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker limit. workers <= 0
// means one per CPU core.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// Map evaluates fn for every index in [0, n) across workers and returns the
// results in index order, so the output does not depend on scheduling.
func Map[T any](n, workers int, fn func(i int) T) []T {
	out := make([]T, n)
	ParallelizeN(n, workers, func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = fn(i)
		}
	})
	return out
}
