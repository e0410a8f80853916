package correction

import "sync"

// forEachFrame calls fn for every frame index, splitting the frames into
// contiguous ranges handled by up to workers goroutines. Each frame is
// visited by exactly one goroutine.
func forEachFrame(frames, workers int, fn func(f int)) {
	if workers < 1 {
		workers = 1
	}
	if workers > frames {
		workers = frames
	}
	if workers <= 1 {
		for f := 0; f < frames; f++ {
			fn(f)
		}
		return
	}

	framesPerWorker := (frames + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * framesPerWorker
		end := start + framesPerWorker
		if end > frames {
			end = frames
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for f := start; f < end; f++ {
				fn(f)
			}
		}(start, end)
	}
	wg.Wait()
}
