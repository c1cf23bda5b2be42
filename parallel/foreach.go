package parallel

import "sync"

// ForEach executes body for every index in [0, length) on at most limit
// goroutines. Indexes are handed out in order; completion order is unspecified.
func ForEach(length, limit int, body func(i int)) {
	if length <= 0 {
		return // No iterations to perform
	}
	if limit <= 0 {
		limit = 1 // Default to 1 if limit is zero or negative
	}
	if limit > length {
		limit = length
	}
	if limit == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}

	next := make(chan int, limit)
	var wg sync.WaitGroup
	wg.Add(limit)
	for n := 0; n < limit; n++ {
		go func() {
			defer wg.Done()
			for i := range next {
				body(i)
			}
		}()
	}
	for i := 0; i < length; i++ {
		next <- i
	}
	close(next)

	wg.Wait() // Wait for all goroutines to finish
}

// Sum evaluates body for every index on at most limit goroutines and adds the
// results in index order, so the total does not depend on scheduling.
func Sum(length, limit int, body func(i int) float64) (total float64) {
	if length <= 0 {
		return 0
	}
	parts := make([]float64, length)
	ForEach(length, limit, func(i int) {
		parts[i] = body(i)
	})
	for _, p := range parts {
		total += p
	}
	return total
}
