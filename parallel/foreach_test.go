package parallel

import "sync/atomic"
import "testing"

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	for _, limit := range []int{-1, 0, 1, 3, 64} {
		var seen [100]int32
		ForEach(len(seen), limit, func(i int) {
			atomic.AddInt32(&seen[i], 1)
		})
		for i, v := range seen {
			if v != 1 {
				t.Fatalf("limit %d: index %d visited %d times", limit, i, v)
			}
		}
	}
}

func TestForEachEmpty(t *testing.T) {
	ForEach(0, 4, func(i int) {
		t.Fatalf("body called for empty range")
	})
}

func TestSumIsOrdered(t *testing.T) {
	got := Sum(1000, 8, func(i int) float64 { return 1.0 / float64(i+1) })
	var want float64
	for i := 0; i < 1000; i++ {
		want += 1.0 / float64(i+1)
	}
	if got != want {
		t.Errorf("Sum = %v, want %v", got, want)
	}
}
