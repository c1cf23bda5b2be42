package datasets

import "fmt"
import "math/rand/v2"

// MemoryOptions configures an in-memory loader
type MemoryOptions struct {
	BatchSize   int
	WithOverlap bool
	Shuffle     bool
	Seed        uint64
	Rank        int
	WorldSize   int
}

// Memory serves examples held in memory. With WorldSize > 1 each rank reads
// a strided shard of a list padded to a multiple of WorldSize, so all
// replicas see the same number of batches. Incomplete batches are dropped.
type Memory struct {
	examples []Example
	opts     MemoryOptions
}

// NewMemory validates the options and examples
func NewMemory(examples []Example, opts MemoryOptions) (*Memory, error) {
	if opts.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size %d", opts.BatchSize)
	}
	if opts.WorldSize <= 0 {
		opts.WorldSize = 1
	}
	if opts.Rank < 0 || opts.Rank >= opts.WorldSize {
		return nil, fmt.Errorf("rank %d outside world of %d", opts.Rank, opts.WorldSize)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("no examples")
	}
	width := len(examples[0].Clean)
	for i, ex := range examples {
		if len(ex.Clean) != width {
			return nil, fmt.Errorf("example %d has %d samples, want %d", i, len(ex.Clean), width)
		}
		if opts.WithOverlap && ex.Overlap < 0 {
			return nil, fmt.Errorf("example %d has no overlap boundary", i)
		}
	}
	return &Memory{examples: examples, opts: opts}, nil
}

// shard returns the example indexes of this rank for an epoch
func (m *Memory) shard(epoch int) []int {
	n := len(m.examples)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if m.opts.Shuffle {
		rng := rand.New(rand.NewPCG(m.opts.Seed, uint64(epoch)))
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	world := m.opts.WorldSize
	total := (n + world - 1) / world * world
	for i := 0; len(order) < total; i++ {
		order = append(order, order[i])
	}
	var out []int
	for i := m.opts.Rank; i < total; i += world {
		out = append(out, order[i])
	}
	return out
}

// Examples is the shard length of this rank
func (m *Memory) Examples() int {
	return (len(m.examples) + m.opts.WorldSize - 1) / m.opts.WorldSize
}

func (m *Memory) Len() int {
	return m.Examples() / m.opts.BatchSize
}

func (m *Memory) Each(epoch int, fn func(Batch) error) error {
	idx := m.shard(epoch)
	size := m.opts.BatchSize
	group := make([]Example, size)
	for start := 0; start+size <= len(idx); start += size {
		for i := range group {
			group[i] = m.examples[idx[start+i]]
		}
		b, err := Stack(group, m.opts.WithOverlap)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}
