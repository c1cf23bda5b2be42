package datasets

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func examples(n, width int) []Example {
	out := make([]Example, n)
	for i := range out {
		sig := make([]float32, width)
		for j := range sig {
			sig[j] = float32(i)
		}
		out[i] = Example{Clean: sig, Conditioned: sig, Phonemes: sig, Energy: sig, Overlap: i % width}
	}
	return out
}

func collect(t *testing.T, l Loader, epoch int) (ids []int, batches int) {
	require.NoError(t, l.Each(epoch, func(b Batch) error {
		batches++
		for i := 0; i < b.Len(); i++ {
			ids = append(ids, int(b.Clean.At(i, 0)))
		}
		return nil
	}))
	return ids, batches
}

func TestMemoryDropsIncompleteBatch(t *testing.T) {
	m, err := NewMemory(examples(10, 4), MemoryOptions{BatchSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	ids, batches := collect(t, m, 0)
	assert.Equal(t, 3, batches)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, ids)
}

func TestMemoryShardsEqually(t *testing.T) {
	seen := map[int]int{}
	for rank := 0; rank < 3; rank++ {
		m, err := NewMemory(examples(10, 4), MemoryOptions{BatchSize: 2, Rank: rank, WorldSize: 3, Shuffle: true, Seed: 5})
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len(), "rank %d", rank)
		assert.Equal(t, 4, m.Examples())
		ids, batches := collect(t, m, 1)
		assert.Equal(t, m.Len(), batches)
		for _, id := range ids {
			seen[id]++
		}
	}
	assert.GreaterOrEqual(t, len(seen), 8)
}

func TestMemoryShuffleDependsOnEpoch(t *testing.T) {
	m, err := NewMemory(examples(32, 2), MemoryOptions{BatchSize: 4, Shuffle: true, Seed: 1})
	require.NoError(t, err)
	a, _ := collect(t, m, 0)
	again, _ := collect(t, m, 0)
	b, _ := collect(t, m, 1)
	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.ElementsMatch(t, a, b)
}

func TestMemoryOverlap(t *testing.T) {
	m, err := NewMemory(examples(4, 8), MemoryOptions{BatchSize: 4, WithOverlap: true})
	require.NoError(t, err)
	require.NoError(t, m.Each(0, func(b Batch) error {
		assert.Equal(t, []int{0, 1, 2, 3}, b.Overlap)
		return nil
	}))

	plain, err := NewMemory(examples(4, 8), MemoryOptions{BatchSize: 4})
	require.NoError(t, err)
	require.NoError(t, plain.Each(0, func(b Batch) error {
		assert.Nil(t, b.Overlap)
		return nil
	}))

	bad := examples(2, 8)
	bad[1].Overlap = NoOverlap
	_, err = NewMemory(bad, MemoryOptions{BatchSize: 1, WithOverlap: true})
	assert.Error(t, err)
}

func TestSynthetic(t *testing.T) {
	exs := Synthetic(5, 64, 3)
	require.Len(t, exs, 5)
	for _, ex := range exs {
		assert.Len(t, ex.Clean, 64)
		assert.GreaterOrEqual(t, ex.Overlap, 0)
		assert.LessOrEqual(t, ex.Overlap, 32)
		for i := ex.Overlap; i < 64; i++ {
			assert.Zero(t, ex.Conditioned[i])
		}
		for i := 0; i < ex.Overlap; i++ {
			assert.Equal(t, ex.Clean[i], ex.Conditioned[i])
		}
	}
	assert.Equal(t, exs, Synthetic(5, 64, 3))
}
