package datasets

import "fmt"

import "github.com/neurlang/diffar/tensor"

// NoOverlap marks an example without an overlap boundary
const NoOverlap = -1

// Example is one training window. All signals have the window length.
// Conditioned is the audio already known to the model (the previous
// window's overlap region), the rest is zero.
type Example struct {
	Clean       []float32
	Conditioned []float32
	Phonemes    []float32
	Energy      []float32
	Overlap     int
}

// Batch is N examples of equal length stacked into [N,T] matrices. Overlap
// is nil when the loader does not supply boundaries.
type Batch struct {
	Clean       tensor.Matrix
	Conditioned tensor.Matrix
	Phonemes    tensor.Matrix
	Energy      tensor.Matrix
	Overlap     []int
}

// Len is the number of examples N
func (b Batch) Len() int {
	return b.Clean.Rows
}

// Loader yields the batches of one epoch.
type Loader interface {
	// Len is the number of batches every epoch yields.
	Len() int
	// Each calls fn for every batch of the epoch, stopping at the first error.
	Each(epoch int, fn func(Batch) error) error
}

// Stack builds a batch from examples sharing one window length
func Stack(examples []Example, withOverlap bool) (Batch, error) {
	if len(examples) == 0 {
		return Batch{}, fmt.Errorf("empty batch")
	}
	width := len(examples[0].Clean)
	b := Batch{
		Clean:       tensor.NewMatrix(len(examples), width),
		Conditioned: tensor.NewMatrix(len(examples), width),
		Phonemes:    tensor.NewMatrix(len(examples), width),
		Energy:      tensor.NewMatrix(len(examples), width),
	}
	if withOverlap {
		b.Overlap = make([]int, len(examples))
	}
	for i, ex := range examples {
		for _, sig := range [][]float32{ex.Clean, ex.Conditioned, ex.Phonemes, ex.Energy} {
			if len(sig) != width {
				return Batch{}, fmt.Errorf("example %d: signal of %d samples in a batch of width %d", i, len(sig), width)
			}
		}
		copy(b.Clean.Row(i), ex.Clean)
		copy(b.Conditioned.Row(i), ex.Conditioned)
		copy(b.Phonemes.Row(i), ex.Phonemes)
		copy(b.Energy.Row(i), ex.Energy)
		if withOverlap {
			if ex.Overlap < 0 {
				return Batch{}, fmt.Errorf("example %d has no overlap boundary", i)
			}
			b.Overlap[i] = ex.Overlap
		}
	}
	return b, nil
}
