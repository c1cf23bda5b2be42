package loss

import "errors"
import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/diffar/tensor"

func ramp(rows, cols int, scale float32) tensor.Matrix {
	m := tensor.NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = scale * float32((i*37)%17-8)
	}
	return m
}

func TestL1(t *testing.T) {
	target, _ := tensor.FromRows([][]float32{{0, 0}, {1, 1}})
	pred, _ := tensor.FromRows([][]float32{{1, -1}, {1, 3}})
	l, g, err := L1(target, pred, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, l, 1e-12)
	assert.Equal(t, []float32{0.25, -0.25, 0, 0.25}, g.Data)
}

func TestL1ShapeMismatch(t *testing.T) {
	_, _, err := L1(tensor.NewMatrix(2, 3), tensor.NewMatrix(3, 2), 1)
	assert.Error(t, err)
}

func TestOverlapMaskedScenario(t *testing.T) {
	const T = 100
	target := tensor.NewMatrix(2, T)
	pred := tensor.NewMatrix(2, T)
	for i := range pred.Data {
		pred.Data[i] = 1
	}
	l, g, err := OverlapMasked(target, pred, []int{50, 0}, 10, 2)
	require.NoError(t, err)

	// row 0 trains on [40,100): 60 samples over a denominator of 60;
	// row 1 trains on all 100 samples over a denominator of 110.
	want := (60.0/60.0 + 100.0/110.0) / 2
	assert.InDelta(t, want, l, 1e-9)

	for i := 0; i < T; i++ {
		if i < 40 {
			assert.Zero(t, g.At(0, i), "row 0 sample %d must be masked", i)
		} else {
			assert.InDelta(t, 1.0/60/2, g.At(0, i), 1e-9)
		}
		assert.InDelta(t, 1.0/110/2, g.At(1, i), 1e-9)
	}

	start, active := Active(T, 50, 10)
	assert.Equal(t, 40, start)
	assert.Equal(t, 60, active)
	start, active = Active(T, 0, 10)
	assert.Equal(t, 0, start)
	assert.Equal(t, 110, active)
}

func TestOverlapMaskedZeroOverlapIsScaledL1(t *testing.T) {
	target := ramp(4, 50, 0.1)
	pred := ramp(4, 50, -0.3)
	full, _, err := L1(target, pred, 1)
	require.NoError(t, err)
	for _, margin := range []int{0, 5, 64} {
		masked, _, err := OverlapMasked(target, pred, make([]int, 4), margin, 3)
		require.NoError(t, err)
		assert.InDelta(t, full*50/float64(50+margin), masked, 1e-6, "margin %d", margin)
	}
}

func TestOverlapMaskedFullyOverlappedRow(t *testing.T) {
	target := tensor.NewMatrix(1, 8)
	pred := ramp(1, 8, 1)
	l, _, err := OverlapMasked(target, pred, []int{8}, 2, 1)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(l) || math.IsInf(l, 0))
	want := (math.Abs(float64(pred.Data[6])) + math.Abs(float64(pred.Data[7]))) / 2
	assert.InDelta(t, want, l, 1e-6)

	_, active := Active(8, 8, 2)
	assert.Equal(t, 2, active)
	_, active = Active(8, 8, 0)
	assert.Equal(t, 1, active, "denominator must not reach zero")
	l, _, err = OverlapMasked(target, pred, []int{8}, 0, 1)
	require.NoError(t, err)
	assert.Zero(t, l)
}

func TestOverlapMaskedDisabled(t *testing.T) {
	_, _, err := OverlapMasked(tensor.NewMatrix(1, 4), tensor.NewMatrix(1, 4), []int{0}, Disabled, 1)
	assert.True(t, errors.Is(err, ErrMaskDisabled))

	_, _, err = OverlapMasked(tensor.NewMatrix(2, 4), tensor.NewMatrix(2, 4), []int{0}, 0, 1)
	assert.Error(t, err, "overlap length must match rows")
}
