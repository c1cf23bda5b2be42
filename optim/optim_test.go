package optim

import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/diffar/model"

func TestAdamFirstStepMovesByLR(t *testing.T) {
	p := &model.Parameter{Name: "w", Value: []float32{1, 1, 1}, Grad: []float32{0.5, -2, 0}}
	skip := &model.Parameter{Name: "frozen", Value: []float32{3}}
	a := NewAdam(0.1)
	a.Step([]*model.Parameter{p, skip})

	// the first bias-corrected Adam step is lr*sign(g)
	assert.InDelta(t, 0.9, p.Value[0], 1e-6)
	assert.InDelta(t, 1.1, p.Value[1], 1e-6)
	assert.Equal(t, float32(1), p.Value[2])
	assert.Equal(t, float32(3), skip.Value[0])
	_, ok := a.State().Slots["frozen"]
	assert.False(t, ok, "parameters without gradient get no slot")
}

func TestAdamStateRoundTrip(t *testing.T) {
	p := &model.Parameter{Name: "w", Value: []float32{1}, Grad: []float32{1}}
	a := NewAdam(0.01)
	a.Step([]*model.Parameter{p})
	a.Step([]*model.Parameter{p})

	b := NewAdam(1)
	require.NoError(t, b.LoadState(a.State()))
	assert.Equal(t, a.State(), b.State())

	q := &model.Parameter{Name: "w", Value: []float32{p.Value[0]}, Grad: []float32{1}}
	a.Step([]*model.Parameter{p})
	b.Step([]*model.Parameter{q})
	assert.Equal(t, p.Value, q.Value)

	bad := a.State()
	bad.Slots["w"] = Slot{ExpAvg: []float32{1}, ExpAvgSq: nil}
	assert.Error(t, b.LoadState(bad))
}

func TestStateCheck(t *testing.T) {
	p := &model.Parameter{Name: "w", Value: []float32{1, 2}, Grad: []float32{1, 1}}
	a := NewAdam(0.01)
	a.Step([]*model.Parameter{p})
	assert.NoError(t, a.State().Check([]*model.Parameter{p}))

	shrunk := &model.Parameter{Name: "w", Value: []float32{1}}
	assert.Error(t, a.State().Check([]*model.Parameter{shrunk}))
	renamed := &model.Parameter{Name: "v", Value: []float32{1, 2}}
	assert.Error(t, a.State().Check([]*model.Parameter{renamed}))
}

func TestClipGradNorm(t *testing.T) {
	params := []*model.Parameter{
		{Name: "a", Grad: []float32{3}},
		{Name: "b", Grad: []float32{4}},
		{Name: "c"},
	}
	norm := ClipGradNorm(params, 1)
	assert.InDelta(t, 5, norm, 1e-9)
	got := math.Hypot(float64(params[0].Grad[0]), float64(params[1].Grad[0]))
	assert.InDelta(t, 1, got, 1e-5)

	params[0].Grad[0], params[1].Grad[0] = 0.3, 0.4
	norm = ClipGradNorm(params, 1e9)
	assert.InDelta(t, 0.5, norm, 1e-6)
	assert.Equal(t, float32(0.3), params[0].Grad[0])

	ZeroGrad(params)
	for _, p := range params {
		assert.Nil(t, p.Grad)
	}
}
