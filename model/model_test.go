package model

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/diffar/tensor"

func TestAffineForwardBackward(t *testing.T) {
	m := NewAffine(2)
	m.gain.Value[1] = 2
	m.bias.Value[1] = 0.5
	m.cond.Value[0] = -1

	noisy, _ := tensor.FromRows([][]float32{{1, 2}, {3, 4}})
	audio, _ := tensor.FromRows([][]float32{{1, 1}, {0, 1}})
	out, err := m.Forward(Input{Noisy: noisy, Audio: audio, Timesteps: []int{0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -1, 6.5, 7.5}, out.Data)

	g, _ := tensor.FromRows([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, m.Backward(g))
	assert.Equal(t, []float32{1, 4}, m.gain.Grad)
	assert.Equal(t, []float32{1, 1}, m.bias.Grad)
	assert.Equal(t, []float32{2, 0, 0}, m.cond.Grad)
}

func TestAffineRejectsBadTimestep(t *testing.T) {
	m := NewAffine(2)
	_, err := m.Forward(Input{Noisy: tensor.NewMatrix(1, 3), Timesteps: []int{2}})
	assert.Error(t, err)
	_, err = m.Forward(Input{Noisy: tensor.NewMatrix(2, 3), Timesteps: []int{0}})
	assert.Error(t, err)
}

func TestStateDictRoundTrip(t *testing.T) {
	a := NewAffine(3)
	a.gain.Value[2] = 0.25
	a.cond.Value[1] = -4
	state := StateDict(a)
	a.gain.Value[2] = 9
	assert.Equal(t, float32(0.25), state["noisy_gain"][2], "state dict must copy")

	b := NewAffine(3)
	require.NoError(t, LoadStateDict(b, state))
	assert.Equal(t, StateDict(b), state)
	assert.Equal(t, 3+3+3, Size(b))

	delete(state, "step_bias")
	assert.Error(t, LoadStateDict(b, state))
	state["step_bias"] = make([]float32, 3)
	state["extra"] = []float32{1}
	assert.Error(t, LoadStateDict(b, state))
	assert.Error(t, LoadStateDict(NewAffine(4), StateDict(a)))
}
