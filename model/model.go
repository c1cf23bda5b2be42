package model

import "fmt"
import "sort"

import "github.com/neurlang/diffar/tensor"

// Input is one batch presented to the network. All matrices are [N,T];
// Phonemes and Energy may be empty when a dataset carries no conditioning.
type Input struct {
	Noisy     tensor.Matrix
	Audio     tensor.Matrix
	Timesteps []int
	Phonemes  tensor.Matrix
	Energy    tensor.Matrix
}

// Parameter is a named trainable array. A nil Grad means the parameter
// received no gradient this step and the optimizer leaves it untouched.
type Parameter struct {
	Name  string
	Value []float32
	Grad  []float32
}

// Model maps noisy audio plus conditioning to predicted noise.
type Model interface {
	// Forward predicts noise [N,T] and remembers what Backward needs.
	Forward(in Input) (tensor.Matrix, error)
	// Backward accumulates parameter gradients from the gradient of the
	// loss with respect to the last Forward output.
	Backward(grad tensor.Matrix) error
	Parameters() []*Parameter
}

// Size counts trainable scalars
func Size(m Model) (n int) {
	for _, p := range m.Parameters() {
		n += len(p.Value)
	}
	return n
}

// StateDict copies the parameter values keyed by name
func StateDict(m Model) map[string][]float32 {
	out := make(map[string][]float32)
	for _, p := range m.Parameters() {
		out[p.Name] = append([]float32(nil), p.Value...)
	}
	return out
}

// LoadStateDict restores parameter values. Missing, unexpected or resized
// entries are errors.
func LoadStateDict(m Model, state map[string][]float32) error {
	known := make(map[string]bool)
	for _, p := range m.Parameters() {
		known[p.Name] = true
		v, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("missing parameter %q", p.Name)
		}
		if len(v) != len(p.Value) {
			return fmt.Errorf("parameter %q has %d values, want %d", p.Name, len(v), len(p.Value))
		}
		copy(p.Value, v)
	}
	var extra []string
	for name := range state {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("unexpected parameters %v", extra)
	}
	return nil
}
