package model

import "fmt"

import "github.com/neurlang/diffar/tensor"

// Affine predicts noise as
//
//	pred = gain[t]*noisy + c[0]*audio + c[1]*phonemes + c[2]*energy + bias[t]
//
// with one gain and bias per diffusion step.
type Affine struct {
	gain *Parameter
	bias *Parameter
	cond *Parameter

	last Input
}

// NewAffine creates a reference model for a schedule of steps diffusion steps
func NewAffine(steps int) *Affine {
	return &Affine{
		gain: &Parameter{Name: "noisy_gain", Value: make([]float32, steps)},
		bias: &Parameter{Name: "step_bias", Value: make([]float32, steps)},
		cond: &Parameter{Name: "cond_gain", Value: make([]float32, 3)},
	}
}

func (a *Affine) Parameters() []*Parameter {
	return []*Parameter{a.gain, a.bias, a.cond}
}

func (a *Affine) conditioning(in Input) []tensor.Matrix {
	return []tensor.Matrix{in.Audio, in.Phonemes, in.Energy}
}

func (a *Affine) Forward(in Input) (tensor.Matrix, error) {
	if len(in.Timesteps) != in.Noisy.Rows {
		return tensor.Matrix{}, fmt.Errorf("%d timesteps for %d rows", len(in.Timesteps), in.Noisy.Rows)
	}
	for i, c := range a.conditioning(in) {
		if c.Rows != 0 && !c.SameShape(in.Noisy) {
			return tensor.Matrix{}, fmt.Errorf("conditioning %d shape %s, want %s", i, c.Shape(), in.Noisy.Shape())
		}
	}
	out := tensor.NewMatrix(in.Noisy.Rows, in.Noisy.Cols)
	for row, ts := range in.Timesteps {
		if ts < 0 || ts >= len(a.gain.Value) {
			return tensor.Matrix{}, fmt.Errorf("timestep %d outside [0,%d)", ts, len(a.gain.Value))
		}
		g, b := a.gain.Value[ts], a.bias.Value[ts]
		dst, x := out.Row(row), in.Noisy.Row(row)
		for i := range dst {
			dst[i] = g*x[i] + b
		}
		for k, c := range a.conditioning(in) {
			if c.Rows == 0 {
				continue
			}
			w, src := a.cond.Value[k], c.Row(row)
			for i := range dst {
				dst[i] += w * src[i]
			}
		}
	}
	a.last = in
	return out, nil
}

func grad(p *Parameter) []float32 {
	if p.Grad == nil {
		p.Grad = make([]float32, len(p.Value))
	}
	return p.Grad
}

func (a *Affine) Backward(g tensor.Matrix) error {
	in := a.last
	if !g.SameShape(in.Noisy) {
		return fmt.Errorf("gradient %s does not match last forward %s", g.Shape(), in.Noisy.Shape())
	}
	dgain, dbias, dcond := grad(a.gain), grad(a.bias), grad(a.cond)
	for row, ts := range in.Timesteps {
		gr, x := g.Row(row), in.Noisy.Row(row)
		var sg, sb float32
		for i := range gr {
			sg += gr[i] * x[i]
			sb += gr[i]
		}
		dgain[ts] += sg
		dbias[ts] += sb
		for k, c := range a.conditioning(in) {
			if c.Rows == 0 {
				continue
			}
			var s float32
			for i, v := range c.Row(row) {
				s += gr[i] * v
			}
			dcond[k] += s
		}
	}
	return nil
}
