package optim

import "math"

import "github.com/neurlang/diffar/model"

// ZeroGrad drops the gradients, so parameters that get none this step are
// not moved by momentum.
func ZeroGrad(params []*model.Parameter) {
	for _, p := range params {
		p.Grad = nil
	}
}

// ClipGradNorm rescales all gradients so their joint L2 norm is at most max
// and returns the norm measured before clipping.
func ClipGradNorm(params []*model.Parameter, max float64) float64 {
	var sq float64
	for _, p := range params {
		for _, g := range p.Grad {
			sq += float64(g) * float64(g)
		}
	}
	norm := math.Sqrt(sq)
	coef := max / (norm + 1e-6)
	if coef < 1 {
		for _, p := range params {
			for i := range p.Grad {
				p.Grad[i] *= float32(coef)
			}
		}
	}
	return norm
}
