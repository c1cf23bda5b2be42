package loss

import "fmt"

import "github.com/neurlang/diffar/tensor"

// Spectrogram is a differentiable transform applied to target and predicted
// noise for the auxiliary loss. Forward maps [N,T] to [N,F]; Backward maps a
// gradient on the output back to the input x.
type Spectrogram interface {
	Forward(x tensor.Matrix) tensor.Matrix
	Backward(x, grad tensor.Matrix) tensor.Matrix
}

// Breakdown reports the parts of a blended loss
type Breakdown struct {
	Total   float64
	Denoise float64
	Spec    float64
	HasSpec bool
}

// Policy selects plain or overlap-masked L1 and blends in the spectral term.
type Policy struct {
	// Margin is the number of samples before the overlap boundary still
	// trained on; Disabled turns masking off.
	Margin int
	// SpecCoeff is c in (1-c)*denoise + c*spec.
	SpecCoeff float64
	Spec      Spectrogram
	Workers   int
}

// NewPolicy builds a policy. The spectrogram factory is only called when
// coeff is positive.
func NewPolicy(margin int, coeff float64, workers int, factory func() (Spectrogram, error)) (*Policy, error) {
	if coeff < 0 || coeff > 1 {
		return nil, fmt.Errorf("spectral loss coefficient %v outside [0,1]", coeff)
	}
	if margin < 0 {
		margin = Disabled
	}
	p := &Policy{Margin: margin, SpecCoeff: coeff, Workers: workers}
	if coeff > 0 {
		if factory == nil {
			return nil, fmt.Errorf("spectral loss coefficient %v needs a spectrogram", coeff)
		}
		spec, err := factory()
		if err != nil {
			return nil, fmt.Errorf("spectrogram: %w", err)
		}
		p.Spec = spec
	}
	return p, nil
}

// Masking reports whether batches must carry overlap boundaries
func (p *Policy) Masking() bool {
	return p.Margin >= 0
}

// Compute returns the loss breakdown and the gradient of Total with respect
// to pred.
func (p *Policy) Compute(target, pred tensor.Matrix, overlap []int) (Breakdown, tensor.Matrix, error) {
	var out Breakdown
	var grad tensor.Matrix
	var err error
	if p.Masking() {
		if overlap == nil {
			return out, grad, fmt.Errorf("overlap masking enabled but batch has no overlap")
		}
		out.Denoise, grad, err = OverlapMasked(target, pred, overlap, p.Margin, p.Workers)
	} else {
		out.Denoise, grad, err = L1(target, pred, p.Workers)
	}
	if err != nil {
		return out, grad, err
	}
	if p.SpecCoeff == 0 {
		out.Total = out.Denoise
		return out, grad, nil
	}

	predSpec := p.Spec.Forward(pred)
	spec, specGrad, err := L1(p.Spec.Forward(target), predSpec, p.Workers)
	if err != nil {
		return out, grad, fmt.Errorf("spectral loss: %w", err)
	}
	back := p.Spec.Backward(pred, specGrad)

	c := p.SpecCoeff
	out.Spec, out.HasSpec = spec, true
	out.Total = (1-c)*out.Denoise + c*spec
	grad.Scale(float32(1 - c))
	grad.AddScaled(back, float32(c))
	return out, grad, nil
}
