package trainer

import "math"

import "github.com/neurlang/diffar/datasets"
import "github.com/neurlang/diffar/diffusion"
import "github.com/neurlang/diffar/loss"
import "github.com/neurlang/diffar/model"
import "github.com/neurlang/diffar/optim"
import "github.com/neurlang/diffar/tensor"

// unclipped stands in for a zero max_grad_norm
const unclipped = 1e9

func (l *Learner) forward(b datasets.Batch) (loss.Breakdown, tensor.Matrix, error) {
	overlap := b.Overlap
	if !l.policy.Masking() {
		overlap = nil
	}
	st := diffusion.Noise(b.Clean, l.retention, l.rng, l.workers)
	pred, err := l.model.Forward(model.Input{
		Noisy:     st.Noisy,
		Audio:     b.Conditioned,
		Timesteps: st.Timesteps,
		Phonemes:  b.Phonemes,
		Energy:    b.Energy,
	})
	if err != nil {
		return loss.Breakdown{}, tensor.Matrix{}, err
	}
	if !pred.SameShape(st.Noise) {
		return loss.Breakdown{}, tensor.Matrix{}, l.fatal(KindAssertion, "prediction %s for noise %s", pred.Shape(), st.Noise.Shape())
	}
	return l.policy.Compute(st.Noise, pred, overlap)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// TrainStep applies one optimizer update for a batch. A non-finite loss is fatal
// and leaves parameters and step untouched.
func (l *Learner) TrainStep(b datasets.Batch) (loss.Breakdown, error) {
	params := l.model.Parameters()
	optim.ZeroGrad(params)
	br, grad, err := l.forward(b)
	if err != nil {
		return br, err
	}
	if !finite(br.Total) {
		return br, l.fatal(KindNaN, "detected %v loss at step %d", br.Total, l.step)
	}
	if err := l.model.Backward(grad); err != nil {
		return br, err
	}
	max := l.params.MaxGradNorm
	if max == 0 {
		max = unclipped
	}
	l.gradNorm = optim.ClipGradNorm(params, max)
	l.opt.Step(params)
	l.step++
	return br, nil
}

// ValidLoss evaluates a batch without touching the parameters
func (l *Learner) ValidLoss(b datasets.Batch) (loss.Breakdown, error) {
	br, _, err := l.forward(b)
	return br, err
}
