package trainer

import "context"
import "fmt"
import "math"

import "github.com/neurlang/diffar/checkpoint"
import "github.com/neurlang/diffar/datasets"
import "github.com/neurlang/diffar/metrics"

// Result summarises a finished training run
type Result struct {
	Steps     int
	Epochs    int
	Loss      float64
	BestLoss  float64
	BestValid float64
}

// TrainEpoch trains on every batch of the epoch and returns the training
// loss averaged over batches and replicas.
func (l *Learner) TrainEpoch(ctx context.Context, epoch int) (float64, error) {
	l.state = Training
	if l.train.Len() == 0 {
		return 0, l.fatal(KindAssertion, "training loader yields no batches")
	}
	var sum, denoise, spec float64
	progress := l.bar(fmt.Sprintf("Step: %d", l.step), l.train.Len())
	err := l.train.Each(epoch, func(b datasets.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		br, err := l.TrainStep(b)
		if err != nil {
			return err
		}
		sum += br.Total
		if br.HasSpec {
			denoise += br.Denoise
			spec += br.Spec
		}
		progress.increment()
		return nil
	})
	progress.done(err)
	if err != nil {
		return 0, err
	}

	n := float64(l.train.Len())
	avg, err := l.coll.Average(ctx, []float64{sum / n, denoise / n, spec / n})
	if err != nil {
		return 0, &FatalError{Step: l.step, Kind: KindCollective, Err: err}
	}
	if l.policy.SpecCoeff > 0 {
		l.logger.Info("train loss breakdown", "denoise", fmt.Sprintf("%.4f", avg[1]), "spec", fmt.Sprintf("%.4f", avg[2]))
	}
	return avg[0], nil
}

// Train runs epochs until the step budget is spent. The budget is checked
// before each epoch, so a budget of zero trains nothing; a negative budget
// never ends.
func (l *Learner) Train(ctx context.Context, maxSteps int) (res Result, err error) {
	defer func() {
		res.Steps = l.step
		if err != nil {
			l.state = Failed
		} else {
			l.state = Terminated
		}
	}()
	res.BestLoss, res.BestValid = math.Inf(1), math.Inf(1)
	for epoch := 0; ; epoch++ {
		if maxSteps >= 0 && l.step >= maxSteps {
			l.logger.Info("step budget reached", "step", l.step, "max_steps", maxSteps)
			return res, nil
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Loss, err = l.TrainEpoch(ctx, epoch)
		if err != nil {
			return res, err
		}
		res.Epochs++
		l.scalar(metrics.TrainLoss, res.Loss)
		l.scalar(metrics.TrainGradNorm, l.gradNorm)

		if l.valid != nil && epoch != 0 && epoch%l.params.ValEveryNEpochs == 0 {
			valid, err := l.EvalEpoch(ctx, l.valid, "evaluating")
			if err != nil {
				return res, err
			}
			l.scalar(metrics.ValidLoss, valid)
			if l.Coordinator() && valid < res.BestValid {
				if err := l.save(checkpoint.BestValid); err != nil {
					return res, err
				}
				res.BestValid = valid
			}
		}

		if l.Coordinator() && epoch%l.params.CheckpointEveryNEpochs == 0 {
			if err := l.save(checkpoint.General); err != nil {
				return res, err
			}
			if res.Loss < res.BestLoss {
				if err := l.save(checkpoint.BestTrain); err != nil {
					return res, err
				}
				res.BestLoss = res.Loss
			}
		}
		if err := l.sink.Flush(); err != nil {
			l.logger.Warn("metrics flush failed", "error", err)
		}
		l.logger.Debug("epoch finished", "epoch", epoch, "step", l.step, "loss", res.Loss)
	}
}

func (l *Learner) scalar(tag string, value float64) {
	if err := l.sink.Scalar(tag, l.step, value); err != nil {
		l.logger.Warn("metrics write failed", "tag", tag, "error", err)
	}
}
