package trainer

import "context"

import "github.com/neurlang/diffar/datasets"
import "github.com/neurlang/diffar/metrics"

// EvalEpoch evaluates every batch of loader and returns the loss averaged
// over batches and replicas. The loader must yield exactly Len batches.
func (l *Learner) EvalEpoch(ctx context.Context, loader datasets.Loader, desc string) (float64, error) {
	l.state = Validating
	if loader.Len() == 0 {
		return 0, l.fatal(KindAssertion, "%s loader yields no batches", desc)
	}
	var sum float64
	var n int
	progress := l.bar(desc, loader.Len())
	err := loader.Each(0, func(b datasets.Batch) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		br, err := l.ValidLoss(b)
		if err != nil {
			return err
		}
		sum += br.Total
		if !finite(sum) {
			return l.fatal(KindNaN, "detected %v loss at step %d", sum, l.step)
		}
		n++
		progress.increment()
		return nil
	})
	progress.done(err)
	if err != nil {
		return 0, err
	}
	if n != loader.Len() {
		return 0, l.fatal(KindAssertion, "evaluated %d batches, loader has %d", n, loader.Len())
	}

	avg, err := l.coll.Average(ctx, []float64{sum / float64(n)})
	if err != nil {
		return 0, &FatalError{Step: l.step, Kind: KindCollective, Err: err}
	}
	return avg[0], nil
}

// Test evaluates the test loader, if one is set
func (l *Learner) Test(ctx context.Context) (float64, error) {
	if l.test == nil {
		l.logger.Warn("test dataset is not set, skipping test")
		return 0, nil
	}
	v, err := l.EvalEpoch(ctx, l.test, "testing")
	if err != nil {
		return 0, err
	}
	l.scalar(metrics.TestLoss, v)
	l.logger.Info("test results", "loss", v, "step", l.step)
	if err := l.sink.Flush(); err != nil {
		return v, err
	}
	return v, nil
}
