package loss

import "errors"
import "fmt"
import "math"

import "github.com/neurlang/diffar/parallel"
import "github.com/neurlang/diffar/tensor"

// ErrMaskDisabled is returned when overlap masking is requested with the
// disabled margin sentinel (negative).
var ErrMaskDisabled = errors.New("overlap mask disabled")

// Disabled is the margin value that turns overlap masking off.
const Disabled = -1

func sign(d float32) float32 {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	}
	return 0
}

func checkShapes(target, pred tensor.Matrix) error {
	if !target.SameShape(pred) {
		return fmt.Errorf("target %s and prediction %s differ", target.Shape(), pred.Shape())
	}
	if target.Rows == 0 || target.Cols == 0 {
		return fmt.Errorf("empty batch %s", target.Shape())
	}
	return nil
}

// L1 is the mean absolute error over all elements and its gradient with
// respect to pred.
func L1(target, pred tensor.Matrix, workers int) (float64, tensor.Matrix, error) {
	if err := checkShapes(target, pred); err != nil {
		return 0, tensor.Matrix{}, err
	}
	count := float64(len(pred.Data))
	scale := float32(1 / count)
	grad := tensor.NewMatrix(pred.Rows, pred.Cols)
	sum := parallel.Sum(pred.Rows, workers, func(row int) (s float64) {
		t, p, g := target.Row(row), pred.Row(row), grad.Row(row)
		for i := range p {
			d := p[i] - t[i]
			s += math.Abs(float64(d))
			g[i] = sign(d) * scale
		}
		return s
	})
	return sum / count, grad, nil
}

// OverlapMasked is the L1 loss restricted to the samples each window trains
// on. For row r the first max(0, overlap[r]-margin) samples are zeroed and the
// remaining error is divided by T-overlap[r]+margin and by the row count, so
// rows with different active lengths are each averaged correctly before the
// batch mean.
func OverlapMasked(target, pred tensor.Matrix, overlap []int, margin, workers int) (float64, tensor.Matrix, error) {
	if margin < 0 {
		return 0, tensor.Matrix{}, ErrMaskDisabled
	}
	if err := checkShapes(target, pred); err != nil {
		return 0, tensor.Matrix{}, err
	}
	if len(overlap) != pred.Rows {
		return 0, tensor.Matrix{}, fmt.Errorf("%d overlap boundaries for %d rows", len(overlap), pred.Rows)
	}
	width := pred.Cols
	rows := float64(pred.Rows)
	grad := tensor.NewMatrix(pred.Rows, pred.Cols)
	sum := parallel.Sum(pred.Rows, workers, func(row int) (s float64) {
		start, active := Active(width, overlap[row], margin)
		scale := 1 / float64(active) / rows
		t, p, g := target.Row(row), pred.Row(row), grad.Row(row)
		for i := start; i < width; i++ {
			d := p[i] - t[i]
			s += math.Abs(float64(d)) * scale
			g[i] = sign(d) * float32(scale)
		}
		return s
	})
	return sum, grad, nil
}

// Active returns the first trained sample of a window of width samples and
// the normaliser width-overlap+margin, which never drops below one.
func Active(width, overlap, margin int) (start, active int) {
	start = overlap - margin
	if start < 0 {
		start = 0
	}
	if start > width {
		start = width
	}
	active = width - overlap + margin
	if active < 1 {
		active = 1
	}
	return start, active
}
