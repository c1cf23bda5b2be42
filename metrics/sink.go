package metrics

// Tags written by the trainer
const (
	TrainLoss     = "train/loss"
	TrainGradNorm = "train/grad_norm"
	ValidLoss     = "valid/loss"
	TestLoss      = "test/loss"
)

// Sink receives scalar observations keyed by tag and step
type Sink interface {
	Scalar(tag string, step int, value float64) error
	Flush() error
	Close() error
}

// Nop discards everything
type Nop struct{}

func (Nop) Scalar(string, int, float64) error { return nil }
func (Nop) Flush() error                      { return nil }
func (Nop) Close() error                      { return nil }
