package trainer

import "fmt"

// State of the training loop
type State int

const (
	Idle State = iota
	Training
	Validating
	Checkpointing
	Terminated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Training:
		return "training"
	case Validating:
		return "validating"
	case Checkpointing:
		return "checkpointing"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Kind classifies a fatal error
type Kind string

const (
	KindNaN        Kind = "nan-loss"
	KindCorrupt    Kind = "corrupt-checkpoint"
	KindAssertion  Kind = "assertion"
	KindCollective Kind = "collective"
)

// FatalError stops training; the process should exit non-zero
type FatalError struct {
	Step int
	Kind Kind
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("step=%d kind=%s: %v", e.Step, e.Kind, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func (l *Learner) fatal(kind Kind, format string, args ...any) error {
	return &FatalError{Step: l.step, Kind: kind, Err: fmt.Errorf(format, args...)}
}
