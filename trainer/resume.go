package trainer

import "github.com/neurlang/diffar/checkpoint"

// Resume loads the newest checkpoint of the general pool, if any
func (l *Learner) Resume() error {
	rec, err := l.store.Restore(checkpoint.General)
	if err != nil {
		return &FatalError{Step: l.step, Kind: KindCorrupt, Err: err}
	}
	if rec == nil {
		return nil
	}
	if err := l.LoadStateDict(rec); err != nil {
		return &FatalError{Step: l.step, Kind: KindCorrupt, Err: err}
	}
	return nil
}

func (l *Learner) save(pool checkpoint.Pool) error {
	l.state = Checkpointing
	rec, err := l.StateDict()
	if err != nil {
		return err
	}
	_, err = l.store.Save(pool, rec)
	return err
}
