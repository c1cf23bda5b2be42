package config

import "fmt"

import "github.com/neurlang/diffar/schedule"

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Validate checks ranges and cross-field constraints
func (p Params) Validate() error {
	switch {
	case p.ModelDir == "":
		return invalid("model_dir is empty")
	case p.LearningRate <= 0:
		return invalid("learning_rate %g must be positive", p.LearningRate)
	case p.MaskLossUsingOverlap < -1:
		return invalid("mask_loss_using_overlap %d must be -1 or a margin >= 0", p.MaskLossUsingOverlap)
	case p.SpecLossCoeff < 0 || p.SpecLossCoeff > 1:
		return invalid("spec_loss_coeff %g outside [0,1]", p.SpecLossCoeff)
	case p.NMels < 1 || p.SampleRate < 1 || p.NFFT < 2 || p.HopLength < 1:
		return invalid("spectrogram settings n_mels=%d sample_rate=%d n_fft=%d hop_length=%d", p.NMels, p.SampleRate, p.NFFT, p.HopLength)
	case p.MaxGradNorm < 0:
		return invalid("max_grad_norm %g is negative", p.MaxGradNorm)
	case p.ValEveryNEpochs < 1 || p.CheckpointEveryNEpochs < 1:
		return invalid("epoch intervals must be at least 1")
	case p.BatchSizeTrain < 1 || p.BatchSizeValidation < 1:
		return invalid("batch sizes must be at least 1")
	case p.KeepCheckpoints < 1:
		return invalid("keep_checkpoints %d must be at least 1", p.KeepCheckpoints)
	case p.Distributed.WorldSize < 1:
		return invalid("world_size %d must be at least 1", p.Distributed.WorldSize)
	case p.Distributed.Rank < 0 || p.Distributed.Rank >= p.Distributed.WorldSize:
		return invalid("rank %d outside world of %d", p.Distributed.Rank, p.Distributed.WorldSize)
	case p.Distributed.Port < 0 || p.Distributed.Port > 65535:
		return invalid("port %d", p.Distributed.Port)
	}
	if _, err := p.Schedule(); err != nil {
		return invalid("noise_schedule: %v", err)
	}
	for name, ds := range map[string]*Dataset{"train_ds": &p.TrainDS, "valid_ds": p.ValidDS, "test_ds": p.TestDS} {
		if ds == nil {
			continue
		}
		if ds.Kind != "synthetic" {
			return invalid("%s: unknown kind %q", name, ds.Kind)
		}
		if ds.Examples < 1 || ds.Window < 1 {
			return invalid("%s: examples and window must be at least 1", name)
		}
	}
	return nil
}

// Schedule resolves noise_schedule into a validated schedule
func (p Params) Schedule() (*schedule.Schedule, error) {
	betas, err := schedule.Linear(p.NoiseSchedule.Start, p.NoiseSchedule.Stop, p.NoiseSchedule.Count)
	if err != nil {
		return nil, err
	}
	return schedule.New(betas)
}

// Masking reports whether the loss masks overlapped samples
func (p Params) Masking() bool {
	return p.MaskLossUsingOverlap >= 0
}

// Steps is the step budget; negative means unbounded
func (p Params) Steps() int {
	if p.MaxSteps == nil {
		return -1
	}
	return *p.MaxSteps
}
