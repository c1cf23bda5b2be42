package trainer

import "fmt"
import "io"
import "log/slog"
import "math/rand/v2"

import "github.com/neurlang/diffar/checkpoint"
import "github.com/neurlang/diffar/config"
import "github.com/neurlang/diffar/datasets"
import "github.com/neurlang/diffar/device"
import "github.com/neurlang/diffar/distrib"
import "github.com/neurlang/diffar/loss"
import "github.com/neurlang/diffar/metrics"
import "github.com/neurlang/diffar/model"
import "github.com/neurlang/diffar/optim"
import "github.com/neurlang/diffar/schedule"

// Options wires a learner to its collaborators. Model, Train and Params are
// required; everything else has a single-replica default.
type Options struct {
	Params config.Params
	Model  model.Model
	Train  datasets.Loader
	Valid  datasets.Loader
	Test   datasets.Loader

	Collective distrib.Collective
	Store      *checkpoint.Store
	Device     device.Device
	Logger     *slog.Logger
	// Progress receives the progress bars of the coordinator; nil hides them.
	Progress io.Writer
	// Metrics opens the scalar sink of the coordinator once the resumed step
	// is known. Rows at or after that step are replaced.
	Metrics func(purge int) (metrics.Sink, error)
	// Spectrogram overrides the log-mel transform of the spectral loss.
	Spectrogram func() (loss.Spectrogram, error)
}

// Learner holds the trainer state of one replica
type Learner struct {
	params    config.Params
	model     model.Model
	opt       *optim.Adam
	schedule  *schedule.Schedule
	retention []float32
	policy    *loss.Policy

	train, valid, test datasets.Loader

	coll     distrib.Collective
	store    *checkpoint.Store
	sink     metrics.Sink
	dev      device.Device
	logger   *slog.Logger
	progress io.Writer
	rng      *rand.Rand
	workers  int

	step     int
	gradNorm float64
	state    State
}

// New builds a learner and resumes it from the general checkpoint pool
func New(opts Options) (*Learner, error) {
	if opts.Model == nil || opts.Train == nil {
		return nil, fmt.Errorf("learner needs a model and a training loader")
	}
	if opts.Collective == nil {
		opts.Collective = distrib.Local()
	}
	if opts.Device == nil {
		opts.Device = device.Host()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	p := opts.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if opts.Store == nil {
		opts.Store = checkpoint.New(p.ModelDir, p.KeepCheckpoints, opts.Logger)
	}

	sched, err := p.Schedule()
	if err != nil {
		return nil, err
	}
	retention, err := sched.On(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("noise schedule to %s: %w", opts.Device.ID(), err)
	}
	workers := opts.Device.Workers()
	factory := opts.Spectrogram
	if factory == nil {
		factory = func() (loss.Spectrogram, error) {
			return loss.NewLogMel(loss.LogMelConfig{
				SampleRate: p.SampleRate,
				NFFT:       p.NFFT,
				Hop:        p.HopLength,
				Mels:       p.NMels,
				Workers:    workers,
			})
		}
	}
	policy, err := loss.NewPolicy(p.MaskLossUsingOverlap, p.SpecLossCoeff, workers, factory)
	if err != nil {
		return nil, err
	}

	rank := uint64(opts.Collective.Rank())
	l := &Learner{
		params:    p,
		model:     opts.Model,
		opt:       optim.NewAdam(p.LearningRate),
		schedule:  sched,
		retention: retention,
		policy:    policy,
		train:     opts.Train,
		valid:     opts.Valid,
		test:      opts.Test,
		coll:      opts.Collective,
		store:     opts.Store,
		sink:      metrics.Nop{},
		dev:       opts.Device,
		logger:    opts.Logger,
		progress:  opts.Progress,
		rng:       rand.New(rand.NewPCG(p.Seed, rank)),
		workers:   workers,
	}
	if err := l.Resume(); err != nil {
		return nil, err
	}
	if l.Coordinator() && !p.Test && opts.Metrics != nil {
		sink, err := opts.Metrics(l.step)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		l.sink = sink
	}
	l.logger.Info("model size", "params", model.Size(l.model), "device", l.dev.Name())
	return l, nil
}

// Coordinator reports whether this replica writes checkpoints and metrics
func (l *Learner) Coordinator() bool {
	return l.coll.Rank() == 0
}

// Step is the number of optimizer updates applied so far
func (l *Learner) Step() int {
	return l.step
}

// GradNorm is the pre-clip gradient norm of the last update
func (l *Learner) GradNorm() float64 {
	return l.gradNorm
}

func (l *Learner) State() State {
	return l.state
}

// StateDict captures the learner for a checkpoint
func (l *Learner) StateDict() (*checkpoint.Record, error) {
	params, err := l.params.Map()
	if err != nil {
		return nil, err
	}
	return &checkpoint.Record{
		Step:      l.step,
		Model:     model.StateDict(l.model),
		Optimizer: l.opt.State(),
		Params:    params,
	}, nil
}

// LoadStateDict restores model, optimizer and step from a record
func (l *Learner) LoadStateDict(rec *checkpoint.Record) error {
	if err := model.LoadStateDict(l.model, rec.Model); err != nil {
		return err
	}
	if err := rec.Optimizer.Check(l.model.Parameters()); err != nil {
		return err
	}
	if err := l.opt.LoadState(rec.Optimizer); err != nil {
		return err
	}
	l.step = rec.Step
	return nil
}

// Close flushes and closes the metrics sink
func (l *Learner) Close() error {
	return l.sink.Close()
}
