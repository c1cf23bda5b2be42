package main

import "context"
import "fmt"
import "path/filepath"

import "github.com/spf13/cobra"

import "github.com/neurlang/diffar/config"
import "github.com/neurlang/diffar/datasets"
import "github.com/neurlang/diffar/device"
import "github.com/neurlang/diffar/distrib"
import "github.com/neurlang/diffar/logging"
import "github.com/neurlang/diffar/metrics"
import "github.com/neurlang/diffar/model"
import "github.com/neurlang/diffar/trainer"

type trainOptions struct {
	rank      int
	worldSize int
	host      string
	port      int
	test      bool
	quiet     bool
}

func newTrainCommand(root *rootOptions) *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train until max_steps, resuming from the newest checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.params()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("rank") {
				p.Distributed.Rank = opts.rank
			}
			if flags.Changed("world-size") {
				p.Distributed.WorldSize = opts.worldSize
			}
			if flags.Changed("host") {
				p.Distributed.Host = opts.host
			}
			if flags.Changed("port") {
				p.Distributed.Port = opts.port
			}
			if flags.Changed("test") {
				p.Test = opts.test
			}
			if err := p.Validate(); err != nil {
				return err
			}
			return runTrain(cmd, root, p, !opts.quiet)
		},
	}
	cmd.Flags().IntVar(&opts.rank, "rank", 0, "replica rank")
	cmd.Flags().IntVar(&opts.worldSize, "world-size", 1, "number of replicas")
	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "host of the rank 0 reducer")
	cmd.Flags().IntVar(&opts.port, "port", 29500, "port of the rank 0 reducer")
	cmd.Flags().BoolVar(&opts.test, "test", false, "evaluate the test set instead of training")
	cmd.Flags().BoolVar(&opts.quiet, "no-progress", false, "hide progress bars")
	return cmd
}

func runTrain(cmd *cobra.Command, root *rootOptions, p config.Params, progress bool) error {
	rank, world := p.Distributed.Rank, p.Distributed.WorldSize
	logger := logging.New(cmd.ErrOrStderr(), rank == 0 || root.verbose, logging.ParseLevel(root.logLevel)).
		With("rank", rank)

	dev, err := device.Select(rank)
	if err != nil {
		return err
	}
	defer dev.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var coll distrib.Collective = distrib.Local()
	if world > 1 {
		coll, err = distrib.Dial(ctx, distrib.Config{
			Rank:      rank,
			WorldSize: world,
			Address:   p.Distributed.Address(),
			Logger:    logger,
		})
		if err != nil {
			return err
		}
	}

	return distrib.Run(ctx, coll, func(ctx context.Context) error {
		train, err := newLoader(p.TrainDS, p, p.BatchSizeTrain, true, rank, world)
		if err != nil {
			return fmt.Errorf("train_ds: %w", err)
		}
		opts := trainer.Options{
			Params:     p,
			Model:      model.NewAffine(p.NoiseSchedule.Count),
			Train:      train,
			Collective: coll,
			Device:     dev,
			Logger:     logger,
			Metrics: func(purge int) (metrics.Sink, error) {
				path := p.MetricsPath
				if path == "" {
					path = filepath.Join(p.ModelDir, "metrics.db")
				}
				return metrics.OpenSQLite(path, purge)
			},
		}
		if rank == 0 && progress {
			opts.Progress = cmd.ErrOrStderr()
		}
		if p.ValidDS != nil {
			if opts.Valid, err = newLoader(*p.ValidDS, p, p.BatchSizeValidation, false, rank, world); err != nil {
				return fmt.Errorf("valid_ds: %w", err)
			}
		}
		if p.TestDS != nil {
			if opts.Test, err = newLoader(*p.TestDS, p, p.BatchSizeValidation, false, rank, world); err != nil {
				return fmt.Errorf("test_ds: %w", err)
			}
		}

		l, err := trainer.New(opts)
		if err != nil {
			return err
		}
		defer l.Close()

		if p.Test {
			v, err := l.Test(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "test loss %.6f at step %d\n", v, l.Step())
			return nil
		}
		res, err := l.Train(ctx, p.Steps())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "trained %d steps in %d epochs, loss %.6f\n", res.Steps, res.Epochs, res.Loss)
		return nil
	})
}

func newLoader(ds config.Dataset, p config.Params, batch int, shuffle bool, rank, world int) (*datasets.Memory, error) {
	return datasets.NewMemory(datasets.Synthetic(ds.Examples, ds.Window, ds.Seed), datasets.MemoryOptions{
		BatchSize:   batch,
		WithOverlap: p.Masking(),
		Shuffle:     shuffle,
		Seed:        p.Seed,
		Rank:        rank,
		WorldSize:   world,
	})
}
