package main

import "github.com/spf13/cobra"

import "github.com/neurlang/diffar/config"

type rootOptions struct {
	config   string
	verbose  bool
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "diffar",
		Short:         "Diffusion waveform trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.config, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log on every replica, not only the coordinator")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")

	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newScheduleCommand(opts))
	cmd.AddCommand(newCheckpointsCommand(opts))
	return cmd
}

// params loads the config file, or the defaults when none is given
func (o *rootOptions) params() (config.Params, error) {
	if o.config == "" {
		return config.Default(), nil
	}
	return config.Load(o.config)
}
