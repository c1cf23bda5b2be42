package main

import "fmt"

import "github.com/spf13/cobra"

type scheduleOptions struct {
	start float64
	stop  float64
	count int
}

func newScheduleCommand(root *rootOptions) *cobra.Command {
	opts := &scheduleOptions{}
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the beta schedule and its retention curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.params()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("start") {
				p.NoiseSchedule.Start = opts.start
			}
			if flags.Changed("stop") {
				p.NoiseSchedule.Stop = opts.stop
			}
			if flags.Changed("count") {
				p.NoiseSchedule.Count = opts.count
			}
			s, err := p.Schedule()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "step\tbeta\tretention")
			retention := s.Retention()
			for t, beta := range s.Betas() {
				fmt.Fprintf(w, "%d\t%.6f\t%.6f\n", t, beta, retention[t])
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&opts.start, "start", 0, "first beta")
	cmd.Flags().Float64Var(&opts.stop, "stop", 0, "last beta")
	cmd.Flags().IntVar(&opts.count, "count", 0, "number of diffusion steps")
	return cmd
}
