package main

import "fmt"

import "github.com/spf13/cobra"

import "github.com/neurlang/diffar/checkpoint"

func newCheckpointsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoints",
		Short: "List the snapshots of every checkpoint pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.params()
			if err != nil {
				return err
			}
			store := checkpoint.New(p.ModelDir, p.KeepCheckpoints, nil)
			w := cmd.OutOrStdout()
			for _, pool := range []checkpoint.Pool{checkpoint.General, checkpoint.BestTrain, checkpoint.BestValid} {
				entries, err := store.List(pool)
				if err != nil {
					return err
				}
				latest, _ := store.Latest(pool)
				for _, e := range entries {
					mark := ""
					if e.Path == latest {
						mark = " *"
					}
					fmt.Fprintf(w, "%s\t%d\t%s%s\n", pool, e.Step, e.Path, mark)
				}
			}
			return nil
		},
	}
}
