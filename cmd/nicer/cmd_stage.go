package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nicer/internal/display"
	"nicer/internal/stage"
)

var stageNames = stage.Order

var stageShort = map[stage.Name]string{
	stage.Create: "Reduce observations with nicerl2 and nicerl3-spect",
	stage.Fit:    "Fit the configured XSPEC model to every spectrum",
	stage.Flux:   "Compute the model flux of every fitted observation",
	stage.Plot:   "Plot fit and flux results across observations",
}

// newStageCmd runs a single stage regardless of its config switch.
func newStageCmd(g *globalFlags, name stage.Name) *cobra.Command {
	return &cobra.Command{
		Use:   string(name),
		Short: stageShort[name],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			d, st, err := newDriver(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := d.RunStage(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (ok=%d failed=%d skipped=%d) run %s\n",
				display.Stage(string(name)), display.Status(string(res.Status)),
				res.Count(stage.OK), res.Count(stage.Failed), res.Count(stage.Skipped), d.RunID)
			if res.Status == stage.Failed {
				return res.Error()
			}
			return nil
		},
	}
}
