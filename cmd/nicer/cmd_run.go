package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nicer/internal/display"
	"nicer/internal/format"
	"nicer/internal/stage"
)

type runFlags struct {
	continueOnError bool
	markdown        bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the enabled stages in order: create, fit, flux, plot",
		Long: `Run executes every stage whose switch is on. Disabled stages are recorded
as skipped; later stages work on whatever earlier runs left in the output
directory. The run stops after a failed stage unless --continue-on-error is
set or halt_on_failure is false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, g, f)
		},
	}
	cmd.Flags().BoolVar(&f.continueOnError, "continue-on-error", false, "Keep running later stages after a stage fails")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Print the stage table as Markdown")
	return cmd
}

func runPipeline(cmd *cobra.Command, g *globalFlags, f *runFlags) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}
	if f.continueOnError {
		cfg.HaltOnFailure = false
	}
	d, st, err := newDriver(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	rep, err := d.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run %s: %w", d.RunID, err)
	}

	tb := format.NewTable(format.ParseMode(f.markdown))
	tb.Title("Run " + rep.RunID)
	tb.Header("Stage", "Status", "OK", "Failed", "Skipped", "Duration")
	for _, res := range rep.Results {
		tb.Row(display.Stage(string(res.Stage)), display.Status(string(res.Status)),
			res.Count(stage.OK), res.Count(stage.Failed), res.Count(stage.Skipped),
			format.FmtDuration(res.Finished.Sub(res.Started)))
	}
	tb.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
	)
	fmt.Fprintln(cmd.OutOrStdout(), tb.String())

	if rep.Failed() {
		if rep.HaltedAt != "" {
			return fmt.Errorf("run %s halted after %s: %w", rep.RunID, rep.HaltedAt, rep.Err())
		}
		return fmt.Errorf("run %s failed: %w", rep.RunID, rep.Err())
	}
	return nil
}
