package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nicer/internal/display"
	"nicer/internal/format"
	"nicer/internal/store"
)

type statusFlags struct {
	runID    string
	markdown bool
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	f := &statusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the run ledger",
		Long: `Without --run, status lists past runs and the latest outcome of every
stage for each observation. With --run it lists every entry of that run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.LedgerPath())
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer st.Close()
			return printStatus(cmd, st, f)
		},
	}
	cmd.Flags().StringVar(&f.runID, "run", "", "Run ID to show in full")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Print Markdown tables")
	return cmd
}

func printStatus(cmd *cobra.Command, st store.Store, f *statusFlags) error {
	out := cmd.OutOrStdout()
	mode := format.ParseMode(f.markdown)

	if f.runID != "" {
		entries, err := st.ListRun(f.runID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no ledger entries for run %q", f.runID)
		}
		tb := format.NewTable(mode)
		tb.Title("Run " + f.runID)
		tb.Header("Stage", "Observation", "Status", "Output", "Message")
		for _, e := range entries {
			tb.Row(display.Stage(e.Stage), e.ObsID, display.Status(e.Status), e.Output, format.Truncate(e.Message, 80))
		}
		tb.Columns(format.ColumnConfig{Number: 5, MaxWidth: 80})
		fmt.Fprintln(out, tb.String())
		return nil
	}

	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded. Run 'nicer run' to start the pipeline.")
		return nil
	}
	tb := format.NewTable(mode)
	tb.Title("Runs")
	tb.Header("Run", "Started", "Duration", "Stages", "Failed")
	for _, r := range runs {
		tb.Row(r.RunID, r.StartedAt, format.FmtSpan(r.StartedAt, r.FinishedAt), r.Stages, r.Failed)
	}
	fmt.Fprintln(out, tb.String())

	latest, err := st.LatestByObservation()
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		return nil
	}
	tb = format.NewTable(mode)
	tb.Title("Latest per observation")
	tb.Header("Observation", "Stage", "Status", "Finished", "Message")
	for _, e := range latest {
		tb.Row(e.ObsID, display.Stage(e.Stage), display.Status(e.Status), e.FinishedAt, format.Truncate(e.Message, 60))
	}
	fmt.Fprintln(out, tb.String())
	return nil
}
