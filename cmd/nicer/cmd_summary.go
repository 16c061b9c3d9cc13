package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nicer/internal/display"
	"nicer/internal/format"
	"nicer/internal/obs"
	"nicer/internal/stage"
)

type summaryFlags struct {
	markdown bool
}

func newSummaryCmd(g *globalFlags) *cobra.Command {
	f := &summaryFlags{}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Tabulate fit and flux results per observation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			env := stage.NewEnv(cfg, nil)
			ids, err := env.Processed()
			if err != nil {
				return err
			}
			rows, params, err := collectSummary(env.Layout, ids)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No processed observations in %s.\n", cfg.OutputDir)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(rows, params, format.ParseMode(f.markdown)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "Print a Markdown table")
	return cmd
}

type summaryRow struct {
	obsID    string
	products *obs.Products
	fit      *obs.FitResult
	flux     *obs.FluxResult
}

// paramCol is one fitted parameter column, in first-seen order.
type paramCol struct {
	name, unit string
}

func collectSummary(l obs.Layout, ids []string) ([]summaryRow, []paramCol, error) {
	var rows []summaryRow
	var cols []paramCol
	seen := map[string]bool{}
	for _, id := range ids {
		dir := l.Dir(id)
		r := summaryRow{obsID: id}
		var err error
		if r.products, err = obs.ReadArtifact[obs.Products](dir, obs.ProductsFile); err != nil {
			return nil, nil, err
		}
		if r.fit, err = obs.ReadArtifact[obs.FitResult](dir, obs.FitResultFile); err != nil {
			return nil, nil, err
		}
		if r.flux, err = obs.ReadArtifact[obs.FluxResult](dir, obs.FluxResultFile); err != nil {
			return nil, nil, err
		}
		if r.products == nil && r.fit == nil && r.flux == nil {
			continue
		}
		if r.fit != nil {
			for _, p := range r.fit.Params {
				if p.Frozen || seen[p.Name] {
					continue
				}
				seen[p.Name] = true
				cols = append(cols, paramCol{name: p.Name, unit: p.Unit})
			}
		}
		rows = append(rows, r)
	}
	return rows, cols, nil
}

func renderSummary(rows []summaryRow, params []paramCol, mode format.Mode) string {
	tb := format.NewTable(mode)
	tb.Title("Observations")
	header := []string{"Observation", "Exposure [s]", "Counts", "Statistic/dof", "Accepted"}
	for _, p := range params {
		header = append(header, display.ParamWithUnit(p.name, p.unit))
	}
	header = append(header, display.ParamWithUnit("flux", ""))
	tb.Header(header...)

	accepted := 0
	for _, r := range rows {
		row := []any{r.obsID, "", "", "", ""}
		if r.products != nil && r.products.Events != nil {
			row[1] = format.FmtValue(r.products.Events.Exposure)
		}
		if r.products != nil && r.products.Source != nil {
			row[2] = format.FmtValue(r.products.Source.TotalCounts)
		}
		if r.fit != nil {
			row[3] = fmt.Sprintf("%s/%d", format.FmtValue(r.fit.Statistic), r.fit.DOF)
			row[4] = format.BoolMark(r.fit.Accepted)
			if r.fit.Accepted {
				accepted++
			}
		}
		for _, c := range params {
			cell := ""
			if r.fit != nil {
				if p := r.fit.Param(c.name); p != nil {
					cell = format.FmtRange(p.Value, p.ErrLow, p.ErrHigh)
				}
			}
			row = append(row, cell)
		}
		flux := ""
		if r.flux != nil {
			flux = format.FmtRange(r.flux.Flux, r.flux.FluxLow, r.flux.FluxHigh)
		}
		row = append(row, flux)
		tb.Row(row...)
	}
	footer := make([]any, len(header))
	footer[0] = "TOTAL"
	footer[4] = fmt.Sprintf("%d/%d", accepted, len(rows))
	tb.Footer(footer...)
	return tb.String()
}
