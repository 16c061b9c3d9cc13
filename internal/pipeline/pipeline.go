// Package pipeline runs the enabled stages in order, records every outcome
// in the run ledger and halts after a failed stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nicer/internal/create"
	"nicer/internal/fit"
	"nicer/internal/flux"
	"nicer/internal/logging"
	"nicer/internal/plot"
	"nicer/internal/stage"
	"nicer/internal/store"
)

// StageFunc is the signature every stage implements.
type StageFunc func(ctx context.Context, env *stage.Env) *stage.Result

// DefaultStages maps each stage name to its implementation.
func DefaultStages() map[stage.Name]StageFunc {
	return map[stage.Name]StageFunc{
		stage.Create: create.Run,
		stage.Fit:    fit.Run,
		stage.Flux:   flux.Run,
		stage.Plot:   plot.Run,
	}
}

// Driver runs stages against one Env and ledger.
type Driver struct {
	Env           *stage.Env
	Store         store.Store // optional
	Stages        map[stage.Name]StageFunc
	RunID         string
	HaltOnFailure bool

	logger *slog.Logger
}

// New returns a driver with a fresh run ID and the default stages.
func New(env *stage.Env, st store.Store) *Driver {
	return &Driver{
		Env:           env,
		Store:         st,
		Stages:        DefaultStages(),
		RunID:         uuid.NewString(),
		HaltOnFailure: env.Config.HaltOnFailure,
		logger:        logging.New("pipeline"),
	}
}

// Report is the outcome of a driver run.
type Report struct {
	RunID    string
	Results  []*stage.Result
	HaltedAt stage.Name // empty unless a failure stopped the run
}

// Failed reports whether any stage failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == stage.Failed {
			return true
		}
	}
	return false
}

// Err joins the errors of the failed stages.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if err := res.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Result returns the result of the named stage, or nil if it did not run.
func (r *Report) Result(name stage.Name) *stage.Result {
	for _, res := range r.Results {
		if res.Stage == name {
			return res
		}
	}
	return nil
}

// Enabled reports whether the config switch for name is on.
func (d *Driver) Enabled(name stage.Name) bool {
	sw := d.Env.Config.Switches
	switch name {
	case stage.Create:
		return sw.Create
	case stage.Fit:
		return sw.Fit
	case stage.Flux:
		return sw.Flux
	case stage.Plot:
		return sw.Plot
	}
	return false
}

// Run executes the enabled stages in stage.Order. Disabled stages are
// recorded as skipped. Upstream outputs are not checked: each stage works on
// whatever files exist. The returned error is set only when the ledger
// cannot be written or ctx is cancelled; stage failures are in the report.
func (d *Driver) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: d.RunID}
	d.log().Info("run started", "run_id", d.RunID, "output_dir", d.Env.Config.OutputDir, "halt_on_failure", d.HaltOnFailure)

	for _, name := range stage.Order {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		var res *stage.Result
		switch {
		case rep.HaltedAt != "":
			res = stage.SkippedResult(name, d.Env.Now())
			if err := d.record(res, fmt.Sprintf("halted after %s failed", rep.HaltedAt)); err != nil {
				return rep, err
			}
			rep.Results = append(rep.Results, res)
			continue
		case !d.Enabled(name):
			res = stage.SkippedResult(name, d.Env.Now())
			if err := d.record(res, "disabled"); err != nil {
				return rep, err
			}
			d.log().Info("stage disabled", "stage", name)
			rep.Results = append(rep.Results, res)
			continue
		}

		res, err := d.RunStage(ctx, name)
		if err != nil {
			return rep, err
		}
		rep.Results = append(rep.Results, res)
		if res.Status == stage.Failed && d.HaltOnFailure {
			rep.HaltedAt = name
			d.log().Error("halting run", "stage", name, "error", res.Error())
		}
	}
	d.log().Info("run finished", "run_id", d.RunID, "failed", rep.Failed())
	return rep, nil
}

// RunStage runs one stage regardless of its switch and records the result.
func (d *Driver) RunStage(ctx context.Context, name stage.Name) (*stage.Result, error) {
	fn, ok := d.Stages[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage %q", name)
	}
	d.log().Info("stage started", "stage", name, "run_id", d.RunID)
	res := fn(ctx, d.Env)
	d.log().Info("stage finished",
		"stage", name,
		"status", res.Status,
		"ok", res.Count(stage.OK),
		"failed", res.Count(stage.Failed),
		"skipped", res.Count(stage.Skipped),
		"duration", res.Finished.Sub(res.Started).Round(time.Millisecond),
	)
	if err := d.record(res, ""); err != nil {
		return res, err
	}
	return res, nil
}

// record writes the stage entry and one entry per observation outcome.
func (d *Driver) record(res *stage.Result, message string) error {
	if d.Store == nil {
		return nil
	}
	started := res.Started.UTC().Format(time.RFC3339)
	finished := res.Finished.UTC().Format(time.RFC3339)
	if message == "" && res.Err != nil {
		message = res.Err.Error()
	}
	entries := []*store.Entry{{
		RunID: d.RunID, Stage: string(res.Stage), Status: string(res.Status),
		Message: message, StartedAt: started, FinishedAt: finished,
	}}
	for _, o := range res.Observations {
		entries = append(entries, &store.Entry{
			RunID: d.RunID, Stage: string(res.Stage), ObsID: o.ObsID, Status: string(o.Status),
			Output: o.Output, Message: o.Message, StartedAt: started, FinishedAt: finished,
		})
	}
	for _, e := range entries {
		if _, err := d.Store.RecordStage(e); err != nil {
			return fmt.Errorf("record %s ledger entry: %w", res.Stage, err)
		}
	}
	return nil
}

func (d *Driver) log() *slog.Logger {
	if d.logger == nil {
		d.logger = logging.New("pipeline")
	}
	return d.logger
}
