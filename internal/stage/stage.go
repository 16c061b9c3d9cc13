// Package stage defines what every pipeline stage receives and returns.
package stage

import (
	"errors"
	"fmt"
	"time"

	"nicer/internal/config"
	"nicer/internal/obs"
	"nicer/internal/toolchain"
)

// Name identifies a stage.
type Name string

const (
	Create Name = "create"
	Fit    Name = "fit"
	Flux   Name = "flux"
	Plot   Name = "plot"
)

// Order is the fixed execution order of the driver.
var Order = []Name{Create, Fit, Flux, Plot}

// Status is the outcome of a stage or of one observation within it.
type Status string

const (
	OK      Status = "ok"
	Failed  Status = "failed"
	Skipped Status = "skipped"
)

// Env is the read-only context a stage runs in.
type Env struct {
	Config *config.Config
	Runner toolchain.Runner
	Layout obs.Layout
	Now    func() time.Time
}

// NewEnv builds an Env from a resolved config.
func NewEnv(cfg *config.Config, runner toolchain.Runner) *Env {
	return &Env{
		Config: cfg,
		Runner: runner,
		Layout: obs.Layout{OutputDir: cfg.OutputDir, ObsRoot: cfg.ObsRoot},
		Now:    time.Now,
	}
}

// Timestamp returns the current UTC time as RFC 3339.
func (e *Env) Timestamp() string {
	return e.Now().UTC().Format(time.RFC3339)
}

// ObsOutcome is the result for one observation, or for one variable in the
// plot stage.
type ObsOutcome struct {
	ObsID   string `json:"obs_id"`
	Status  Status `json:"status"`
	Output  string `json:"output,omitempty"` // primary artifact written
	Message string `json:"message,omitempty"`
}

// Result is returned by every stage to the driver.
type Result struct {
	Stage        Name
	Status       Status
	Observations []ObsOutcome
	Started      time.Time
	Finished     time.Time
	Err          error // stage-level failure (e.g. unreadable observation root)
}

// Begin starts a result for stage.
func Begin(name Name, now time.Time) *Result {
	return &Result{Stage: name, Started: now}
}

// SkippedResult is recorded for a stage whose switch is off.
func SkippedResult(name Name, now time.Time) *Result {
	return &Result{Stage: name, Status: Skipped, Started: now, Finished: now}
}

// OK records a successful observation.
func (r *Result) OK(obsID, output string) {
	r.Observations = append(r.Observations, ObsOutcome{ObsID: obsID, Status: OK, Output: output})
}

// Skip records an observation that had nothing to work on.
func (r *Result) Skip(obsID, reason string) {
	r.Observations = append(r.Observations, ObsOutcome{ObsID: obsID, Status: Skipped, Message: reason})
}

// Fail records a failed observation.
func (r *Result) Fail(obsID string, err error) {
	r.Observations = append(r.Observations, ObsOutcome{ObsID: obsID, Status: Failed, Message: err.Error()})
}

// Finish sets Status from the recorded outcomes. A stage fails when it has a
// stage-level error or any observation failed; it is skipped when every
// observation was skipped.
func (r *Result) Finish(now time.Time) *Result {
	r.Finished = now
	r.Status = OK
	if r.Err != nil {
		r.Status = Failed
		return r
	}
	skipped := 0
	for _, o := range r.Observations {
		switch o.Status {
		case Failed:
			r.Status = Failed
			return r
		case Skipped:
			skipped++
		}
	}
	if len(r.Observations) > 0 && skipped == len(r.Observations) {
		r.Status = Skipped
	}
	return r
}

// Count returns how many observations ended with status s.
func (r *Result) Count(s Status) int {
	n := 0
	for _, o := range r.Observations {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Error summarises why the stage failed, or nil.
func (r *Result) Error() error {
	if r.Status != Failed {
		return nil
	}
	if r.Err != nil {
		return fmt.Errorf("%s: %w", r.Stage, r.Err)
	}
	var errs []error
	for _, o := range r.Observations {
		if o.Status == Failed {
			errs = append(errs, fmt.Errorf("%s %s: %s", r.Stage, o.ObsID, o.Message))
		}
	}
	return errors.Join(errs...)
}

// Observations returns the configured observation IDs, or every observation
// directory discovered under the observation root.
func (e *Env) Observations() ([]string, error) {
	if len(e.Config.ObsIDs) > 0 {
		return e.Config.ObsIDs, nil
	}
	return obs.Discover(e.Config.ObsRoot)
}

// Processed returns the configured observation IDs, or every observation
// directory already present in the output directory. Downstream stages use
// it so they work on whatever an earlier run left behind.
func (e *Env) Processed() ([]string, error) {
	if len(e.Config.ObsIDs) > 0 {
		return e.Config.ObsIDs, nil
	}
	return e.Layout.ListWith("")
}
