// Package flux integrates each fitted model over the configured energy band.
package flux

import (
	"context"
	"fmt"
	"os"

	"nicer/internal/logging"
	"nicer/internal/obs"
	"nicer/internal/stage"
	"nicer/internal/xcm"
)

// Run computes the flux of every observation holding a fit-result record.
func Run(ctx context.Context, env *stage.Env) *stage.Result {
	res := stage.Begin(stage.Flux, env.Now())
	logger := logging.New("flux")

	ids, err := env.Processed()
	if err != nil {
		res.Err = err
		return res.Finish(env.Now())
	}
	c := env.Config.Flux
	logger.Info("computing fluxes", "count", len(ids), "emin_kev", c.EMin, "emax_kev", c.EMax)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		r, err := Observation(ctx, env, id)
		if err != nil {
			logger.Error("flux failed", "obs_id", id, "error", err)
			res.Fail(id, err)
			continue
		}
		if r == nil {
			res.Skip(id, "no fit result")
			continue
		}
		logger.Info("flux done", "obs_id", id, "flux", r.Flux)
		res.OK(id, env.Layout.Path(id, obs.FluxResultFile))
	}
	return res.Finish(env.Now())
}

// Observation reloads the fit of obsID and writes its flux-result record.
// It returns nil, nil when the observation has no fit result.
func Observation(ctx context.Context, env *stage.Env, obsID string) (*obs.FluxResult, error) {
	if env.Config.Flux.EMax <= env.Config.Flux.EMin {
		return nil, fmt.Errorf("invalid flux band %g-%g keV", env.Config.Flux.EMin, env.Config.Flux.EMax)
	}
	l := env.Layout
	dir := l.Dir(obsID)
	fit, err := obs.ReadArtifact[obs.FitResult](dir, obs.FitResultFile)
	if err != nil {
		return nil, err
	}
	if fit == nil {
		return nil, nil
	}

	c := env.Config.Flux
	script, err := xcm.Render(xcm.Flux, env.Config.ScriptDir, xcm.FluxParams{
		Data:        xcm.DataFor(l, obsID),
		EnergyRange: env.Config.Fit.EnergyRange,
		ModelFile:   obs.FitModelFile,
		EMin:        c.EMin,
		EMax:        c.EMax,
		ErrorTrials: c.ErrorTrials,
		OutFile:     obs.FluxOutFile,
	})
	if err != nil {
		return nil, err
	}
	if err := xcm.RunScript(ctx, env.Runner, env.Config.Tools.Xspec, dir, xcm.Files{Script: obs.FluxScriptFile, Out: obs.FluxOutFile, Log: obs.FluxLogFile}, script); err != nil {
		return nil, err
	}

	f, err := os.Open(l.Path(obsID, obs.FluxOutFile))
	if err != nil {
		return nil, fmt.Errorf("open flux output: %w", err)
	}
	defer f.Close()
	out, err := xcm.ParseFlux(f)
	if err != nil {
		return nil, fmt.Errorf("parse flux output: %w", err)
	}

	r := &obs.FluxResult{
		ObsID:      obsID,
		FitFile:    l.Path(obsID, obs.FitResultFile),
		Model:      fit.Model,
		EMin:       c.EMin,
		EMax:       c.EMax,
		Flux:       out.Flux,
		PhotonFlux: out.PhotonFlux,
		Accepted:   fit.Accepted,
		ComputedAt: env.Timestamp(),
	}
	if c.ErrorTrials > 0 {
		r.FluxLow, r.FluxHigh = out.FluxLow, out.FluxHigh
	}
	if err := obs.WriteArtifact(dir, obs.FluxResultFile, r); err != nil {
		return nil, err
	}
	return r, nil
}
