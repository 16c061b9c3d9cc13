// Package fit runs the XSPEC model fit for each reduced observation and
// accepts or rejects the result against the configured thresholds.
package fit

import (
	"context"
	"fmt"
	"os"
	"sort"

	"nicer/internal/compare"
	"nicer/internal/logging"
	"nicer/internal/obs"
	"nicer/internal/stage"
	"nicer/internal/xcm"
)

// Run fits every observation that has a spectrum in the output directory.
// Observations without one are skipped; a create stage that was switched
// off is not an error here.
func Run(ctx context.Context, env *stage.Env) *stage.Result {
	res := stage.Begin(stage.Fit, env.Now())
	logger := logging.New("fit")

	ids, err := env.Processed()
	if err != nil {
		res.Err = err
		return res.Finish(env.Now())
	}
	logger.Info("fitting observations", "count", len(ids), "model", env.Config.Fit.Model)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		if _, err := os.Stat(env.Layout.Spectrum(id)); err != nil {
			logger.Warn("no spectrum, skipping", "obs_id", id)
			res.Skip(id, obs.ErrNoSpectrum.Error())
			continue
		}
		r, err := Observation(ctx, env, id)
		if err != nil {
			logger.Error("fit failed", "obs_id", id, "error", err)
			res.Fail(id, err)
			continue
		}
		logger.Info("fit done", "obs_id", id, "accepted", r.Accepted,
			"statistic", r.Statistic, "dof", r.DOF)
		res.OK(id, env.Layout.Path(id, obs.FitResultFile))
	}
	return res.Finish(env.Now())
}

// Observation fits one observation and writes its fit-result record.
func Observation(ctx context.Context, env *stage.Env, obsID string) (*obs.FitResult, error) {
	l := env.Layout
	dir := l.Dir(obsID)
	c := env.Config.Fit

	script, err := xcm.Render(xcm.Fit, env.Config.ScriptDir, xcm.FitParams{
		Data:        xcm.DataFor(l, obsID),
		Model:       c.Model,
		Statistic:   c.Statistic,
		EnergyRange: c.EnergyRange,
		Initial:     initialValues(c.Initial),
		OutFile:     obs.FitOutFile,
		ModelFile:   obs.FitModelFile,
	})
	if err != nil {
		return nil, err
	}
	if err := xcm.RunScript(ctx, env.Runner, env.Config.Tools.Xspec, dir, xcm.Files{Script: obs.FitScriptFile, Out: obs.FitOutFile, Log: obs.FitLogFile}, script); err != nil {
		return nil, err
	}

	f, err := os.Open(l.Path(obsID, obs.FitOutFile))
	if err != nil {
		return nil, fmt.Errorf("open fit output: %w", err)
	}
	defer f.Close()
	out, err := xcm.ParseFit(f)
	if err != nil {
		return nil, fmt.Errorf("parse fit output: %w", err)
	}

	r := &obs.FitResult{
		ObsID:      obsID,
		Model:      c.Model,
		Spectrum:   l.Spectrum(obsID),
		ModelFile:  l.Path(obsID, obs.FitModelFile),
		Params:     toParams(out.Params),
		Statistic:  out.Statistic,
		StatMethod: out.StatMethod,
		DOF:        out.DOF,
		FittedAt:   env.Timestamp(),
	}
	if out.DOF > 0 {
		r.ReducedStat = out.Statistic / float64(out.DOF)
	}
	if p, err := obs.ReadArtifact[obs.Products](dir, obs.ProductsFile); err == nil && p != nil {
		r.EventFile = p.EventFile
	}
	r.Checks, r.Accepted = compare.Check(c.Thresholds, r.Lookup)

	if err := obs.WriteArtifact(dir, obs.FitResultFile, r); err != nil {
		return nil, err
	}
	return r, nil
}

func initialValues(m map[int]string) []xcm.InitialValue {
	out := make([]xcm.InitialValue, 0, len(m))
	for idx, v := range m {
		out = append(out, xcm.InitialValue{Index: idx, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func toParams(lines []xcm.ParamLine) []obs.Param {
	out := make([]obs.Param, len(lines))
	for i, p := range lines {
		out[i] = obs.Param{
			Index:   p.Index,
			Name:    p.Name,
			Unit:    p.Unit,
			Value:   p.Value,
			ErrLow:  p.ErrLow,
			ErrHigh: p.ErrHigh,
			Frozen:  p.Frozen,
		}
	}
	return out
}
