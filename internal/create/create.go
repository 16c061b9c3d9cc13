// Package create runs the NICER reduction chain (nicerl2, nicerl3-spect) for
// each observation and records what it produced.
package create

import (
	"context"
	"fmt"

	"nicer/internal/fitsutil"
	"nicer/internal/logging"
	"nicer/internal/obs"
	"nicer/internal/stage"
	"nicer/internal/toolchain"
)

// Run reduces every selected observation. A failing observation is recorded
// and the stage moves on to the next one.
func Run(ctx context.Context, env *stage.Env) *stage.Result {
	res := stage.Begin(stage.Create, env.Now())
	logger := logging.New("create")

	ids, err := env.Observations()
	if err != nil {
		res.Err = err
		return res.Finish(env.Now())
	}
	logger.Info("reducing observations", "count", len(ids), "obs_root", env.Config.ObsRoot)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		manifest, err := Reduce(ctx, env, id)
		if err != nil {
			logger.Error("reduction failed", "obs_id", id, "error", err)
			res.Fail(id, err)
			continue
		}
		logger.Info("products written", "obs_id", id, "manifest", manifest)
		res.OK(id, manifest)
	}
	return res.Finish(env.Now())
}

// Reduce runs nicerl2 then nicerl3-spect for one observation and writes its
// products manifest. It returns the manifest path.
func Reduce(ctx context.Context, env *stage.Env, obsID string) (string, error) {
	l := env.Layout
	dir, err := l.Ensure(obsID)
	if err != nil {
		return "", err
	}

	if err := env.Runner.Run(ctx, Nicerl2(env, obsID)); err != nil {
		return "", fmt.Errorf("nicerl2: %w", err)
	}
	if err := env.Runner.Run(ctx, Nicerl3Spect(env, obsID)); err != nil {
		return "", fmt.Errorf("nicerl3-spect: %w", err)
	}

	events, err := fitsutil.ReadEvents(l.CleanedEvents(obsID))
	if err != nil {
		return "", fmt.Errorf("read event file: %w", err)
	}
	source, err := fitsutil.ReadSpectrum(l.Spectrum(obsID))
	if err != nil {
		return "", fmt.Errorf("read spectrum: %w", err)
	}

	p := &obs.Products{
		ObsID:      obsID,
		EventFile:  l.CleanedEvents(obsID),
		Spectrum:   l.Spectrum(obsID),
		Background: l.Background(obsID),
		RMF:        l.RMF(obsID),
		ARF:        l.ARF(obsID),
		Events:     events,
		Source:     source,
		CreatedAt:  env.Timestamp(),
	}
	if err := obs.WriteArtifact(dir, obs.ProductsFile, p); err != nil {
		return "", err
	}
	return l.Path(obsID, obs.ProductsFile), nil
}

// Nicerl2 builds the nicerl2 invocation for obsID.
func Nicerl2(env *stage.Env, obsID string) toolchain.Invocation {
	c := env.Config.Create
	args := []string{
		toolchain.KV("indir", env.Layout.RawDir(obsID)),
		toolchain.KV("clobber", toolchain.YesNo(c.Clobber)),
	}
	args = append(args, c.Nicerl2Args...)
	return toolchain.Invocation{Tool: env.Config.Tools.Nicerl2, Args: args}
}

// Nicerl3Spect builds the nicerl3-spect invocation for obsID.
func Nicerl3Spect(env *stage.Env, obsID string) toolchain.Invocation {
	c := env.Config.Create
	l := env.Layout
	args := []string{
		toolchain.KV("indir", l.RawDir(obsID)),
		toolchain.KV("phafile", l.Spectrum(obsID)),
		toolchain.KV("bkgfile", l.Background(obsID)),
		toolchain.KV("rmffile", l.RMF(obsID)),
		toolchain.KV("arffile", l.ARF(obsID)),
		toolchain.KV("bkgmodeltype", c.BkgModel),
		toolchain.KV("clobber", toolchain.YesNo(c.Clobber)),
	}
	args = append(args, c.Nicerl3Args...)
	return toolchain.Invocation{Tool: env.Config.Tools.Nicerl3Spect, Args: args}
}
