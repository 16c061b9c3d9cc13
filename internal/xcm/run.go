package xcm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nicer/internal/obs"
	"nicer/internal/toolchain"
)

// DataFor returns the spectral files of obsID.
func DataFor(l obs.Layout, obsID string) Data {
	return Data{
		Spectrum:   l.Spectrum(obsID),
		Background: l.Background(obsID),
		RMF:        l.RMF(obsID),
		ARF:        l.ARF(obsID),
	}
}

// Files names what one XSPEC run reads and writes inside an observation directory.
type Files struct {
	Script string // command script written before the run
	Out    string // result file the script writes
	Log    string // XSPEC console output
}

// RunScript writes script into dir and runs xspec on it there, copying the
// console output to files.Log. A result file left by an earlier run is
// removed first so a crashed run cannot be mistaken for a fresh one.
func RunScript(ctx context.Context, runner toolchain.Runner, xspec, dir string, files Files, script string) error {
	scriptFile, outFile := files.Script, files.Out
	if err := os.WriteFile(filepath.Join(dir, scriptFile), []byte(script), 0644); err != nil {
		return fmt.Errorf("write %s: %w", scriptFile, err)
	}
	if err := os.Remove(filepath.Join(dir, outFile)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale %s: %w", outFile, err)
	}
	log, err := os.Create(filepath.Join(dir, files.Log))
	if err != nil {
		return fmt.Errorf("create %s: %w", files.Log, err)
	}
	defer log.Close()

	inv := toolchain.Invocation{
		Tool:   xspec,
		Args:   []string{"-", scriptFile},
		Dir:    dir,
		Output: log,
	}
	if err := runner.Run(ctx, inv); err != nil {
		return fmt.Errorf("xspec: %w", err)
	}
	if err := log.Close(); err != nil {
		return fmt.Errorf("close %s: %w", files.Log, err)
	}
	return nil
}
