// Package testutil simulates the external toolchain for stage and driver tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"

	"nicer/internal/config"
	"nicer/internal/fitsutil/fitstest"
	"nicer/internal/obs"
	"nicer/internal/toolchain"
	"nicer/internal/xcm"
)

// Sim is a FakeRunner whose handlers write the files the real tools would.
type Sim struct {
	*toolchain.FakeRunner

	// FitOutput and FluxOutput return what xspec "computes" for an observation.
	FitOutput  func(obsID string) *xcm.FitOutput
	FluxOutput func(obsID string) *xcm.FluxOutput

	day int // advances one day per reduced observation
}

// NewSim registers simulated nicerl2, nicerl3-spect and xspec handlers under
// the tool names in cfg.
func NewSim(cfg *config.Config) *Sim {
	s := &Sim{
		FakeRunner: toolchain.NewFakeRunner(),
		FitOutput:  DefaultFit,
		FluxOutput: DefaultFlux,
	}
	s.Handle(cfg.Tools.Nicerl2, s.nicerl2)
	s.Handle(cfg.Tools.Nicerl3Spect, s.nicerl3Spect)
	s.Handle(cfg.Tools.Xspec, s.xspec)
	return s
}

// DefaultFit is an absorbed blackbody fit with reduced chi-square 1.2.
func DefaultFit(string) *xcm.FitOutput {
	return &xcm.FitOutput{
		Params: []xcm.ParamLine{
			{Index: 1, Name: "nH", Unit: "10^22", Value: 0.3, ErrLow: 0.28, ErrHigh: 0.32},
			{Index: 2, Name: "kT", Unit: "keV", Value: 1.5, ErrLow: 1.4, ErrHigh: 1.6},
			{Index: 3, Name: "norm", Value: 100, ErrLow: 90, ErrHigh: 110},
		},
		StatMethod: "chi",
		Statistic:  120,
		DOF:        100,
	}
}

// DefaultFlux is a 1e-9 erg/cm^2/s flux.
func DefaultFlux(string) *xcm.FluxOutput {
	return &xcm.FluxOutput{
		Flux: 1e-9, FluxLow: 0.9e-9, FluxHigh: 1.1e-9,
		PhotonFlux: 0.5, PhotonFluxLow: 0.45, PhotonFluxHigh: 0.55,
	}
}

func (s *Sim) nicerl2(inv toolchain.Invocation) error {
	indir := toolchain.Arg(inv.Args, "indir")
	if indir == "" {
		return fmt.Errorf("nicerl2: missing indir")
	}
	if _, err := os.Stat(indir); err != nil {
		return fmt.Errorf("%w: nicerl2: %v", toolchain.ErrToolFailed, err)
	}
	obsID := filepath.Base(indir)
	s.day++
	evtDir := filepath.Join(indir, "xti", "event_cl")
	if err := os.MkdirAll(evtDir, 0755); err != nil {
		return err
	}
	return fitstest.WriteEvents(filepath.Join(evtDir, "ni"+obsID+"_0mpu7_cl.evt"), fitstest.Events{
		ObsID:    obsID,
		Object:   "SIM",
		Count:    25,
		Exposure: 1000,
		MJDRefI:  56658,
		TStart:   86400 * float64(2000+s.day),
	})
}

func (s *Sim) nicerl3Spect(inv toolchain.Invocation) error {
	pha := toolchain.Arg(inv.Args, "phafile")
	if pha == "" {
		return fmt.Errorf("nicerl3-spect: missing phafile")
	}
	if err := fitstest.WriteSpectrum(pha, fitstest.Spectrum{Counts: []int32{1, 4, 9, 16}, Exposure: 1000, Backscal: 1}); err != nil {
		return err
	}
	for _, key := range []string{"bkgfile", "rmffile", "arffile"} {
		if err := os.WriteFile(toolchain.Arg(inv.Args, key), []byte("SIMPLE  =                    T"), 0644); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sim) xspec(inv toolchain.Invocation) error {
	if len(inv.Args) < 2 {
		return fmt.Errorf("xspec: missing script")
	}
	obsID := filepath.Base(inv.Dir)
	if inv.Output != nil {
		fmt.Fprintf(inv.Output, "XSPEC version: 12.14.0\nExecuting script file \"%s\" ...\n", inv.Args[1])
	}
	switch inv.Args[1] {
	case obs.FitScriptFile:
		if err := os.WriteFile(filepath.Join(inv.Dir, obs.FitOutFile), []byte(xcm.FormatFit(s.FitOutput(obsID))), 0644); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(inv.Dir, obs.FitModelFile), []byte("model TBabs(bbodyrad)\n"), 0644)
	case obs.FluxScriptFile:
		return os.WriteFile(filepath.Join(inv.Dir, obs.FluxOutFile), []byte(xcm.FormatFlux(s.FluxOutput(obsID))), 0644)
	}
	return fmt.Errorf("xspec: unexpected script %q", inv.Args[1])
}

// TB is the part of testing.TB the helpers need; GinkgoT satisfies it too.
type TB interface {
	Helper()
	Fatal(args ...any)
	TempDir() string
}

// RawObservations creates empty raw observation directories under root.
func RawObservations(t TB, root string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := os.MkdirAll(filepath.Join(root, id), 0755); err != nil {
			t.Fatal(err)
		}
	}
}

// Config returns a default config rooted in fresh temp directories.
func Config(t TB) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ObsRoot = filepath.Join(t.TempDir(), "raw")
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(cfg.ObsRoot, 0755); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Resolve(""); err != nil {
		t.Fatal(err)
	}
	return cfg
}
