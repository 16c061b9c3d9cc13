package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nicer/internal/stage"
	"nicer/internal/store"
	"nicer/internal/testutil"
)

func TestRun_StageOrder(t *testing.T) {
	cfg := testutil.Config(t)
	testutil.RawObservations(t, cfg.ObsRoot, "1050300108")
	sim := testutil.NewSim(cfg)
	d := New(stage.NewEnv(cfg, sim), store.NewMemStore())

	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Failed() {
		t.Fatalf("run failed: %v", rep.Err())
	}
	want := []string{"nicerl2", "nicerl3-spect", "xspec", "xspec"}
	if diff := cmp.Diff(want, sim.Tools()); diff != "" {
		t.Errorf("tool order (-want +got):\n%s", diff)
	}
	var scripts []string
	for _, c := range sim.Calls()[2:] {
		scripts = append(scripts, c.Args[1])
	}
	if diff := cmp.Diff([]string{"fit.xcm", "flux.xcm"}, scripts); diff != "" {
		t.Errorf("xspec scripts (-want +got):\n%s", diff)
	}
	var stages []stage.Name
	for _, r := range rep.Results {
		stages = append(stages, r.Stage)
	}
	if diff := cmp.Diff(stage.Order, stages); diff != "" {
		t.Errorf("stages (-want +got):\n%s", diff)
	}
}

func TestRun_DisabledStagesRecordedSkipped(t *testing.T) {
	cfg := testutil.Config(t)
	testutil.RawObservations(t, cfg.ObsRoot, "1050300108")
	cfg.Switches.Flux = false
	cfg.Switches.Plot = false
	st := store.NewMemStore()
	d := New(stage.NewEnv(cfg, testutil.NewSim(cfg)), st)

	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := rep.Result(stage.Flux).Status; got != stage.Skipped {
		t.Errorf("flux status %s", got)
	}
	entries, err := st.ListRun(d.RunID)
	if err != nil {
		t.Fatal(err)
	}
	disabled := 0
	for _, e := range entries {
		if e.ObsID == "" && e.Message == "disabled" {
			disabled++
		}
	}
	if disabled != 2 {
		t.Errorf("got %d disabled stage entries, want 2", disabled)
	}
}

func TestRun_HaltsAfterFailure(t *testing.T) {
	cfg := testutil.Config(t)
	testutil.RawObservations(t, cfg.ObsRoot, "1050300108")
	sim := testutil.NewSim(cfg)
	sim.Fail(cfg.Tools.Nicerl2)
	st := store.NewMemStore()
	d := New(stage.NewEnv(cfg, sim), st)

	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.HaltedAt != stage.Create {
		t.Fatalf("halted at %q", rep.HaltedAt)
	}
	if diff := cmp.Diff([]string{"nicerl2"}, sim.Tools()); diff != "" {
		t.Errorf("tools after halt (-want +got):\n%s", diff)
	}
	for _, name := range []stage.Name{stage.Fit, stage.Flux, stage.Plot} {
		if got := rep.Result(name).Status; got != stage.Skipped {
			t.Errorf("%s: status %s", name, got)
		}
	}
	if err := rep.Err(); err == nil || !strings.Contains(err.Error(), "create 1050300108") {
		t.Errorf("report error: %v", err)
	}
	runs, _ := st.ListRuns()
	if len(runs) != 1 || runs[0].Failed != 1 || runs[0].Stages != 4 {
		t.Errorf("runs: %+v", runs[0])
	}
}

func TestRun_ContinueOnError(t *testing.T) {
	cfg := testutil.Config(t)
	testutil.RawObservations(t, cfg.ObsRoot, "1050300108")
	cfg.ObsIDs = []string{"1050300108", "1050300109"} // no raw data for the second
	cfg.HaltOnFailure = false
	d := New(stage.NewEnv(cfg, testutil.NewSim(cfg)), nil)

	rep, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.HaltedAt != "" {
		t.Fatalf("halted at %s", rep.HaltedAt)
	}
	if got := rep.Result(stage.Create).Status; got != stage.Failed {
		t.Errorf("create: %s", got)
	}
	fit := rep.Result(stage.Fit)
	if fit.Status != stage.OK || fit.Count(stage.OK) != 1 || fit.Count(stage.Skipped) != 1 {
		t.Errorf("fit: %+v", fit)
	}
	if got := rep.Result(stage.Flux).Count(stage.OK); got != 1 {
		t.Errorf("flux ok count %d", got)
	}
}

func TestRun_LedgerFailureStopsRun(t *testing.T) {
	cfg := testutil.Config(t)
	d := New(stage.NewEnv(cfg, testutil.NewSim(cfg)), failingStore{store.NewMemStore()})
	if _, err := d.Run(context.Background()); err == nil {
		t.Fatal("expected ledger error")
	}
}

func TestRun_Cancelled(t *testing.T) {
	cfg := testutil.Config(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := New(stage.NewEnv(cfg, testutil.NewSim(cfg)), nil)
	if _, err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}

func TestRunStage_Unknown(t *testing.T) {
	cfg := testutil.Config(t)
	d := New(stage.NewEnv(cfg, testutil.NewSim(cfg)), nil)
	if _, err := d.RunStage(context.Background(), "calibrate"); err == nil {
		t.Fatal("expected error")
	}
}

type failingStore struct{ *store.MemStore }

func (failingStore) RecordStage(*store.Entry) (int64, error) {
	return 0, errors.New("disk full")
}
