package fit

import (
	"context"
	"os"
	"strings"
	"testing"

	"nicer/internal/compare"
	"nicer/internal/create"
	"nicer/internal/obs"
	"nicer/internal/stage"
	"nicer/internal/testutil"
	"nicer/internal/xcm"
)

func reduced(t *testing.T, ids ...string) (*stage.Env, *testutil.Sim) {
	t.Helper()
	cfg := testutil.Config(t)
	testutil.RawObservations(t, cfg.ObsRoot, ids...)
	sim := testutil.NewSim(cfg)
	env := stage.NewEnv(cfg, sim)
	if res := create.Run(context.Background(), env); res.Status != stage.OK {
		t.Fatalf("create: %v", res.Error())
	}
	return env, sim
}

func TestRun_WritesFitResult(t *testing.T) {
	env, _ := reduced(t, "1050300108")
	env.Config.Fit.Thresholds = []compare.Threshold{
		{Param: "nH", Op: compare.LT, Value: 1},
		{Param: "reduced_stat", Op: compare.LE, Value: 1.5},
	}

	res := Run(context.Background(), env)
	if res.Status != stage.OK {
		t.Fatalf("status %s: %v", res.Status, res.Error())
	}
	r, err := obs.ReadArtifact[obs.FitResult](env.Layout.Dir("1050300108"), obs.FitResultFile)
	if err != nil || r == nil {
		t.Fatalf("fit result: %+v err %v", r, err)
	}
	if !r.Accepted {
		t.Errorf("expected accepted fit, checks: %+v", r.Checks)
	}
	if r.EventFile != env.Layout.CleanedEvents("1050300108") {
		t.Errorf("fit should reference the event file, got %q", r.EventFile)
	}
	if r.ReducedStat != 1.2 || r.DOF != 100 || len(r.Params) != 3 {
		t.Errorf("got %+v", r)
	}

	script, err := os.ReadFile(env.Layout.Path("1050300108", obs.FitScriptFile))
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	if !strings.Contains(string(script), "model tbabs*bbodyrad & /*") {
		t.Errorf("script:\n%s", script)
	}

	log, err := os.ReadFile(env.Layout.Path("1050300108", obs.FitLogFile))
	if err != nil {
		t.Fatalf("fit log: %v", err)
	}
	if !strings.Contains(string(log), `Executing script file "fit.xcm"`) {
		t.Errorf("fit log:\n%s", log)
	}
}

func TestRun_RejectsOnThreshold(t *testing.T) {
	env, sim := reduced(t, "1050300108", "1050300109")
	sim.FitOutput = func(id string) *xcm.FitOutput {
		out := testutil.DefaultFit(id)
		if id == "1050300109" {
			out.Params[0].Value = 3.0 // nH
		}
		return out
	}
	env.Config.Fit.Thresholds = []compare.Threshold{{Param: "nH", Op: compare.LT, Value: 1}}

	if res := Run(context.Background(), env); res.Status != stage.OK {
		t.Fatalf("a rejected fit is not a stage failure: %v", res.Error())
	}
	a, _ := obs.ReadArtifact[obs.FitResult](env.Layout.Dir("1050300108"), obs.FitResultFile)
	b, _ := obs.ReadArtifact[obs.FitResult](env.Layout.Dir("1050300109"), obs.FitResultFile)
	if !a.Accepted || b.Accepted {
		t.Errorf("accepted: 108=%v 109=%v", a.Accepted, b.Accepted)
	}
	if len(b.Checks) != 1 || b.Checks[0].Passed || b.Checks[0].Actual != 3.0 {
		t.Errorf("checks: %+v", b.Checks)
	}
}

func TestRun_UnknownParamFailsCheckNotStage(t *testing.T) {
	env, _ := reduced(t, "1050300108")
	env.Config.Fit.Thresholds = []compare.Threshold{{Param: "Tin", Op: compare.GT, Value: 0}}

	if res := Run(context.Background(), env); res.Status != stage.OK {
		t.Fatalf("status %s", res.Status)
	}
	r, _ := obs.ReadArtifact[obs.FitResult](env.Layout.Dir("1050300108"), obs.FitResultFile)
	if r.Accepted || r.Checks[0].Found {
		t.Errorf("got %+v", r.Checks)
	}
}

func TestRun_SkipsWithoutSpectrum(t *testing.T) {
	cfg := testutil.Config(t)
	env := stage.NewEnv(cfg, testutil.NewSim(cfg))
	if _, err := env.Layout.Ensure("1050300108"); err != nil {
		t.Fatal(err)
	}
	res := Run(context.Background(), env)
	if res.Status != stage.Skipped || res.Count(stage.Skipped) != 1 {
		t.Fatalf("got %+v", res)
	}
}

func TestRun_XspecCrashFails(t *testing.T) {
	env, sim := reduced(t, "1050300108")
	sim.Fail(env.Config.Tools.Xspec)

	res := Run(context.Background(), env)
	if res.Status != stage.Failed {
		t.Fatalf("status %s", res.Status)
	}
	if _, err := os.Stat(env.Layout.Path("1050300108", obs.FitResultFile)); !os.IsNotExist(err) {
		t.Errorf("no fit result should be written: %v", err)
	}
}

func TestInitialValuesSorted(t *testing.T) {
	got := initialValues(map[int]string{3: "1", 1: "0.3 -1", 2: "2"})
	if len(got) != 3 || got[0].Index != 1 || got[1].Index != 2 || got[2].Index != 3 {
		t.Errorf("got %+v", got)
	}
}
