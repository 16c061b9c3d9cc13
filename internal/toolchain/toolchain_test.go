package toolchain

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"nicer/internal/logging"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
}

func TestExecRunner_LogsOutput(t *testing.T) {
	requireShell(t)
	var buf bytes.Buffer
	logging.Init(slog.LevelDebug, "text", &buf)

	r := NewExecRunner()
	err := r.Run(context.Background(), Invocation{Tool: "sh", Args: []string{"-c", "echo calibrating; echo warn >&2"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"msg=calibrating", "stream=stdout", "msg=warn", "stream=stderr", "tool=sh"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output:\n%s", want, out)
		}
	}
}

func TestExecRunner_CopiesOutput(t *testing.T) {
	requireShell(t)
	logging.Init(slog.LevelError, "text", &bytes.Buffer{})

	var out bytes.Buffer
	err := NewExecRunner().Run(context.Background(), Invocation{
		Tool:   "sh",
		Args:   []string{"-c", "echo chi-squared; echo warning >&2"},
		Output: &out,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"chi-squared\n", "warning\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in copied output:\n%s", want, out.String())
		}
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	logging.Init(slog.LevelError, "text", &bytes.Buffer{})

	err := NewExecRunner().Run(context.Background(), Invocation{Tool: "sh", Args: []string{"-c", "exit 3"}})
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("want ErrToolFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("error should carry exit status: %v", err)
	}
}

func TestExecRunner_MissingTool(t *testing.T) {
	logging.Init(slog.LevelError, "text", &bytes.Buffer{})
	err := NewExecRunner().Run(context.Background(), Invocation{Tool: "nicer-no-such-tool-xyz"})
	if !errors.Is(err, ErrToolFailed) {
		t.Fatalf("want ErrToolFailed, got %v", err)
	}
}

func TestFakeRunner_RecordsAndDispatches(t *testing.T) {
	f := NewFakeRunner()
	var seen string
	f.Handle("nicerl2", func(inv Invocation) error {
		seen = Arg(inv.Args, "indir")
		return nil
	})
	f.Fail("xspec")

	ctx := context.Background()
	if err := f.Run(ctx, Invocation{Tool: "nicerl2", Args: []string{KV("indir", "/raw/1050300108"), KV("clobber", YesNo(true))}}); err != nil {
		t.Fatalf("nicerl2: %v", err)
	}
	if err := f.Run(ctx, Invocation{Tool: "xspec"}); !errors.Is(err, ErrToolFailed) {
		t.Fatalf("xspec: want ErrToolFailed, got %v", err)
	}
	if seen != "/raw/1050300108" {
		t.Errorf("indir: got %q", seen)
	}
	if diff := cmp.Diff([]string{"nicerl2", "xspec"}, f.Tools()); diff != "" {
		t.Errorf("tools (-want +got):\n%s", diff)
	}
	if got := Arg(f.Calls()[0].Args, "clobber"); got != "YES" {
		t.Errorf("clobber: got %q", got)
	}
}
