package obs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDiscover_OnlyObservationDirs(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1050300109", "1050300108", "notes", "12345"} {
		if err := os.Mkdir(filepath.Join(root, name), 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "2050300100"), []byte("file, not dir"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if diff := cmp.Diff([]string{"1050300108", "1050300109"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
}

func TestLayout_Paths(t *testing.T) {
	l := Layout{OutputDir: "/out", ObsRoot: "/raw"}
	id := "1050300108"
	cases := [][2]string{
		{l.Dir(id), "/out/1050300108"},
		{l.CleanedEvents(id), "/raw/1050300108/xti/event_cl/ni1050300108_0mpu7_cl.evt"},
		{l.Spectrum(id), "/out/1050300108/ni1050300108_sr.pha"},
		{l.Background(id), "/out/1050300108/ni1050300108_bg.pha"},
		{l.RMF(id), "/out/1050300108/ni1050300108.rmf"},
		{l.ARF(id), "/out/1050300108/ni1050300108.arf"},
		{l.Path(id, FitResultFile), "/out/1050300108/fit-result.json"},
	}
	for _, c := range cases {
		got, want := c[0], c[1]
		if got != filepath.FromSlash(want) {
			t.Errorf("got %q want %q", got, want)
		}
	}
}

func TestArtifact_RoundTripAndMissing(t *testing.T) {
	l := Layout{OutputDir: t.TempDir()}
	dir, err := l.Ensure("1050300108")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	missing, err := ReadArtifact[FitResult](dir, FitResultFile)
	if err != nil || missing != nil {
		t.Fatalf("missing artifact: got %+v err %v", missing, err)
	}

	in := &FitResult{
		ObsID:       "1050300108",
		Model:       "tbabs*bbodyrad",
		Params:      []Param{{Index: 1, Name: "nH", Unit: "10^22", Value: 0.4}},
		DOF:         120,
		Statistic:   130,
		ReducedStat: 130.0 / 120,
		Accepted:    true,
	}
	if err := WriteArtifact(dir, FitResultFile, in); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}
	out, err := ReadArtifact[FitResult](dir, FitResultFile)
	if err != nil {
		t.Fatalf("ReadArtifact: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	ids, err := l.ListWith(FitResultFile)
	if err != nil || len(ids) != 1 || ids[0] != "1050300108" {
		t.Errorf("ListWith: got %v err %v", ids, err)
	}
	none, err := l.ListWith(FluxResultFile)
	if err != nil || len(none) != 0 {
		t.Errorf("ListWith flux: got %v err %v", none, err)
	}
}

func TestFitResult_Lookup(t *testing.T) {
	r := &FitResult{
		Params:      []Param{{Name: "nH", Value: 0.3}, {Name: "kT", Value: 1.1}, {Name: "norm", Value: 40}, {Name: "kT", Value: 9}},
		Statistic:   110,
		DOF:         100,
		ReducedStat: 1.1,
	}
	tests := []struct {
		name   string
		want   float64
		wantOK bool
	}{
		{"nH", 0.3, true},
		{"kT", 1.1, true},
		{"reduced_stat", 1.1, true},
		{"dof", 100, true},
		{"statistic", 110, true},
		{"Tin", 0, false},
	}
	for _, tt := range tests {
		got, ok := r.Lookup(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}
