package fitsutil

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"nicer/internal/fitsutil/fitstest"
)

func TestReadEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ni1050300108_0mpu7_cl.evt")
	err := fitstest.WriteEvents(path, fitstest.Events{
		ObsID:    "1050300108",
		Object:   "Aql_X-1",
		Count:    42,
		Exposure: 1234.5,
		MJDRefI:  56658,
		MJDRefF:  0.000777592592592593,
		TStart:   86400 * 2000,
	})
	if err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	info, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if info.ObsID != "1050300108" || info.Object != "Aql_X-1" {
		t.Errorf("identity: got %+v", info)
	}
	if info.Events != 42 {
		t.Errorf("events: got %d want 42", info.Events)
	}
	if info.Exposure != 1234.5 {
		t.Errorf("exposure: got %v", info.Exposure)
	}
	want := 56658 + 0.000777592592592593 + 2000
	if math.Abs(info.MJDStart-want) > 1e-6 {
		t.Errorf("mjd start: got %v want %v", info.MJDStart, want)
	}
}

func TestReadEvents_NoTimeReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ni1050300108_0mpu7_cl.evt")
	err := fitstest.WriteEvents(path, fitstest.Events{
		ObsID:  "1050300108",
		Count:  3,
		TStart: 86400 * 2000,
	})
	if err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	info, err := ReadEvents(path)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if info.MJDStart != 0 {
		t.Errorf("mjd start without MJDREFI: got %v want 0", info.MJDStart)
	}
}

func TestReadSpectrum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ni1050300108_sr.pha")
	err := fitstest.WriteSpectrum(path, fitstest.Spectrum{
		Counts:   []int32{0, 5, 10, 20, 5},
		Exposure: 900,
		Backscal: 1,
	})
	if err != nil {
		t.Fatalf("WriteSpectrum: %v", err)
	}

	info, err := ReadSpectrum(path)
	if err != nil {
		t.Fatalf("ReadSpectrum: %v", err)
	}
	if info.Channels != 5 || info.TotalCounts != 40 || info.Exposure != 900 {
		t.Errorf("got %+v", info)
	}
}

func TestReadEvents_MissingExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.pha")
	if err := fitstest.WriteSpectrum(path, fitstest.Spectrum{Counts: []int32{1}}); err != nil {
		t.Fatalf("WriteSpectrum: %v", err)
	}
	_, err := ReadEvents(path)
	if !errors.Is(err, ErrNoHDU) {
		t.Fatalf("want ErrNoHDU, got %v", err)
	}
}

func TestReadEvents_MissingFile(t *testing.T) {
	if _, err := ReadEvents(filepath.Join(t.TempDir(), "absent.evt")); err == nil {
		t.Fatal("expected error")
	}
}
