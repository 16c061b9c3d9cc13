// Package obs defines the per-observation artifact set: where each product
// lives under the output directory and how records are read and written.
package obs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// ErrNoSpectrum is returned when a stage needs a spectrum that the create
// stage has not produced.
var ErrNoSpectrum = errors.New("spectrum not found")

// Artifact file names inside an observation directory.
const (
	ProductsFile   = "products.json"
	FitScriptFile  = "fit.xcm"
	FitLogFile     = "fit.log"
	FitOutFile     = "fit.out"
	FitModelFile   = "fit-model.xcm"
	FitResultFile  = "fit-result.json"
	FluxScriptFile = "flux.xcm"
	FluxLogFile    = "flux.log"
	FluxOutFile    = "flux.out"
	FluxResultFile = "flux-result.json"
)

var obsIDPattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidID reports whether s looks like a NICER observation ID.
func ValidID(s string) bool {
	return obsIDPattern.MatchString(s)
}

// Layout maps observation IDs to paths.
type Layout struct {
	OutputDir string // reduced products, fit and flux records
	ObsRoot   string // raw observation directories as delivered by HEASARC
}

// Dir returns {OutputDir}/{obsID}.
func (l Layout) Dir(obsID string) string {
	return filepath.Join(l.OutputDir, obsID)
}

// Ensure creates the observation output directory if it doesn't exist.
func (l Layout) Ensure(obsID string) (string, error) {
	dir := l.Dir(obsID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create observation dir: %w", err)
	}
	return dir, nil
}

// RawDir returns {ObsRoot}/{obsID}, the nicerl2 input directory.
func (l Layout) RawDir(obsID string) string {
	return filepath.Join(l.ObsRoot, obsID)
}

// CleanedEvents is where nicerl2 writes the merged cleaned event file.
func (l Layout) CleanedEvents(obsID string) string {
	return filepath.Join(l.RawDir(obsID), "xti", "event_cl", "ni"+obsID+"_0mpu7_cl.evt")
}

func (l Layout) Spectrum(obsID string) string {
	return filepath.Join(l.Dir(obsID), "ni"+obsID+"_sr.pha")
}

func (l Layout) Background(obsID string) string {
	return filepath.Join(l.Dir(obsID), "ni"+obsID+"_bg.pha")
}

func (l Layout) RMF(obsID string) string {
	return filepath.Join(l.Dir(obsID), "ni"+obsID+".rmf")
}

func (l Layout) ARF(obsID string) string {
	return filepath.Join(l.Dir(obsID), "ni"+obsID+".arf")
}

// Path returns the path of a named artifact for obsID.
func (l Layout) Path(obsID, filename string) string {
	return filepath.Join(l.Dir(obsID), filename)
}

// Discover lists observation IDs (10-digit directory names) under root, sorted.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("list observations in %s: %w", root, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && ValidID(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListWith lists observation IDs under the output directory that hold
// filename, sorted. An empty filename lists every observation directory.
// A missing output directory yields no IDs.
func (l Layout) ListWith(filename string) ([]string, error) {
	entries, err := os.ReadDir(l.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list output dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !ValidID(e.Name()) {
			continue
		}
		if filename == "" {
			ids = append(ids, e.Name())
			continue
		}
		if _, err := os.Stat(l.Path(e.Name(), filename)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
