// Package config holds the parameter record shared by every pipeline stage.
// It is built once at start-up and passed by pointer; nothing mutates it
// after Resolve.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"nicer/internal/compare"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "nicer.yaml"

// Config is the full parameter record.
type Config struct {
	OutputDir string   `json:"output_dir" yaml:"output_dir"` // empty = directory of the executable
	ScriptDir string   `json:"script_dir" yaml:"script_dir"` // XSPEC template overrides; empty = output dir
	ObsRoot   string   `json:"obs_root" yaml:"obs_root"`
	ObsIDs    []string `json:"obs_ids,omitempty" yaml:"obs_ids,omitempty"`

	Switches Switches `json:"switches" yaml:"switches"`
	Create   Create   `json:"create" yaml:"create"`
	Fit      Fit      `json:"fit" yaml:"fit"`
	Flux     Flux     `json:"flux" yaml:"flux"`
	Plot     Plot     `json:"plot" yaml:"plot"`
	Tools    Tools    `json:"tools" yaml:"tools"`
	Log      Log      `json:"log" yaml:"log"`

	HaltOnFailure bool `json:"halt_on_failure" yaml:"halt_on_failure"`
}

// Switches gate the stages run by the driver.
type Switches struct {
	Create bool `json:"create" yaml:"create"`
	Fit    bool `json:"fit" yaml:"fit"`
	Flux   bool `json:"flux" yaml:"flux"`
	Plot   bool `json:"plot" yaml:"plot"`
}

// Create configures nicerl2 and nicerl3-spect.
type Create struct {
	Nicerl2Args []string `json:"nicerl2_args,omitempty" yaml:"nicerl2_args,omitempty"` // extra key=value args
	Nicerl3Args []string `json:"nicerl3_args,omitempty" yaml:"nicerl3_args,omitempty"`
	BkgModel    string   `json:"bkg_model" yaml:"bkg_model"`
	Clobber     bool     `json:"clobber" yaml:"clobber"`
}

// Fit configures the XSPEC model fit and its acceptance thresholds.
type Fit struct {
	Model       string              `json:"model" yaml:"model"`
	Initial     map[int]string      `json:"initial,omitempty" yaml:"initial,omitempty"` // param index -> newpar value
	EnergyRange string              `json:"energy_range" yaml:"energy_range"`           // XSPEC ignore expression
	Statistic   string              `json:"statistic" yaml:"statistic"`                 // chi or cstat
	Thresholds  []compare.Threshold `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// Flux configures the flux integration band in keV.
type Flux struct {
	EMin        float64 `json:"emin" yaml:"emin"`
	EMax        float64 `json:"emax" yaml:"emax"`
	ErrorTrials int     `json:"error_trials" yaml:"error_trials"` // 0 = no error estimate
}

// Plot configures the comparison figures.
type Plot struct {
	Variables    []string `json:"variables" yaml:"variables"` // parameter names or "flux"
	XAxis        string   `json:"x_axis" yaml:"x_axis"`       // index or mjd
	MajorTick    float64  `json:"major_tick" yaml:"major_tick"`
	MinorTick    float64  `json:"minor_tick" yaml:"minor_tick"`
	YMajorTick   float64  `json:"y_major_tick" yaml:"y_major_tick"`
	YMinorTick   float64  `json:"y_minor_tick" yaml:"y_minor_tick"`
	WidthIn      float64  `json:"width_in" yaml:"width_in"`
	HeightIn     float64  `json:"height_in" yaml:"height_in"`
	Format       string   `json:"format" yaml:"format"` // png, svg or pdf
	AcceptedOnly bool     `json:"accepted_only" yaml:"accepted_only"`
}

// Tools names the external executables.
type Tools struct {
	Nicerl2      string `json:"nicerl2" yaml:"nicerl2"`
	Nicerl3Spect string `json:"nicerl3_spect" yaml:"nicerl3_spect"`
	Xspec        string `json:"xspec" yaml:"xspec"`
}

// Log configures slog output.
type Log struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ObsRoot:  ".",
		Switches: Switches{Create: true, Fit: true, Flux: true, Plot: true},
		Create:   Create{BkgModel: "3c50", Clobber: true},
		Fit: Fit{
			Model:       "tbabs*bbodyrad",
			EnergyRange: "**-0.3 10.0-**",
			Statistic:   "chi",
			Thresholds: []compare.Threshold{
				{Param: "reduced_stat", Op: compare.LT, Value: 2.0},
			},
		},
		Flux: Flux{EMin: 0.5, EMax: 10.0},
		Plot: Plot{
			Variables: []string{"flux"},
			XAxis:     "index",
			WidthIn:   8,
			HeightIn:  4,
			Format:    "png",
		},
		Tools: Tools{
			Nicerl2:      "nicerl2",
			Nicerl3Spect: "nicerl3-spect",
			Xspec:        "xspec",
		},
		Log:           Log{Level: "info", Format: "text"},
		HaltOnFailure: true,
	}
}

// Validate checks the fields a stage would otherwise trip over mid-run.
func (c *Config) Validate() error {
	if err := compare.Validate(c.Fit.Thresholds); err != nil {
		return fmt.Errorf("fit: %w", err)
	}
	return nil
}

// Resolve fills derived paths. An empty OutputDir becomes the directory that
// holds the invoking executable (exe); an empty ScriptDir follows OutputDir.
// Paths are not checked for existence here.
func (c *Config) Resolve(exe string) error {
	if c.OutputDir == "" {
		if exe == "" {
			return fmt.Errorf("resolve output dir: no executable path")
		}
		c.OutputDir = filepath.Dir(exe)
	}
	if c.ScriptDir == "" {
		c.ScriptDir = c.OutputDir
	}
	return nil
}

// ExecutablePath returns the invoking executable with symlinks resolved.
func ExecutablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// PlotDir is where rendered figures are written.
func (c *Config) PlotDir() string {
	return filepath.Join(c.OutputDir, "plots")
}

// LedgerPath is the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.OutputDir, "nicer.db")
}
