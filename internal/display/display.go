// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output and markdown reports.
// Keep raw codes for JSON fields, ledger rows and equality comparisons.
package display

import "strings"

// --- Pipeline Stages ---

var stages = map[string]string{
	"create": "Create (nicerl2 + nicerl3-spect)",
	"fit":    "Fit (XSPEC)",
	"flux":   "Flux (XSPEC)",
	"plot":   "Plot",
}

// Stage returns the human-readable name for a stage code.
// Unknown codes are returned as-is.
func Stage(code string) string {
	if name, ok := stages[code]; ok {
		return name
	}
	return code
}

// StagePath converts stage codes to a human-readable path.
// ["create", "fit"] -> "Create (nicerl2 + nicerl3-spect) → Fit (XSPEC)"
func StagePath(codes []string) string {
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = Stage(c)
	}
	return strings.Join(names, " → ")
}

// --- Statuses ---

var statuses = map[string]string{
	"ok":      "OK",
	"failed":  "FAILED",
	"skipped": "skipped",
}

// Status returns the display form of a stage or observation status.
func Status(code string) string {
	if name, ok := statuses[code]; ok {
		return name
	}
	return code
}

// --- Model parameters ---

var params = map[string]string{
	"nH":           "Column density",
	"kT":           "Temperature",
	"norm":         "Normalisation",
	"PhoIndex":     "Photon index",
	"Gamma":        "Photon index",
	"LineE":        "Line energy",
	"Sigma":        "Line width",
	"flux":         "Energy flux",
	"photon_flux":  "Photon flux",
	"statistic":    "Fit statistic",
	"dof":          "Degrees of freedom",
	"reduced_stat": "Reduced statistic",
}

var units = map[string]string{
	"flux":        "erg/cm^2/s",
	"photon_flux": "photons/cm^2/s",
}

// Param returns the human-readable name for an XSPEC parameter or derived
// quantity. Unknown names are returned as-is.
func Param(name string) string {
	if n, ok := params[name]; ok {
		return n
	}
	return name
}

// ParamWithUnit returns "Temperature [keV]" when a unit is known. The unit
// argument wins over the built-in table.
func ParamWithUnit(name, unit string) string {
	if unit == "" {
		unit = units[name]
	}
	if unit == "" {
		return Param(name)
	}
	return Param(name) + " [" + unit + "]"
}
