package obs

import (
	"nicer/internal/compare"
	"nicer/internal/fitsutil"
)

// Products is the create-stage manifest for one observation.
type Products struct {
	ObsID      string                 `json:"obs_id"`
	EventFile  string                 `json:"event_file"`
	Spectrum   string                 `json:"spectrum"`
	Background string                 `json:"background"`
	RMF        string                 `json:"rmf"`
	ARF        string                 `json:"arf"`
	Events     *fitsutil.EventInfo    `json:"events,omitempty"`
	Source     *fitsutil.SpectrumInfo `json:"source,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

// Param is one fitted model parameter.
type Param struct {
	Index   int     `json:"index"`
	Name    string  `json:"name"`
	Unit    string  `json:"unit,omitempty"`
	Value   float64 `json:"value"`
	ErrLow  float64 `json:"err_low,omitempty"`
	ErrHigh float64 `json:"err_high,omitempty"`
	Frozen  bool    `json:"frozen,omitempty"`
}

// FitResult is the fit-stage record.
type FitResult struct {
	ObsID       string            `json:"obs_id"`
	Model       string            `json:"model"`
	EventFile   string            `json:"event_file,omitempty"`
	Spectrum    string            `json:"spectrum"`
	ModelFile   string            `json:"model_file"`
	Params      []Param           `json:"params"`
	Statistic   float64           `json:"statistic"`
	StatMethod  string            `json:"stat_method"`
	DOF         int               `json:"dof"`
	ReducedStat float64           `json:"reduced_stat"`
	Checks      []compare.Outcome `json:"checks,omitempty"`
	Accepted    bool              `json:"accepted"`
	FittedAt    string            `json:"fitted_at"`
}

// Lookup resolves a threshold parameter against the fit: the fit statistic
// names first, then the first model parameter with that name.
func (r *FitResult) Lookup(name string) (float64, bool) {
	switch name {
	case "statistic":
		return r.Statistic, true
	case "dof":
		return float64(r.DOF), true
	case "reduced_stat":
		return r.ReducedStat, r.DOF > 0
	}
	if p := r.Param(name); p != nil {
		return p.Value, true
	}
	return 0, false
}

// Param returns the first parameter named name, or nil.
func (r *FitResult) Param(name string) *Param {
	for i := range r.Params {
		if r.Params[i].Name == name {
			return &r.Params[i]
		}
	}
	return nil
}

// FluxResult is the flux-stage record.
type FluxResult struct {
	ObsID      string  `json:"obs_id"`
	FitFile    string  `json:"fit_file"`
	Model      string  `json:"model"`
	EMin       float64 `json:"emin_kev"`
	EMax       float64 `json:"emax_kev"`
	Flux       float64 `json:"flux"` // erg/cm^2/s
	FluxLow    float64 `json:"flux_low,omitempty"`
	FluxHigh   float64 `json:"flux_high,omitempty"`
	PhotonFlux float64 `json:"photon_flux"` // photons/cm^2/s
	Accepted   bool    `json:"accepted"`
	ComputedAt string  `json:"computed_at"`
}
