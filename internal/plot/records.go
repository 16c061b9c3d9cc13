package plot

import (
	"fmt"

	"nicer/internal/obs"
)

// Record is everything the pipeline wrote for one observation.
type Record struct {
	ObsID    string
	Products *obs.Products
	Fit      *obs.FitResult
	Flux     *obs.FluxResult
}

// Collect loads the records of ids. Observations without a fit result are
// left out, as are rejected fits when acceptedOnly is set.
func Collect(l obs.Layout, ids []string, acceptedOnly bool) ([]Record, error) {
	var out []Record
	for _, id := range ids {
		dir := l.Dir(id)
		fit, err := obs.ReadArtifact[obs.FitResult](dir, obs.FitResultFile)
		if err != nil {
			return nil, err
		}
		if fit == nil || (acceptedOnly && !fit.Accepted) {
			continue
		}
		rec := Record{ObsID: id, Fit: fit}
		if rec.Products, err = obs.ReadArtifact[obs.Products](dir, obs.ProductsFile); err != nil {
			return nil, err
		}
		if rec.Flux, err = obs.ReadArtifact[obs.FluxResult](dir, obs.FluxResultFile); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Point is one plotted value. Low and High are distances below and above Y.
type Point struct {
	ObsID     string
	X, Y      float64
	Low, High float64
}

// Value returns the variable of r: "flux" and "photon_flux" come from the
// flux record, anything else from the fit.
func (r Record) Value(variable string) (Point, bool) {
	p := Point{ObsID: r.ObsID}
	switch variable {
	case "flux":
		if r.Flux == nil {
			return p, false
		}
		p.Y = r.Flux.Flux
		if r.Flux.FluxHigh > 0 {
			p.Low, p.High = r.Flux.Flux-r.Flux.FluxLow, r.Flux.FluxHigh-r.Flux.Flux
		}
		return p, true
	case "photon_flux":
		if r.Flux == nil {
			return p, false
		}
		p.Y = r.Flux.PhotonFlux
		return p, true
	}
	if par := r.Fit.Param(variable); par != nil {
		p.Y = par.Value
		if !par.Frozen && (par.ErrLow != 0 || par.ErrHigh != 0) {
			p.Low, p.High = par.Value-par.ErrLow, par.ErrHigh-par.Value
		}
		return p, true
	}
	v, ok := r.Fit.Lookup(variable)
	p.Y = v
	return p, ok
}

// Series builds the points of variable. With the "mjd" x axis, records
// without an event start time are dropped.
func Series(records []Record, variable, xAxis string) ([]Point, error) {
	var pts []Point
	for _, r := range records {
		p, ok := r.Value(variable)
		if !ok {
			continue
		}
		switch xAxis {
		case "", XIndex:
			p.X = float64(len(pts) + 1)
		case XMJD:
			if r.Products == nil || r.Products.Events == nil || r.Products.Events.MJDStart == 0 {
				continue
			}
			p.X = r.Products.Events.MJDStart
		default:
			return nil, fmt.Errorf("unknown x axis %q: must be %s or %s", xAxis, XIndex, XMJD)
		}
		pts = append(pts, p)
	}
	return pts, nil
}
