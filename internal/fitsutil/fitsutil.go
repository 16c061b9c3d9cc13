// Package fitsutil reads the header keywords and table sizes the pipeline
// needs from NICER event files and PHA spectra.
package fitsutil

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
	"gonum.org/v1/gonum/floats"
)

// ErrNoHDU is returned when the named extension is absent.
var ErrNoHDU = errors.New("fits extension not found")

// EventInfo summarises a cleaned event file.
type EventInfo struct {
	ObsID    string  `json:"obs_id"`
	Object   string  `json:"object,omitempty"`
	DateObs  string  `json:"date_obs,omitempty"`
	Events   int64   `json:"events"`
	Exposure float64 `json:"exposure"`  // seconds
	MJDStart float64 `json:"mjd_start"` // MJD-OBS, or MJDREFI + MJDREFF + TSTART/86400; 0 when unknown
}

// SpectrumInfo summarises a PHA spectrum.
type SpectrumInfo struct {
	Channels    int64   `json:"channels"`
	Exposure    float64 `json:"exposure"`
	Backscal    float64 `json:"backscal"`
	TotalCounts float64 `json:"total_counts"`
}

// ReadEvents reads the EVENTS extension of an event file.
func ReadEvents(path string) (*EventInfo, error) {
	info := &EventInfo{}
	err := withTable(path, "EVENTS", func(tbl *fitsio.Table) error {
		hdr := tbl.Header()
		info.ObsID = stringCard(hdr, "OBS_ID")
		info.Object = stringCard(hdr, "OBJECT")
		info.DateObs = stringCard(hdr, "DATE-OBS")
		info.Events = tbl.NumRows()
		info.Exposure, _ = floatCard(hdr, "EXPOSURE")
		if mjd, ok := floatCard(hdr, "MJD-OBS"); ok {
			info.MJDStart = mjd
			return nil
		}
		refi, ok := floatCard(hdr, "MJDREFI")
		if !ok {
			// no time reference: leave MJDStart unknown
			return nil
		}
		reff, _ := floatCard(hdr, "MJDREFF")
		tstart, _ := floatCard(hdr, "TSTART")
		info.MJDStart = refi + reff + tstart/86400
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadSpectrum reads the SPECTRUM extension of a PHA file and sums its COUNTS column.
func ReadSpectrum(path string) (*SpectrumInfo, error) {
	info := &SpectrumInfo{}
	err := withTable(path, "SPECTRUM", func(tbl *fitsio.Table) error {
		hdr := tbl.Header()
		info.Channels = tbl.NumRows()
		info.Exposure, _ = floatCard(hdr, "EXPOSURE")
		info.Backscal, _ = floatCard(hdr, "BACKSCAL")
		if tbl.Index("COUNTS") < 0 {
			return nil
		}
		counts, err := readColumn(tbl, "COUNTS")
		if err != nil {
			return err
		}
		info.TotalCounts = floats.Sum(counts)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

func withTable(path, extname string, fn func(*fitsio.Table) error) error {
	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fits %s: %w", path, err)
	}
	defer r.Close()

	f, err := fitsio.Open(r)
	if err != nil {
		return fmt.Errorf("parse fits %s: %w", path, err)
	}
	defer f.Close()

	for _, hdu := range f.HDUs() {
		if !strings.EqualFold(hdu.Name(), extname) {
			continue
		}
		tbl, ok := hdu.(*fitsio.Table)
		if !ok {
			return fmt.Errorf("%s[%s]: not a table", path, extname)
		}
		if err := fn(tbl); err != nil {
			return fmt.Errorf("%s[%s]: %w", path, extname, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s[%s]", ErrNoHDU, path, extname)
}

func readColumn(tbl *fitsio.Table, name string) ([]float64, error) {
	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	out := make([]float64, 0, tbl.NumRows())
	for rows.Next() {
		row := map[string]interface{}{name: nil}
		if err := rows.Scan(&row); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		v, ok := toFloat(row[name])
		if !ok {
			return nil, fmt.Errorf("column %s: unsupported type %T", name, row[name])
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func stringCard(hdr *fitsio.Header, name string) string {
	card := hdr.Get(name)
	if card == nil {
		return ""
	}
	switch v := card.Value.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func floatCard(hdr *fitsio.Header, name string) (float64, bool) {
	card := hdr.Get(name)
	if card == nil {
		return 0, false
	}
	return toFloat(card.Value)
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case uint8:
		return float64(x), true
	}
	return 0, false
}
