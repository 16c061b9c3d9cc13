// Package fitstest writes small NICER-like FITS files for tests and fake
// toolchains.
package fitstest

import (
	"fmt"
	"os"

	"github.com/astrogo/fitsio"
)

// Events describes a synthetic cleaned event file.
type Events struct {
	ObsID    string
	Object   string
	Count    int
	Exposure float64
	MJDRefI  int // 0 leaves out MJDREFI and MJDREFF
	MJDRefF  float64
	TStart   float64
}

// Spectrum describes a synthetic PHA spectrum.
type Spectrum struct {
	Counts   []int32
	Exposure float64
	Backscal float64
}

type eventRow struct {
	Time float64 `fits:"TIME"`
	PI   int16   `fits:"PI"`
}

type phaRow struct {
	Channel int32 `fits:"CHANNEL"`
	Counts  int32 `fits:"COUNTS"`
}

// WriteEvents writes an event file with an EVENTS binary table.
func WriteEvents(path string, ev Events) error {
	cards := []fitsio.Card{
		{Name: "OBS_ID", Value: ev.ObsID},
		{Name: "OBJECT", Value: ev.Object},
		{Name: "EXPOSURE", Value: ev.Exposure},
		{Name: "TSTART", Value: ev.TStart},
	}
	if ev.MJDRefI != 0 {
		cards = append(cards,
			fitsio.Card{Name: "MJDREFI", Value: ev.MJDRefI},
			fitsio.Card{Name: "MJDREFF", Value: ev.MJDRefF},
		)
	}
	cols := []fitsio.Column{
		{Name: "TIME", Format: "D"},
		{Name: "PI", Format: "I"},
	}
	return write(path, "EVENTS", cols, cards, func(tbl *fitsio.Table) error {
		for i := 0; i < ev.Count; i++ {
			row := eventRow{Time: ev.TStart + float64(i), PI: int16(100 + i%900)}
			if err := tbl.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSpectrum writes a PHA file with a SPECTRUM binary table.
func WriteSpectrum(path string, sp Spectrum) error {
	cards := []fitsio.Card{
		{Name: "EXPOSURE", Value: sp.Exposure},
		{Name: "BACKSCAL", Value: sp.Backscal},
	}
	cols := []fitsio.Column{
		{Name: "CHANNEL", Format: "J"},
		{Name: "COUNTS", Format: "J"},
	}
	return write(path, "SPECTRUM", cols, cards, func(tbl *fitsio.Table) error {
		for i, c := range sp.Counts {
			row := phaRow{Channel: int32(i), Counts: c}
			if err := tbl.Write(&row); err != nil {
				return err
			}
		}
		return nil
	})
}

func write(path, extname string, cols []fitsio.Column, cards []fitsio.Card, fill func(*fitsio.Table) error) error {
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer w.Close()

	f, err := fitsio.Create(w)
	if err != nil {
		return fmt.Errorf("fits create: %w", err)
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(fitsio.NewHeader(nil, fitsio.IMAGE_HDU, 8, []int{}))
	if err != nil {
		return fmt.Errorf("primary hdu: %w", err)
	}
	if err := f.Write(phdu); err != nil {
		return fmt.Errorf("write primary hdu: %w", err)
	}

	tbl, err := fitsio.NewTable(extname, cols, fitsio.BINARY_TBL)
	if err != nil {
		return fmt.Errorf("new table: %w", err)
	}
	defer tbl.Close()
	if err := tbl.Header().Append(cards...); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if err := fill(tbl); err != nil {
		return fmt.Errorf("fill %s: %w", extname, err)
	}
	if err := f.Write(tbl); err != nil {
		return fmt.Errorf("write %s: %w", extname, err)
	}
	return nil
}
