package plot

import (
	"math"
	"strconv"

	"github.com/soniakeys/meeus/v3/julian"
	gplot "gonum.org/v1/plot"
)

// mjdOffset converts a modified Julian date to a Julian date.
const mjdOffset = 2400000.5

// maxTicks bounds a fixed-step axis; denser spacings fall back to the
// default ticker.
const maxTicks = 500

// stepTicker places labelled major ticks every Major and unlabelled minor
// ticks every Minor. A zero Minor draws majors only.
type stepTicker struct {
	Major, Minor float64
	Label        func(float64) string
}

// Ticks implements the plot.Ticker interface.
func (t stepTicker) Ticks(min, max float64) []gplot.Tick {
	if t.Major <= 0 || (max-min)/t.Major > maxTicks {
		return relabel(gplot.DefaultTicks{}.Ticks(min, max), t.Label)
	}
	var ticks []gplot.Tick
	for i := math.Ceil(min / t.Major); i*t.Major <= max; i++ {
		v := i * t.Major
		ticks = append(ticks, gplot.Tick{Value: v, Label: t.Label(v)})
	}
	if t.Minor <= 0 || (max-min)/t.Minor > maxTicks {
		return ticks
	}
	for j := math.Ceil(min / t.Minor); j*t.Minor <= max; j++ {
		v := j * t.Minor
		if onStep(v, t.Major) {
			continue
		}
		ticks = append(ticks, gplot.Tick{Value: v})
	}
	return ticks
}

func onStep(v, step float64) bool {
	q := v / step
	return math.Abs(q-math.Round(q)) < 1e-9
}

// relabel rewrites the labels of the labelled ticks.
func relabel(ticks []gplot.Tick, label func(float64) string) []gplot.Tick {
	for i := range ticks {
		if ticks[i].IsMinor() {
			continue
		}
		ticks[i].Label = label(ticks[i].Value)
	}
	return ticks
}

func numberLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// dateLabel renders an MJD as a calendar date.
func dateLabel(mjd float64) string {
	return julian.JDToTime(mjd + mjdOffset).UTC().Format("2006-01-02")
}

// ticker returns the axis marker for the given spacings.
func ticker(major, minor float64, label func(float64) string) gplot.Ticker {
	return stepTicker{Major: major, Minor: minor, Label: label}
}
