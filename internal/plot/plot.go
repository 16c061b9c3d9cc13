// Package plot draws one comparison figure per configured variable across
// all fitted observations.
package plot

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"nicer/internal/config"
	"nicer/internal/display"
	"nicer/internal/logging"
	"nicer/internal/stage"
)

// X axis kinds.
const (
	XIndex = "index"
	XMJD   = "mjd"
)

var formats = map[string]bool{"png": true, "svg": true, "pdf": true}

// Run writes a figure for each configured variable. Outcomes are recorded
// per variable rather than per observation.
func Run(ctx context.Context, env *stage.Env) *stage.Result {
	res := stage.Begin(stage.Plot, env.Now())
	logger := logging.New("plot")
	c := env.Config.Plot

	if !formats[c.Format] {
		res.Err = fmt.Errorf("unsupported plot format %q", c.Format)
		return res.Finish(env.Now())
	}
	ids, err := env.Processed()
	if err != nil {
		res.Err = err
		return res.Finish(env.Now())
	}
	records, err := Collect(env.Layout, ids, c.AcceptedOnly)
	if err != nil {
		res.Err = err
		return res.Finish(env.Now())
	}
	logger.Info("plotting", "records", len(records), "variables", c.Variables, "x_axis", c.XAxis)

	for _, v := range c.Variables {
		if err := ctx.Err(); err != nil {
			res.Err = err
			break
		}
		pts, err := Series(records, v, c.XAxis)
		if err != nil {
			res.Fail(v, err)
			continue
		}
		if len(pts) == 0 {
			res.Skip(v, "no values")
			continue
		}
		path := filepath.Join(env.Config.PlotDir(), v+"."+c.Format)
		if err := Render(path, v, pts, c); err != nil {
			logger.Error("plot failed", "variable", v, "error", err)
			res.Fail(v, err)
			continue
		}
		logger.Info("plot written", "variable", v, "points", len(pts), "path", path)
		res.OK(v, path)
	}
	return res.Finish(env.Now())
}

type errorPoints struct {
	plotter.XYs
	plotter.YErrors
}

// Render draws pts with error bars and a mean line and saves the figure to
// path. The file extension selects the image format.
func Render(path, variable string, pts []Point, c config.Plot) error {
	if len(pts) == 0 {
		return fmt.Errorf("plot %s: no points", variable)
	}
	xys := make(plotter.XYs, len(pts))
	yerrs := make(plotter.YErrors, len(pts))
	ys := make([]float64, len(pts))
	xs := make([]float64, len(pts))
	for i, p := range pts {
		xys[i] = plotter.XY{X: p.X, Y: p.Y}
		yerrs[i].Low, yerrs[i].High = p.Low, p.High
		xs[i], ys[i] = p.X, p.Y
	}

	p := gplot.New()
	p.Title.Text = display.Param(variable)
	p.Y.Label.Text = display.ParamWithUnit(variable, "")
	xLabel := numberLabel
	switch c.XAxis {
	case XMJD:
		p.X.Label.Text = "Date (MJD start)"
		xLabel = dateLabel
	default:
		p.X.Label.Text = "Observation"
	}
	p.X.Tick.Marker = ticker(c.MajorTick, c.MinorTick, xLabel)
	p.Y.Tick.Marker = ticker(c.YMajorTick, c.YMinorTick, numberLabel)
	p.Add(plotter.NewGrid())

	data := errorPoints{XYs: xys, YErrors: yerrs}
	scatter, err := plotter.NewScatter(data)
	if err != nil {
		return fmt.Errorf("plot %s: %w", variable, err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}

	bars, err := plotter.NewYErrorBars(data)
	if err != nil {
		return fmt.Errorf("plot %s: %w", variable, err)
	}
	bars.LineStyle.Color = scatter.GlyphStyle.Color

	mean := stat.Mean(ys, nil)
	line, err := plotter.NewLine(plotter.XYs{{X: floats.Min(xs), Y: mean}, {X: floats.Max(xs), Y: mean}})
	if err != nil {
		return fmt.Errorf("plot %s: %w", variable, err)
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
	line.LineStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}

	p.Add(bars, scatter, line)
	p.Legend.Add(variable, scatter)
	p.Legend.Add(fmt.Sprintf("mean %.4g", mean), line)
	p.Legend.Top = true

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	w, h := c.WidthIn, c.HeightIn
	if w <= 0 {
		w = 8
	}
	if h <= 0 {
		h = 4
	}
	if err := p.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
