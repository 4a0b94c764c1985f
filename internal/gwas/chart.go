package gwas

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ChartOptions sizes the rendered chart.
type ChartOptions struct {
	Width  vg.Length
	Height vg.Length
	// Format is any gonum/plot output format: png, svg, pdf...
	Format string
}

// DefaultChartOptions is a 8x4in PNG.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 8 * vg.Inch, Height: 4 * vg.Inch, Format: "png"}
}

// RenderChart draws the trend as a line chart and writes it to w.
func RenderChart(w io.Writer, t *Trend, opt ChartOptions) error {
	if t == nil || len(t.Points) == 0 {
		return ErrEmptyTrend
	}
	if opt.Width <= 0 || opt.Height <= 0 {
		def := DefaultChartOptions()
		opt.Width, opt.Height = def.Width, def.Height
	}
	if opt.Format == "" {
		opt.Format = "png"
	}
	p := plot.New()
	p.Title.Text = t.Title()
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Year"
	p.Y.Label.Text = t.Header()[1]
	p.X.Tick.Marker = yearTicks{}

	pts := make(plotter.XYs, len(t.Points))
	for i, tp := range t.Points {
		pts[i].X = tp.Year
		pts[i].Y = tp.Mean
	}
	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("build trend line: %w", err)
	}
	line.Width = vg.Points(2)
	points.GlyphStyle.Radius = vg.Points(3)
	p.Add(plotter.NewGrid(), line, points)

	wt, err := p.WriterTo(opt.Width, opt.Height, opt.Format)
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}

// yearTicks labels whole years, thinning labels to at most ten.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	lo, hi := math.Ceil(min), math.Floor(max)
	if hi < lo {
		return plot.DefaultTicks{}.Ticks(min, max)
	}
	step := math.Max(1, math.Ceil((hi-lo+1)/10))
	var ticks []plot.Tick
	for y := lo; y <= hi; y++ {
		label := ""
		if math.Mod(y-lo, step) == 0 {
			label = strconv.FormatFloat(y, 'f', 0, 64)
		}
		ticks = append(ticks, plot.Tick{Value: y, Label: label})
	}
	return ticks
}
