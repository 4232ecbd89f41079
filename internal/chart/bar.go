// Package chart lays out the ranked bar chart of relative frequencies.
//
// It only computes geometry and labels; internal/web/templates turns a Chart
// into SVG.
package chart

import (
	"fmt"
	"math"

	"github.com/JonMunkholm/basketfreq/internal/frequency"
)

// Options controls the chart canvas and captions.
type Options struct {
	Width  float64
	Height float64

	Title  string
	XLabel string
	YLabel string

	BarColor string

	// Ticks is the number of y-axis intervals.
	Ticks int
}

// DefaultOptions matches the dashboard's 12x8 figure.
func DefaultOptions() Options {
	return Options{
		Width:    1200,
		Height:   800,
		Title:    "Top 20 Prodotti per Frequenza Relativa",
		XLabel:   "Prodotto",
		YLabel:   "Frequenza Relativa",
		BarColor: "skyblue",
		Ticks:    5,
	}
}

// Margins around the plot area, in canvas units. The bottom margin leaves
// room for product names rotated by 45 degrees.
const (
	marginLeft   = 90
	marginRight  = 30
	marginTop    = 60
	marginBottom = 220

	barFill    = 0.8
	labelGap   = 4
	labelAngle = -45
)

// Bar is one product column.
type Bar struct {
	Product string
	Value   float64

	X, Y, Width, Height float64

	// ValueLabel is drawn centred above the bar.
	ValueLabel               string
	ValueLabelX, ValueLabelY float64

	// Product label anchor under the axis, rotated by LabelAngle.
	LabelX, LabelY float64
}

// Tick is a y-axis gridline.
type Tick struct {
	Y     float64
	Label string
}

// Chart is a fully laid out bar chart.
type Chart struct {
	Options

	PlotLeft, PlotTop, PlotWidth, PlotHeight float64

	// AxisMax is the value at the top of the y axis.
	AxisMax float64

	LabelAngle float64

	Bars  []Bar
	Ticks []Tick
}

// PlotBottom is the y coordinate of the x axis.
func (c *Chart) PlotBottom() float64 { return c.PlotTop + c.PlotHeight }

// PlotRight is the x coordinate of the right edge of the plot area.
func (c *Chart) PlotRight() float64 { return c.PlotLeft + c.PlotWidth }

// Build lays out one bar per entry, in the given order.
// It returns frequency.ErrEmpty when there is nothing to draw.
func Build(entries []frequency.Entry, opts Options) (*Chart, error) {
	if len(entries) == 0 {
		return nil, frequency.ErrEmpty
	}
	opts = withDefaults(opts)

	c := &Chart{
		Options:    opts,
		PlotLeft:   marginLeft,
		PlotTop:    marginTop,
		PlotWidth:  opts.Width - marginLeft - marginRight,
		PlotHeight: opts.Height - marginTop - marginBottom,
		LabelAngle: labelAngle,
	}
	if c.PlotWidth <= 0 || c.PlotHeight <= 0 {
		return nil, fmt.Errorf("chart canvas %.0fx%.0f too small", opts.Width, opts.Height)
	}

	maxVal := 0.0
	for _, e := range entries {
		maxVal = math.Max(maxVal, e.Relative)
	}
	step := niceStep(maxVal, opts.Ticks)
	c.AxisMax = step * math.Ceil(maxVal/step)
	if c.AxisMax <= maxVal {
		// Keep headroom for the value labels.
		c.AxisMax += step
	}

	slot := c.PlotWidth / float64(len(entries))
	barWidth := slot * barFill
	for i, e := range entries {
		h := e.Relative / c.AxisMax * c.PlotHeight
		x := c.PlotLeft + float64(i)*slot + (slot-barWidth)/2
		y := c.PlotBottom() - h
		c.Bars = append(c.Bars, Bar{
			Product:     e.Product,
			Value:       e.Relative,
			X:           x,
			Y:           y,
			Width:       barWidth,
			Height:      h,
			ValueLabel:  ValueLabel(e.Relative),
			ValueLabelX: x + barWidth/2,
			ValueLabelY: y - labelGap,
			LabelX:      x + barWidth/2,
			LabelY:      c.PlotBottom() + 14,
		})
	}

	for v := 0.0; v <= c.AxisMax+step/2; v += step {
		c.Ticks = append(c.Ticks, Tick{
			Y:     c.PlotBottom() - v/c.AxisMax*c.PlotHeight,
			Label: tickLabel(v, step),
		})
	}
	return c, nil
}

// ValueLabel formats a bar's value with three decimals.
func ValueLabel(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func withDefaults(o Options) Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.XLabel == "" {
		o.XLabel = d.XLabel
	}
	if o.YLabel == "" {
		o.YLabel = d.YLabel
	}
	if o.BarColor == "" {
		o.BarColor = d.BarColor
	}
	if o.Ticks <= 0 {
		o.Ticks = d.Ticks
	}
	return o
}

// niceStep picks a 1, 2 or 5 times power-of-ten interval so that about
// ticks intervals cover max.
func niceStep(max float64, ticks int) float64 {
	if max <= 0 {
		return 1 / float64(ticks)
	}
	raw := max / float64(ticks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1:
		return mag
	case norm <= 2:
		return 2 * mag
	case norm <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// tickLabel prints v with as many decimals as the step needs.
func tickLabel(v, step float64) string {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step) - 1e-9))
	}
	return fmt.Sprintf("%.*f", decimals, v)
}
