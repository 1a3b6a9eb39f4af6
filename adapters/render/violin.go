package render

import (
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	appErrors "hmetrics/internal/errors"
)

const kdeGridSize = 100

// ViolinOptions configures Violin
type ViolinOptions struct {
	Width     float64 // fraction of a category slot
	LineWidth vg.Length
}

// DefaultViolinOptions draws violins filling most of the slot
var DefaultViolinOptions = ViolinOptions{Width: 0.8, LineWidth: vg.Points(1.5)}

// violin is a plot.Plotter drawing one mirrored density estimate
type violin struct {
	x         float64
	ys        []float64 // evaluation grid, ascending
	halfWidth []float64 // in x data units
	quartiles [3]float64
	fill      color.Color
	line      draw.LineStyle
}

// Violin draws a Gaussian kernel density estimate per group, clipped to the
// data range, with dashed quartile lines inside.
func Violin(ax *Axes, groups []Group, opts ViolinOptions) error {
	if opts.Width <= 0 {
		opts.Width = DefaultViolinOptions.Width
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultViolinOptions.LineWidth
	}
	for i, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		v, err := newViolin(float64(i), g.Values, opts.Width/2)
		if err != nil {
			return appErrors.Wrapf(err, "violin for %s", g.Label)
		}
		v.fill = Palette(i)
		v.line = draw.LineStyle{Color: color.Gray{Y: 0x3c}, Width: opts.LineWidth}
		ax.Plot.Add(v)
		ax.extend(g.Values)
	}
	return nil
}

func newViolin(x float64, values []float64, maxHalf float64) (*violin, error) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	v := &violin{x: x}
	for i, q := range []float64{0.25, 0.5, 0.75} {
		v.quartiles[i] = stat.Quantile(q, stat.LinInterp, sorted, nil)
	}

	bw := scottBandwidth(sorted)
	if bw == 0 || lo == hi {
		// Degenerate sample: a flat line at the single value.
		v.ys = []float64{lo, hi}
		v.halfWidth = []float64{maxHalf, maxHalf}
		return v, nil
	}

	v.ys = make([]float64, kdeGridSize)
	v.halfWidth = make([]float64, kdeGridSize)
	kernel := distuv.Normal{Mu: 0, Sigma: bw}
	peak := 0.0
	for k := range v.ys {
		y := lo + (hi-lo)*float64(k)/float64(kdeGridSize-1)
		d := 0.0
		for _, s := range sorted {
			d += kernel.Prob(y - s)
		}
		v.ys[k] = y
		v.halfWidth[k] = d
		peak = math.Max(peak, d)
	}
	if peak == 0 {
		return nil, appErrors.InternalError("density estimate vanished")
	}
	for k := range v.halfWidth {
		v.halfWidth[k] *= maxHalf / peak
	}
	return v, nil
}

// scottBandwidth is Scott's rule: sd * n^(-1/5)
func scottBandwidth(sorted []float64) float64 {
	if len(sorted) < 2 {
		return 0
	}
	sd := stat.StdDev(sorted, nil)
	return sd * math.Pow(float64(len(sorted)), -0.2)
}

func (v *violin) widthAt(y float64) float64 {
	if len(v.ys) == 0 {
		return 0
	}
	k := sort.SearchFloat64s(v.ys, y)
	switch {
	case k <= 0:
		return v.halfWidth[0]
	case k >= len(v.ys):
		return v.halfWidth[len(v.ys)-1]
	}
	y0, y1 := v.ys[k-1], v.ys[k]
	t := (y - y0) / (y1 - y0)
	return v.halfWidth[k-1]*(1-t) + v.halfWidth[k]*t
}

// Plot implements plot.Plotter
func (v *violin) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	outline := make([]vg.Point, 0, 2*len(v.ys)+1)
	for k, y := range v.ys {
		outline = append(outline, vg.Point{X: trX(v.x - v.halfWidth[k]), Y: trY(y)})
	}
	for k := len(v.ys) - 1; k >= 0; k-- {
		outline = append(outline, vg.Point{X: trX(v.x + v.halfWidth[k]), Y: trY(v.ys[k])})
	}
	c.FillPolygon(v.fill, c.ClipPolygonXY(outline))
	outline = append(outline, outline[0])
	c.StrokeLines(v.line, c.ClipLinesXY(outline)...)

	for i, q := range v.quartiles {
		sty := v.line
		if i != 1 {
			sty.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		w := v.widthAt(q)
		c.StrokeLine2(sty, trX(v.x-w), trY(q), trX(v.x+w), trY(q))
	}
}

// DataRange implements plot.DataRanger
func (v *violin) DataRange() (xmin, xmax, ymin, ymax float64) {
	w := 0.0
	for _, h := range v.halfWidth {
		w = math.Max(w, h)
	}
	return v.x - w, v.x + w, v.ys[0], v.ys[len(v.ys)-1]
}
