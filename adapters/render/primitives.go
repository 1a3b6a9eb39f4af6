package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	appErrors "hmetrics/internal/errors"
)

// Group is one category of values drawn at its index on the x axis
type Group struct {
	Label  string
	Values []float64
}

// Kind is the base plot primitive
type Kind string

const (
	KindBox    Kind = "box"
	KindViolin Kind = "violin"
	KindPoint  Kind = "point"
)

// ParseKind validates a plot kind, case-insensitively
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBox, KindViolin, KindPoint:
		return k, nil
	default:
		return "", appErrors.ConfigInvalid(fmt.Sprintf("plot kind must be 'box', 'point', or 'violin', got %q", s))
	}
}

// Overlay selects how raw observations are drawn over box and violin plots
type Overlay string

const (
	OverlaySwarm Overlay = "swarm"
	OverlayStrip Overlay = "strip"
	OverlayNone  Overlay = "none"
)

// ParseOverlay validates an overlay name; "" means none
func ParseOverlay(s string) (Overlay, error) {
	switch o := Overlay(strings.ToLower(strings.TrimSpace(s))); o {
	case OverlaySwarm, OverlayStrip, OverlayNone:
		return o, nil
	case "":
		return OverlayNone, nil
	default:
		return "", appErrors.ConfigInvalid(fmt.Sprintf("show_points must be 'swarm', 'strip', or 'none', got %q", s))
	}
}

// ErrorSpec selects the error bars of a point plot: ci and pi take a
// percentage level, se and sd take a multiplier.
type ErrorSpec struct {
	Kind  string
	Level float64
}

// DefaultErrorSpec is a 95% confidence interval
var DefaultErrorSpec = ErrorSpec{Kind: "ci", Level: 95}

// ParseErrorSpec parses "ci:95", "se:1", "sd", "pi:50"
func ParseErrorSpec(s string) (ErrorSpec, error) {
	kind, level, hasLevel := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	spec := ErrorSpec{Kind: kind}
	switch kind {
	case "ci", "pi":
		spec.Level = 95
	case "se", "sd":
		spec.Level = 1
	default:
		return ErrorSpec{}, appErrors.ConfigInvalid(fmt.Sprintf("unknown error bar kind %q", kind))
	}
	if hasLevel {
		v, err := strconv.ParseFloat(level, 64)
		if err != nil {
			return ErrorSpec{}, appErrors.ConfigInvalid(fmt.Sprintf("invalid error bar level %q", level))
		}
		spec.Level = v
	}
	return spec, spec.Validate()
}

// Validate checks the kind and level
func (e ErrorSpec) Validate() error {
	switch e.Kind {
	case "ci", "pi":
		if e.Level <= 0 || e.Level >= 100 {
			return appErrors.ConfigInvalid(fmt.Sprintf("%s level must be in (0,100), got %v", e.Kind, e.Level))
		}
	case "se", "sd":
		if e.Level <= 0 {
			return appErrors.ConfigInvalid(fmt.Sprintf("%s scale must be positive, got %v", e.Kind, e.Level))
		}
	default:
		return appErrors.ConfigInvalid(fmt.Sprintf("unknown error bar kind %q", e.Kind))
	}
	return nil
}

func (e ErrorSpec) String() string {
	return e.Kind + ":" + strconv.FormatFloat(e.Level, 'g', -1, 64)
}

// Interval returns the lower and upper end of the error bar around the mean
func (e ErrorSpec) Interval(values []float64) (float64, float64, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, "mean")
	}
	n := float64(len(values))
	switch e.Kind {
	case "pi":
		tail := (100 - e.Level) / 2
		lo, err := stats.PercentileNearestRank(values, math.Max(tail, 1e-9))
		if err != nil {
			return 0, 0, appErrors.Wrap(err, "lower percentile")
		}
		hi, err := stats.PercentileNearestRank(values, 100-tail)
		if err != nil {
			return 0, 0, appErrors.Wrap(err, "upper percentile")
		}
		return lo, hi, nil
	}

	if len(values) < 2 {
		return mean, mean, nil
	}
	sd, err := stats.StandardDeviationSample(values)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, "standard deviation")
	}
	var half float64
	switch e.Kind {
	case "sd":
		half = e.Level * sd
	case "se":
		half = e.Level * sd / math.Sqrt(n)
	case "ci":
		q := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(1 - (1-e.Level/100)/2)
		half = q * sd / math.Sqrt(n)
	}
	return mean - half, mean + half, nil
}

// palette is the default categorical color cycle
var palette = []color.Color{
	color.NRGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff},
	color.NRGBA{R: 0xdd, G: 0x84, B: 0x52, A: 0xff},
	color.NRGBA{R: 0x55, G: 0xa8, B: 0x68, A: 0xff},
	color.NRGBA{R: 0xc4, G: 0x4e, B: 0x52, A: 0xff},
	color.NRGBA{R: 0x81, G: 0x72, B: 0xb3, A: 0xff},
	color.NRGBA{R: 0x93, G: 0x78, B: 0x60, A: 0xff},
	color.NRGBA{R: 0xda, G: 0x8b, B: 0xc3, A: 0xff},
	color.NRGBA{R: 0x8c, G: 0x8c, B: 0x8c, A: 0xff},
	color.NRGBA{R: 0xcc, G: 0xb9, B: 0x74, A: 0xff},
	color.NRGBA{R: 0x64, G: 0xb5, B: 0xcd, A: 0xff},
}

// Palette returns the i-th color of the cycle
func Palette(i int) color.Color {
	return palette[i%len(palette)]
}

func withAlpha(c color.Color, alpha float64) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(alpha * 255)}
}

// categoryWidth approximates the on-canvas width of one category slot
func (a *Axes) categoryWidth(n int) vg.Length {
	if n < 1 {
		n = 1
	}
	cols := len(a.figure.axes)
	if cols < 1 {
		cols = 1
	}
	return a.figure.Width / vg.Length(cols) * 0.8 / vg.Length(n)
}

// plotHeight approximates the on-canvas height of the data area
func (a *Axes) plotHeight() vg.Length {
	return a.figure.Height * 0.75
}

// BoxOptions configures Box
type BoxOptions struct {
	Width      float64 // fraction of a category slot
	ShowFliers bool
	LineWidth  vg.Length
}

// DefaultBoxOptions mirrors a half-width box with heavy outlines
var DefaultBoxOptions = BoxOptions{Width: 0.5, ShowFliers: true, LineWidth: vg.Points(2)}

// Box draws one box-and-whisker per group
func Box(ax *Axes, groups []Group, opts BoxOptions) error {
	if opts.Width <= 0 {
		opts.Width = DefaultBoxOptions.Width
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultBoxOptions.LineWidth
	}
	width := ax.categoryWidth(len(groups)) * vg.Length(opts.Width)
	for i, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(g.Values))
		if err != nil {
			return appErrors.Wrapf(err, "box for %s", g.Label)
		}
		b.FillColor = withAlpha(Palette(i), 0.9)
		b.BoxStyle.Width = opts.LineWidth
		b.WhiskerStyle.Width = opts.LineWidth
		b.MedianStyle.Width = opts.LineWidth * 1.1
		b.MedianStyle.Color = color.Black
		b.CapWidth = width / 2
		if !opts.ShowFliers {
			b.Outside = nil
		}
		ax.Plot.Add(b)
		ax.extend(g.Values)
	}
	return nil
}

// PointOptions configures Point
type PointOptions struct {
	Error      ErrorSpec
	MarkerSize vg.Length // diameter
	LineWidth  vg.Length
	CapSize    float64 // fraction of a category slot
}

// DefaultPointOptions are the point-plot defaults
var DefaultPointOptions = PointOptions{
	Error:      DefaultErrorSpec,
	MarkerSize: vg.Points(6),
	LineWidth:  vg.Points(2.2),
	CapSize:    0.18,
}

// meanErrors is the XYer/YErrorer fed to the point plotters
type meanErrors struct {
	xys       plotter.XYs
	low, high []float64
}

func (m meanErrors) Len() int { return len(m.xys) }

func (m meanErrors) XY(i int) (float64, float64) { return m.xys[i].X, m.xys[i].Y }

func (m meanErrors) YError(i int) (float64, float64) { return m.low[i], m.high[i] }

// Point draws the group means joined by a line with error bars
func Point(ax *Axes, groups []Group, opts PointOptions) error {
	if opts.Error.Kind == "" {
		opts.Error = DefaultPointOptions.Error
	}
	if err := opts.Error.Validate(); err != nil {
		return err
	}
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = DefaultPointOptions.MarkerSize
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultPointOptions.LineWidth
	}
	if opts.CapSize <= 0 {
		opts.CapSize = DefaultPointOptions.CapSize
	}

	var data meanErrors
	for i, g := range groups {
		if len(g.Values) == 0 {
			continue
		}
		mean, err := stats.Mean(g.Values)
		if err != nil {
			return appErrors.Wrapf(err, "mean of %s", g.Label)
		}
		lo, hi, err := opts.Error.Interval(g.Values)
		if err != nil {
			return appErrors.Wrapf(err, "error bar of %s", g.Label)
		}
		data.xys = append(data.xys, plotter.XY{X: float64(i), Y: mean})
		data.low = append(data.low, mean-lo)
		data.high = append(data.high, hi-mean)
		ax.extend([]float64{lo, hi, mean})
	}
	if data.Len() == 0 {
		return nil
	}

	line, err := plotter.NewLine(data.xys)
	if err != nil {
		return appErrors.Wrap(err, "point line")
	}
	line.LineStyle.Width = opts.LineWidth
	line.LineStyle.Color = Palette(0)

	bars, err := plotter.NewYErrorBars(data)
	if err != nil {
		return appErrors.Wrap(err, "error bars")
	}
	bars.LineStyle.Width = vg.Points(2)
	bars.LineStyle.Color = Palette(0)
	bars.CapWidth = ax.categoryWidth(len(groups)) * vg.Length(opts.CapSize)

	markers, err := plotter.NewScatter(data.xys)
	if err != nil {
		return appErrors.Wrap(err, "point markers")
	}
	markers.GlyphStyle = draw.GlyphStyle{Color: Palette(0), Radius: opts.MarkerSize / 2, Shape: draw.CircleGlyph{}}

	ax.Plot.Add(line, bars, markers)
	return nil
}
