package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// Annotation placement
const (
	LocInside  = "inside"
	LocOutside = "outside"
)

// Annotation label formats
const (
	FormatStar   = "star"
	FormatSimple = "simple"
)

// AnnotateOptions configures the significance brackets
type AnnotateOptions struct {
	Loc        string
	TextFormat string
	Thresholds []stats.Threshold
	LineHeight float64 // bracket leg height, fraction of the y range
	LineOffset float64 // gap between stacked brackets, fraction of the y range
	FontSize   vg.Length
	LineWidth  vg.Length
}

// DefaultAnnotateOptions draws star labels inside the axes
var DefaultAnnotateOptions = AnnotateOptions{
	Loc:        LocInside,
	TextFormat: FormatStar,
	Thresholds: stats.DefaultStarThresholds,
	LineHeight: 0.02,
	LineOffset: 0.02,
	FontSize:   vg.Points(10),
	LineWidth:  vg.Points(1.5),
}

// Validate checks the placement and label format
func (o AnnotateOptions) Validate() error {
	switch o.Loc {
	case LocInside, LocOutside:
	default:
		return appErrors.ConfigInvalid(fmt.Sprintf("annotation loc must be 'inside' or 'outside', got %q", o.Loc))
	}
	switch o.TextFormat {
	case FormatStar, FormatSimple:
	default:
		return appErrors.ConfigInvalid(fmt.Sprintf("annotation format must be 'star' or 'simple', got %q", o.TextFormat))
	}
	return nil
}

// BracketAnnotator draws a labelled bracket between each annotated pair
type BracketAnnotator struct {
	opts  AnnotateOptions
	cache *font.Cache
}

// NewBracketAnnotator creates an annotator using the default font cache
func NewBracketAnnotator(opts AnnotateOptions) *BracketAnnotator {
	return NewBracketAnnotatorWithCache(opts, font.DefaultCache)
}

// NewBracketAnnotatorWithCache creates an annotator resolving its label
// font from cache
func NewBracketAnnotatorWithCache(opts AnnotateOptions, cache *font.Cache) *BracketAnnotator {
	if opts.Loc == "" {
		opts.Loc = DefaultAnnotateOptions.Loc
	}
	opts.Loc = strings.ToLower(opts.Loc)
	if opts.TextFormat == "" {
		opts.TextFormat = DefaultAnnotateOptions.TextFormat
	}
	opts.TextFormat = strings.ToLower(opts.TextFormat)
	if len(opts.Thresholds) == 0 {
		opts.Thresholds = DefaultAnnotateOptions.Thresholds
	}
	if opts.LineHeight <= 0 {
		opts.LineHeight = DefaultAnnotateOptions.LineHeight
	}
	if opts.LineOffset <= 0 {
		opts.LineOffset = DefaultAnnotateOptions.LineOffset
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultAnnotateOptions.FontSize
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = DefaultAnnotateOptions.LineWidth
	}
	return &BracketAnnotator{opts: opts, cache: cache}
}

// Options returns the normalized options
func (a *BracketAnnotator) Options() AnnotateOptions {
	return a.opts
}

func (a *BracketAnnotator) labelFont() font.Font {
	return font.Font{Typeface: plot.DefaultFont.Typeface, Variant: plot.DefaultFont.Variant}
}

// Available reports whether labels can be typeset: the label font must be
// registered in the font cache.
func (a *BracketAnnotator) Available() error {
	if err := a.opts.Validate(); err != nil {
		return err
	}
	fnt := a.labelFont()
	if a.cache == nil || !a.cache.Has(fnt) {
		return appErrors.OptionalDependencyMissing("annotation font",
			fmt.Errorf("typeface %s %s is not registered", fnt.Typeface, fnt.Variant))
	}
	return nil
}

// Label formats the marker text for p; an empty format uses the
// annotator's own
func (a *BracketAnnotator) Label(p float64, format string) string {
	if format == "" {
		format = a.opts.TextFormat
	}
	return FormatLabel(p, format, a.opts.Thresholds)
}

// FormatLabel renders p as a star rating or as "p = 0.012"
func FormatLabel(p float64, format string, thresholds []stats.Threshold) string {
	if strings.ToLower(format) == FormatSimple {
		if math.IsNaN(p) {
			return "p = n/a"
		}
		if p < 1e-4 {
			return "p < 1e-4"
		}
		return fmt.Sprintf("p = %.3g", p)
	}
	return stats.StarLabel(p, thresholds)
}

// bracket is one placed annotation in data units (inside) or as a stack
// level (outside)
type bracket struct {
	x1, x2 float64
	level  int
	label  string
}

// Annotate adds brackets for anns to ax. Both groups of every pair must be
// categories of the axes.
func (a *BracketAnnotator) Annotate(ax *Axes, anns []stats.Annotation) error {
	if len(anns) == 0 {
		return nil
	}
	if err := a.Available(); err != nil {
		return err
	}

	brackets := make([]bracket, 0, len(anns))
	for _, ann := range anns {
		x1, ok1 := ax.Position(ann.Pair.A)
		x2, ok2 := ax.Position(ann.Pair.B)
		if !ok1 || !ok2 {
			return appErrors.InvalidInput(fmt.Sprintf("pair %s is not on the axes", ann.Pair))
		}
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		label := ann.Label
		if label == "" {
			label = a.Label(ann.PValue, "")
		}
		brackets = append(brackets, bracket{x1: x1, x2: x2, label: label})
	}
	levels := stackLevels(brackets)

	yMin, yMax := ax.DataRange()
	if math.IsInf(yMin, 0) || math.IsInf(yMax, 0) {
		yMin, yMax = 0, 1
	}
	span := yMax - yMin
	if span == 0 {
		span = math.Max(math.Abs(yMax), 1)
	}

	layer := &annotationLayer{
		brackets: brackets,
		outside:  a.opts.Loc == LocOutside,
		base:     yMax,
		line:     draw.LineStyle{Color: color.Black, Width: a.opts.LineWidth},
		style: text.Style{
			Color:   color.Black,
			Font:    font.From(a.labelFont(), a.opts.FontSize),
			XAlign:  text.XCenter,
			YAlign:  text.YBottom,
			Handler: ax.Plot.TextHandler,
		},
	}

	textFrac := float64(a.opts.FontSize*1.3) / float64(ax.plotHeight())
	layer.legData = span * a.opts.LineHeight
	layer.stepData = span * (a.opts.LineHeight + a.opts.LineOffset + textFrac)
	layer.offsetData = span * a.opts.LineOffset

	layer.legPts = ax.plotHeight() * vg.Length(a.opts.LineHeight)
	layer.stepPts = ax.plotHeight()*vg.Length(a.opts.LineHeight+a.opts.LineOffset) + a.opts.FontSize*1.3
	layer.offsetPts = ax.plotHeight() * vg.Length(a.opts.LineOffset)

	if layer.outside {
		ax.Plot.Title.Padding += layer.offsetPts + vg.Length(levels)*layer.stepPts
	}
	ax.Plot.Add(layer)
	return nil
}

// stackLevels assigns each bracket the lowest level not used by a
// previously placed bracket it overlaps. Narrow brackets go first so they
// sit closest to the data. Returns the number of levels used.
func stackLevels(brackets []bracket) int {
	order := make([]int, len(brackets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		bi, bj := brackets[order[i]], brackets[order[j]]
		if wi, wj := bi.x2-bi.x1, bj.x2-bj.x1; wi != wj {
			return wi < wj
		}
		return bi.x1 < bj.x1
	})

	levels := 0
	for n, idx := range order {
		used := make(map[int]bool)
		for _, prev := range order[:n] {
			p := brackets[prev]
			if p.x1 <= brackets[idx].x2 && brackets[idx].x1 <= p.x2 {
				used[p.level] = true
			}
		}
		level := 0
		for used[level] {
			level++
		}
		brackets[idx].level = level
		if level+1 > levels {
			levels = level + 1
		}
	}
	return levels
}

// annotationLayer is the plot.Plotter holding every bracket of one axes
type annotationLayer struct {
	brackets []bracket
	outside  bool
	base     float64 // data maximum

	legData, stepData, offsetData float64
	legPts, stepPts, offsetPts    vg.Length

	line  draw.LineStyle
	style text.Style
}

// Plot implements plot.Plotter
func (l *annotationLayer) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, b := range l.brackets {
		var y0, y1 vg.Length
		if l.outside {
			y0 = c.Max.Y + l.offsetPts + vg.Length(b.level)*l.stepPts
			y1 = y0 + l.legPts
		} else {
			lo := l.base + l.offsetData + float64(b.level)*l.stepData
			y0, y1 = trY(lo), trY(lo+l.legData)
		}
		x1, x2 := trX(b.x1), trX(b.x2)
		c.StrokeLines(l.line, []vg.Point{{X: x1, Y: y0}, {X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y0}})
		c.FillText(l.style, vg.Point{X: (x1 + x2) / 2, Y: y1 + vg.Points(1)}, b.label)
	}
}

// DataRange implements plot.DataRanger. Inside placement reserves room
// for the top bracket and its label above the data.
func (l *annotationLayer) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax = math.Inf(1), math.Inf(-1)
	top := l.base
	for _, b := range l.brackets {
		xmin, xmax = math.Min(xmin, b.x1), math.Max(xmax, b.x2)
		if !l.outside {
			top = math.Max(top, l.base+l.offsetData+float64(b.level+1)*l.stepData)
		}
	}
	return xmin, xmax, l.base, top
}
