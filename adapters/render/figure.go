package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgeps"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"

	"hmetrics/domain/core"
	appErrors "hmetrics/internal/errors"
	"hmetrics/internal/fsutil"
)

// DefaultDPI is the raster resolution used when none is configured
const DefaultDPI = 300

// Figure is a drawing surface holding one or more axes laid out in a row
type Figure struct {
	ID     core.ID
	Width  vg.Length
	Height vg.Length
	axes   []*Axes
}

// Axes is a single plotting area. Group positions on the x axis are the
// indices of the group labels passed to SetCategories.
type Axes struct {
	Plot   *plot.Plot
	figure *Figure

	categories []string
	yMin, yMax float64
}

// NewFigure creates a figure of the given size with one empty axes
func NewFigure(width, height vg.Length) (*Figure, *Axes) {
	fig := &Figure{ID: core.NewID(), Width: width, Height: height}
	return fig, fig.AddAxes()
}

// NewFigureInches is NewFigure with sizes in inches
func NewFigureInches(width, height float64) (*Figure, *Axes) {
	return NewFigure(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch)
}

// AddAxes appends a new axes to the right of the existing ones
func (f *Figure) AddAxes() *Axes {
	ax := &Axes{
		Plot:   newPlot(),
		figure: f,
		yMin:   math.Inf(1),
		yMax:   math.Inf(-1),
	}
	f.axes = append(f.axes, ax)
	return ax
}

// Axes returns the figure's axes in layout order
func (f *Figure) Axes() []*Axes {
	return append([]*Axes(nil), f.axes...)
}

// Figure returns the figure owning the axes
func (a *Axes) Figure() *Figure {
	return a.figure
}

// Categories returns the group labels placed on the x axis
func (a *Axes) Categories() []string {
	return append([]string(nil), a.categories...)
}

// SetCategories places labels at x = 0..n-1
func (a *Axes) SetCategories(labels []string) {
	a.categories = append([]string(nil), labels...)
	a.Plot.NominalX(labels...)
	a.Plot.X.Min = -0.5
	a.Plot.X.Max = float64(len(labels)) - 0.5
}

// Position returns the x coordinate of a category
func (a *Axes) Position(label string) (float64, bool) {
	for i, c := range a.categories {
		if c == label {
			return float64(i), true
		}
	}
	return 0, false
}

// DataRange returns the y extent of everything drawn so far
func (a *Axes) DataRange() (float64, float64) {
	return a.yMin, a.yMax
}

func (a *Axes) extend(values []float64) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		a.yMin = math.Min(a.yMin, v)
		a.yMax = math.Max(a.yMax, v)
	}
}

// OutputFormat returns the image format named by path's extension, or
// CONFIG_INVALID when the extension is missing or unsupported.
func OutputFormat(path string) (string, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return "", appErrors.ConfigInvalid(fmt.Sprintf("output %q has no file extension", path))
	}
	if _, ok := imageFormats[format]; !ok {
		return "", appErrors.ConfigInvalid(fmt.Sprintf("unsupported image format %q", format))
	}
	return format, nil
}

var imageFormats = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "tif": {}, "tiff": {}, "svg": {}, "pdf": {}, "eps": {},
}

// Save writes the figure to path; the format follows the file extension.
// The image is rendered in memory first, so a failed save leaves no file.
func (f *Figure) Save(path string, dpi int) error {
	format, err := OutputFormat(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf, format, dpi); err != nil {
		return err
	}
	if err := fsutil.AtomicWrite(path, buf.Bytes(), 0o644); err != nil {
		return appErrors.Wrapf(err, "save %s", path)
	}
	return nil
}

// WriteTo renders the figure in format (png, jpg, tif, svg, pdf, eps)
func (f *Figure) WriteTo(w io.Writer, format string, dpi int) (int64, error) {
	if len(f.axes) == 0 {
		return 0, appErrors.InternalError("figure has no axes")
	}
	c, err := newCanvas(format, f.Width, f.Height, dpi)
	if err != nil {
		return 0, err
	}
	dc := draw.New(c)

	if len(f.axes) == 1 {
		f.axes[0].Plot.Draw(dc)
	} else {
		row := make([]*plot.Plot, len(f.axes))
		for i, ax := range f.axes {
			row[i] = ax.Plot
		}
		tiles := draw.Tiles{Rows: 1, Cols: len(row), PadX: vg.Millimeter * 4}
		canvases := plot.Align([][]*plot.Plot{row}, tiles, dc)
		for i, p := range row {
			p.Draw(canvases[0][i])
		}
	}
	return c.WriteTo(w)
}

func newCanvas(format string, w, h vg.Length, dpi int) (vg.CanvasWriterTo, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	raster := func() *vgimg.Canvas {
		return vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
	}
	switch strings.ToLower(format) {
	case "png":
		return vgimg.PngCanvas{Canvas: raster()}, nil
	case "jpg", "jpeg":
		return vgimg.JpegCanvas{Canvas: raster()}, nil
	case "tif", "tiff":
		return vgimg.TiffCanvas{Canvas: raster()}, nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "pdf":
		return vgpdf.New(w, h), nil
	case "eps":
		return vgeps.New(w, h), nil
	default:
		return nil, appErrors.ConfigInvalid(fmt.Sprintf("unsupported image format %q", format))
	}
}
