package render

import (
	"fmt"
	"image/color"
	"strings"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	appErrors "hmetrics/internal/errors"
)

// Theme is the global plotting style applied at the start of every call
type Theme struct {
	Style    string // whitegrid, white, ticks
	Context  string // paper, notebook, talk, poster
	Typeface font.Typeface
	Variant  font.Variant
}

// DefaultTheme matches a white background with horizontal grid lines and
// presentation-sized text.
var DefaultTheme = Theme{Style: "whitegrid", Context: "talk", Typeface: "Liberation", Variant: "Sans"}

var contextScale = map[string]float64{
	"paper":    0.8,
	"notebook": 1.0,
	"talk":     1.5,
	"poster":   2.0,
}

// Validate checks the style and context names
func (t Theme) Validate() error {
	switch t.Style {
	case "whitegrid", "white", "ticks":
	default:
		return appErrors.ConfigInvalid(fmt.Sprintf("unknown theme style %q", t.Style))
	}
	if _, ok := contextScale[t.Context]; !ok {
		return appErrors.ConfigInvalid(fmt.Sprintf("unknown theme context %q", t.Context))
	}
	return nil
}

// Scale is the font and line width multiplier of the theme's context
func (t Theme) Scale() float64 {
	if s, ok := contextScale[t.Context]; ok {
		return s
	}
	return 1
}

var (
	themeMu sync.Mutex
	current = DefaultTheme
)

// ApplyTheme installs t as the package default. Applying the same theme
// again has no further effect.
func ApplyTheme(t Theme) error {
	t.Style = strings.ToLower(t.Style)
	t.Context = strings.ToLower(t.Context)
	if t.Typeface == "" {
		t.Typeface = DefaultTheme.Typeface
	}
	if t.Variant == "" {
		t.Variant = DefaultTheme.Variant
	}
	if err := t.Validate(); err != nil {
		return err
	}

	themeMu.Lock()
	defer themeMu.Unlock()
	current = t
	plot.DefaultFont = font.Font{Typeface: t.Typeface, Variant: t.Variant}
	return nil
}

// CurrentTheme returns the installed theme
func CurrentTheme() Theme {
	themeMu.Lock()
	defer themeMu.Unlock()
	return current
}

// newPlot creates a plot styled with the current theme
func newPlot() *plot.Plot {
	themeMu.Lock()
	t := current
	p := plot.New()
	themeMu.Unlock()

	scale := vg.Length(t.Scale())
	p.BackgroundColor = color.White
	p.X.Tick.Label.Font.Size = 10 * scale * 0.75
	p.Y.Tick.Label.Font.Size = 10 * scale * 0.75
	p.X.Label.TextStyle.Font.Size = 10 * scale * 0.75
	p.Y.Label.TextStyle.Font.Size = 10 * scale * 0.75
	p.X.LineStyle.Width = vg.Points(1.25)
	p.Y.LineStyle.Width = vg.Points(1.25)

	if t.Style == "whitegrid" {
		grid := plotter.NewGrid()
		grid.Vertical.Color = nil
		grid.Horizontal.Color = color.Gray{Y: 0xdd}
		grid.Horizontal.Width = vg.Points(0.8)
		p.Add(grid)
	}
	if t.Style == "ticks" {
		p.Y.Tick.Length = vg.Points(5)
	}
	return p
}
