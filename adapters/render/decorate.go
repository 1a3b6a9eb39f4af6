package render

import (
	"math"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Labels holds the axis cosmetics
type Labels struct {
	Title  string
	YLabel string
}

// tickRotation tilts category labels so long names do not collide
const tickRotation = 15 * math.Pi / 180

// Decorate sets the title, clears the x label, sets the y label and tilts
// the category tick labels.
func Decorate(ax *Axes, l Labels) {
	p := ax.Plot
	if l.Title != "" {
		p.Title.Text = l.Title
		p.Title.TextStyle.Font.Size = vg.Points(12)
		p.Title.TextStyle.Font.Weight = xfont.WeightBold
		p.Title.Padding += vg.Points(12)
	}
	p.X.Label.Text = ""
	p.Y.Label.Text = l.YLabel
	p.Y.Label.TextStyle.Font.Size = vg.Points(10)

	p.X.Tick.Label.Rotation = tickRotation
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
}
