package render

import (
	"image/color"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	appErrors "hmetrics/internal/errors"
)

// OverlayOptions configures the raw-point overlays
type OverlayOptions struct {
	MarkerSize vg.Length // diameter
	Jitter     float64   // strip: full jitter width as a fraction of a slot
	Seed       uint64
}

// DefaultOverlayOptions are small black markers
var DefaultOverlayOptions = OverlayOptions{MarkerSize: vg.Points(3.5), Jitter: 0.28, Seed: 1}

// maxSwarmSpread caps the swarm half-width; markers beyond it overlap
const maxSwarmSpread = 0.4

// Points overlays the raw observations of each group
func Points(ax *Axes, groups []Group, overlay Overlay, opts OverlayOptions) error {
	if overlay == OverlayNone || overlay == "" {
		return nil
	}
	if opts.MarkerSize <= 0 {
		opts.MarkerSize = DefaultOverlayOptions.MarkerSize
	}
	if opts.Jitter <= 0 {
		opts.Jitter = DefaultOverlayOptions.Jitter
	}

	var xys plotter.XYs
	switch overlay {
	case OverlayStrip:
		xys = stripPositions(groups, opts.Jitter, opts.Seed)
	case OverlaySwarm:
		lo, hi := dataExtent(groups)
		dx := float64(opts.MarkerSize / ax.categoryWidth(len(groups)))
		dy := 0.0
		if hi > lo {
			dy = (hi - lo) * 1.1 * float64(opts.MarkerSize/ax.plotHeight())
		}
		for i, g := range groups {
			xys = append(xys, swarmPositions(float64(i), g.Values, dx, dy)...)
		}
	default:
		return appErrors.ConfigInvalid("unknown overlay " + string(overlay))
	}
	if len(xys) == 0 {
		return nil
	}

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return appErrors.Wrap(err, "overlay points")
	}
	s.GlyphStyle = draw.GlyphStyle{
		Color:  color.NRGBA{A: 0xd9},
		Radius: opts.MarkerSize / 2,
		Shape:  draw.CircleGlyph{},
	}
	ax.Plot.Add(s)
	return nil
}

func dataExtent(groups []Group) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		for _, v := range g.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	return lo, hi
}

// stripPositions jitters each point uniformly around its category
func stripPositions(groups []Group, jitter float64, seed uint64) plotter.XYs {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var xys plotter.XYs
	for i, g := range groups {
		for _, v := range g.Values {
			off := (rng.Float64() - 0.5) * jitter
			xys = append(xys, plotter.XY{X: float64(i) + off, Y: v})
		}
	}
	return xys
}

// swarmPositions places points in ascending order, each at the smallest
// horizontal offset that does not overlap an already placed point. dx and
// dy are the marker diameter in x and y data units; dy == 0 means every
// point collides vertically.
func swarmPositions(center float64, values []float64, dx, dy float64) plotter.XYs {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	placed := make(plotter.XYs, 0, len(sorted))
	collides := func(x, y float64) bool {
		for _, p := range placed {
			nx := (x - p.X) / dx
			ny := 0.0
			if dy > 0 {
				ny = (y - p.Y) / dy
			}
			if nx*nx+ny*ny < 1-1e-9 {
				return true
			}
		}
		return false
	}

	for _, y := range sorted {
		x := center
		for step := 1; collides(x, y); step++ {
			off := float64((step+1)/2) * dx
			if step%2 == 0 {
				off = -off
			}
			if math.Abs(off) > maxSwarmSpread {
				x = center + math.Copysign(maxSwarmSpread, off)
				break
			}
			x = center + off
		}
		placed = append(placed, plotter.XY{X: x, Y: y})
	}
	return placed
}
