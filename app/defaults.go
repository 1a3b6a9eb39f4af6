package app

import (
	"hmetrics/adapters/render"
	"hmetrics/adapters/stats/engine"
	"hmetrics/internal/config"
)

// ServiceConfigFrom builds the service-wide settings from loaded
// configuration
func ServiceConfigFrom(cfg *config.Config) (PlotServiceConfig, error) {
	out := DefaultPlotServiceConfig()
	out.Theme.Style = cfg.Render.Style
	out.Theme.Context = cfg.Render.Context
	if err := out.Theme.Validate(); err != nil {
		return out, err
	}
	schema, err := engine.ParseSchema(cfg.Render.Schema)
	if err != nil {
		return out, err
	}
	out.Schema = schema
	out.Overlay.Seed = cfg.Render.Seed
	return out, nil
}

// ApplyDefaults overlays the non-zero style file defaults onto req
func ApplyDefaults(req *PlotRequest, d config.PlotDefaults) error {
	if d.Kind != "" {
		req.Kind = d.Kind
	}
	if d.ShowPoints != "" {
		req.ShowPoints = d.ShowPoints
	}
	if d.PAdjust != "" {
		req.PAdjust = d.PAdjust
	}
	if d.Alpha != 0 {
		req.Alpha = d.Alpha
	}
	if d.TextFormat != "" {
		req.TextFormat = d.TextFormat
	}
	if d.Error != "" {
		spec, err := render.ParseErrorSpec(d.Error)
		if err != nil {
			return err
		}
		req.PointError = spec
	}
	if d.FigSize[0] > 0 && d.FigSize[1] > 0 {
		req.FigSize = d.FigSize
	}
	return nil
}
