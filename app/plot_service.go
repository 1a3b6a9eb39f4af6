package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot/vg"

	"hmetrics/adapters/render"
	"hmetrics/adapters/stats/engine"
	"hmetrics/domain/core"
	"hmetrics/domain/dataset"
	"hmetrics/domain/stats"
	"hmetrics/internal"
	appErrors "hmetrics/internal/errors"
	"hmetrics/ports"
)

// PlotRequest holds the per-call options of ComputeAndPlot. Build it with
// DefaultPlotRequest and override fields; zero numeric fields fall back to
// the defaults but booleans are taken as given.
type PlotRequest struct {
	Group core.FieldName
	Value core.FieldName
	Order []string

	Nonparametric       bool
	PAdjust             string
	Alpha               float64
	ShowOnlySignificant bool

	Kind            string
	ShowPoints      string
	PointError      render.ErrorSpec
	PointMarkerSize float64 // points
	PointLineWidth  float64 // points
	FigSize         [2]float64
	Title           string
	YLabel          string
	TextFormat      string

	// Axes, when set, is drawn into instead of creating a new figure
	Axes *render.Axes
}

// DefaultPlotRequest returns the documented defaults for a group/value pair
func DefaultPlotRequest(group, value core.FieldName) PlotRequest {
	return PlotRequest{
		Group:           group,
		Value:           value,
		Nonparametric:   true,
		PAdjust:         string(stats.PAdjustHolm),
		Alpha:           0.05,
		Kind:            string(render.KindBox),
		ShowPoints:      string(render.OverlaySwarm),
		PointError:      render.DefaultErrorSpec,
		PointMarkerSize: 6,
		PointLineWidth:  2.2,
		FigSize:         [2]float64{6, 5},
		TextFormat:      render.FormatStar,
	}
}

// plotConfig is the validated, immutable form of a PlotRequest
type plotConfig struct {
	test    stats.TestType
	padjust stats.PAdjustMethod
	alpha   float64
	kind    render.Kind
	overlay render.Overlay
	point   render.PointOptions
	figW    float64
	figH    float64
	labels  render.Labels
	format  string
}

// Validate checks the request without touching any data
func (r PlotRequest) Validate() error {
	_, err := r.validate()
	return err
}

func (r PlotRequest) validate() (plotConfig, error) {
	var cfg plotConfig
	var err error

	if cfg.kind, err = render.ParseKind(r.Kind); err != nil {
		return cfg, err
	}
	if cfg.overlay, err = render.ParseOverlay(r.ShowPoints); err != nil {
		return cfg, err
	}
	if cfg.padjust, err = stats.ParsePAdjust(r.PAdjust); err != nil {
		return cfg, err
	}
	cfg.alpha = r.Alpha
	if cfg.alpha <= 0 || cfg.alpha >= 1 || math.IsNaN(cfg.alpha) {
		return cfg, appErrors.ConfigInvalid(fmt.Sprintf("alpha must be in (0,1), got %v", r.Alpha))
	}

	cfg.point = render.PointOptions{
		Error:      r.PointError,
		MarkerSize: vg.Points(orDefault(r.PointMarkerSize, 6)),
		LineWidth:  vg.Points(orDefault(r.PointLineWidth, 2.2)),
	}
	if cfg.point.Error.Kind == "" {
		cfg.point.Error = render.DefaultErrorSpec
	}
	if err := cfg.point.Error.Validate(); err != nil {
		return cfg, err
	}
	if r.PointMarkerSize < 0 || r.PointLineWidth < 0 {
		return cfg, appErrors.ConfigInvalid("point marker size and line width must be positive")
	}

	cfg.figW, cfg.figH = orDefault(r.FigSize[0], 6), orDefault(r.FigSize[1], 5)
	if cfg.figW < 0 || cfg.figH < 0 {
		return cfg, appErrors.ConfigInvalid(fmt.Sprintf("figure size must be positive, got %vx%v", r.FigSize[0], r.FigSize[1]))
	}

	switch cfg.format = strings.ToLower(r.TextFormat); cfg.format {
	case "", render.FormatStar, render.FormatSimple:
	default:
		return cfg, appErrors.ConfigInvalid(fmt.Sprintf("text format must be 'star' or 'simple', got %q", r.TextFormat))
	}

	cfg.test = stats.SelectTest(r.Nonparametric)
	cfg.labels = render.Labels{Title: r.Title, YLabel: r.YLabel}
	if cfg.labels.YLabel == "" {
		cfg.labels.YLabel = r.Value.String()
	}
	return cfg, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// PlotResult is everything one orchestration call produced
type PlotResult struct {
	Figure    *render.Figure
	Axes      *render.Axes
	Order     []string
	Pairs     []stats.PairResult
	Annotated []stats.Annotation
}

// PlotServiceConfig holds the service-wide settings
type PlotServiceConfig struct {
	Theme   render.Theme
	Schema  engine.Schema
	Overlay render.OverlayOptions
}

// DefaultPlotServiceConfig returns the default theme and v1 result schema
func DefaultPlotServiceConfig() PlotServiceConfig {
	return PlotServiceConfig{
		Theme:   render.DefaultTheme,
		Schema:  engine.SchemaV1,
		Overlay: render.DefaultOverlayOptions,
	}
}

// PlotService renders group comparison plots annotated with pairwise
// significance
type PlotService struct {
	pairwise  ports.PairwisePort
	annotator ports.AnnotatorPort
	config    PlotServiceConfig
	logger    *internal.Logger
}

// NewPlotService creates a plot service
func NewPlotService(pairwise ports.PairwisePort, annotator ports.AnnotatorPort, config PlotServiceConfig, logger *internal.Logger) *PlotService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &PlotService{
		pairwise:  pairwise,
		annotator: annotator,
		config:    config,
		logger:    logger,
	}
}

// NewDefaultPlotService wires the built-in stats engine and bracket
// annotator
func NewDefaultPlotService(config PlotServiceConfig, logger *internal.Logger) *PlotService {
	return NewPlotService(engine.NewStatsEngine(), render.NewBracketAnnotator(render.DefaultAnnotateOptions), config, logger)
}

// ComputeAndPlot draws the comparison plot, runs every pairwise test,
// corrects the p-values and annotates the surviving pairs. It returns the
// figure and the axes drawn into; a supplied axes is returned as is.
func (s *PlotService) ComputeAndPlot(ctx context.Context, obs *dataset.ObservationSet, req PlotRequest) (*render.Figure, *render.Axes, error) {
	res, err := s.Render(ctx, obs, req)
	if err != nil {
		return nil, nil, err
	}
	return res.Figure, res.Axes, nil
}

// Render is ComputeAndPlot returning the pairwise results as well
func (s *PlotService) Render(ctx context.Context, obs *dataset.ObservationSet, req PlotRequest) (*PlotResult, error) {
	cfg, err := req.validate()
	if err != nil {
		return nil, err
	}
	order, err := s.prepare(obs, req)
	if err != nil {
		return nil, err
	}

	var pairs []stats.PairResult
	if len(order) < 2 {
		s.logger.Warn("only %d group(s) in %s; plotting without significance annotations", len(order), req.Group)
	} else {
		pairs, err = s.pairResults(ctx, obs, order, cfg)
		if err != nil {
			return nil, err
		}
	}

	if err := render.ApplyTheme(s.config.Theme); err != nil {
		return nil, err
	}
	var fig *render.Figure
	ax := req.Axes
	if ax == nil {
		fig, ax = render.NewFigureInches(cfg.figW, cfg.figH)
	} else {
		fig = ax.Figure()
	}

	groups := make([]render.Group, len(order))
	for i, values := range obs.GroupValues(order) {
		groups[i] = render.Group{Label: order[i], Values: values}
	}
	ax.SetCategories(order)
	if err := s.drawPrimitive(ax, groups, cfg); err != nil {
		return nil, err
	}

	annotated := SelectAnnotations(pairs, cfg.alpha, req.ShowOnlySignificant)
	if len(annotated) > 0 {
		if err := s.annotate(ax, annotated, cfg.format); err != nil {
			return nil, err
		}
	}

	render.Decorate(ax, cfg.labels)
	return &PlotResult{Figure: fig, Axes: ax, Order: order, Pairs: pairs, Annotated: annotated}, nil
}

// PairwiseTests runs only the statistics half of ComputeAndPlot and returns
// one result per pair of the resolved ordering.
func (s *PlotService) PairwiseTests(ctx context.Context, obs *dataset.ObservationSet, req PlotRequest) ([]stats.PairResult, error) {
	cfg, err := req.validate()
	if err != nil {
		return nil, err
	}
	order, err := s.prepare(obs, req)
	if err != nil {
		return nil, err
	}
	if len(order) < 2 {
		return nil, appErrors.InsufficientData(fmt.Sprintf("need at least two groups for pairwise tests, got %d", len(order)))
	}
	return s.pairResults(ctx, obs, order, cfg)
}

func (s *PlotService) prepare(obs *dataset.ObservationSet, req PlotRequest) ([]string, error) {
	if obs == nil {
		return nil, appErrors.InsufficientData("observation set is empty")
	}
	if err := obs.RequireFields(req.Group, req.Value); err != nil {
		return nil, err
	}
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	return obs.ResolveOrder(req.Order)
}

func (s *PlotService) pairResults(ctx context.Context, obs *dataset.ObservationSet, order []string, cfg plotConfig) ([]stats.PairResult, error) {
	table, err := s.pairwise.PairwiseTests(ctx, obs, order, engine.PairwiseOptions{
		Test:    cfg.test,
		PAdjust: cfg.padjust,
		Schema:  s.config.Schema,
	})
	if err != nil {
		return nil, err
	}
	return engine.Normalize(table, order, cfg.alpha)
}

func (s *PlotService) drawPrimitive(ax *render.Axes, groups []render.Group, cfg plotConfig) error {
	switch cfg.kind {
	case render.KindBox:
		opts := render.DefaultBoxOptions
		opts.ShowFliers = cfg.overlay == render.OverlayNone
		if err := render.Box(ax, groups, opts); err != nil {
			return err
		}
		return render.Points(ax, groups, cfg.overlay, s.config.Overlay)
	case render.KindViolin:
		if err := render.Violin(ax, groups, render.DefaultViolinOptions); err != nil {
			return err
		}
		return render.Points(ax, groups, cfg.overlay, s.config.Overlay)
	case render.KindPoint:
		opts := render.DefaultPointOptions
		opts.Error = cfg.point.Error
		opts.MarkerSize = cfg.point.MarkerSize
		opts.LineWidth = cfg.point.LineWidth
		return render.Point(ax, groups, opts)
	default:
		return appErrors.ConfigInvalid(fmt.Sprintf("unknown plot kind %q", cfg.kind))
	}
}

func (s *PlotService) annotate(ax *render.Axes, anns []stats.Annotation, format string) error {
	if s.annotator == nil {
		s.logger.Warn("no annotator configured; significance markers skipped")
		return nil
	}
	if err := s.annotator.Available(); err != nil {
		if appErrors.HasCode(err, appErrors.CodeOptionalDependency) {
			s.logger.Warn("significance markers skipped: %v", err)
			return nil
		}
		return err
	}
	for i := range anns {
		anns[i].Label = s.annotator.Label(anns[i].PValue, format)
	}
	return s.annotator.Annotate(ax, anns)
}

// SelectAnnotations turns pair results into annotations. With onlySig set,
// pairs whose corrected p-value is not below alpha are dropped; NaN
// p-values count as not significant.
func SelectAnnotations(pairs []stats.PairResult, alpha float64, onlySig bool) []stats.Annotation {
	anns := make([]stats.Annotation, 0, len(pairs))
	for _, p := range pairs {
		if onlySig && !(p.PValueCorrected < alpha) {
			continue
		}
		anns = append(anns, stats.Annotation{Pair: p.PairKey, PValue: p.PValueCorrected})
	}
	return anns
}
