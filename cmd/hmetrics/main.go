package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"hmetrics/adapters/excel"
	"hmetrics/adapters/render"
	"hmetrics/app"
	"hmetrics/domain/core"
	"hmetrics/internal"
	"hmetrics/internal/config"
	appErrors "hmetrics/internal/errors"
	"hmetrics/ports"
	"hmetrics/ui"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration and data errors, 1 otherwise
func exitCode(err error) int {
	if core.IsConfigError(err) || core.IsDataError(err) || appErrors.HasCode(err, appErrors.CodeOptionalDependency) {
		return 2
	}
	return 1
}

type plotFlags struct {
	csv, sheet   string
	group, value string
	kind         string
	order        []string
	showPoints   string
	errorBars    string
	nonparam     bool
	padjust      string
	alpha        float64
	onlySig      bool
	title        string
	ylabel       string
	format       string
	width        float64
	height       float64
	out          string
	report       string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	var f plotFlags

	cmd := &cobra.Command{
		Use:   "hmetrics",
		Short: "Plot group comparisons annotated with pairwise significance",
		Long: `Read a tidy CSV or xlsx file, draw a box, violin or point plot of a numeric
column by group, run every pairwise test, correct the p-values and annotate
the pairs with significance brackets.

Example: hmetrics --csv data.csv --group treatment --value score --padjust fdr_bh --out plot.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd.Context(), f, cmd.Flags().Changed)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.csv, "csv", "", "Path to CSV (or xlsx) with tidy data")
	fl.StringVar(&f.sheet, "sheet", "", "Worksheet of an xlsx file (default: first)")
	fl.StringVar(&f.group, "group", "", "Categorical column name")
	fl.StringVar(&f.value, "value", "", "Numeric column name")
	fl.StringVar(&f.kind, "kind", "box", "Plot kind: box, violin or point")
	fl.StringSliceVar(&f.order, "order", nil, "Group order (default: sorted)")
	fl.StringVar(&f.showPoints, "show-points", "swarm", "Raw point overlay: swarm, strip or none")
	fl.StringVar(&f.errorBars, "error", "ci:95", "Point plot error bars: ci:95, se:1, sd:1, pi:50")
	fl.BoolVar(&f.nonparam, "nonparametric", false, "Use Mann-Whitney instead of Welch")
	fl.StringVar(&f.padjust, "padjust", "holm", "Multiple comparison correction")
	fl.Float64Var(&f.alpha, "alpha", 0.05, "Significance threshold")
	fl.BoolVar(&f.onlySig, "only-sig", false, "Annotate only significant pairs")
	fl.StringVar(&f.title, "title", "", "Plot title")
	fl.StringVar(&f.ylabel, "ylabel", "", "Y axis label (default: value column)")
	fl.StringVar(&f.format, "format", "", "Annotation text: star or simple")
	fl.Float64Var(&f.width, "width", 0, "Figure width in inches")
	fl.Float64Var(&f.height, "height", 0, "Figure height in inches")
	fl.StringVar(&f.out, "out", "", "Save figure to this path (e.g. out.png); opens a viewer when empty")
	fl.StringVar(&f.report, "report", "", "Write the pairwise table to this path (.md, .html, .csv, .json)")
	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("value")

	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "Log verbosity: error, warn, info, debug, trace (default: LOG_LEVEL or info)")
	cmd.AddCommand(newServeCmd(&f.logLevel))
	return cmd
}

func loadService(logLevel string) (*config.Config, *app.PlotService, *internal.Logger, error) {
	logger := internal.NewDefaultLogger()
	if logLevel != "" {
		logger.SetLevel(internal.ParseLogLevel(logLevel))
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	svcCfg, err := app.ServiceConfigFrom(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, app.NewDefaultPlotService(svcCfg, logger), logger, nil
}

func runPlot(ctx context.Context, f plotFlags, changed func(string) bool) error {
	cfg, svc, logger, err := loadService(f.logLevel)
	if err != nil {
		return err
	}

	group, err := core.ParseFieldName(f.group)
	if err != nil {
		return appErrors.ConfigInvalid("--group is required")
	}
	value, err := core.ParseFieldName(f.value)
	if err != nil {
		return appErrors.ConfigInvalid("--value is required")
	}

	if f.out != "" {
		if _, err := render.OutputFormat(f.out); err != nil {
			return err
		}
	}
	if f.report != "" {
		if _, err := app.ReportFormat(f.report); err != nil {
			return err
		}
	}
	req, err := f.request(group, value, cfg.Plot, changed)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	rc := excel.DefaultReaderConfig()
	rc.Sheet = f.sheet
	rc.Logger = logger
	var reader ports.ObservationReaderPort = excel.NewDataReader(f.csv, rc)
	obs, err := reader.ReadObservations(ctx, group, value)
	if err != nil {
		return err
	}

	res, err := svc.Render(ctx, obs, req)
	if err != nil {
		return err
	}

	out := f.out
	if out == "" {
		tmp, err := os.CreateTemp("", "hmetrics-*.png")
		if err != nil {
			return appErrors.Wrap(err, "create temporary image")
		}
		out = tmp.Name()
		tmp.Close()
	}
	if err := res.Figure.Save(out, cfg.Render.DPI); err != nil {
		if f.out == "" {
			os.Remove(out)
		}
		return err
	}

	if f.report != "" {
		if err := app.NewPairwiseReport(req, res).WriteFile(f.report); err != nil {
			os.Remove(out)
			return err
		}
		logger.Info("wrote pairwise report to %s", f.report)
	}

	if f.out != "" {
		logger.Info("saved figure to %s", out)
		return nil
	}
	abs, _ := filepath.Abs(out)
	logger.Info("opening %s", abs)
	return browser.OpenFile(abs)
}

// request maps flags onto a plot request. Flags given on the command line
// override the style file; the rest keep the library defaults, except
// --nonparametric which is a plain switch defaulting to Welch.
func (f plotFlags) request(group, value core.FieldName, defaults config.PlotDefaults, changed func(string) bool) (app.PlotRequest, error) {
	req := app.DefaultPlotRequest(group, value)
	if err := app.ApplyDefaults(&req, defaults); err != nil {
		return req, err
	}
	req.Nonparametric = f.nonparam
	req.Order = f.order
	req.ShowOnlySignificant = f.onlySig
	req.Title = f.title
	req.YLabel = f.ylabel

	if changed("kind") {
		req.Kind = f.kind
	}
	if changed("show-points") {
		req.ShowPoints = f.showPoints
	}
	if changed("padjust") {
		req.PAdjust = f.padjust
	}
	if changed("alpha") {
		req.Alpha = f.alpha
	}
	if changed("format") {
		req.TextFormat = strings.ToLower(f.format)
	}
	if changed("width") || changed("height") {
		req.FigSize = [2]float64{f.width, f.height}
	}
	if changed("error") {
		spec, err := render.ParseErrorSpec(f.errorBars)
		if err != nil {
			return req, err
		}
		req.PointError = spec
	}
	return req, nil
}

func newServeCmd(logLevel *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plot and pairwise endpoints over HTTP",
		Long: `Start an HTTP server. Datasets are posted as the request body (CSV, or xlsx
with the spreadsheet content type); options go in the query string.

  POST /api/plot?group=g&value=v&kind=violin   -> image (png by default)
  POST /api/pairwise?group=g&value=v           -> JSON pairwise results
  POST /api/report?group=g&value=v&format=md   -> pairwise report
  GET  /healthz`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, logger, err := loadService(*logLevel)
			if err != nil {
				return err
			}
			serverCfg := ui.ConfigFrom(cfg)
			if addr != "" {
				serverCfg.Addr = addr
			}
			return ui.NewApp(svc, serverCfg, cfg.Plot, logger).Start(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: HMETRICS_ADDR or :8080)")
	return cmd
}
