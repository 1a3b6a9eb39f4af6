package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"hmetrics/adapters/excel"
	"hmetrics/adapters/render"
	"hmetrics/app"
	"hmetrics/domain/core"
	"hmetrics/domain/dataset"
	appErrors "hmetrics/internal/errors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tif":  "image/tiff",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"eps":  "application/postscript",
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePlot renders the uploaded dataset and returns the image
func (a *App) handlePlot(w http.ResponseWriter, r *http.Request) {
	obs, req, err := a.parseRequest(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "png"
	}
	contentType, ok := imageContentTypes[format]
	if !ok {
		a.writeError(w, r, appErrors.ConfigInvalid(fmt.Sprintf("unsupported image format %q", format)))
		return
	}

	fig, _, err := a.plots.ComputeAndPlot(r.Context(), obs, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if _, err := fig.WriteTo(&buf, format, a.config.DPI); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Figure-ID", fig.ID.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handlePairwise returns the corrected pairwise results as JSON
func (a *App) handlePairwise(w http.ResponseWriter, r *http.Request) {
	obs, req, err := a.parseRequest(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pairs, err := a.plots.PairwiseTests(r.Context(), obs, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"group": req.Group,
		"value": req.Value,
		"pairs": app.JSONPairs(pairs),
	})
}

// handleReport returns the pairwise report as markdown or HTML
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	obs, req, err := a.parseRequest(w, r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	pairs, err := a.plots.PairwiseTests(r.Context(), obs, req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	order, _ := obs.ResolveOrder(req.Order)
	report := app.NewPairwiseReport(req, &app.PlotResult{Order: order, Pairs: pairs})

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(report.HTML())
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, report.Markdown())
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := report.WriteCSV(w); err != nil {
			a.logger.Error("[handleReport] csv: %v", err)
		}
	default:
		a.writeError(w, r, appErrors.ConfigInvalid("report format must be html, md or csv"))
	}
}

// parseRequest reads the body as a dataset and the query string as plot
// options
func (a *App) parseRequest(w http.ResponseWriter, r *http.Request) (*dataset.ObservationSet, app.PlotRequest, error) {
	q := r.URL.Query()
	group, err := core.ParseFieldName(q.Get("group"))
	if err != nil {
		return nil, app.PlotRequest{}, appErrors.ConfigInvalid("query parameter group is required")
	}
	value, err := core.ParseFieldName(q.Get("value"))
	if err != nil {
		return nil, app.PlotRequest{}, appErrors.ConfigInvalid("query parameter value is required")
	}

	req := app.DefaultPlotRequest(group, value)
	if err := app.ApplyDefaults(&req, a.defaults); err != nil {
		return nil, req, err
	}
	if err := applyQuery(&req, q); err != nil {
		return nil, req, err
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.MaxBodyBytes))
	if err != nil {
		return nil, req, appErrors.WithCode(appErrors.CodeInvalidInput, fmt.Errorf("read body: %w", err))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, req, appErrors.InvalidInput("request body must contain a CSV or xlsx dataset")
	}

	fileType := excel.FileTypeCSV
	if strings.Contains(r.Header.Get("Content-Type"), xlsxContentType) || strings.EqualFold(q.Get("type"), excel.FileTypeXLSX) {
		fileType = excel.FileTypeXLSX
	}
	rc := excel.DefaultReaderConfig()
	rc.Sheet = q.Get("sheet")
	rc.Logger = a.logger
	data, err := excel.ReadBytes(body, fileType, rc)
	if err != nil {
		return nil, req, err
	}
	obs, err := data.Observations(group, value, rc.SkipMissing, a.logger)
	if err != nil {
		return nil, req, err
	}
	return obs, req, nil
}

func applyQuery(req *app.PlotRequest, q url.Values) error {
	if v := q.Get("order"); v != "" {
		req.Order = splitList(v)
	}
	if v := q.Get("kind"); v != "" {
		req.Kind = v
	}
	if v := q.Get("show_points"); v != "" {
		req.ShowPoints = v
	}
	if v := q.Get("padjust"); v != "" {
		req.PAdjust = v
	}
	if v := q.Get("text_format"); v != "" {
		req.TextFormat = v
	}
	req.Title = q.Get("title")
	req.YLabel = q.Get("ylabel")

	var err error
	if q.Has("nonparametric") {
		if req.Nonparametric, err = strconv.ParseBool(q.Get("nonparametric")); err != nil {
			return appErrors.ConfigInvalid("nonparametric must be a boolean")
		}
	}
	if q.Has("only_sig") {
		if req.ShowOnlySignificant, err = strconv.ParseBool(q.Get("only_sig")); err != nil {
			return appErrors.ConfigInvalid("only_sig must be a boolean")
		}
	}
	if v := q.Get("alpha"); v != "" {
		if req.Alpha, err = strconv.ParseFloat(v, 64); err != nil {
			return appErrors.ConfigInvalid(fmt.Sprintf("alpha %q is not a number", v))
		}
	}
	if v := q.Get("error"); v != "" {
		if req.PointError, err = render.ParseErrorSpec(v); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// statusFor maps domain errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidConfig), errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMissingField), errors.Is(err, core.ErrInsufficientData), errors.Is(err, core.ErrDataShape):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]string{
		"code":  appErrors.GetCode(err),
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
