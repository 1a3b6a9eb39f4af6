package ui

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmetrics/app"
	"hmetrics/internal"
	"hmetrics/internal/config"
)

const sampleCSV = `group,value
A,1.1
A,1.4
A,0.9
A,1.2
B,5.2
B,5.9
B,6.1
B,5.5
C,1.0
C,1.3
C,1.6
C,1.1
`

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	logger := internal.NewLogger(internal.LogLevelError)
	svc := app.NewDefaultPlotService(app.DefaultPlotServiceConfig(), logger)
	return NewApp(svc, Config{DPI: 72}, config.PlotDefaults{}, logger).Handler()
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestApp(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPlot_PNG(t *testing.T) {
	rec := post(t, newTestApp(t), "/api/plot?group=group&value=value&kind=violin", sampleCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Figure-ID"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestPlot_SVG(t *testing.T) {
	rec := post(t, newTestApp(t), "/api/plot?group=group&value=value&format=svg&show_points=strip", sampleCSV)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestPairwise_JSON(t *testing.T) {
	rec := post(t, newTestApp(t), "/api/pairwise?group=group&value=value&order=C,A,B&padjust=bonf&nonparametric=false", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Group string `json:"group"`
		Value string `json:"value"`
		Pairs []struct {
			A           string   `json:"a"`
			B           string   `json:"b"`
			Test        string   `json:"test"`
			PCorrected  *float64 `json:"p_corrected"`
			Significant bool     `json:"significant"`
		} `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "group", body.Group)
	require.Len(t, body.Pairs, 3)
	assert.Equal(t, []string{"C", "A"}, []string{body.Pairs[0].A, body.Pairs[0].B})
	assert.Equal(t, []string{"C", "B"}, []string{body.Pairs[1].A, body.Pairs[1].B})
	assert.Equal(t, []string{"A", "B"}, []string{body.Pairs[2].A, body.Pairs[2].B})
	for _, p := range body.Pairs {
		assert.Equal(t, "welch", p.Test)
		require.NotNil(t, p.PCorrected)
	}
	assert.True(t, body.Pairs[2].Significant)
}

func TestReport_Formats(t *testing.T) {
	h := newTestApp(t)

	rec := post(t, h, "/api/report?group=group&value=value&title=Doses", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Doses</title>")

	rec = post(t, h, "/api/report?group=group&value=value&format=md", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "| A | B | mwu |")

	rec = post(t, h, "/api/report?group=group&value=value&format=csv", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "A,B,test,"))

	rec = post(t, h, "/api/report?group=group&value=value&format=pdf", sampleCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrors(t *testing.T) {
	h := newTestApp(t)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"missing group param", "/api/plot?value=value", sampleCSV, http.StatusBadRequest, "CONFIG_INVALID"},
		{"empty body", "/api/plot?group=group&value=value", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown column", "/api/pairwise?group=group&value=dose", sampleCSV, http.StatusUnprocessableEntity, "MISSING_FIELD"},
		{"unknown kind", "/api/plot?group=group&value=value&kind=scatter", sampleCSV, http.StatusBadRequest, "CONFIG_INVALID"},
		{"bad alpha", "/api/pairwise?group=group&value=value&alpha=high", sampleCSV, http.StatusBadRequest, "CONFIG_INVALID"},
		{"zero alpha", "/api/pairwise?group=group&value=value&alpha=0", sampleCSV, http.StatusBadRequest, "CONFIG_INVALID"},
		{"bad image format", "/api/plot?group=group&value=value&format=gif", sampleCSV, http.StatusBadRequest, "CONFIG_INVALID"},
		{"single group", "/api/pairwise?group=group&value=value", "group,value\nA,1\nA,2\n", http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestApp(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/plot", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
