package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmetrics/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"HMETRICS_DPI", "HMETRICS_THEME", "HMETRICS_CONTEXT", "HMETRICS_SCHEMA", "HMETRICS_SEED", "HMETRICS_ADDR", "HMETRICS_READ_TIMEOUT", "HMETRICS_MAX_BODY_MB", "HMETRICS_STYLE_FILE"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Render.DPI)
	assert.Equal(t, "whitegrid", cfg.Render.Style)
	assert.Equal(t, "talk", cfg.Render.Context)
	assert.Equal(t, "v1", cfg.Render.Schema)
	assert.Equal(t, uint64(1), cfg.Render.Seed)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, PlotDefaults{}, cfg.Plot)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HMETRICS_DPI", "150")
	t.Setenv("HMETRICS_THEME", "ticks")
	t.Setenv("HMETRICS_SCHEMA", "v2")
	t.Setenv("HMETRICS_ADDR", "127.0.0.1:9000")
	t.Setenv("HMETRICS_WRITE_TIMEOUT", "5s")
	t.Setenv("HMETRICS_MAX_BODY_MB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Render.DPI)
	assert.Equal(t, "ticks", cfg.Render.Style)
	assert.Equal(t, "v2", cfg.Render.Schema)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxBodyBytes)
}

func TestLoad_InvalidDPI(t *testing.T) {
	t.Setenv("HMETRICS_DPI", "-1")
	_, err := Load()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestLoad_StyleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
theme:
  style: white
  context: paper
  dpi: 200
plot:
  kind: violin
  show_points: strip
  padjust: fdr_bh
  alpha: 0.01
  error: "sd:1"
  figsize: [8, 4]
`), 0o644))
	t.Setenv("HMETRICS_STYLE_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, cfg.StyleFile)
	assert.Equal(t, "white", cfg.Render.Style)
	assert.Equal(t, "paper", cfg.Render.Context)
	assert.Equal(t, 200, cfg.Render.DPI)
	assert.Equal(t, PlotDefaults{
		Kind:       "violin",
		ShowPoints: "strip",
		PAdjust:    "fdr_bh",
		Alpha:      0.01,
		Error:      "sd:1",
		FigSize:    [2]float64{8, 4},
	}, cfg.Plot)
}

func TestLoad_StyleFileErrors(t *testing.T) {
	t.Setenv("HMETRICS_STYLE_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))

	path := filepath.Join(t.TempDir(), "alpha.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plot:\n  alpha: 2\n"), 0o644))
	t.Setenv("HMETRICS_STYLE_FILE", path)
	_, err = Load()
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}

func TestMergeStyle_InvalidYAML(t *testing.T) {
	cfg := &Config{}
	err := cfg.MergeStyle([]byte("plot: [unterminated"))
	assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
}
