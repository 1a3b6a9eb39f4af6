package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmetrics/internal/config"
	appErrors "hmetrics/internal/errors"
	"hmetrics/internal/testkit"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(appErrors.ConfigInvalid("bad kind")))
	assert.Equal(t, 2, exitCode(appErrors.MissingField("score")))
	assert.Equal(t, 2, exitCode(appErrors.OptionalDependencyMissing("font", nil)))
	assert.Equal(t, 1, exitCode(errors.New("disk full")))
}

func TestRequest_OnlyChangedFlagsOverrideDefaults(t *testing.T) {
	f := plotFlags{kind: "box", padjust: "holm", alpha: 0.05, nonparam: true, order: []string{"B", "A"}}
	defaults := config.PlotDefaults{Kind: "violin", PAdjust: "fdr_bh"}

	req, err := f.request("group", "value", defaults, func(name string) bool { return name == "padjust" })
	require.NoError(t, err)

	assert.Equal(t, "violin", req.Kind, "style file wins over an untouched flag")
	assert.Equal(t, "holm", req.PAdjust, "explicit flag wins over the style file")
	assert.True(t, req.Nonparametric)
	assert.Equal(t, []string{"B", "A"}, req.Order)

	f.errorBars = "median:3"
	_, err = f.request("group", "value", config.PlotDefaults{}, func(name string) bool { return name == "error" })
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))
}

func TestRootCmd_WritesFigureAndReport(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	obs := testkit.NewGroupDataGenerator(testkit.DefaultGeneratorConfig()).Generate()
	require.NoError(t, testkit.WriteCSV(csvPath, obs))

	out := filepath.Join(dir, "plot.svg")
	report := filepath.Join(dir, "pairs.md")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--csv", csvPath, "--group", "group", "--value", "value",
		"--kind", "point", "--padjust", "fdr_bh", "--out", out, "--report", report,
		"--log-level", "error",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	svg, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")

	md, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Correction: fdr_bh")
}

func TestRootCmd_MissingColumn(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("g,v\na,1\nb,2\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--csv", csvPath, "--group", "g", "--value", "score", "--out", filepath.Join(t.TempDir(), "x.png")})
	err := cmd.ExecuteContext(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.CodeMissingField))
	assert.Equal(t, 2, exitCode(err))
}

func TestRootCmd_BadOutputLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	obs := testkit.NewGroupDataGenerator(testkit.DefaultGeneratorConfig()).Generate()
	require.NoError(t, testkit.WriteCSV(csvPath, obs))

	out := filepath.Join(dir, "plot.bmp")
	report := filepath.Join(dir, "pairs.md")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--csv", csvPath, "--group", "group", "--value", "value",
		"--out", out, "--report", report, "--log-level", "error",
	})
	err := cmd.ExecuteContext(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, report)

	report = filepath.Join(dir, "pairs.xml")
	out = filepath.Join(dir, "plot.png")
	cmd = newRootCmd()
	cmd.SetArgs([]string{
		"--csv", csvPath, "--group", "group", "--value", "value",
		"--out", out, "--report", report, "--log-level", "error",
	})
	err = cmd.ExecuteContext(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))
	assert.NoFileExists(t, out)
	assert.NoFileExists(t, report)
}

func TestRootCmd_ValidatesOptionsBeforeReading(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{
		{"--kind", "scatter"},
		{"--alpha", "0"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(append([]string{
			"--csv", filepath.Join(dir, "missing.csv"), "--group", "g", "--value", "v",
			"--out", filepath.Join(dir, "x.png"), "--log-level", "error",
		}, args...))
		err := cmd.ExecuteContext(context.Background())
		assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid), args)
		assert.Equal(t, 2, exitCode(err))
	}
}
