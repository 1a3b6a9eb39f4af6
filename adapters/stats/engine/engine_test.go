package engine

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
	"hmetrics/internal/testkit"
)

func threeGroups() ([]string, map[string][]float64) {
	return []string{"A", "B", "C"}, map[string][]float64{
		"A": {1, 2, 3},
		"B": {4, 5, 6},
		"C": {7, 8, 9, 10},
	}
}

func TestPairwiseTests_ColumnsPerSchema(t *testing.T) {
	labels, values := threeGroups()
	obs := testkit.Fixed(labels, values)
	e := NewStatsEngine()

	tests := []struct {
		name string
		opts PairwiseOptions
		want []string
	}{
		{
			name: "mwu v1",
			opts: PairwiseOptions{Test: stats.TestMannWhitney, PAdjust: stats.PAdjustHolm, Schema: SchemaV1},
			want: []string{"Test", "A", "B", "Parametric", "U-val", "n(A)", "n(B)", "alternative", "p-unc", "p-corr", "p-adjust"},
		},
		{
			name: "welch v2",
			opts: PairwiseOptions{Test: stats.TestWelch, PAdjust: stats.PAdjustFDRBH, Schema: SchemaV2},
			want: []string{"Test", "A", "B", "Parametric", "T", "dof", "n(A)", "n(B)", "alternative", "pval-unc", "pval-corr", "p-adjust"},
		},
		{
			name: "no correction",
			opts: PairwiseOptions{Test: stats.TestWelch, PAdjust: stats.PAdjustNone},
			want: []string{"Test", "A", "B", "Parametric", "T", "dof", "n(A)", "n(B)", "alternative", "p-unc", "p-adjust"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := e.PairwiseTests(context.Background(), obs, labels, tt.opts)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, table.Columns); diff != "" {
				t.Errorf("columns mismatch (-want +got):\n%s", diff)
			}
			require.Len(t, table.Rows, 3)
		})
	}
}

func TestPairwiseTests_PairOrderAndCorrection(t *testing.T) {
	labels, values := threeGroups()
	obs := testkit.Fixed(labels, values)
	order := []string{"C", "A", "B"}

	table, err := NewStatsEngine().PairwiseTests(context.Background(), obs, order,
		PairwiseOptions{Test: stats.TestMannWhitney, PAdjust: "bonferroni"})
	require.NoError(t, err)

	var got []stats.PairKey
	for _, row := range table.Rows {
		got = append(got, stats.PairKey{A: row.String(stats.ColA), B: row.String(stats.ColB)})
		assert.Equal(t, "bonf", row.String(stats.ColPAdjust))
		assert.InDelta(t, math.Min(1, 3*row.Float(stats.ColPUnc)), row.Float(stats.ColPCorr), 1e-12)
	}
	want := []stats.PairKey{{A: "C", B: "A"}, {A: "C", B: "B"}, {A: "A", B: "B"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pair order mismatch (-want +got):\n%s", diff)
	}

	first := table.Rows[0]
	assert.Equal(t, 4, first.Int(stats.ColNA))
	assert.Equal(t, 3, first.Int(stats.ColNB))
	assert.Equal(t, 12.0, first.Float(stats.ColU))
}

func TestPairwiseTests_Errors(t *testing.T) {
	labels, values := threeGroups()
	obs := testkit.Fixed(labels, values)
	e := NewStatsEngine()
	ctx := context.Background()

	_, err := e.PairwiseTests(ctx, obs, []string{"A"}, PairwiseOptions{Test: stats.TestWelch, PAdjust: stats.PAdjustHolm})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeInsufficientData))

	_, err = e.PairwiseTests(ctx, obs, labels, PairwiseOptions{Test: stats.TestWelch, PAdjust: "tukey"})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))

	single := testkit.Fixed([]string{"A", "B"}, map[string][]float64{"A": {1}, "B": {2, 3}})
	_, err = e.PairwiseTests(ctx, single, []string{"A", "B"}, PairwiseOptions{Test: stats.TestWelch, PAdjust: stats.PAdjustHolm})
	assert.True(t, appErrors.HasCode(err, appErrors.CodeInsufficientData))
}

func TestPairwiseTests_Cancelled(t *testing.T) {
	labels, values := threeGroups()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStatsEngine().PairwiseTests(ctx, testkit.Fixed(labels, values), labels,
		PairwiseOptions{Test: stats.TestMannWhitney, PAdjust: stats.PAdjustHolm})
	assert.ErrorIs(t, err, context.Canceled)
}
