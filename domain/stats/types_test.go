package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "hmetrics/internal/errors"
)

func TestParsePAdjust_Aliases(t *testing.T) {
	tests := map[string]PAdjustMethod{
		"holm":       PAdjustHolm,
		"Bonferroni": PAdjustBonferroni,
		"fdr":        PAdjustFDRBH,
		" BY ":       PAdjustFDRBY,
		"none":       PAdjustNone,
	}
	for in, want := range tests {
		got, err := ParsePAdjust(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePAdjust("tukey")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))
}

func TestPValueColumn_Fallback(t *testing.T) {
	col, err := PValueColumn([]string{"A", "B", "p-unc", "p-corr"}, PValueFallback)
	require.NoError(t, err)
	assert.Equal(t, ColPCorr, col)

	col, err = PValueColumn([]string{"pval-unc", "p-unc"}, PValueFallback)
	require.NoError(t, err)
	assert.Equal(t, ColPValUnc, col)

	_, err = PValueColumn([]string{"A", "B"}, PValueFallback)
	assert.True(t, appErrors.HasCode(err, appErrors.CodeDataShape))
}

func TestAllPairs(t *testing.T) {
	assert.Equal(t, []PairKey{{"x", "y"}, {"x", "z"}, {"y", "z"}}, AllPairs([]string{"x", "y", "z"}))
	assert.Len(t, AllPairs([]string{"a", "b", "c", "d", "e"}), 10)
	assert.Empty(t, AllPairs([]string{"a"}))
}

func TestStarLabel(t *testing.T) {
	tests := []struct {
		p    float64
		want string
	}{
		{0.00005, "****"},
		{0.0005, "***"},
		{0.005, "**"},
		{0.05, "*"},
		{0.2, "ns"},
		{math.NaN(), "ns"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StarLabel(tt.p, DefaultStarThresholds), "p=%v", tt.p)
	}
}

func TestSelectTest(t *testing.T) {
	assert.Equal(t, TestMannWhitney, SelectTest(true))
	assert.Equal(t, TestWelch, SelectTest(false))
}
