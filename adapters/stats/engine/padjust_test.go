package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

func TestAdjustPValues_KnownValues(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03}
	tests := []struct {
		method stats.PAdjustMethod
		want   []float64
	}{
		{stats.PAdjustNone, []float64{0.01, 0.04, 0.03}},
		{stats.PAdjustBonferroni, []float64{0.03, 0.12, 0.09}},
		{stats.PAdjustSidak, []float64{1 - math.Pow(0.99, 3), 1 - math.Pow(0.96, 3), 1 - math.Pow(0.97, 3)}},
		{stats.PAdjustHolm, []float64{0.03, 0.06, 0.06}},
		{stats.PAdjustFDRBH, []float64{0.03, 0.04, 0.04}},
		{stats.PAdjustFDRBY, []float64{0.03 * 11 / 6, 0.04 * 11 / 6, 0.04 * 11 / 6}},
	}
	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			got, err := AdjustPValues(p, tt.method)
			require.NoError(t, err)
			require.Len(t, got, len(p))
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestAdjustPValues_NeverBelowRaw(t *testing.T) {
	p := []float64{0.001, 0.2, 0.049, 0.5, 0.03, 0.9}
	for _, method := range []stats.PAdjustMethod{
		stats.PAdjustBonferroni, stats.PAdjustSidak, stats.PAdjustHolm, stats.PAdjustFDRBH, stats.PAdjustFDRBY,
	} {
		got, err := AdjustPValues(p, method)
		require.NoError(t, err)
		for i := range p {
			assert.GreaterOrEqual(t, got[i]+1e-15, p[i], "%s index %d", method, i)
			assert.LessOrEqual(t, got[i], 1.0)
		}
	}
}

func TestAdjustPValues_BHMonotone(t *testing.T) {
	p := []float64{0.04, 0.001, 0.3, 0.02, 0.011, 0.6}
	got, err := AdjustPValues(p, stats.PAdjustFDRBH)
	require.NoError(t, err)
	for i := range p {
		for j := range p {
			if p[i] < p[j] {
				assert.LessOrEqual(t, got[i], got[j])
			}
		}
	}
}

func TestAdjustPValues_NaNPassThrough(t *testing.T) {
	got, err := AdjustPValues([]float64{0.01, math.NaN(), 0.04}, stats.PAdjustHolm)
	require.NoError(t, err)
	assert.InDelta(t, 0.02, got[0], 1e-12)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 0.04, got[2], 1e-12)
}

func TestAdjustPValues_ClipsToOne(t *testing.T) {
	got, err := AdjustPValues([]float64{0.6, 0.7}, stats.PAdjustBonferroni)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, got)
}

func TestAdjustPValues_UnknownMethod(t *testing.T) {
	_, err := AdjustPValues([]float64{0.1}, "tukey")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))

	_, err = AdjustPValues(nil, "tukey")
	assert.True(t, appErrors.HasCode(err, appErrors.CodeConfigInvalid))
}
