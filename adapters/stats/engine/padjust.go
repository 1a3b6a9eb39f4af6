package engine

import (
	"fmt"
	"math"
	"sort"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// AdjustPValues applies a multiple-comparison correction. The output has
// the same length and order as pvals, values are clipped to [0,1], and NaN
// entries are passed through and excluded from the family size.
func AdjustPValues(pvals []float64, method stats.PAdjustMethod) ([]float64, error) {
	out := make([]float64, len(pvals))
	valid := make([]int, 0, len(pvals))
	for i, p := range pvals {
		out[i] = math.NaN()
		if !math.IsNaN(p) {
			valid = append(valid, i)
		}
	}
	m := len(valid)
	if m == 0 {
		if _, err := stats.ParsePAdjust(string(method)); err != nil {
			return nil, err
		}
		return out, nil
	}

	// Ascending by p, stable so ties keep input order.
	sort.SliceStable(valid, func(i, j int) bool { return pvals[valid[i]] < pvals[valid[j]] })
	fm := float64(m)

	switch method {
	case stats.PAdjustNone:
		for _, i := range valid {
			out[i] = pvals[i]
		}
	case stats.PAdjustBonferroni:
		for _, i := range valid {
			out[i] = pvals[i] * fm
		}
	case stats.PAdjustSidak:
		for _, i := range valid {
			out[i] = 1 - math.Pow(1-pvals[i], fm)
		}
	case stats.PAdjustHolm:
		running := 0.0
		for rank, i := range valid {
			adj := pvals[i] * (fm - float64(rank))
			running = math.Max(running, adj)
			out[i] = running
		}
	case stats.PAdjustFDRBH, stats.PAdjustFDRBY:
		c := 1.0
		if method == stats.PAdjustFDRBY {
			c = 0
			for k := 1; k <= m; k++ {
				c += 1 / float64(k)
			}
		}
		running := math.Inf(1)
		for rank := m - 1; rank >= 0; rank-- {
			i := valid[rank]
			adj := pvals[i] * fm * c / float64(rank+1)
			running = math.Min(running, adj)
			out[i] = running
		}
	default:
		return nil, appErrors.ConfigInvalid(fmt.Sprintf("unknown padjust method %q", method))
	}

	for _, i := range valid {
		out[i] = math.Min(1, math.Max(0, out[i]))
	}
	return out, nil
}
