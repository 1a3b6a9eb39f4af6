package stats

import (
	"fmt"
	"math"
	"strings"

	appErrors "hmetrics/internal/errors"
)

// TestType names a two-sample test
type TestType string

const (
	TestMannWhitney TestType = "mwu"
	TestWelch       TestType = "welch"
)

// SelectTest maps the nonparametric switch onto a test family
func SelectTest(nonparametric bool) TestType {
	if nonparametric {
		return TestMannWhitney
	}
	return TestWelch
}

// PAdjustMethod names a multiple-comparison correction
type PAdjustMethod string

const (
	PAdjustNone       PAdjustMethod = "none"
	PAdjustBonferroni PAdjustMethod = "bonf"
	PAdjustSidak      PAdjustMethod = "sidak"
	PAdjustHolm       PAdjustMethod = "holm"
	PAdjustFDRBH      PAdjustMethod = "fdr_bh"
	PAdjustFDRBY      PAdjustMethod = "fdr_by"
)

var padjustAliases = map[string]PAdjustMethod{
	"none":       PAdjustNone,
	"bonf":       PAdjustBonferroni,
	"bonferroni": PAdjustBonferroni,
	"sidak":      PAdjustSidak,
	"holm":       PAdjustHolm,
	"fdr_bh":     PAdjustFDRBH,
	"fdr":        PAdjustFDRBH,
	"bh":         PAdjustFDRBH,
	"fdr_by":     PAdjustFDRBY,
	"by":         PAdjustFDRBY,
}

// ParsePAdjust resolves a method name or alias, case-insensitively
func ParsePAdjust(name string) (PAdjustMethod, error) {
	m, ok := padjustAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", appErrors.ConfigInvalid(fmt.Sprintf("unknown padjust method %q", name))
	}
	return m, nil
}

// Result table column names. The statistics engine has emitted two naming
// schemes over time; readers must accept either.
const (
	ColA           = "A"
	ColB           = "B"
	ColParametric  = "Parametric"
	ColAlternative = "alternative"
	ColPAdjust     = "p-adjust"
	ColDOF         = "dof"
	ColT           = "T"
	ColU           = "U-val"
	ColNA          = "n(A)"
	ColNB          = "n(B)"

	ColPValCorr = "pval-corr"
	ColPCorr    = "p-corr"
	ColPValUnc  = "pval-unc"
	ColPUnc     = "p-unc"
)

// PValueFallback is the lookup priority for the p-value used for
// significance: corrected names first, newest scheme first.
var PValueFallback = []string{ColPValCorr, ColPCorr, ColPValUnc, ColPUnc}

// RawPValueFallback is the lookup priority for the uncorrected p-value
var RawPValueFallback = []string{ColPValUnc, ColPUnc}

// PValueColumn returns the first fallback name present in columns
func PValueColumn(columns []string, fallback []string) (string, error) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	for _, name := range fallback {
		if _, ok := present[name]; ok {
			return name, nil
		}
	}
	return "", appErrors.DataShape(fmt.Sprintf("none of the p-value columns %v present in %v", fallback, columns))
}

// PairKey identifies an unordered group pair, A before B in the ordering
type PairKey struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (k PairKey) String() string { return k.A + " vs " + k.B }

// PairResult is one row of the normalized pairwise table
type PairResult struct {
	PairKey
	Test            TestType `json:"test"`
	Statistic       float64  `json:"statistic"`
	PValueRaw       float64  `json:"p_raw"`
	PValueCorrected float64  `json:"p_corrected"`
	Significant     bool     `json:"significant"`
	NA              int      `json:"n_a"`
	NB              int      `json:"n_b"`
}

// AllPairs enumerates every index pair (i<j) of order in lexicographic
// index order.
func AllPairs(order []string) []PairKey {
	n := len(order)
	pairs := make([]PairKey, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, PairKey{A: order[i], B: order[j]})
		}
	}
	return pairs
}

// Threshold maps p-values below Cutoff to Label
type Threshold struct {
	Cutoff float64
	Label  string
}

// DefaultStarThresholds is the star rating used for annotations
var DefaultStarThresholds = []Threshold{
	{Cutoff: 1e-4, Label: "****"},
	{Cutoff: 1e-3, Label: "***"},
	{Cutoff: 1e-2, Label: "**"},
	{Cutoff: 5e-2, Label: "*"},
	{Cutoff: 1, Label: "ns"},
}

// StarLabel returns the star rating of p. NaN p-values are labelled "ns".
func StarLabel(p float64, thresholds []Threshold) string {
	if math.IsNaN(p) {
		return "ns"
	}
	for _, t := range thresholds {
		if p <= t.Cutoff {
			return t.Label
		}
	}
	return "ns"
}

// Annotation is a significance marker to draw between two groups
type Annotation struct {
	Pair   PairKey
	PValue float64
	Label  string
}
