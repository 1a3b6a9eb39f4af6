package senses

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	domainStats "hmetrics/domain/stats"
)

// exactMaxSize is the largest sample (on the smaller side) for which the
// exact null distribution of U is used when there are no ties.
const exactMaxSize = 8

// MannWhitneySense is the rank-sum test for a location shift between two
// independent samples
type MannWhitneySense struct{}

// NewMannWhitneySense creates a new Mann–Whitney U sense
func NewMannWhitneySense() *MannWhitneySense {
	return &MannWhitneySense{}
}

// Name returns the sense name
func (s *MannWhitneySense) Name() domainStats.TestType {
	return domainStats.TestMannWhitney
}

// Description returns a human-readable description
func (s *MannWhitneySense) Description() string {
	return "Mann-Whitney U rank-sum test"
}

// Parametric reports that the test makes no distributional assumption
func (s *MannWhitneySense) Parametric() bool {
	return false
}

// Compare performs a two-sided Mann–Whitney U test. The reported statistic
// is U for the first sample.
func (s *MannWhitneySense) Compare(ctx context.Context, a, b []float64) (TestResult, error) {
	if err := checkSizes(s.Name(), a, b); err != nil {
		return TestResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return TestResult{}, err
	}

	n1, n2 := len(a), len(b)
	ranks, tieTerm := midRanks(a, b)

	rankSum := 0.0
	for _, r := range ranks[:n1] {
		rankSum += r
	}
	u1 := rankSum - float64(n1*(n1+1))/2

	method := "asymptotic"
	var pValue float64
	if tieTerm == 0 && min(n1, n2) <= exactMaxSize {
		method = "exact"
		pValue = exactPValue(u1, n1, n2)
	} else {
		pValue = asymptoticPValue(u1, n1, n2, tieTerm)
	}

	return TestResult{
		TestName:  s.Name(),
		Statistic: u1,
		PValue:    clampP(pValue),
		NA:        n1,
		NB:        n2,
		Metadata: map[string]interface{}{
			"u2":     float64(n1*n2) - u1,
			"method": method,
		},
	}, nil
}

// midRanks ranks the pooled samples (a first, then b), assigning tied
// values the mean of their ranks. It also returns sum(t^3 - t) over tie
// groups.
func midRanks(a, b []float64) ([]float64, float64) {
	n := len(a) + len(b)
	pooled := make([]float64, 0, n)
	pooled = append(pooled, a...)
	pooled = append(pooled, b...)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return pooled[idx[i]] < pooled[idx[j]] })

	ranks := make([]float64, n)
	tieTerm := 0.0
	for i := 0; i < n; {
		j := i
		for j+1 < n && pooled[idx[j+1]] == pooled[idx[i]] {
			j++
		}
		mid := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = mid
		}
		if t := float64(j - i + 1); t > 1 {
			tieTerm += t*t*t - t
		}
		i = j + 1
	}
	return ranks, tieTerm
}

// exactPValue computes the two-sided p-value from the exact permutation
// distribution of U under the null.
func exactPValue(u float64, n1, n2 int) float64 {
	counts := uCounts(n1, n2)
	total := 0.0
	for _, c := range counts {
		total += c
	}

	k := int(math.Round(u))
	lower, upper := 0.0, 0.0
	for i, c := range counts {
		if i <= k {
			lower += c
		}
		if i >= k {
			upper += c
		}
	}
	return 2 * math.Min(lower, upper) / total
}

// uCounts returns the number of arrangements yielding each U in
// [0, n1*n2], via the recurrence f(m,n,u) = f(m-1,n,u-n) + f(m,n-1,u).
func uCounts(n1, n2 int) []float64 {
	maxU := n1 * n2
	// prev[n][u] holds f(m-1, n, u) while row m is built.
	prev := make([][]float64, n2+1)
	for n := range prev {
		prev[n] = make([]float64, maxU+1)
		prev[n][0] = 1 // f(0, n, 0) = 1
	}
	for m := 1; m <= n1; m++ {
		cur := make([][]float64, n2+1)
		for n := 0; n <= n2; n++ {
			cur[n] = make([]float64, maxU+1)
			if n == 0 {
				cur[n][0] = 1 // f(m, 0, 0) = 1
				continue
			}
			for u := 0; u <= m*n; u++ {
				v := cur[n-1][u]
				if u >= n {
					v += prev[n][u-n]
				}
				cur[n][u] = v
			}
		}
		prev = cur
	}
	return prev[n2]
}

// asymptoticPValue uses the normal approximation with tie and continuity
// corrections.
func asymptoticPValue(u1 float64, n1, n2 int, tieTerm float64) float64 {
	fn1, fn2 := float64(n1), float64(n2)
	n := fn1 + fn2
	mu := fn1 * fn2 / 2
	sigma := math.Sqrt(fn1 * fn2 / 12 * ((n + 1) - tieTerm/(n*(n-1))))
	if sigma == 0 {
		return 1
	}
	u := math.Max(u1, fn1*fn2-u1)
	z := (u - mu - 0.5) / sigma
	return 2 * distuv.UnitNormal.Survival(z)
}
