package senses

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	domainStats "hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// WelchTTestSense compares group means without assuming equal variances
type WelchTTestSense struct{}

// NewWelchTTestSense creates a new Welch's t-test sense
func NewWelchTTestSense() *WelchTTestSense {
	return &WelchTTestSense{}
}

// Name returns the sense name
func (s *WelchTTestSense) Name() domainStats.TestType {
	return domainStats.TestWelch
}

// Description returns a human-readable description
func (s *WelchTTestSense) Description() string {
	return "Welch's t-test for a difference in means with unequal variances"
}

// Parametric reports that the test assumes approximately normal samples
func (s *WelchTTestSense) Parametric() bool {
	return true
}

// Compare performs a two-sided Welch's t-test of a against b
func (s *WelchTTestSense) Compare(ctx context.Context, a, b []float64) (TestResult, error) {
	if err := checkSizes(s.Name(), a, b); err != nil {
		return TestResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return TestResult{}, err
	}

	tStat, df, pValue, err := s.computeWelchTTest(a, b)
	if err != nil {
		return TestResult{}, err
	}

	mean1, _ := stats.Mean(a)
	mean2, _ := stats.Mean(b)

	return TestResult{
		TestName:  s.Name(),
		Statistic: tStat,
		PValue:    pValue,
		DOF:       df,
		NA:        len(a),
		NB:        len(b),
		Metadata: map[string]interface{}{
			"mean_a": mean1,
			"mean_b": mean2,
		},
	}, nil
}

// computeWelchTTest returns the t statistic, Welch–Satterthwaite degrees of
// freedom and two-sided p-value.
func (s *WelchTTestSense) computeWelchTTest(group1, group2 []float64) (float64, float64, float64, error) {
	n1 := float64(len(group1))
	n2 := float64(len(group2))

	mean1, err := stats.Mean(group1)
	if err != nil {
		return 0, 0, 0, appErrors.Wrap(err, "mean of first group")
	}
	mean2, err := stats.Mean(group2)
	if err != nil {
		return 0, 0, 0, appErrors.Wrap(err, "mean of second group")
	}
	var1, err := stats.SampleVariance(group1)
	if err != nil {
		return 0, 0, 0, appErrors.Wrap(err, "variance of first group")
	}
	var2, err := stats.SampleVariance(group2)
	if err != nil {
		return 0, 0, 0, appErrors.Wrap(err, "variance of second group")
	}

	se2 := var1/n1 + var2/n2
	if se2 == 0 {
		// Both groups are constant: identical means are indistinguishable,
		// different means are infinitely far apart.
		if mean1 == mean2 {
			return 0, n1 + n2 - 2, 1, nil
		}
		return math.Copysign(math.Inf(1), mean1-mean2), n1 + n2 - 2, 0, nil
	}

	tStat := (mean1 - mean2) / math.Sqrt(se2)
	df := se2 * se2 / (math.Pow(var1/n1, 2)/(n1-1) + math.Pow(var2/n2, 2)/(n2-1))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	pValue := 2 * tDist.Survival(math.Abs(tStat))

	return tStat, df, clampP(pValue), nil
}
