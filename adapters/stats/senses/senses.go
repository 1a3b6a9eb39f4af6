package senses

import (
	"context"
	"fmt"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// TestResult is the output of a single two-sample test
type TestResult struct {
	TestName  stats.TestType         `json:"test_name"`
	Statistic float64                `json:"statistic"`
	PValue    float64                `json:"p_value"` // two-sided
	DOF       float64                `json:"dof,omitempty"`
	NA        int                    `json:"n_a"`
	NB        int                    `json:"n_b"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// TwoSampleTest compares the distributions of two independent samples
type TwoSampleTest interface {
	Name() stats.TestType
	Description() string
	Parametric() bool
	Compare(ctx context.Context, a, b []float64) (TestResult, error)
}

// MinSampleSize is the smallest per-group sample any test accepts
const MinSampleSize = 2

// ForType returns the test implementation for a test type
func ForType(t stats.TestType) (TwoSampleTest, error) {
	switch t {
	case stats.TestMannWhitney:
		return NewMannWhitneySense(), nil
	case stats.TestWelch:
		return NewWelchTTestSense(), nil
	default:
		return nil, appErrors.ConfigInvalid(fmt.Sprintf("unknown test %q", t))
	}
}

func checkSizes(name stats.TestType, a, b []float64) error {
	if len(a) < MinSampleSize || len(b) < MinSampleSize {
		return appErrors.InsufficientData(fmt.Sprintf(
			"%s needs at least %d observations per group, got %d and %d",
			name, MinSampleSize, len(a), len(b)))
	}
	return nil
}

func clampP(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
