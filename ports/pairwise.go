package ports

import (
	"context"

	"hmetrics/adapters/stats/engine"
	"hmetrics/domain/dataset"
)

// PairwisePort computes the pairwise test table for a group ordering
type PairwisePort interface {
	PairwiseTests(ctx context.Context, obs *dataset.ObservationSet, order []string, opts engine.PairwiseOptions) (*engine.Table, error)
}
