package engine

import (
	"context"
	"fmt"

	"hmetrics/adapters/stats/senses"
	"hmetrics/domain/dataset"
	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// testColumn records which test produced a row
const testColumn = "Test"

// PairwiseOptions configures a pairwise run
type PairwiseOptions struct {
	Test    stats.TestType
	PAdjust stats.PAdjustMethod
	Schema  Schema
}

// StatsEngine computes all pairwise two-sample tests over a group ordering
type StatsEngine struct {
	lookup func(stats.TestType) (senses.TwoSampleTest, error)
}

// NewStatsEngine creates a stats engine backed by the built-in tests
func NewStatsEngine() *StatsEngine {
	return &StatsEngine{lookup: senses.ForType}
}

// PairwiseTests runs the selected test on every pair of order, in index
// order, then applies the correction across the whole family. The returned
// table names its p-value columns after opts.Schema; the corrected column
// is omitted when the correction is "none".
func (e *StatsEngine) PairwiseTests(ctx context.Context, obs *dataset.ObservationSet, order []string, opts PairwiseOptions) (*Table, error) {
	if len(order) < 2 {
		return nil, appErrors.InsufficientData(fmt.Sprintf("pairwise tests need at least two groups, got %d", len(order)))
	}
	test, err := e.lookup(opts.Test)
	if err != nil {
		return nil, err
	}
	method, err := stats.ParsePAdjust(string(opts.PAdjust))
	if err != nil {
		return nil, err
	}
	schema := opts.Schema
	if schema == "" {
		schema = SchemaV1
	}

	values := obs.GroupValues(order)
	pairs := stats.AllPairs(order)
	position := make(map[string]int, len(order))
	for i, g := range order {
		position[g] = i
	}

	results := make([]senses.TestResult, len(pairs))
	raw := make([]float64, len(pairs))
	for k, pair := range pairs {
		a, b := values[position[pair.A]], values[position[pair.B]]
		res, err := test.Compare(ctx, a, b)
		if err != nil {
			return nil, appErrors.Wrapf(err, "pair %s", pair)
		}
		results[k] = res
		raw[k] = res.PValue
	}

	corrected, err := AdjustPValues(raw, method)
	if err != nil {
		return nil, err
	}

	statCol := stats.ColU
	if test.Parametric() {
		statCol = stats.ColT
	}
	columns := []string{testColumn, stats.ColA, stats.ColB, stats.ColParametric, statCol}
	if test.Parametric() {
		columns = append(columns, stats.ColDOF)
	}
	columns = append(columns, stats.ColNA, stats.ColNB, stats.ColAlternative, schema.uncorrectedColumn())
	withCorrection := method != stats.PAdjustNone
	if withCorrection {
		columns = append(columns, schema.correctedColumn())
	}
	columns = append(columns, stats.ColPAdjust)

	table := &Table{Columns: columns, Rows: make([]Row, 0, len(pairs))}
	for k, pair := range pairs {
		row := Row{
			testColumn:                 string(test.Name()),
			stats.ColA:                 pair.A,
			stats.ColB:                 pair.B,
			stats.ColParametric:        test.Parametric(),
			statCol:                    results[k].Statistic,
			stats.ColNA:                results[k].NA,
			stats.ColNB:                results[k].NB,
			stats.ColAlternative:       "two-sided",
			schema.uncorrectedColumn(): raw[k],
			stats.ColPAdjust:           string(method),
		}
		if test.Parametric() {
			row[stats.ColDOF] = results[k].DOF
		}
		if withCorrection {
			row[schema.correctedColumn()] = corrected[k]
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
