package engine

import (
	"fmt"
	"math"
	"strings"

	"hmetrics/domain/stats"
	appErrors "hmetrics/internal/errors"
)

// Schema selects the column naming scheme of the result table
type Schema string

const (
	// SchemaV1 names p-value columns "p-unc" / "p-corr"
	SchemaV1 Schema = "v1"
	// SchemaV2 names p-value columns "pval-unc" / "pval-corr"
	SchemaV2 Schema = "v2"
)

// ParseSchema validates a schema name
func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(strings.TrimSpace(s))) {
	case SchemaV1, "":
		return SchemaV1, nil
	case SchemaV2:
		return SchemaV2, nil
	default:
		return "", appErrors.ConfigInvalid(fmt.Sprintf("unknown result schema %q", s))
	}
}

func (s Schema) uncorrectedColumn() string {
	if s == SchemaV2 {
		return stats.ColPValUnc
	}
	return stats.ColPUnc
}

func (s Schema) correctedColumn() string {
	if s == SchemaV2 {
		return stats.ColPValCorr
	}
	return stats.ColPCorr
}

// Row is one record of a Table
type Row map[string]interface{}

// Table is the column-named output of the pairwise engine
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether name is a column of the table
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// String returns the cell as a string
func (r Row) String(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

// Float returns the cell as a float64, NaN when absent or non-numeric
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return math.NaN()
	}
}

// Int returns the cell as an int, 0 when absent
func (r Row) Int(col string) int {
	if v, ok := r[col].(int); ok {
		return v
	}
	return 0
}

// Normalize reads the table into one PairResult per pair of order. The
// significance p-value is taken from the first column of
// stats.PValueFallback present in the table. Pairs absent from the table
// get NaN p-values.
func Normalize(t *Table, order []string, alpha float64) ([]stats.PairResult, error) {
	pcol, err := stats.PValueColumn(t.Columns, stats.PValueFallback)
	if err != nil {
		return nil, err
	}
	rawCol, err := stats.PValueColumn(t.Columns, stats.RawPValueFallback)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(order))
	for i, g := range order {
		index[g] = i
	}

	lookup := make(map[stats.PairKey]Row, len(t.Rows))
	for _, row := range t.Rows {
		a, b := row.String(stats.ColA), row.String(stats.ColB)
		ia, okA := index[a]
		ib, okB := index[b]
		if !okA || !okB {
			continue
		}
		if ia > ib {
			a, b = b, a
		}
		lookup[stats.PairKey{A: a, B: b}] = row
	}

	pairs := stats.AllPairs(order)
	results := make([]stats.PairResult, 0, len(pairs))
	for _, key := range pairs {
		res := stats.PairResult{
			PairKey:         key,
			Statistic:       math.NaN(),
			PValueRaw:       math.NaN(),
			PValueCorrected: math.NaN(),
		}
		if row, ok := lookup[key]; ok {
			res.Test = stats.TestType(row.String(testColumn))
			res.Statistic = statistic(row)
			res.PValueRaw = row.Float(rawCol)
			res.PValueCorrected = row.Float(pcol)
			res.NA, res.NB = row.Int(stats.ColNA), row.Int(stats.ColNB)
			if row.String(stats.ColA) != key.A {
				res.NA, res.NB = res.NB, res.NA
			}
			res.Significant = res.PValueCorrected < alpha
		}
		results = append(results, res)
	}
	return results, nil
}

func statistic(row Row) float64 {
	if v := row.Float(stats.ColT); !math.IsNaN(v) {
		return v
	}
	return row.Float(stats.ColU)
}
