package dataset

import (
	"fmt"
	"math"
	"sort"

	"hmetrics/domain/core"
	appErrors "hmetrics/internal/errors"
)

// Observation is one row of a tidy dataset
type Observation struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// ObservationSet is a tidy dataset of (group, value) rows together with the
// names of the columns they were read from.
type ObservationSet struct {
	GroupField   core.FieldName `json:"group_field"`
	ValueField   core.FieldName `json:"value_field"`
	Observations []Observation  `json:"observations"`
	Source       string         `json:"source,omitempty"`
}

// NewObservationSet creates an empty set for the given fields
func NewObservationSet(groupField, valueField core.FieldName) *ObservationSet {
	return &ObservationSet{GroupField: groupField, ValueField: valueField}
}

// Add appends a row
func (s *ObservationSet) Add(group string, value float64) {
	s.Observations = append(s.Observations, Observation{Group: group, Value: value})
}

// Len returns the number of rows
func (s *ObservationSet) Len() int {
	return len(s.Observations)
}

// Validate checks the set invariants: non-empty, every row has a group and
// a finite value.
func (s *ObservationSet) Validate() error {
	if s == nil || len(s.Observations) == 0 {
		return appErrors.InsufficientData("observation set is empty")
	}
	for i, o := range s.Observations {
		if o.Group == "" {
			return appErrors.InvalidInput(fmt.Sprintf("row %d has an empty %s", i, s.GroupField))
		}
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return appErrors.InvalidInput(fmt.Sprintf("row %d has a non-finite %s", i, s.ValueField))
		}
	}
	return nil
}

// RequireFields fails with a missing-field error unless the set carries the
// requested group and value columns.
func (s *ObservationSet) RequireFields(group, value core.FieldName) error {
	if s.GroupField != group {
		return appErrors.MissingField(group.String())
	}
	if s.ValueField != value {
		return appErrors.MissingField(value.String())
	}
	return nil
}

// DistinctGroups returns the distinct group labels in first-seen order
func (s *ObservationSet) DistinctGroups() []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, o := range s.Observations {
		if _, ok := seen[o.Group]; ok {
			continue
		}
		seen[o.Group] = struct{}{}
		groups = append(groups, o.Group)
	}
	return groups
}

// Values returns the values of one group in row order
func (s *ObservationSet) Values(group string) []float64 {
	var values []float64
	for _, o := range s.Observations {
		if o.Group == group {
			values = append(values, o.Value)
		}
	}
	return values
}

// GroupValues returns the values of each group in order
func (s *ObservationSet) GroupValues(order []string) [][]float64 {
	index := make(map[string]int, len(order))
	for i, g := range order {
		index[g] = i
	}
	out := make([][]float64, len(order))
	for _, o := range s.Observations {
		if i, ok := index[o.Group]; ok {
			out[i] = append(out[i], o.Value)
		}
	}
	return out
}

// ResolveOrder returns the group ordering used for plotting and testing.
// A nil or empty order yields the lexicographically sorted distinct groups.
// An explicit order must contain distinct labels that all occur in the data;
// groups missing from it are left out of the plot.
func (s *ObservationSet) ResolveOrder(order []string) ([]string, error) {
	distinct := s.DistinctGroups()
	if len(order) == 0 {
		sorted := append([]string(nil), distinct...)
		sort.Strings(sorted)
		return sorted, nil
	}

	present := make(map[string]struct{}, len(distinct))
	for _, g := range distinct {
		present[g] = struct{}{}
	}
	seen := make(map[string]struct{}, len(order))
	resolved := make([]string, 0, len(order))
	for _, g := range order {
		if _, dup := seen[g]; dup {
			return nil, appErrors.ConfigInvalid(fmt.Sprintf("order lists group %q twice", g))
		}
		if _, ok := present[g]; !ok {
			return nil, appErrors.ConfigInvalid(fmt.Sprintf("order lists group %q which is not in the data", g))
		}
		seen[g] = struct{}{}
		resolved = append(resolved, g)
	}
	return resolved, nil
}

// Subset keeps only the rows whose group appears in order
func (s *ObservationSet) Subset(order []string) *ObservationSet {
	keep := make(map[string]struct{}, len(order))
	for _, g := range order {
		keep[g] = struct{}{}
	}
	out := &ObservationSet{GroupField: s.GroupField, ValueField: s.ValueField, Source: s.Source}
	for _, o := range s.Observations {
		if _, ok := keep[o.Group]; ok {
			out.Observations = append(out.Observations, o)
		}
	}
	return out
}
