package ports

import (
	"context"

	"hmetrics/domain/core"
	"hmetrics/domain/dataset"
)

// ObservationReaderPort loads a tidy dataset from a source
type ObservationReaderPort interface {
	ReadObservations(ctx context.Context, group, value core.FieldName) (*dataset.ObservationSet, error)
}
