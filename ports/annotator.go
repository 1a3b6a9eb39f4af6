package ports

import (
	"hmetrics/adapters/render"
	"hmetrics/domain/stats"
)

// AnnotatorPort draws significance markers onto an axes. Available is a
// capability check made once per call; a failing check means the plot is
// rendered without markers.
type AnnotatorPort interface {
	Available() error
	// Label renders p in format (star or simple); "" is the annotator default
	Label(p float64, format string) string
	Annotate(ax *render.Axes, anns []stats.Annotation) error
}
