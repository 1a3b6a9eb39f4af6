package excel

import "hmetrics/internal"

// ReaderConfig holds configuration for tabular data sources
type ReaderConfig struct {
	// Sheet selects the worksheet of an xlsx workbook; empty means the first
	Sheet string `json:"sheet" yaml:"sheet"`
	// Comma is the CSV field delimiter
	Comma rune `json:"comma" yaml:"comma"`
	// SkipMissing drops rows whose group or value cell is empty instead of
	// failing
	SkipMissing bool `json:"skip_missing" yaml:"skip_missing"`

	Logger *internal.Logger `json:"-" yaml:"-"`
}

// DefaultReaderConfig reads the first sheet of comma separated files and
// skips incomplete rows, the way a dataframe drops NaN before plotting
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{Comma: ',', SkipMissing: true}
}
