package excel

// RawRowData represents one data row as header -> cell text
type RawRowData map[string]string

// TableData is a sheet or CSV file read as text
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
	Source  string
}

// HasColumn reports whether the header row contains name
func (t *TableData) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}
