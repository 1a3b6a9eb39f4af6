package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"hmetrics/domain/core"
	"hmetrics/domain/dataset"
	"hmetrics/internal"
	appErrors "hmetrics/internal/errors"
)

// File types understood by the reader
const (
	FileTypeCSV  = "csv"
	FileTypeXLSX = "xlsx"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string
	config   ReaderConfig
	logger   *internal.Logger
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string, config ReaderConfig) *DataReader {
	logger := config.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: FileTypeOf(filePath), config: config, logger: logger}
}

// FileTypeOf maps a file name to csv or xlsx. Anything that is not .csv or
// .tsv is treated as a workbook.
func FileTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return FileTypeCSV
	default:
		return FileTypeXLSX
	}
}

// ReadData reads the whole file as text
func (r *DataReader) ReadData(ctx context.Context) (*TableData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] reading %s file: %s", r.fileType, r.filePath)

	f, err := os.Open(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.InvalidInput(fmt.Sprintf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath))
		}
		return nil, appErrors.Wrapf(err, "open %s", r.filePath)
	}
	defer f.Close()

	config := r.config
	if config.Comma == 0 && strings.EqualFold(filepath.Ext(r.filePath), ".tsv") {
		config.Comma = '\t'
	}
	data, err := ReadTable(f, r.fileType, config)
	if err != nil {
		return nil, err
	}
	data.Source = r.filePath
	return data, nil
}

// ReadObservations implements ports.ObservationReaderPort
func (r *DataReader) ReadObservations(ctx context.Context, group, value core.FieldName) (*dataset.ObservationSet, error) {
	data, err := r.ReadData(ctx)
	if err != nil {
		return nil, err
	}
	return data.Observations(group, value, r.config.SkipMissing, r.logger)
}

// ReadTable reads csv or xlsx content from src
func ReadTable(src io.Reader, fileType string, config ReaderConfig) (*TableData, error) {
	start := time.Now()
	var rows [][]string
	var err error
	switch fileType {
	case FileTypeCSV:
		rows, err = readCSVRows(src, config.Comma)
	case FileTypeXLSX:
		rows, err = readExcelRows(src, config.Sheet)
	default:
		return nil, appErrors.ConfigInvalid(fmt.Sprintf("unsupported file type: %s", fileType))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 1 {
		return nil, appErrors.InsufficientData(fmt.Sprintf("%s input has no header row", strings.ToUpper(fileType)))
	}

	data := processRows(rows)
	logger := config.Logger
	if logger == nil {
		logger = internal.DefaultLogger
	}
	logger.Debug("[DataReader] %s processed in %s (%d columns, %d rows)",
		strings.ToUpper(fileType), time.Since(start), len(data.Headers), len(data.Rows))
	return data, nil
}

func readExcelRows(src io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, appErrors.WithCode(appErrors.CodeInvalidInput, fmt.Errorf("failed to open Excel workbook: %w", err))
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, appErrors.InsufficientData("workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, appErrors.ConfigInvalid(fmt.Sprintf("sheet %q not found", sheet))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, appErrors.Wrapf(err, "failed to read sheet %s", sheet)
	}
	return rows, nil
}

func readCSVRows(src io.Reader, comma rune) ([][]string, error) {
	reader := csv.NewReader(src)
	if comma != 0 {
		reader.Comma = comma
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.WithCode(appErrors.CodeInvalidInput, fmt.Errorf("failed to read CSV: %w", err))
	}
	return rows, nil
}

// processRows converts raw string rows into TableData
func processRows(rows [][]string) *TableData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}
	return &TableData{Headers: headers, Rows: dataRows}
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Observations extracts the (group, value) pairs of two columns. Missing
// columns fail with MISSING_FIELD; a non-numeric value fails with
// INVALID_INPUT. Rows with an empty group or value are dropped when
// skipMissing is set.
func (t *TableData) Observations(group, value core.FieldName, skipMissing bool, logger *internal.Logger) (*dataset.ObservationSet, error) {
	if !t.HasColumn(group.String()) {
		return nil, appErrors.MissingField(group.String())
	}
	if !t.HasColumn(value.String()) {
		return nil, appErrors.MissingField(value.String())
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	obs := dataset.NewObservationSet(group, value)
	obs.Source = t.Source
	skipped := 0
	for i, row := range t.Rows {
		g, raw := row[group.String()], row[value.String()]
		if g == "" || isMissing(raw) {
			if skipMissing {
				skipped++
				continue
			}
			return nil, appErrors.InvalidInput(fmt.Sprintf("row %d: empty %s or %s", i+2, group, value))
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, appErrors.InvalidInput(fmt.Sprintf("row %d: %s value %q is not numeric", i+2, value, raw))
		}
		obs.Add(g, v)
	}
	if skipped > 0 {
		logger.Info("[DataReader] dropped %d rows with missing %s or %s", skipped, group, value)
	}
	return obs, nil
}

func isMissing(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "na", "nan", "null", "n/a":
		return true
	}
	return false
}

// ReadBytes parses an in-memory upload
func ReadBytes(content []byte, fileType string, config ReaderConfig) (*TableData, error) {
	return ReadTable(bytes.NewReader(content), fileType, config)
}
