package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Table is the parsed upload: one header row plus data rows. Rows may
// be ragged; missing trailing cells read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

func FormatForFilename(name string) (Format, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(strings.ToLower(name), ".xlsx"):
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: only .csv and .xlsx are accepted", name)
	}
}

func ParseTable(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatCSV:
		return parseCSV(data)
	case FormatXLSX:
		return parseXLSX(data)
	default:
		return nil, fmt.Errorf("unknown table format %q", format)
	}
}

func parseCSV(data []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to read csv: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("file is empty")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

func parseXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to open spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %q: %v", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, errors.New("spreadsheet is empty")
	}
	return &Table{Header: rows[0], Rows: rows[1:]}, nil
}

// cell reads a column by mapped field, tolerating short rows.
func cell(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
