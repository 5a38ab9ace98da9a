package core

// parser.go turns uploaded CSV and XLSX files into ParsedData.
//
// Both formats end up in the same shape: the first non-blank row is the
// header, every later non-blank row becomes a Row keyed by header. Cells
// missing from short rows default to the empty string.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseFile dispatches on the filename extension and parses the file.
// All failures are input errors carrying a user-facing message.
func ParseFile(data []byte, filename string) (*ParsedData, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return parseCSV(data)
	case ".xlsx":
		return parseSpreadsheet(data)
	default:
		return nil, invalidInput("parse file", unsupportedFormat(ext))
	}
}

func unsupportedFormat(ext string) error {
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Errorf("%w: %s (expected .csv or .xlsx)", ErrUnsupportedFormat, ext)
}

// SupportedExtension reports whether ParseFile accepts the filename.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

func parseCSV(data []byte) (*ParsedData, error) {
	data = bytes.TrimPrefix(data, byteOrderMark)
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, invalidInput("parse csv", fmt.Errorf("invalid csv: line %d, column %d: %v", perr.Line, perr.Column, perr.Err))
		}
		return nil, invalidInput("parse csv", fmt.Errorf("invalid csv: %w", err))
	}

	parsed, err := buildParsedData(records)
	if err != nil {
		return nil, invalidInput("parse csv", err)
	}
	return parsed, nil
}

func parseSpreadsheet(data []byte) (*ParsedData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, invalidInput("parse spreadsheet", fmt.Errorf("invalid spreadsheet: %w", err))
	}
	defer func() { _ = f.Close() }()

	sheet := ""
	for _, name := range f.GetSheetList() {
		if !strings.EqualFold(name, InstructionsSheet) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, invalidInput("parse spreadsheet", errors.New("spreadsheet has no data sheet"))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, invalidInput("parse spreadsheet", fmt.Errorf("read sheet %q: %w", sheet, err))
	}

	parsed, err := buildParsedData(rows)
	if err != nil {
		return nil, invalidInput("parse spreadsheet", fmt.Errorf("sheet %q: %w", sheet, err))
	}
	return parsed, nil
}

// buildParsedData converts raw records into ParsedData.
func buildParsedData(records [][]string) (*ParsedData, error) {
	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("%w: no header row found", ErrEmptyFile)
	}

	columns := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		columns[i] = CleanCell(h)
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for _, rec := range records[headerIdx+1:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &ParsedData{
		Columns:   columns,
		Rows:      rows,
		TotalRows: len(rows),
	}, nil
}
