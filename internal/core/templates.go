package core

// templates.go renders downloadable import templates.
//
// A CSV template is two lines: column labels and one example row. An XLSX
// template has a sheet named after the entity type with the same two rows,
// followed by an "Instructions" sheet describing each column.

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// InstructionsSheet is the name of the help sheet in XLSX templates. The
// parser skips it when reading uploads.
const InstructionsSheet = "Instructions"

// GenerateTemplate renders the template for an entity type in the given format.
func GenerateTemplate(entityType EntityType, format TemplateFormat) ([]byte, error) {
	cols, err := ColumnMapping(entityType)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return generateCSVTemplate(cols)
	case FormatXLSX:
		return generateXLSXTemplate(entityType, cols)
	default:
		return nil, invalidInput("generate template", fmt.Errorf("unknown template format %q", format))
	}
}

// TemplateFilename returns the download filename for a template.
func TemplateFilename(entityType EntityType, format TemplateFormat) string {
	return fmt.Sprintf("%s_import_template.%s", entityType, format)
}

func generateCSVTemplate(cols []TemplateColumn) ([]byte, error) {
	labels := make([]string, len(cols))
	examples := make([]string, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
		examples[i] = c.Example
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll([][]string{labels, examples}); err != nil {
		return nil, fmt.Errorf("write csv template: %w", err)
	}
	return buf.Bytes(), nil
}

func generateXLSXTemplate(entityType EntityType, cols []TemplateColumn) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := string(entityType)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("name data sheet: %w", err)
	}

	labels := make([]any, len(cols))
	examples := make([]any, len(cols))
	for i, c := range cols {
		labels[i] = c.Label
		examples[i] = c.Example
	}
	if err := f.SetSheetRow(sheet, "A1", &labels); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &examples); err != nil {
		return nil, fmt.Errorf("write example row: %w", err)
	}

	if _, err := f.NewSheet(InstructionsSheet); err != nil {
		return nil, fmt.Errorf("create instructions sheet: %w", err)
	}
	header := []any{"Column", "Required", "Description"}
	if err := f.SetSheetRow(InstructionsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write instructions header: %w", err)
	}
	for i, c := range cols {
		required := "Optional"
		if c.Required {
			required = "Required"
		}
		row := []any{c.Label, required, c.Description}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("instructions cell: %w", err)
		}
		if err := f.SetSheetRow(InstructionsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write instructions row: %w", err)
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx template: %w", err)
	}
	return buf.Bytes(), nil
}
