package core

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTemplateFilename(t *testing.T) {
	assert.Equal(t, "companies_import_template.csv", TemplateFilename(EntityCompanies, FormatCSV))
	assert.Equal(t, "companies_import_template.xlsx", TemplateFilename(EntityCompanies, FormatXLSX))
	assert.Equal(t, "activities_import_template.csv", TemplateFilename(EntityActivities, FormatCSV))
}

func TestGenerateTemplate_CSV(t *testing.T) {
	for _, et := range EntityTypes() {
		t.Run(string(et), func(t *testing.T) {
			data, err := GenerateTemplate(et, FormatCSV)
			require.NoError(t, err)

			records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
			require.NoError(t, err)
			require.Len(t, records, 2)

			cols, err := ColumnMapping(et)
			require.NoError(t, err)
			for i, c := range cols {
				assert.Equal(t, c.Label, records[0][i])
				assert.Equal(t, c.Example, records[1][i])
			}
		})
	}
}

func TestGenerateTemplate_CSVDeterministic(t *testing.T) {
	a, err := GenerateTemplate(EntityContacts, FormatCSV)
	require.NoError(t, err)
	b, err := GenerateTemplate(EntityContacts, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateTemplate_XLSX(t *testing.T) {
	data, err := GenerateTemplate(EntityCompanies, FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"companies", InstructionsSheet}, f.GetSheetList())

	rows, err := f.GetRows("companies")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Company Name (English)", rows[0][0])
	assert.Equal(t, "Acme Corporation Ltd.", rows[1][0])

	help, err := f.GetRows(InstructionsSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Column", "Required", "Description"}, help[0])
	assert.Equal(t, "Company Name (English)", help[1][0])
	assert.Equal(t, "Required", help[1][1])
	assert.Equal(t, "Optional", help[2][1])

	cols, _ := ColumnMapping(EntityCompanies)
	assert.Len(t, help, len(cols)+1)
}

func TestGenerateTemplate_XLSXParsesBack(t *testing.T) {
	data, err := GenerateTemplate(EntityContacts, FormatXLSX)
	require.NoError(t, err)

	parsed, err := ParseFile(data, TemplateFilename(EntityContacts, FormatXLSX))
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.TotalRows)

	report := ValidateParsed(parsed, EntityContacts)
	assert.Equal(t, 1, report.ValidRecords, "the example row must pass validation: %+v", report.Errors)
	assert.Empty(t, report.UnknownFields)
}

func TestGenerateTemplate_Errors(t *testing.T) {
	_, err := GenerateTemplate("deals", FormatCSV)
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = GenerateTemplate(EntityCompanies, "pdf")
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestTemplateExamplesAreValid(t *testing.T) {
	for _, et := range EntityTypes() {
		t.Run(string(et), func(t *testing.T) {
			cols, err := ColumnMapping(et)
			require.NoError(t, err)

			row := make(Row, len(cols))
			for _, c := range cols {
				row[c.Label] = c.Example
			}
			assert.Empty(t, ValidateRow(row, 1, et))
		})
	}
}
