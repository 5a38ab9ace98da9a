package core

// validation.go checks parsed rows against an entity template.
//
// Validation happens at three levels:
//  1. Field validators: shape checks for a single value (email, URL, ...).
//     An empty value is always valid; required-ness is checked separately.
//  2. Row validation: required fields plus entity-specific format rules.
//  3. File validation: every row of a ParsedData, aggregated into counts.
//
// Findings are data, not errors. Each carries a severity: "error" blocks the
// row from being imported, "warning" is informational.

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxStoredFindings caps how many errors (and, separately, warnings) are kept
// on a job. Counts stay exact; only the lists are truncated.
var MaxStoredFindings = 1000

var (
	emailRegex     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneDigits    = regexp.MustCompile(`\d{7,}`)
	phoneSeparator = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "", "+", "")
)

// ValidateEmail accepts local@domain.tld with no whitespace.
func ValidateEmail(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || emailRegex.MatchString(v)
}

// ValidateURL accepts well-formed absolute URLs.
func ValidateURL(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

// ValidatePhone accepts values with at least 7 consecutive digits once
// common separators (spaces, dashes, dots, parentheses, plus) are removed.
func ValidatePhone(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || phoneDigits.MatchString(phoneSeparator.Replace(v))
}

// ValidateDate accepts any value ParseDate understands.
func ValidateDate(v string) bool {
	if strings.TrimSpace(v) == "" {
		return true
	}
	_, ok := ParseDate(v)
	return ok
}

// ValidateNumeric accepts values whose entire trimmed text is a finite number.
func ValidateNumeric(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// formatRule is one entity-specific format check.
type formatRule struct {
	Field    string
	Check    func(string) bool
	Severity Severity
	Message  string
}

var formatRules = map[EntityType][]formatRule{
	EntityCompanies: {
		{Field: "email", Check: ValidateEmail, Severity: SeverityError, Message: "Invalid email format"},
		{Field: "website", Check: ValidateURL, Severity: SeverityWarning, Message: "Invalid website URL format"},
		{Field: "linkedinUrl", Check: ValidateURL, Severity: SeverityWarning, Message: "Invalid LinkedIn URL format"},
		{Field: "phone", Check: ValidatePhone, Severity: SeverityWarning, Message: "Phone number should contain at least 7 digits"},
		{Field: "employeeCount", Check: ValidateNumeric, Severity: SeverityError, Message: "Employee count must be a number"},
		{Field: "annualRevenue", Check: ValidateNumeric, Severity: SeverityError, Message: "Annual revenue must be a number"},
	},
	EntityContacts: {
		{Field: "email", Check: ValidateEmail, Severity: SeverityError, Message: "Invalid email format"},
		{Field: "phone", Check: ValidatePhone, Severity: SeverityWarning, Message: "Phone number should contain at least 7 digits"},
	},
	EntityActivities: {
		{Field: "date", Check: ValidateDate, Severity: SeverityError, Message: "Invalid date format"},
	},
}

// lookup reads a column's value from a row by label, then by field name.
// Header names match without regard to case.
func lookup(row Row, col TemplateColumn) string {
	if v := strings.TrimSpace(cell(row, col.Label)); v != "" {
		return v
	}
	return strings.TrimSpace(cell(row, col.Field))
}

// cell returns the value stored under name, or under a header that differs
// from name only in case.
func cell(row Row, name string) string {
	if v, ok := row[name]; ok {
		return v
	}
	for header, v := range row {
		if strings.EqualFold(header, name) {
			return v
		}
	}
	return ""
}

func columnByField(cols []TemplateColumn, field string) (TemplateColumn, bool) {
	for _, c := range cols {
		if c.Field == field {
			return c, true
		}
	}
	return TemplateColumn{}, false
}

// ValidateRequiredFields reports one error per required column that is empty
// or missing in the row.
func ValidateRequiredFields(row Row, rowIndex int, entityType EntityType) []ValidationError {
	var findings []ValidationError
	for _, col := range mustColumns(entityType) {
		if !col.Required {
			continue
		}
		if lookup(row, col) == "" {
			findings = append(findings, ValidationError{
				Row:      rowIndex,
				Column:   col.Label,
				Message:  fmt.Sprintf("%s is required", col.Label),
				Severity: SeverityError,
			})
		}
	}
	return findings
}

// ValidateRow runs the required-field check followed by the entity's format rules.
func ValidateRow(row Row, rowIndex int, entityType EntityType) []ValidationError {
	findings := ValidateRequiredFields(row, rowIndex, entityType)

	cols := mustColumns(entityType)
	for _, rule := range formatRules[entityType] {
		col, ok := columnByField(cols, rule.Field)
		if !ok {
			continue
		}
		value := lookup(row, col)
		if value == "" || rule.Check(value) {
			continue
		}
		findings = append(findings, ValidationError{
			Row:      rowIndex,
			Column:   col.Label,
			Value:    value,
			Message:  rule.Message,
			Severity: rule.Severity,
		})
	}

	return findings
}

// HasErrors reports whether any finding is error-severity.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// MapRowToEntity copies every non-empty column value into an Entity keyed by
// field name. Empty values are omitted.
func MapRowToEntity(row Row, entityType EntityType) Entity {
	entity := make(Entity)
	for _, col := range mustColumns(entityType) {
		if v := lookup(row, col); v != "" {
			entity[col.Field] = v
		}
	}
	return entity
}

// FileReport is the aggregated result of validating a whole file.
type FileReport struct {
	TotalRecords  int
	ValidRecords  int
	ErrorRecords  int
	ErrorCount    int
	WarningCount  int
	Errors        []ValidationError
	Warnings      []ValidationError
	MissingFields []string // required labels absent from the header
	UnknownFields []string // header columns matching no template column
	Truncated     bool
}

// ValidateParsed validates every row of a parsed file.
func ValidateParsed(parsed *ParsedData, entityType EntityType) FileReport {
	report := FileReport{TotalRecords: parsed.TotalRows}
	cols := mustColumns(entityType)

	present := make(map[string]bool, len(parsed.Columns))
	for _, c := range parsed.Columns {
		present[strings.ToLower(c)] = true
	}
	known := make(map[string]bool, len(cols)*2)
	for _, col := range cols {
		known[strings.ToLower(col.Label)] = true
		known[strings.ToLower(col.Field)] = true
		if col.Required && !present[strings.ToLower(col.Label)] && !present[strings.ToLower(col.Field)] {
			report.MissingFields = append(report.MissingFields, col.Label)
		}
	}
	for _, c := range parsed.Columns {
		if c != "" && !known[strings.ToLower(c)] {
			report.UnknownFields = append(report.UnknownFields, c)
			report.addFinding(ValidationError{
				Row:      0,
				Column:   c,
				Message:  fmt.Sprintf("Column %q is not part of the %s template and will be ignored", c, entityType),
				Severity: SeverityWarning,
			})
		}
	}

	for i, row := range parsed.Rows {
		findings := ValidateRow(row, i+1, entityType)
		if HasErrors(findings) {
			report.ErrorRecords++
		}
		for _, f := range findings {
			report.addFinding(f)
		}
	}
	report.ValidRecords = report.TotalRecords - report.ErrorRecords

	return report
}

func (r *FileReport) addFinding(f ValidationError) {
	if f.Severity == SeverityError {
		r.ErrorCount++
		if len(r.Errors) < MaxStoredFindings {
			r.Errors = append(r.Errors, f)
			return
		}
	} else {
		r.WarningCount++
		if len(r.Warnings) < MaxStoredFindings {
			r.Warnings = append(r.Warnings, f)
			return
		}
	}
	r.Truncated = true
}

// Outcome converts the report into what a validation pass stores on a job.
func (r FileReport) Outcome() ValidationOutcome {
	meta := map[string]any{
		"errorCount":   r.ErrorCount,
		"warningCount": r.WarningCount,
	}
	if len(r.MissingFields) > 0 {
		meta["missingColumns"] = r.MissingFields
	}
	if len(r.UnknownFields) > 0 {
		meta["unknownColumns"] = r.UnknownFields
	}
	if r.Truncated {
		meta["findingsTruncated"] = true
	}
	return ValidationOutcome{
		TotalRecords: r.TotalRecords,
		ValidRecords: r.ValidRecords,
		ErrorRecords: r.ErrorRecords,
		Errors:       r.Errors,
		Warnings:     r.Warnings,
		Metadata:     meta,
	}
}
