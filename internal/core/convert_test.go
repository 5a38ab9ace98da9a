package core

import (
	"bytes"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
		want   string // YYYY-MM-DD
	}{
		{name: "ISO", input: "2024-01-15", wantOK: true, want: "2024-01-15"},
		{name: "ISO with slashes", input: "2024/01/15", wantOK: true, want: "2024-01-15"},
		{name: "US slashes", input: "01/15/2024", wantOK: true, want: "2024-01-15"},
		{name: "US without padding", input: "1/5/2024", wantOK: true, want: "2024-01-05"},
		{name: "dashes", input: "1-15-2024", wantOK: true, want: "2024-01-15"},
		{name: "short month name", input: "Jan 15, 2024", wantOK: true, want: "2024-01-15"},
		{name: "long month name", input: "January 15, 2024", wantOK: true, want: "2024-01-15"},
		{name: "day first with month name", input: "15 Jan 2024", wantOK: true, want: "2024-01-15"},
		{name: "compact", input: "20240115", wantOK: true, want: "2024-01-15"},
		{name: "RFC3339", input: "2024-01-15T10:30:00Z", wantOK: true, want: "2024-01-15"},
		{name: "datetime", input: "2024-01-15 10:30:00", wantOK: true, want: "2024-01-15"},
		{name: "surrounding whitespace", input: "  2024-01-15  ", wantOK: true, want: "2024-01-15"},

		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: "   ", wantOK: false},
		{name: "not a date", input: "not-a-date", wantOK: false},
		{name: "invalid month", input: "2024-13-01", wantOK: false},
		{name: "invalid day", input: "2024-02-30", wantOK: false},
		{name: "number only", input: "12345", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()
	TwoDigitYearPivot = 20

	tests := []struct {
		name     string
		input    string
		wantYear int
	}{
		{name: "recent year", input: "01/15/25", wantYear: 2025},
		{name: "near future within pivot", input: "01/15/30", wantYear: 2030},
		{name: "late nineties", input: "01/15/99", wantYear: 1999},
		{name: "eighties", input: "01/15/85", wantYear: 1985},
		{name: "dash format", input: "1-15-99", wantYear: 1999},
		{name: "dot format", input: "01.15.99", wantYear: 1999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if !ok {
				t.Fatalf("ParseDate(%q) failed", tt.input)
			}
			if got.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q).Year = %d, want %d (pivot year: %d)",
					tt.input, got.Year(), tt.wantYear, time.Now().Year()+TwoDigitYearPivot)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "Email", want: "Email"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  Email  ", want: "Email"},
		{name: "Excel formula with quotes", input: `="Phone"`, want: "Phone"},
		{name: "bare equals sign", input: "=Industry", want: "Industry"},
		{name: "double quotes removed", input: `"Company Name (English)"`, want: "Company Name (English)"},
		{name: "single quotes removed", input: "'Province'", want: "Province"},
		{name: "whitespace and quotes", input: `  "Website"  `, want: "Website"},
		{name: "only quotes", input: `""`, want: ""},
		{name: "inner parentheses kept", input: "Company Name (Thai)", want: "Company Name (Thai)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// sanitizeUTF8 Tests
// ----------------------------------------------------------------------------

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{name: "valid UTF-8 unchanged", input: []byte("hello world"), want: []byte("hello world")},
		{name: "empty input", input: []byte{}, want: []byte{}},
		{name: "thai preserved", input: []byte("บริษัท"), want: []byte("บริษัท")},
		{name: "invalid byte replaced", input: []byte{0x80}, want: []byte("\uFFFD")},
		{name: "truncated multibyte sequence", input: []byte{0xc3}, want: []byte("\uFFFD")},
		{name: "mixed valid and invalid", input: []byte("hello\x80world"), want: []byte("hello\uFFFDworld")},
		{name: "Windows-1252 smart quotes", input: []byte("hello\x93world\x94"), want: []byte("hello\uFFFDworld\uFFFD")},
		{name: "Latin-1 high byte", input: []byte("caf\xe9"), want: []byte("caf\uFFFD")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeUTF8(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("sanitizeUTF8(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// isEmptyRow Tests
// ----------------------------------------------------------------------------

func TestIsEmptyRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{name: "nil row", row: nil, want: true},
		{name: "no cells", row: []string{}, want: true},
		{name: "blank cells", row: []string{"", "", ""}, want: true},
		{name: "whitespace cells", row: []string{" ", "\t", "  "}, want: true},
		{name: "one value", row: []string{"", "x", ""}, want: false},
		{name: "all values", row: []string{"a", "b"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmptyRow(tt.row); got != tt.want {
				t.Errorf("isEmptyRow(%q) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}
