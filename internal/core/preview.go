package core

import (
	"fmt"
	"time"
)

// Sample limits for previews.
const (
	maxPreviewRows     = 10
	maxPreviewFindings = 20
)

// PreviewResponse describes what importing a file would do, without
// creating a job.
type PreviewResponse struct {
	EntityType       EntityType        `json:"entityType"`
	Columns          []string          `json:"columns"`
	SampleRows       []Row             `json:"sampleRows"`
	TotalRecords     int               `json:"totalRecords"`
	ValidRecords     int               `json:"validRecords"`
	ErrorRecords     int               `json:"errorRecords"`
	WarningCount     int               `json:"warningCount"`
	MissingColumns   []string          `json:"missingColumns"`
	UnknownColumns   []string          `json:"unknownColumns"`
	Errors           []ValidationError `json:"errors"`
	Warnings         []ValidationError `json:"warnings"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
}

// PreviewFile parses and validates a file in memory. Only the first few rows
// and findings are returned; counts cover the whole file.
func PreviewFile(data []byte, filename string, entityType EntityType) (*PreviewResponse, error) {
	start := time.Now()

	if _, ok := Lookup(entityType); !ok {
		return nil, invalidInput("preview file", fmt.Errorf("unknown entity type %q", entityType))
	}

	parsed, err := ParseFile(data, filename)
	if err != nil {
		return nil, err
	}
	report := ValidateParsed(parsed, entityType)

	return &PreviewResponse{
		EntityType:       entityType,
		Columns:          parsed.Columns,
		SampleRows:       head(parsed.Rows, maxPreviewRows),
		TotalRecords:     report.TotalRecords,
		ValidRecords:     report.ValidRecords,
		ErrorRecords:     report.ErrorRecords,
		WarningCount:     report.WarningCount,
		MissingColumns:   nonNil(report.MissingFields),
		UnknownColumns:   nonNil(report.UnknownFields),
		Errors:           head(report.Errors, maxPreviewFindings),
		Warnings:         head(report.Warnings, maxPreviewFindings),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []T{}
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
