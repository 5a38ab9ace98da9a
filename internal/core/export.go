package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
)

// FindingsFilename returns the download name for a job's findings export.
func FindingsFilename(job *ImportJob) string {
	return fmt.Sprintf("import_%s_findings.csv", job.ID)
}

// ExportFindings renders a job's stored errors and warnings as CSV, ordered
// by row. Header-level findings (row 0) come first.
func (s *Service) ExportFindings(ctx context.Context, id, orgID string) ([]byte, *ImportJob, error) {
	job, err := s.GetImportJob(ctx, id, orgID)
	if err != nil {
		return nil, nil, err
	}

	findings := make([]ValidationError, 0, len(job.Errors)+len(job.Warnings))
	findings = append(findings, job.Errors...)
	findings = append(findings, job.Warnings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Row < findings[j].Row
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Row", "Column", "Value", "Severity", "Message"})
	for _, f := range findings {
		_ = w.Write([]string{strconv.Itoa(f.Row), f.Column, f.Value, string(f.Severity), f.Message})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, nil, classify("export findings", fmt.Errorf("write findings csv: %w", err))
	}

	return buf.Bytes(), job, nil
}
