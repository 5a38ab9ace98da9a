package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/sellybase/importer/internal/core"
)

// ValidateAction parses and validates a local file the same way an import
// job would, and prints the summary and findings.
func ValidateAction(ctx context.Context, cmd *cli.Command) error {
	entityType, err := core.ParseEntityType(cmd.String("entity"))
	if err != nil {
		return err
	}

	path := cmd.String("file")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	parsed, err := core.ParseFile(data, filepath.Base(path))
	if err != nil {
		if core.IsUserFacing(err) {
			return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
		}
		return fmt.Errorf("parse file: %w", err)
	}
	report := core.ValidateParsed(parsed, entityType)

	w := cmd.Root().Writer
	renderSummary(w, path, entityType, report)

	limit := int(cmd.Int("max-findings"))
	renderFindings(w, "Errors", report.Errors, report.ErrorCount, limit)
	renderFindings(w, "Warnings", report.Warnings, report.WarningCount, limit)

	if cmd.Bool("strict") && report.ErrorRecords > 0 {
		return fmt.Errorf("%d of %d rows have blocking errors", report.ErrorRecords, report.TotalRecords)
	}
	return nil
}

func renderSummary(w io.Writer, path string, entityType core.EntityType, report core.FileReport) {
	fmt.Fprintf(w, "%s (%s)\n", path, entityType)

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	table.Append("Total rows", strconv.Itoa(report.TotalRecords))
	table.Append("Valid rows", strconv.Itoa(report.ValidRecords))
	table.Append("Rows with errors", strconv.Itoa(report.ErrorRecords))
	table.Append("Warnings", strconv.Itoa(report.WarningCount))
	for _, col := range report.MissingFields {
		table.Append("Missing column", col)
	}
	for _, col := range report.UnknownFields {
		table.Append("Unknown column", col)
	}
	table.Render()
}

func renderFindings(w io.Writer, title string, findings []core.ValidationError, total, limit int) {
	if len(findings) == 0 {
		return
	}
	if limit > 0 && len(findings) > limit {
		findings = findings[:limit]
	}

	fmt.Fprintf(w, "\n%s (%d)\n", title, total)
	table := tablewriter.NewWriter(w)
	table.Header("Row", "Column", "Value", "Message")
	for _, f := range findings {
		row := strconv.Itoa(f.Row)
		if f.Row == 0 {
			row = "header"
		}
		table.Append(row, f.Column, f.Value, f.Message)
	}
	table.Render()
	if len(findings) < total {
		fmt.Fprintf(w, "... %d more\n", total-len(findings))
	}
}
