package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/sellybase/importer/internal/core"
)

// TemplateAction writes a blank import template to disk.
func TemplateAction(ctx context.Context, cmd *cli.Command) error {
	entityType, err := core.ParseEntityType(cmd.String("entity"))
	if err != nil {
		return err
	}
	format, err := core.ParseTemplateFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := core.GenerateTemplate(entityType, format)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		out = core.TemplateFilename(entityType, format)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}

	fmt.Fprintf(cmd.Root().Writer, "wrote %s (%d bytes)\n", out, len(data))
	return nil
}

// ColumnsAction prints the column mapping of an entity type.
func ColumnsAction(ctx context.Context, cmd *cli.Command) error {
	entityType, err := core.ParseEntityType(cmd.String("entity"))
	if err != nil {
		return err
	}
	cols, err := core.ColumnMapping(entityType)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.Root().Writer)
	table.Header("Field", "Label", "Required", "DB Column", "Example")
	for _, c := range cols {
		required := ""
		if c.Required {
			required = "yes"
		}
		table.Append(c.Field, c.Label, required, c.DBColumn, c.Example)
	}
	table.Render()
	return nil
}
