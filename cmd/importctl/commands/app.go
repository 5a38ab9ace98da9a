// Package commands implements the importctl subcommands. They work on local
// files and need no running server; only migrate touches a database.
package commands

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/sellybase/importer/internal/core"
)

// NewApp builds the importctl command tree.
func NewApp() *cli.Command {
	return &cli.Command{
		Name:  "importctl",
		Usage: "work with bulk import templates and files offline",
		Commands: []*cli.Command{
			{
				Name:  "template",
				Usage: "write a blank import template",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "template format (csv or xlsx)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "output path (default: <entity>_import_template.<format>)",
					},
				},
				Action: TemplateAction,
			},
			{
				Name:   "columns",
				Usage:  "list the importable columns of an entity type",
				Flags:  []cli.Flag{entityFlag()},
				Action: ColumnsAction,
			},
			{
				Name:  "validate",
				Usage: "validate a CSV or XLSX file without importing it",
				Flags: []cli.Flag{
					entityFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "file to validate",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-findings",
						Usage: "findings to print per severity",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "fail when any row has blocking errors",
					},
				},
				Action: ValidateAction,
			},
			{
				Name:  "migrate",
				Usage: "apply database schema migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "environment file to load",
						Value: ".env",
					},
				},
				Action: MigrateAction,
			},
		},
	}
}

// entityFlag returns a new --entity flag for each command.
func entityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "entity",
		Aliases:  []string{"e"},
		Usage:    "entity type (" + entityTypeList() + ")",
		Required: true,
	}
}

func entityTypeList() string {
	names := make([]string, 0, len(core.EntityTypes()))
	for _, et := range core.EntityTypes() {
		names = append(names, string(et))
	}
	return strings.Join(names, ", ")
}
