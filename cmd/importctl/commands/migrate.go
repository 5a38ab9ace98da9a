package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/sellybase/importer/internal/config"
	"github.com/sellybase/importer/internal/store/postgres"
)

// MigrateAction applies pending schema migrations to DATABASE_URL.
func MigrateAction(ctx context.Context, cmd *cli.Command) error {
	if err := godotenv.Load(cmd.String("env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Database.SkipDatabase {
		return errors.New("SKIP_DATABASE is set; nothing to migrate")
	}

	if err := postgres.Migrate(cfg.Database.URL); err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, "migrations applied")
	return nil
}
