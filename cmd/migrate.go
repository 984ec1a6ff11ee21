package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-summaries/internal/storage/postgres"
)

type migrator interface {
	Migrate(ctx context.Context) error
	Close()
}

// openMigrator connects to the summaries database, replaced in tests.
var openMigrator = func(ctx context.Context, dsn string) (migrator, error) {
	return postgres.NewSummaryStore(ctx, postgres.Config{DSN: dsn})
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the summaries table if it does not exist",
		RunE:  runMigrateCommand,
	}
}

func runMigrateCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	if rt.cfg.DatabaseURL == "" {
		return errors.New("database_url must be set to run migrations")
	}

	store, err := openMigrator(cmd.Context(), rt.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.logger.Info("Migration complete.", zap.String("table", "summaries"))
	return nil
}
