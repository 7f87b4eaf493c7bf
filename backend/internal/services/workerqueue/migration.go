package workerqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// EnsureRiverTables applies River's own migrations up to the latest
// version. Run once at startup, ahead of the hand-authored migrations
// under db/migrations that own the pipeline's own tables.
func EnsureRiverTables(ctx context.Context, dbPool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	migrator, err := rivermigrate.New(riverpgxv5.New(dbPool), &rivermigrate.Config{Logger: logger})
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}

	result, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}

	if len(result.Versions) > 0 {
		logger.Info("river queue migrations applied", "versions", result.Versions)
	} else {
		logger.Info("river queue tables already up to date")
	}
	return nil
}
