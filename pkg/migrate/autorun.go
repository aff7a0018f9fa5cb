package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/returns-engine/pkg/config"
	"github.com/angelmondragon/returns-engine/pkg/db"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/logger"
)

// MaybeRunDev migrates the schema on startup when running in dev with the
// auto-migrate flag. Postgres runs the goose migrations; sqlite falls back to
// gorm AutoMigrate because the SQL files use Postgres-only features.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if strings.EqualFold(cfg.DB.Driver, "sqlite") {
		logg.Info(ctx, "running gorm auto-migrate (sqlite dev)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded())
	if err != nil {
		return err
	}
	defer runner.Close()

	applied, err := runner.Up(ctx)
	for _, m := range applied {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     m.Version,
			"file":        m.File,
			"duration_ms": m.Millis,
		}), "migration applied")
	}
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "schema up to date")
	return nil
}
