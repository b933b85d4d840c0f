package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date when running in dev with
// auto-migrate enabled. Sqlite builds the schema from the models; postgres
// applies the embedded SQL migrations.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "auto-migrating sqlite schema (dev auto-run)")
		if err := AutoMigrateModels(client.DB()); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	migrator, err := NewMigrator(sqlDB, source, logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := migrator.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}
