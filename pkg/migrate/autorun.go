package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storetrack-backend/pkg/config"
	"github.com/angelmondragon/storetrack-backend/pkg/db"
	"github.com/angelmondragon/storetrack-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations at boot, but only in dev with
// STORETRACK_AUTO_MIGRATE enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source, logg)
	if err != nil {
		return err
	}

	logg.Info(ctx, "migrate.autorun")
	return runner.Up(ctx)
}
