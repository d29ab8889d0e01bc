package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/weather-etl/config"
	"github.com/icodeforyou/weather-etl/database"
)

// NewMaintenanceTask backs up the database and trims old backups and log
// entries. Weather rows are never purged.
func NewMaintenanceTask(ctx context.Context, logger *slog.Logger, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
		defer cancel()

		db, err := database.Open(ctx, cnfg.Database.Path)
		if err != nil {
			logger.Error("maintenance error, opening database", slog.Any("error", err))
			return
		}
		defer db.Close()
		db.SetLogger(logger)

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("maintenance error", slog.Any("error", err))
			return
		}

		if _, err := db.Backup(ctx); err != nil {
			logger.Error("database backup error", slog.Any("error", err))
		}

		if _, err := db.PurgeBackups(ctx, cnfg.Database.GetBackupRetentionDays()); err != nil {
			logger.Error("backup maintenance error", slog.Any("error", err))
		}

		if err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries()); err != nil {
			logger.Error("log maintenance error", slog.Any("error", err))
		}

		logger.Info("maintenance task done")
	}
}
