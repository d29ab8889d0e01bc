package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/icodeforyou/weather-etl/database"
	"github.com/icodeforyou/weather-etl/types"
)

var ErrNothingToLoad = errors.New("no data to load")

type RecordLoader interface {
	Load(ctx context.Context, rec types.WeatherRecord) error
}

// Loader holds no connection between loads, each record gets its own.
type Loader struct {
	logger *slog.Logger
	path   string
}

func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{logger: logger, path: path}
}

// Load opens the database, creates missing tables, appends the record and
// closes the database again, also when something failed on the way.
func (l *Loader) Load(ctx context.Context, rec types.WeatherRecord) error {
	if rec.IsZero() {
		l.logger.Info("no data to load...")
		return ErrNothingToLoad
	}

	db, err := database.Open(ctx, l.path)
	if err != nil {
		return fmt.Errorf("error loading data into the database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.logger.Warn("failed to close database", slog.String("path", l.path), slog.Any("error", err))
			return
		}
		l.logger.Debug("database connection closed", slog.String("path", l.path))
	}()
	db.SetLogger(l.logger.With(slog.String("module", "database")))

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("error loading data into the database: %w", err)
	}

	id, err := db.SaveWeatherRecord(ctx, rec)
	if err != nil {
		return fmt.Errorf("error loading data into the database: %w", err)
	}

	l.logger.Info("successfully loaded the data into the database",
		slog.String("city", rec.City),
		slog.Int64("id", id),
		slog.String("path", l.path))
	return nil
}
