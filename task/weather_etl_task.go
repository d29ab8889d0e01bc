package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/icodeforyou/weather-etl/config"
	"github.com/icodeforyou/weather-etl/etl"
	"github.com/icodeforyou/weather-etl/types"
)

// Upper bound for one run, each city is a request plus a small insert.
const perCityTimeout = 30 * time.Second

// NewWeatherEtlTask returns the scheduled run. Only one run writes at a time,
// a call while another run is in progress is skipped.
func NewWeatherEtlTask(
	ctx context.Context,
	logger *slog.Logger,
	dbConfig config.AppConfigDatabase,
	provider types.WeatherProvider,
	cities func() []string,
	opts ...etl.PipelineOption,
) func() {
	var running sync.Mutex
	return func() {
		if !running.TryLock() {
			logger.Warn("previous weather etl run still in progress, skipping this one")
			return
		}
		defer running.Unlock()
		RunWeatherEtl(ctx, logger, dbConfig, provider, cities(), opts...)
	}
}

func RunWeatherEtl(
	ctx context.Context,
	logger *slog.Logger,
	dbConfig config.AppConfigDatabase,
	provider types.WeatherProvider,
	cities []string,
	opts ...etl.PipelineOption,
) etl.Report {
	logger.Debug("running weather etl task...")

	ctx, cancel := context.WithTimeout(ctx, time.Duration(len(cities)+1)*perCityTimeout)
	defer cancel()

	pipeline := etl.NewPipeline(logger, provider, etl.NewLoader(dbConfig.Path, logger), cities, opts...)
	report := pipeline.Run(ctx)

	logger.Info("weather etl task done",
		slog.Int("noOfCitiesLoaded", report.Loaded()),
		slog.Int("noOfCitiesSkipped", report.Skipped()))
	return report
}
