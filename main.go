package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/icodeforyou/weather-etl/config"
	"github.com/icodeforyou/weather-etl/database"
	"github.com/icodeforyou/weather-etl/etl"
	"github.com/icodeforyou/weather-etl/logging"
	"github.com/icodeforyou/weather-etl/mqttpub"
	"github.com/icodeforyou/weather-etl/owm"
	"github.com/icodeforyou/weather-etl/stamp"
	"github.com/icodeforyou/weather-etl/task"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		exitWithError(slog.Default(), fmt.Errorf("failed to load config: %w", err))
	}

	loc, err := stamp.LoadLocation(cnfg.Schedule.Timezone)
	if err != nil {
		exitWithError(slog.Default(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleHandler := logging.NewConsoleHandler(os.Stdout, cnfg.Logging.GetConsoleLevel())
	logger := slog.New(consoleHandler)

	if lvl, ok := cnfg.Logging.GetDbLevel(); ok {
		logDb, err := openLogDatabase(ctx, cnfg.Database.Path)
		if err != nil {
			exitWithError(logger, err)
		}
		defer logDb.Close()
		logger = slog.New(logging.NewMultiHandler(
			consoleHandler,
			logging.NewSQLiteHandler(logDb, lvl, cnfg.Logging.GetDbAttrsFormat())))
	}
	slog.SetDefault(logger)
	logger.Debug("weather-etl is starting...", slog.String("version", Version))

	provider := owm.New(cnfg.OpenWeather.ApiKey,
		owm.WithBaseURL(cnfg.OpenWeather.BaseURL),
		owm.WithHTTPClient(&http.Client{Timeout: cnfg.OpenWeather.Timeout}),
		owm.WithBreaker(cnfg.OpenWeather.BreakerFailures, cnfg.OpenWeather.BreakerTimeout),
		owm.WithLogger(logger.With("module", "owm")))

	var sinks []etl.RecordSink
	if cnfg.Mqtt.Enabled() {
		pub := mqttpub.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.Port,
			cnfg.Mqtt.ClientID,
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.Topic)
		if err := pub.Connect(); err != nil {
			logger.Warn("records will not be published", slog.Any("error", err))
		} else {
			defer pub.Disconnect()
			sinks = append(sinks, pub)
		}
	}

	if !cnfg.Schedule.IsRecurring() {
		// Partial failures are only visible in the log, the exit code stays 0
		opts := []etl.PipelineOption{etl.WithLocation(loc)}
		for _, s := range sinks {
			opts = append(opts, etl.WithSink(s))
		}
		task.RunWeatherEtl(ctx, logger.With(slog.String("task", "weather_etl")), cnfg.Database, provider, cnfg.Cities, opts...)
		return
	}

	tasks := task.NewTasks(ctx, cnfg, loc, provider, sinks)
	if err := tasks.Run(); err != nil {
		exitWithError(logger, err)
	}
	defer func() { <-tasks.Stop().Done() }()

	if cnfg.File != "" {
		err := config.Watch(cnfg.File, logger.With("module", "config"), func(c *config.AppConfig) {
			tasks.SetCities(c.Cities)
		})
		if err != nil {
			logger.Warn("config changes will not be picked up", slog.Any("error", err))
		}
	}

	logger.Info("running first pipeline now, then on schedule", slog.String("runAt", cnfg.Schedule.RunAt))
	tasks.WeatherEtlTask()

	<-ctx.Done()
	logger.Info("application is shutting down...")
}

func openLogDatabase(ctx context.Context, path string) (*database.Database, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare log database: %w", err)
	}
	return db, nil
}

func exitWithError(logger *slog.Logger, err error) {
	logger.Error("application shutting down with error", slog.Any("error", err))
	os.Exit(1)
}
