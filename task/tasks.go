package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/icodeforyou/weather-etl/config"
	"github.com/icodeforyou/weather-etl/etl"
	"github.com/icodeforyou/weather-etl/types"
	"github.com/robfig/cron/v3"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	cities          *cityList
	WeatherEtlTask  func()
	MaintenanceTask func()
}

// NewTasks prepares the scheduled tasks. Every run is derived from ctx, so
// cancelling it cuts a run in progress short. Schedules and record times use loc.
func NewTasks(
	ctx context.Context,
	cnfg *config.AppConfig,
	loc *time.Location,
	provider types.WeatherProvider,
	sinks []etl.RecordSink,
) *Tasks {
	logger := slog.Default().With("module", "tasks")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	cities := &cityList{cities: cnfg.Cities}

	opts := []etl.PipelineOption{etl.WithLocation(loc)}
	for _, s := range sinks {
		opts = append(opts, etl.WithSink(s))
	}

	return &Tasks{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger))),
		cnfg:            cnfg,
		cities:          cities,
		WeatherEtlTask:  NewWeatherEtlTask(ctx, logger.With(slog.String("task", "weather_etl")), cnfg.Database, provider, cities.Get, opts...),
		MaintenanceTask: NewMaintenanceTask(ctx, logger.With(slog.String("task", "maintenance")), cnfg),
	}
}

// Run schedules the tasks, it does not run anything right away.
func (t *Tasks) Run() error {
	if _, err := t.cron.AddFunc(t.cnfg.Schedule.RunAt, t.WeatherEtlTask); err != nil {
		return fmt.Errorf("schedule weather etl task %q: %w", t.cnfg.Schedule.RunAt, err)
	}
	if t.cnfg.Schedule.MaintenanceAt != "" {
		if _, err := t.cron.AddFunc(t.cnfg.Schedule.MaintenanceAt, t.MaintenanceTask); err != nil {
			return fmt.Errorf("schedule maintenance task %q: %w", t.cnfg.Schedule.MaintenanceAt, err)
		}
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}

// SetCities replaces the cities used from the next run on.
func (t *Tasks) SetCities(cities []string) {
	t.cities.Set(cities)
}

type cityList struct {
	mu     sync.RWMutex
	cities []string
}

func (c *cityList) Get() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.cities...)
}

func (c *cityList) Set(cities []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cities = append([]string(nil), cities...)
}
