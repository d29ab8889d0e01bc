package etl

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/icodeforyou/weather-etl/types"
)

type State string

const (
	StatePending     State = "PENDING"
	StateExtracted   State = "EXTRACTED"
	StateTransformed State = "TRANSFORMED"
	StateLoaded      State = "LOADED"
	StateSkipped     State = "SKIPPED"
)

type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// CityOutcome is where one city ended up. FailedAt and Err are only set for
// skipped cities.
type CityOutcome struct {
	City     string
	State    State
	FailedAt Stage
	Err      error
	Record   types.WeatherRecord
}

func (o *CityOutcome) skip(stage Stage, err error) {
	o.State = StateSkipped
	o.FailedAt = stage
	o.Err = err
}

type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Outcomes []CityOutcome
}

func (r Report) count(state State) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}
	return n
}

func (r Report) Loaded() int {
	return r.count(StateLoaded)
}

func (r Report) Skipped() int {
	return r.count(StateSkipped)
}

// RecordSink gets every record after it has been stored.
type RecordSink interface {
	Publish(ctx context.Context, rec types.WeatherRecord) error
}

type Pipeline struct {
	logger   *slog.Logger
	provider types.WeatherProvider
	loader   RecordLoader
	cities   []string
	sinks    []RecordSink
	now      func() time.Time
	loc      *time.Location
}

type PipelineOption func(*Pipeline)

func WithSink(sink RecordSink) PipelineOption {
	return func(p *Pipeline) { p.sinks = append(p.sinks, sink) }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithLocation sets the timezone record, sunrise and sunset times are written in.
func WithLocation(loc *time.Location) PipelineOption {
	return func(p *Pipeline) { p.loc = loc }
}

func NewPipeline(
	logger *slog.Logger,
	provider types.WeatherProvider,
	loader RecordLoader,
	cities []string,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		logger:   logger,
		provider: provider,
		loader:   loader,
		cities:   append([]string(nil), cities...),
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts and transforms every city first and then loads the records,
// one city at a time. A city that fails at any stage is skipped, the others
// are not affected.
func (p *Pipeline) Run(ctx context.Context) Report {
	report := Report{
		RunID:    uuid.NewString(),
		Started:  p.now(),
		Outcomes: make([]CityOutcome, 0, len(p.cities)),
	}
	logger := p.logger.With(slog.String("run", report.RunID))
	logger.Info("starting weather data pipeline...", slog.Int("cities", len(p.cities)))

	for _, city := range p.cities {
		report.Outcomes = append(report.Outcomes, p.extractAndTransform(ctx, logger, city))
	}

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if o.State != StateTransformed {
			continue
		}
		p.load(ctx, logger, o)
	}

	report.Finished = p.now()
	logger.Info("finished weather data pipeline",
		slog.Int("loaded", report.Loaded()),
		slog.Int("skipped", report.Skipped()),
		slog.Duration("duration", report.Finished.Sub(report.Started)))
	return report
}

func (p *Pipeline) extractAndTransform(ctx context.Context, logger *slog.Logger, city string) CityOutcome {
	o := CityOutcome{City: city, State: StatePending}
	logger = logger.With(slog.String("city", city))
	logger.Info("processing data")

	obs, err := p.provider.GetCurrentWeather(ctx, city)
	if err != nil {
		o.skip(StageExtract, err)
		logger.Error("extraction failed, skipping transformation and loading", slog.Any("error", err))
		return o
	}
	o.State = StateExtracted

	rec, err := Transform(obs, p.now().In(p.loc))
	if err != nil {
		o.skip(StageTransform, err)
		logger.Warn("transformation failed, skipping to the next city", slog.Any("error", err))
		return o
	}
	o.State = StateTransformed
	o.Record = rec
	return o
}

func (p *Pipeline) load(ctx context.Context, logger *slog.Logger, o *CityOutcome) {
	logger = logger.With(slog.String("city", o.City))

	if err := p.loader.Load(ctx, o.Record); err != nil {
		o.skip(StageLoad, err)
		logger.Error("load failed, record dropped", slog.Any("error", err))
		return
	}
	o.State = StateLoaded

	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, o.Record); err != nil {
			logger.Warn("failed to publish record", slog.Any("error", err))
		}
	}
}
