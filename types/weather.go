package types

import (
	"context"
	"database/sql/driver"

	"github.com/icodeforyou/weather-etl/owm"
	"github.com/icodeforyou/weather-etl/types/maybe"
)

// WeatherRecord is one normalized observation, a row in weather_data.
type WeatherRecord struct {
	City                 string               `json:"city"`
	Country              string               `json:"country"`
	TemperatureCelsius   float64              `json:"temperature_celsius"`
	FeelsLikeCelsius     float64              `json:"feels_like_celsius"`
	TempMinCelsius       float64              `json:"temp_min_celsius"`
	TempMaxCelsius       float64              `json:"temp_max_celsius"`
	Pressure             int                  `json:"pressure"`
	Humidity             int                  `json:"humidity"`
	WindSpeed            float64              `json:"wind_speed"`
	CloudinessPercentage int                  `json:"cloudiness_percentage"`
	VisibilityMeters     maybe.Maybe[float64] `json:"visibility_meters"`
	SunriseTime          maybe.Maybe[string]  `json:"sunrise_time"`
	SunsetTime           maybe.Maybe[string]  `json:"sunset_time"`
	WeatherDesc          string               `json:"weather_desc"`
	RecordTime           string               `json:"record_time"`
}

type Column struct {
	Name  string
	Value driver.Value
}

// Columns lists the record as column name/value pairs. Absent optional fields map to nil (NULL).
func (r WeatherRecord) Columns() []Column {
	return []Column{
		{"city", r.City},
		{"country", r.Country},
		{"temperature_celsius", r.TemperatureCelsius},
		{"feels_like_celsius", r.FeelsLikeCelsius},
		{"temp_min_celsius", r.TempMinCelsius},
		{"temp_max_celsius", r.TempMaxCelsius},
		{"pressure", int64(r.Pressure)},
		{"humidity", int64(r.Humidity)},
		{"wind_speed", r.WindSpeed},
		{"cloudiness_percentage", int64(r.CloudinessPercentage)},
		{"visibility_meters", r.VisibilityMeters.SqlValue()},
		{"sunrise_time", r.SunriseTime.SqlValue()},
		{"sunset_time", r.SunsetTime.SqlValue()},
		{"weather_desc", r.WeatherDesc},
		{"record_time", r.RecordTime},
	}
}

// IsZero reports a record that was never filled in by the transformer.
func (r WeatherRecord) IsZero() bool {
	return r.City == "" && r.RecordTime == ""
}

type WeatherProvider interface {
	GetCurrentWeather(ctx context.Context, city string) (owm.Observation, error)
}
