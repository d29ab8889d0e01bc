package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/icodeforyou/weather-etl/types"
	"github.com/icodeforyou/weather-etl/types/maybe"
)

type WeatherDataRow struct {
	ID         int64
	CapturedAt string
	types.WeatherRecord
}

// SaveWeatherRecord appends one row. Values are bound by column name, so the
// column order of the record and the table never have to agree.
func (d *Database) SaveWeatherRecord(ctx context.Context, rec types.WeatherRecord) (int64, error) {
	cols := rec.Columns()
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		params[i] = ":" + c.Name
		args[i] = sql.Named(c.Name, c.Value)
	}

	d.logger.Debug("saving weather record",
		slog.String("city", rec.City),
		slog.Float64("temperature", rec.TemperatureCelsius),
		slog.String("record_time", rec.RecordTime))

	res, err := d.write.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO weather_data (%s) VALUES (%s)",
		strings.Join(names, ", "),
		strings.Join(params, ", ")),
		args...)
	if err != nil {
		return 0, fmt.Errorf("saving weather record for %s: %w", rec.City, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		d.logger.Warn("can't get id of inserted weather record", slog.Any("error", err))
		return 0, nil
	}
	return id, nil
}

// CountWeatherRecords counts the rows of one city, or all rows when city is empty.
func (d *Database) CountWeatherRecords(ctx context.Context, city string) (int, error) {
	var n int
	var err error
	if city == "" {
		err = d.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_data`).Scan(&n)
	} else {
		err = d.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_data WHERE city = ?`, city).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("counting weather records: %w", err)
	}
	return n, nil
}

// GetWeatherRecords returns the most recent rows first.
func (d *Database) GetWeatherRecords(ctx context.Context, limit int) ([]WeatherDataRow, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT id, city, country,
			temperature_celsius, feels_like_celsius, temp_min_celsius, temp_max_celsius,
			pressure, humidity, wind_speed, cloudiness_percentage, visibility_meters,
			sunrise_time, sunset_time, weather_desc, record_time, captured_at
		FROM weather_data
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching weather records: %w", err)
	}
	defer rows.Close()

	var result []WeatherDataRow
	for rows.Next() {
		var r WeatherDataRow
		var visibility sql.NullFloat64
		var sunrise, sunset, recordTime, capturedAt sql.NullString
		err := rows.Scan(
			&r.ID,
			&r.City,
			&r.Country,
			&r.TemperatureCelsius,
			&r.FeelsLikeCelsius,
			&r.TempMinCelsius,
			&r.TempMaxCelsius,
			&r.Pressure,
			&r.Humidity,
			&r.WindSpeed,
			&r.CloudinessPercentage,
			&visibility,
			&sunrise,
			&sunset,
			&r.WeatherDesc,
			&recordTime,
			&capturedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning weather record: %w", err)
		}
		r.VisibilityMeters = maybe.SqlNull(visibility.Float64, visibility.Valid)
		r.SunriseTime = maybe.SqlNull(sunrise.String, sunrise.Valid)
		r.SunsetTime = maybe.SqlNull(sunset.String, sunset.Valid)
		r.RecordTime = recordTime.String
		r.CapturedAt = capturedAt.String
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading weather rows: %w", err)
	}

	return result, nil
}
