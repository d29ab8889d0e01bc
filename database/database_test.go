package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icodeforyou/weather-etl/types"
	"github.com/icodeforyou/weather-etl/types/maybe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *Database {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "weather_data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))
	return db
}

func testRecord(city string) types.WeatherRecord {
	return types.WeatherRecord{
		City:                 city,
		Country:              "GB",
		TemperatureCelsius:   12.17,
		FeelsLikeCelsius:     11.46,
		TempMinCelsius:       11.0,
		TempMaxCelsius:       13.33,
		Pressure:             1012,
		Humidity:             81,
		WindSpeed:            4.63,
		CloudinessPercentage: 75,
		VisibilityMeters:     maybe.Some(10000.0),
		SunriseTime:          maybe.Some("2025-01-01 08:06:00"),
		SunsetTime:           maybe.Some("2025-01-01 16:01:00"),
		WeatherDesc:          "broken clouds",
		RecordTime:           "2025-01-01 12:00:00",
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	_, err := db.SaveWeatherRecord(ctx, testRecord("London"))
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))
	require.NoError(t, db.EnsureSchema(ctx))

	n, err := db.CountWeatherRecords(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSaveAndGetWeatherRecord(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	id, err := db.SaveWeatherRecord(ctx, testRecord("London"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	rows, err := db.GetWeatherRecords(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, testRecord("London"), r.WeatherRecord)
	assert.NotEmpty(t, r.CapturedAt)
}

func TestSaveWeatherRecordWithNulls(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	rec := testRecord("Sydney")
	rec.VisibilityMeters = maybe.None[float64]()
	rec.SunriseTime = maybe.None[string]()
	rec.SunsetTime = maybe.None[string]()
	_, err := db.SaveWeatherRecord(ctx, rec)
	require.NoError(t, err)

	var nulls int
	err = db.read.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM weather_data
		WHERE visibility_meters IS NULL AND sunrise_time IS NULL AND sunset_time IS NULL`).Scan(&nulls)
	require.NoError(t, err)
	assert.Equal(t, 1, nulls)

	rows, err := db.GetWeatherRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].VisibilityMeters.IsValid())
	assert.False(t, rows[0].SunriseTime.IsValid())
	assert.False(t, rows[0].SunsetTime.IsValid())
}

func TestCountWeatherRecordsPerCity(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	for _, city := range []string{"London", "Paris", "London"} {
		_, err := db.SaveWeatherRecord(ctx, testRecord(city))
		require.NoError(t, err)
	}

	n, err := db.CountWeatherRecords(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.CountWeatherRecords(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestInsertIntoIncompatibleTableFails(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "legacy.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.write.ExecContext(ctx, `CREATE TABLE weather_data (id INTEGER PRIMARY KEY, city TEXT)`)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.SaveWeatherRecord(ctx, testRecord("London"))
	assert.Error(t, err)
}

func TestLogEntries(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	for i, lvl := range []int{-4, 0, 4, 8} {
		err := db.SaveLogEntry(ctx, LogEntryRow{
			Timestamp: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
			Level:     lvl,
			Message:   "message",
			Attrs:     `[{"city":"London"}]`,
		})
		require.NoError(t, err)
	}

	entries, err := db.GetLogEntries(ctx, 4, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 8, entries[0].Level)
	assert.Equal(t, 4, entries[1].Level)

	require.NoError(t, db.PurgeLog(ctx, 1))
	entries, err = db.GetLogEntries(ctx, -4, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 8, entries[0].Level)
}

func TestBackupAndPurge(t *testing.T) {
	ctx := context.Background()
	db := openTestDb(t)

	_, err := db.SaveWeatherRecord(ctx, testRecord("London"))
	require.NoError(t, err)

	zipPath, err := db.Backup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, zipPath)

	old := filepath.Join(db.backupDir(), "20000101_000000_weather_data.db.zip")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0644))

	removed, err := db.PurgeBackups(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, zipPath)
}
