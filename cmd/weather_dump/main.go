package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/icodeforyou/weather-etl/database"
	"github.com/icodeforyou/weather-etl/logging"
)

func main() {
	dbPath := flag.String("db", "weather_data.db", "path to the weather database")
	limit := flag.Int("n", 20, "number of rows to print")
	showLog := flag.Bool("log", false, "print log entries instead of weather rows")
	minLevel := flag.String("level", "INFO", "min log level with -log")
	flag.Parse()

	ctx := context.Background()
	db, err := database.Open(ctx, *dbPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	if *showLog {
		entries, err := db.GetLogEntries(ctx, logging.LevelFromString(*minLevel), *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, e := range entries {
			fmt.Printf("%s %-5s %s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), slog.Level(e.Level), e.Message, e.Attrs)
		}
		return
	}

	rows, err := db.GetWeatherRecords(ctx, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, r := range rows {
		fmt.Printf("%4d %-15s %-3s %6.2f°C (feels %6.2f°C) %4d hPa %3d%% %5.2f m/s %3d%% clouds vis %v %-20s rise %s set %s at %s\n",
			r.ID, r.City, r.Country,
			r.TemperatureCelsius, r.FeelsLikeCelsius,
			r.Pressure, r.Humidity, r.WindSpeed, r.CloudinessPercentage,
			r.VisibilityMeters.ValueOrDefault(-1),
			r.WeatherDesc,
			r.SunriseTime.ValueOrDefault("-"),
			r.SunsetTime.ValueOrDefault("-"),
			r.RecordTime)
	}
}
