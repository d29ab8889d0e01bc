package etl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/icodeforyou/weather-etl/convert"
	"github.com/icodeforyou/weather-etl/owm"
	"github.com/icodeforyou/weather-etl/stamp"
	"github.com/icodeforyou/weather-etl/types"
	"github.com/icodeforyou/weather-etl/types/maybe"
)

const (
	unknownCity  = "Unknown city"
	notAvailable = "N/A"
	noCloudiness = 0
)

var ErrIncompleteObservation = errors.New("missing required data")

// Transform maps an observation to a record. It fails, without a partial
// record, when the main, weather or wind group or one of their measurements is
// missing. now becomes the record time and its location is used for sunrise
// and sunset.
func Transform(obs owm.Observation, now time.Time) (types.WeatherRecord, error) {
	if missing := missingFields(obs); len(missing) > 0 {
		city := obs.CityName()
		if city == "" {
			city = "unknown city"
		}
		return types.WeatherRecord{}, fmt.Errorf("%w in %s: no %s",
			ErrIncompleteObservation, city, strings.Join(missing, ", "))
	}

	rec := types.WeatherRecord{
		City:                 unknownCity,
		Country:              notAvailable,
		TemperatureCelsius:   convert.KelvinToCelsius(*obs.Main.Temp),
		FeelsLikeCelsius:     convert.KelvinToCelsius(*obs.Main.FeelsLike),
		TempMinCelsius:       convert.KelvinToCelsius(*obs.Main.TempMin),
		TempMaxCelsius:       convert.KelvinToCelsius(*obs.Main.TempMax),
		Pressure:             *obs.Main.Pressure,
		Humidity:             *obs.Main.Humidity,
		WindSpeed:            *obs.Wind.Speed,
		CloudinessPercentage: noCloudiness,
		VisibilityMeters:     maybe.FromPtr(obs.Visibility),
		SunriseTime:          maybe.None[string](),
		SunsetTime:           maybe.None[string](),
		WeatherDesc:          notAvailable,
		RecordTime:           stamp.Format(now),
	}

	if obs.Name != nil {
		rec.City = *obs.Name
	}
	if len(obs.Weather) > 0 {
		rec.WeatherDesc = obs.Weather[0].Description
	}
	if obs.Clouds != nil && obs.Clouds.All != nil {
		rec.CloudinessPercentage = *obs.Clouds.All
	}
	if obs.Sys != nil {
		if obs.Sys.Country != nil {
			rec.Country = *obs.Sys.Country
		}
		if obs.Sys.Sunrise != nil {
			rec.SunriseTime = maybe.Some(stamp.FromEpoch(*obs.Sys.Sunrise, now.Location()))
		}
		if obs.Sys.Sunset != nil {
			rec.SunsetTime = maybe.Some(stamp.FromEpoch(*obs.Sys.Sunset, now.Location()))
		}
	}

	return rec, nil
}

// missingFields lists absent groups, or for a present group its absent
// measurements, e.g. "main.humidity". A "weather": null list counts as absent.
func missingFields(obs owm.Observation) []string {
	var missing []string
	if obs.Main == nil {
		missing = append(missing, "main")
	} else {
		m := obs.Main
		for _, f := range []struct {
			name    string
			present bool
		}{
			{"main.temp", m.Temp != nil},
			{"main.feels_like", m.FeelsLike != nil},
			{"main.temp_min", m.TempMin != nil},
			{"main.temp_max", m.TempMax != nil},
			{"main.pressure", m.Pressure != nil},
			{"main.humidity", m.Humidity != nil},
		} {
			if !f.present {
				missing = append(missing, f.name)
			}
		}
	}
	if obs.Weather == nil {
		missing = append(missing, "weather")
	}
	if obs.Wind == nil {
		missing = append(missing, "wind")
	} else if obs.Wind.Speed == nil {
		missing = append(missing, "wind.speed")
	}
	return missing
}
