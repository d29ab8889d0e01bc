package etl

import (
	"testing"
	"time"

	"github.com/icodeforyou/weather-etl/owm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func fullObservation(city string) owm.Observation {
	return owm.Observation{
		Name: ptr(city),
		Main: &owm.Main{
			Temp:      ptr(285.32),
			FeelsLike: ptr(284.61),
			TempMin:   ptr(284.15),
			TempMax:   ptr(286.48),
			Pressure:  ptr(1012),
			Humidity:  ptr(81),
		},
		Weather:    []owm.Condition{{ID: 803, Main: "Clouds", Description: "broken clouds"}, {Description: "mist"}},
		Wind:       &owm.Wind{Speed: ptr(4.63), Deg: 240},
		Clouds:     &owm.Clouds{All: ptr(75)},
		Visibility: ptr(10000.0),
		Sys: &owm.Sys{
			Country: ptr("GB"),
			Sunrise: ptr(int64(1735718760)),
			Sunset:  ptr(int64(1735747260)),
		},
	}
}

var recordNow = time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)

func TestTransformFullObservation(t *testing.T) {
	rec, err := Transform(fullObservation("London"), recordNow)
	require.NoError(t, err)

	assert.Equal(t, "London", rec.City)
	assert.Equal(t, "GB", rec.Country)
	assert.Equal(t, 1012, rec.Pressure)
	assert.Equal(t, 81, rec.Humidity)
	assert.InDelta(t, 4.63, rec.WindSpeed, 1e-9)
	assert.Equal(t, 75, rec.CloudinessPercentage)
	assert.True(t, rec.VisibilityMeters.IsValid())
	assert.InDelta(t, 10000.0, rec.VisibilityMeters.Value(), 1e-9)
	assert.Equal(t, "broken clouds", rec.WeatherDesc)
	assert.Equal(t, "2025-01-01 12:30:00", rec.RecordTime)
}

func TestTransformKelvinToCelsius(t *testing.T) {
	tests := []struct {
		name                  string
		temp, feels, min, max float64
	}{
		{name: "typical", temp: 285.32, feels: 284.61, min: 284.15, max: 286.48},
		{name: "freezing", temp: 273.15, feels: 270.0, min: 268.5, max: 274.0},
		{name: "absolute zero", temp: 0, feels: 0, min: 0, max: 0},
		{name: "independent fields", temp: 300, feels: 250, min: 200, max: 350},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := fullObservation("London")
			obs.Main.Temp = ptr(tt.temp)
			obs.Main.FeelsLike = ptr(tt.feels)
			obs.Main.TempMin = ptr(tt.min)
			obs.Main.TempMax = ptr(tt.max)

			rec, err := Transform(obs, recordNow)
			require.NoError(t, err)

			assert.InDelta(t, tt.temp-273.15, rec.TemperatureCelsius, 1e-9)
			assert.InDelta(t, tt.feels-273.15, rec.FeelsLikeCelsius, 1e-9)
			assert.InDelta(t, tt.min-273.15, rec.TempMinCelsius, 1e-9)
			assert.InDelta(t, tt.max-273.15, rec.TempMaxCelsius, 1e-9)
		})
	}
}

func TestTransformMissingRequiredGroup(t *testing.T) {
	tests := []struct {
		name   string
		modify func(o *owm.Observation)
	}{
		{name: "no main", modify: func(o *owm.Observation) { o.Main = nil }},
		{name: "no weather", modify: func(o *owm.Observation) { o.Weather = nil }},
		{name: "no wind", modify: func(o *owm.Observation) { o.Wind = nil }},
		{name: "nothing at all", modify: func(o *owm.Observation) { *o = owm.Observation{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := fullObservation("Paris")
			tt.modify(&obs)

			rec, err := Transform(obs, recordNow)
			assert.ErrorIs(t, err, ErrIncompleteObservation)
			assert.True(t, rec.IsZero(), "no partial record")
		})
	}
}

func TestTransformMissingMeasurement(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(o *owm.Observation)
		missing string
	}{
		{name: "no temp", modify: func(o *owm.Observation) { o.Main.Temp = nil }, missing: "main.temp"},
		{name: "no feels like", modify: func(o *owm.Observation) { o.Main.FeelsLike = nil }, missing: "main.feels_like"},
		{name: "no temp min", modify: func(o *owm.Observation) { o.Main.TempMin = nil }, missing: "main.temp_min"},
		{name: "no temp max", modify: func(o *owm.Observation) { o.Main.TempMax = nil }, missing: "main.temp_max"},
		{name: "no pressure", modify: func(o *owm.Observation) { o.Main.Pressure = nil }, missing: "main.pressure"},
		{name: "no humidity", modify: func(o *owm.Observation) { o.Main.Humidity = nil }, missing: "main.humidity"},
		{name: "no wind speed", modify: func(o *owm.Observation) { o.Wind.Speed = nil }, missing: "wind.speed"},
		{name: "empty main", modify: func(o *owm.Observation) { o.Main = &owm.Main{} }, missing: "main.temp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := fullObservation("London")
			tt.modify(&obs)

			rec, err := Transform(obs, recordNow)
			require.ErrorIs(t, err, ErrIncompleteObservation)
			assert.Contains(t, err.Error(), tt.missing)
			assert.True(t, rec.IsZero(), "no record with made up measurements")
		})
	}
}

func TestTransformEmptyGroupsAreRejected(t *testing.T) {
	obs := owm.Observation{
		Name:    ptr("London"),
		Main:    &owm.Main{},
		Weather: []owm.Condition{},
		Wind:    &owm.Wind{},
	}

	_, err := Transform(obs, recordNow)
	require.ErrorIs(t, err, ErrIncompleteObservation)
	assert.Contains(t, err.Error(), "main.humidity")
	assert.Contains(t, err.Error(), "wind.speed")
	assert.NotContains(t, err.Error(), "weather", "an empty weather list is allowed")
}

func TestTransformErrorNamesCity(t *testing.T) {
	obs := fullObservation("Paris")
	obs.Wind = nil
	_, err := Transform(obs, recordNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Paris")
	assert.Contains(t, err.Error(), "wind")

	obs.Name = nil
	_, err = Transform(obs, recordNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown city")
}

func TestTransformWeatherDescription(t *testing.T) {
	obs := fullObservation("Tokyo")
	obs.Weather = []owm.Condition{}
	rec, err := Transform(obs, recordNow)
	require.NoError(t, err)
	assert.Equal(t, "N/A", rec.WeatherDesc)

	obs.Weather = []owm.Condition{{Description: "light rain"}, {Description: "mist"}}
	rec, err = Transform(obs, recordNow)
	require.NoError(t, err)
	assert.Equal(t, "light rain", rec.WeatherDesc)
}

func TestTransformCloudinessDefault(t *testing.T) {
	obs := fullObservation("Sydney")
	obs.Clouds = nil
	rec, err := Transform(obs, recordNow)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CloudinessPercentage)

	obs.Clouds = &owm.Clouds{}
	rec, err = Transform(obs, recordNow)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.CloudinessPercentage)
}

func TestTransformSunrise(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		rec, err := Transform(fullObservation("London"), recordNow)
		require.NoError(t, err)
		assert.True(t, rec.SunriseTime.IsValid())
		assert.Equal(t, "2025-01-01 08:06:00", rec.SunriseTime.Value())
	})

	t.Run("absent", func(t *testing.T) {
		obs := fullObservation("London")
		obs.Sys.Sunrise = nil
		rec, err := Transform(obs, recordNow)
		require.NoError(t, err)
		assert.False(t, rec.SunriseTime.IsValid())
		assert.True(t, rec.SunsetTime.IsValid(), "sunset does not depend on sunrise")
	})
}

func TestTransformSunset(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		rec, err := Transform(fullObservation("London"), recordNow)
		require.NoError(t, err)
		assert.True(t, rec.SunsetTime.IsValid())
		assert.Equal(t, "2025-01-01 16:01:00", rec.SunsetTime.Value())
	})

	t.Run("absent", func(t *testing.T) {
		obs := fullObservation("London")
		obs.Sys.Sunset = nil
		rec, err := Transform(obs, recordNow)
		require.NoError(t, err)
		assert.False(t, rec.SunsetTime.IsValid())
		assert.True(t, rec.SunriseTime.IsValid())
	})
}

func TestTransformUsesLocationOfNow(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)

	rec, err := Transform(fullObservation("London"), recordNow.In(stockholm))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01 13:30:00", rec.RecordTime)
	assert.Equal(t, "2025-01-01 09:06:00", rec.SunriseTime.Value())
	assert.Equal(t, "2025-01-01 17:01:00", rec.SunsetTime.Value())
}

func TestTransformDefaults(t *testing.T) {
	obs := fullObservation("")
	obs.Name = nil
	obs.Sys = nil
	obs.Visibility = nil

	rec, err := Transform(obs, recordNow)
	require.NoError(t, err)
	assert.Equal(t, "Unknown city", rec.City)
	assert.Equal(t, "N/A", rec.Country)
	assert.False(t, rec.VisibilityMeters.IsValid())
	assert.False(t, rec.SunriseTime.IsValid())
	assert.False(t, rec.SunsetTime.IsValid())
}
