package owm

import "encoding/json"

// Observation is the "current weather" response. Groups and fields the
// provider may leave out are pointers, so an absent value stays nil instead of
// turning into a zero that looks like a measurement.
type Observation struct {
	ID         int         `json:"id"`
	Name       *string     `json:"name"`
	Dt         int64       `json:"dt"`
	Timezone   int         `json:"timezone"` // Seconds east of UTC for the city
	Coord      *Coord      `json:"coord"`
	Main       *Main       `json:"main"`
	Weather    []Condition `json:"weather"` // nil when the key is missing, empty when the list was empty or null
	Wind       *Wind       `json:"wind"`
	Clouds     *Clouds     `json:"clouds"`
	Visibility *float64    `json:"visibility"`
	Sys        *Sys        `json:"sys"`
}

// UnmarshalJSON keeps "weather": null apart from a missing weather key, the
// former decodes to an empty list.
func (o *Observation) UnmarshalJSON(data []byte) error {
	type observation Observation
	var obs observation
	if err := json.Unmarshal(data, &obs); err != nil {
		return err
	}
	if obs.Weather == nil {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		if _, ok := keys["weather"]; ok {
			obs.Weather = []Condition{}
		}
	}
	*o = Observation(obs)
	return nil
}

type Coord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

/** Temperatures are in Kelvin, pressure in hPa and humidity in % */
type Main struct {
	Temp      *float64 `json:"temp"`
	FeelsLike *float64 `json:"feels_like"`
	TempMin   *float64 `json:"temp_min"`
	TempMax   *float64 `json:"temp_max"`
	Pressure  *int     `json:"pressure"`
	Humidity  *int     `json:"humidity"`
	SeaLevel  *int     `json:"sea_level,omitempty"`
	GrndLevel *int     `json:"grnd_level,omitempty"`
}

type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type Wind struct {
	Speed *float64 `json:"speed"` // m/s
	Deg   int      `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

type Clouds struct {
	All *int `json:"all"` // Cloudiness in %
}

type Sys struct {
	Country *string `json:"country"`
	Sunrise *int64  `json:"sunrise"` // Unix seconds, UTC
	Sunset  *int64  `json:"sunset"`
}

// CityName is the display name, empty when the provider did not send one.
func (o Observation) CityName() string {
	if o.Name == nil {
		return ""
	}
	return *o.Name
}
