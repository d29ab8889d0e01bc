package convert

const absoluteZeroCelsius = 273.15

// KelvinToCelsius is exact, callers that want fewer decimals round themselves.
func KelvinToCelsius(kelvin float64) float64 {
	return kelvin - absoluteZeroCelsius
}

func CelsiusToKelvin(celsius float64) float64 {
	return celsius + absoluteZeroCelsius
}
