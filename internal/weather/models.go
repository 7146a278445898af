package weather

import (
	"strconv"
	"time"
)

// Location is the fixed point for which hourly covariates are requested.
// City/Country are informational; the coordinate is what providers use.
type Location struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return strconv.FormatFloat(l.Latitude, 'f', 4, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', 4, 64)
}

// Variable names an hourly provider variable.
type Variable string

const (
	Temperature2m Variable = "temperature_2m"
	WindSpeed10m  Variable = "wind_speed_10m"
	Precipitation Variable = "precipitation"
)

// HourlyVariables is the request order of the hourly variables. Providers
// return values positionally, so Record fields are assigned by this order.
var HourlyVariables = []Variable{Temperature2m, WindSpeed10m, Precipitation}

// Record is one hourly bucket, left-inclusive at Timestamp (always UTC).
type Record struct {
	Timestamp       time.Time `json:"timestamp"`
	TemperatureC    float64   `json:"temperature_2m"`
	WindSpeedKmh    float64   `json:"wind_speed_10m"`
	PrecipitationMm float64   `json:"precipitation"`
}
