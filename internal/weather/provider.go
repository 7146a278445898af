package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUpstream wraps every failure to obtain weather data.
	ErrUpstream = errors.New("weather provider failure")
	// ErrMalformedResponse is returned when a provider payload cannot be mapped to records.
	ErrMalformedResponse = errors.New("malformed weather response")
)

// Provider abstracts an hourly weather source (e.g. Open-Meteo).
type Provider interface {
	Name() string
	// FetchHourly returns hourly records covering the calendar days
	// start..end inclusive, ordered by Timestamp ascending.
	FetchHourly(ctx context.Context, loc Location, start, end time.Time) ([]Record, error)
}
