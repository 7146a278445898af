package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Service fetches hourly covariates for the configured location.
type Service struct {
	provider Provider
	location Location
	logger   logr.Logger
}

// NewService creates a new Service.
func NewService(provider Provider, loc Location, logger logr.Logger) *Service {
	return &Service{
		provider: provider,
		location: loc,
		logger:   logger.WithName("weather"),
	}
}

// Location returns the coordinate requests are made for.
func (s *Service) Location() Location {
	return s.location
}

// Hourly returns hourly records for the calendar days start..end inclusive.
// Any failure is wrapped in ErrUpstream.
func (s *Service) Hourly(ctx context.Context, start, end time.Time) ([]Record, error) {
	if s.provider == nil {
		return nil, fmt.Errorf("%w: no weather provider configured", ErrUpstream)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %s before start date %s", ErrUpstream,
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}

	log, err := logr.FromContext(ctx)
	if err != nil {
		log = s.logger
	}
	log.V(1).Info("fetching hourly weather",
		"provider", s.provider.Name(),
		"location", s.location.Key(),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly))

	records, err := s.provider.FetchHourly(ctx, s.location, start, end)
	if err != nil {
		log.Error(err, "weather fetch failed", "provider", s.provider.Name())
		if errors.Is(err, ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, s.provider.Name(), err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s returned no hourly records", ErrUpstream, s.provider.Name())
	}

	return records, nil
}
