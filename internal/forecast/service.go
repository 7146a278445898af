package forecast

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"

	"github.com/i474232898/pedocs-forecast/internal/features"
	"github.com/i474232898/pedocs-forecast/internal/ingest"
	"github.com/i474232898/pedocs-forecast/internal/metrics"
	"github.com/i474232898/pedocs-forecast/internal/model"
	"github.com/i474232898/pedocs-forecast/internal/weather"
)

// WeatherSource returns hourly weather for calendar days start..end.
type WeatherSource interface {
	Hourly(ctx context.Context, start, end time.Time) ([]weather.Record, error)
}

// Service wires the pipeline stages for one upload.
type Service struct {
	weather    WeatherSource
	forecaster *Forecaster
	logger     logr.Logger
}

// NewService creates a new Service.
func NewService(ws WeatherSource, f *Forecaster, logger logr.Logger) *Service {
	return &Service{
		weather:    ws,
		forecaster: f,
		logger:     logger.WithName("forecast"),
	}
}

// Predict parses raw CSV, fetches weather for its date span, engineers
// features and returns the forecast. Input is validated before any
// outbound call.
func (s *Service) Predict(ctx context.Context, raw []byte) ([]Point, error) {
	started := time.Now()
	log, err := logr.FromContext(ctx)
	if err != nil {
		log = s.logger
	}

	points, err := s.run(ctx, log, raw)

	metrics.PredictionDuration.Observe(time.Since(started).Seconds())
	metrics.Predictions.WithLabelValues(Outcome(err)).Inc()
	if err != nil {
		log.Error(err, "prediction failed", "outcome", Outcome(err))
		return nil, err
	}

	log.Info("prediction served",
		"points", len(points),
		"first", points[0].Timestamp,
		"duration", time.Since(started).String())
	return points, nil
}

func (s *Service) run(ctx context.Context, log logr.Logger, raw []byte) ([]Point, error) {
	obs, err := ingest.Parse(raw)
	if err != nil {
		return nil, err
	}

	start, end := ingest.DateSpan(obs)
	log.V(1).Info("parsed upload",
		"observations", len(obs),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly))

	records, err := s.weather.Hourly(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rows := features.Engineer(features.Merge(obs, records))
	return s.forecaster.Forecast(ctx, obs, rows)
}

// Outcome classifies a pipeline error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ingest.ErrValidation):
		return "invalid_input"
	case errors.Is(err, weather.ErrUpstream):
		return "upstream_error"
	case errors.Is(err, model.ErrModel):
		return "model_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
