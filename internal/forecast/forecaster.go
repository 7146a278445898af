// Package forecast runs the prediction pipeline: it turns an uploaded CSV
// into target and covariate series, invokes the model and formats the
// 24 hourly forecast points.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/i474232898/pedocs-forecast/internal/features"
	"github.com/i474232898/pedocs-forecast/internal/ingest"
	"github.com/i474232898/pedocs-forecast/internal/model"
	"github.com/i474232898/pedocs-forecast/internal/timeseries"
)

// Horizon is the number of hourly steps forecast per request.
const Horizon = 24

// Forecaster prepares model inputs and calls the model.
type Forecaster struct {
	holder    *model.Holder
	gapPolicy timeseries.GapPolicy
}

// NewForecaster creates a Forecaster. The holder is shared across requests.
func NewForecaster(holder *model.Holder, policy timeseries.GapPolicy) *Forecaster {
	if policy == "" {
		policy = timeseries.GapForwardFill
	}
	return &Forecaster{holder: holder, gapPolicy: policy}
}

// Forecast predicts Horizon steps after the last observation. obs must be
// sorted ascending; rows are the engineered features over the weather
// timeline.
func (f *Forecaster) Forecast(ctx context.Context, obs []ingest.Observation, rows []features.Row) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := f.holder.Get()
	if err != nil {
		return nil, err
	}

	target, err := f.target(m, obs)
	if err != nil {
		return nil, err
	}

	frame, err := features.Frame(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMisaligned, err)
	}
	past, err := frame.Select(m.PastCovariates()...)
	if err != nil {
		return nil, fmt.Errorf("%w: past covariates: %w", model.ErrCovariateMismatch, err)
	}
	future, err := frame.Select(m.FutureCovariates()...)
	if err != nil {
		return nil, fmt.Errorf("%w: future covariates: %w", model.ErrCovariateMismatch, err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("running model",
		"model", m.Name(),
		"history_from", target.Start().Format(TimestampLayout),
		"history_steps", target.Len(),
		"covariate_rows", frame.Len())

	out, err := m.Predict(Horizon, target, past, future)
	if err != nil {
		return nil, err
	}
	return Format(out), nil
}

// target regularises the observations onto the model frequency.
func (f *Forecaster) target(m *model.Model, obs []ingest.Observation) (*timeseries.Series, error) {
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observations", model.ErrInsufficientHistory)
	}

	timestamps := make([]time.Time, 0, len(obs))
	values := make([]float64, 0, len(obs))
	for _, o := range obs {
		timestamps = append(timestamps, o.Timestamp)
		values = append(values, o.Score)
	}

	raw, err := timeseries.NewWithTimestamps(m.Target(), timestamps, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMisaligned, err)
	}

	regular, err := timeseries.Regularize(raw, m.Frequency(), f.gapPolicy)
	switch {
	case err == nil:
		return regular, nil
	case errors.Is(err, timeseries.ErrGap):
		return nil, fmt.Errorf("%w: %w", model.ErrMissingValue, err)
	default:
		return nil, fmt.Errorf("%w: %w", model.ErrMisaligned, err)
	}
}
