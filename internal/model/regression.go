package model

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/pedocs-forecast/internal/timeseries"
)

// Model is a validated, read-only regression. It is safe for concurrent use.
type Model struct {
	artifact Artifact
	step     time.Duration
}

// Name returns the artifact name and version.
func (m *Model) Name() string {
	return m.artifact.Name + "@" + m.artifact.Version
}

// Target returns the name of the predicted component.
func (m *Model) Target() string {
	return m.artifact.Target
}

// Frequency returns the step between consecutive samples.
func (m *Model) Frequency() time.Duration {
	return m.step
}

// OutputChunkLength is the largest horizon Predict accepts.
func (m *Model) OutputChunkLength() int {
	return m.artifact.OutputChunkLength
}

// PastCovariates returns the past covariate names in feature order.
func (m *Model) PastCovariates() []string {
	return append([]string(nil), m.artifact.PastCovariates...)
}

// FutureCovariates returns the future covariate names in feature order.
func (m *Model) FutureCovariates() []string {
	return append([]string(nil), m.artifact.FutureCovariates...)
}

// Lookback is the number of target steps needed before the first forecast.
func (m *Model) Lookback() int {
	deepest := 0
	for _, l := range m.artifact.Lags {
		if l < deepest {
			deepest = l
		}
	}
	return -deepest
}

func (m *Model) featureWidth() int {
	a := m.artifact
	return len(a.Lags) +
		len(a.PastCovariates)*len(a.LagsPastCovariates) +
		len(a.FutureCovariates)*len(a.LagsFutureCovariates)
}

// Predict forecasts the n steps following the end of target. past and
// future must carry exactly the covariates named by the artifact; they
// may be nil only when the artifact names none.
//
// Missing history or covariate values are errors; nothing is padded.
func (m *Model) Predict(n int, target *timeseries.Series, past, future *timeseries.Frame) (*timeseries.Series, error) {
	if n <= 0 || n > m.artifact.OutputChunkLength {
		return nil, fmt.Errorf("%w: n=%d, output_chunk_length=%d", ErrHorizon, n, m.artifact.OutputChunkLength)
	}
	if target == nil || target.Len() == 0 {
		return nil, fmt.Errorf("%w: empty target", ErrInsufficientHistory)
	}
	if target.Name != "" && target.Name != m.artifact.Target {
		return nil, fmt.Errorf("%w: target %q, model predicts %q", ErrCovariateMismatch, target.Name, m.artifact.Target)
	}
	if err := m.checkRegular(target); err != nil {
		return nil, err
	}
	if lb := m.Lookback(); target.Len() < lb {
		return nil, fmt.Errorf("%w: have %d steps, need %d", ErrInsufficientHistory, target.Len(), lb)
	}
	if err := checkComponents("past", past, m.artifact.PastCovariates); err != nil {
		return nil, err
	}
	if err := checkComponents("future", future, m.artifact.FutureCovariates); err != nil {
		return nil, err
	}

	x, err := m.features(target, past, future)
	if err != nil {
		return nil, err
	}

	anchor := target.End()
	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for h := 0; h < n; h++ {
		est := m.artifact.Estimators[h]
		timestamps[h] = anchor.Add(time.Duration(h+1) * m.step)
		values[h] = est.Intercept + floats.Dot(est.Coef, x)
	}

	return timeseries.NewWithTimestamps(m.artifact.Target, timestamps, values)
}

// checkRegular requires target to advance by exactly one step per sample.
func (m *Model) checkRegular(target *timeseries.Series) error {
	for i := 1; i < len(target.Timestamps); i++ {
		if d := target.Timestamps[i].Sub(target.Timestamps[i-1]); d != m.step {
			return fmt.Errorf("%w: step %s at %s, want %s", ErrMisaligned, d,
				target.Timestamps[i].Format(time.RFC3339), m.step)
		}
	}
	return nil
}

func checkComponents(kind string, frame *timeseries.Frame, want []string) error {
	if len(want) == 0 {
		if frame != nil && len(frame.Names()) > 0 {
			return fmt.Errorf("%w: model takes no %s covariates, got %v", ErrCovariateMismatch, kind, frame.Names())
		}
		return nil
	}
	if frame == nil {
		return fmt.Errorf("%w: %s covariates required: %v", ErrCovariateMismatch, kind, want)
	}
	got := frame.Names()
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s covariates %v, want %v", ErrCovariateMismatch, kind, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: %s covariates %v, want %v", ErrCovariateMismatch, kind, got, want)
		}
	}
	return nil
}

// features builds the regressor: target lags, then each past covariate's
// lags, then each future covariate's lags.
func (m *Model) features(target *timeseries.Series, past, future *timeseries.Frame) ([]float64, error) {
	a := m.artifact
	anchor := target.End()
	last := target.Len() - 1

	x := make([]float64, 0, m.featureWidth())
	for _, l := range a.Lags {
		v := target.Values[last+l+1]
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %s at %s", ErrMissingValue, a.Target,
				target.Timestamps[last+l+1].Format(time.RFC3339))
		}
		x = append(x, v)
	}

	appendCovariates := func(frame *timeseries.Frame, names []string, lags []int) error {
		for _, name := range names {
			col, _ := frame.Column(name)
			for _, l := range lags {
				ts := anchor.Add(time.Duration(l+1) * m.step)
				pos, ok := frame.Locate(ts)
				if !ok {
					return fmt.Errorf("%w: %s has no value at %s", ErrCovariateMismatch, name, ts.Format(time.RFC3339))
				}
				if math.IsNaN(col[pos]) {
					return fmt.Errorf("%w: %s at %s", ErrMissingValue, name, ts.Format(time.RFC3339))
				}
				x = append(x, col[pos])
			}
		}
		return nil
	}

	if err := appendCovariates(past, a.PastCovariates, a.LagsPastCovariates); err != nil {
		return nil, err
	}
	if err := appendCovariates(future, a.FutureCovariates, a.LagsFutureCovariates); err != nil {
		return nil, err
	}
	return x, nil
}
