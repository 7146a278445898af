// Package model loads the pretrained PEDOCS regression artifact and runs
// multi-step predictions over time-indexed target and covariate data.
package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var (
	// ErrModel is the parent of every model failure.
	ErrModel = errors.New("model error")

	ErrInvalidArtifact     = fmt.Errorf("%w: invalid artifact", ErrModel)
	ErrLoad                = fmt.Errorf("%w: load failed", ErrModel)
	ErrHorizon             = fmt.Errorf("%w: horizon out of range", ErrModel)
	ErrInsufficientHistory = fmt.Errorf("%w: insufficient history", ErrModel)
	ErrCovariateMismatch   = fmt.Errorf("%w: covariate mismatch", ErrModel)
	ErrMissingValue        = fmt.Errorf("%w: missing value", ErrModel)
	ErrMisaligned          = fmt.Errorf("%w: misaligned series", ErrModel)
)

// Estimator is the linear head for one forecast step.
type Estimator struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// Artifact is the serialized form of a direct multi-output regression.
// Lags are relative to the first forecast step, so -1 is the last
// observed step.
type Artifact struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	Frequency         string `json:"frequency"`
	OutputChunkLength int    `json:"output_chunk_length"`
	Target            string `json:"target"`
	Lags              []int  `json:"lags"`

	PastCovariates     []string `json:"past_covariates"`
	LagsPastCovariates []int    `json:"lags_past_covariates"`

	FutureCovariates     []string `json:"future_covariates"`
	LagsFutureCovariates []int    `json:"lags_future_covariates"`

	Estimators []Estimator `json:"estimators"`
}

// Load reads and validates an artifact file.
func Load(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a Artifact
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidArtifact, path, err)
	}
	return New(a)
}

// New validates a and returns a ready model.
func New(a Artifact) (*Model, error) {
	step, err := time.ParseDuration(a.Frequency)
	if err != nil || step <= 0 {
		return nil, fmt.Errorf("%w: frequency %q", ErrInvalidArtifact, a.Frequency)
	}
	if a.Target == "" {
		return nil, fmt.Errorf("%w: no target component", ErrInvalidArtifact)
	}
	if a.OutputChunkLength <= 0 {
		return nil, fmt.Errorf("%w: output_chunk_length %d", ErrInvalidArtifact, a.OutputChunkLength)
	}
	if len(a.Lags) == 0 {
		return nil, fmt.Errorf("%w: no target lags", ErrInvalidArtifact)
	}
	if err := checkLags("lags", a.Lags, true); err != nil {
		return nil, err
	}
	if len(a.PastCovariates) > 0 {
		if err := checkLags("lags_past_covariates", a.LagsPastCovariates, true); err != nil {
			return nil, err
		}
	}
	if len(a.FutureCovariates) > 0 {
		if err := checkLags("lags_future_covariates", a.LagsFutureCovariates, false); err != nil {
			return nil, err
		}
	}
	if len(a.Estimators) != a.OutputChunkLength {
		return nil, fmt.Errorf("%w: %d estimators for output_chunk_length %d",
			ErrInvalidArtifact, len(a.Estimators), a.OutputChunkLength)
	}

	m := &Model{artifact: a, step: step}
	width := m.featureWidth()
	for i, est := range a.Estimators {
		if len(est.Coef) != width {
			return nil, fmt.Errorf("%w: estimator %d has %d coefficients, want %d",
				ErrInvalidArtifact, i, len(est.Coef), width)
		}
	}
	return m, nil
}

// checkLags rejects empty lag lists and, for target and past covariates,
// lags that reach into the forecast window.
func checkLags(field string, lags []int, pastOnly bool) error {
	if len(lags) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrInvalidArtifact, field)
	}
	for _, l := range lags {
		if pastOnly && l >= 0 {
			return fmt.Errorf("%w: %s contains non-negative lag %d", ErrInvalidArtifact, field, l)
		}
	}
	return nil
}
