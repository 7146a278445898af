// Package features aligns uploaded observations with hourly weather and
// derives the calendar and rolling covariates the model consumes.
package features

import (
	"math"
	"time"

	"github.com/i474232898/pedocs-forecast/internal/ingest"
	"github.com/i474232898/pedocs-forecast/internal/weather"
)

// MergedRow is one hour of the weather timeline with the observed score,
// NaN when the upload does not cover that hour.
type MergedRow struct {
	Timestamp       time.Time
	Score           float64
	TemperatureC    float64
	WindSpeedKmh    float64
	PrecipitationMm float64
}

// HasScore reports whether the row carries an observed score.
func (r MergedRow) HasScore() bool {
	return !math.IsNaN(r.Score)
}

// Merge right-joins obs onto the weather timeline. The output has exactly
// one row per record, in record order. Observations outside the timeline
// are dropped; for repeated timestamps the last observation wins.
func Merge(obs []ingest.Observation, records []weather.Record) []MergedRow {
	scores := make(map[int64]float64, len(obs))
	for _, o := range obs {
		scores[o.Timestamp.UnixNano()] = o.Score
	}

	out := make([]MergedRow, len(records))
	for i, rec := range records {
		score, ok := scores[rec.Timestamp.UnixNano()]
		if !ok {
			score = math.NaN()
		}
		out[i] = MergedRow{
			Timestamp:       rec.Timestamp,
			Score:           score,
			TemperatureC:    rec.TemperatureC,
			WindSpeedKmh:    rec.WindSpeedKmh,
			PrecipitationMm: rec.PrecipitationMm,
		}
	}
	return out
}
