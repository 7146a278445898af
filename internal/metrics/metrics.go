// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedocs_predictions_total",
		Help: "Prediction requests by outcome (ok, invalid_input, upstream_error, model_error, canceled, internal_error).",
	}, []string{"outcome"})

	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pedocs_prediction_duration_seconds",
		Help:    "Duration of the full prediction pipeline.",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	WeatherRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedocs_weather_requests_total",
		Help: "Outbound weather provider requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	WeatherRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedocs_weather_retries_total",
		Help: "Weather provider retry attempts after a transient failure.",
	}, []string{"provider"})

	WeatherCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedocs_weather_cache_total",
		Help: "Weather response cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	CachePurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pedocs_cache_purged_entries_total",
		Help: "Expired response cache entries removed by the scheduler.",
	})

	ModelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pedocs_model_loads_total",
		Help: "Model artifact load attempts by outcome.",
	}, []string{"outcome"})
)
