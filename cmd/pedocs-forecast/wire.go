package main

import (
	"errors"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/i474232898/pedocs-forecast/internal/cache"
	"github.com/i474232898/pedocs-forecast/internal/config"
	"github.com/i474232898/pedocs-forecast/internal/forecast"
	"github.com/i474232898/pedocs-forecast/internal/model"
	"github.com/i474232898/pedocs-forecast/internal/scheduler"
	"github.com/i474232898/pedocs-forecast/internal/weather"
	"github.com/i474232898/pedocs-forecast/internal/weather/providers"
)

// pipeline holds the wired prediction service and the resources that
// outlive a single request.
type pipeline struct {
	service *forecast.Service
	purger  scheduler.Purger
	closers []func() error
}

func (p *pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func buildPipeline(cfg *config.AppConfig, logger logr.Logger) *pipeline {
	p := &pipeline{}

	loc := resolveLocation(cfg, logger)

	// Shared HTTP client for outbound provider calls.
	httpCfg := providers.HTTPClientConfig{
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
		Backoff: providers.BackoffConfig{
			MaxRetries:      cfg.WeatherMaxRetries,
			InitialInterval: cfg.WeatherBackoffInitial,
			MaxInterval:     cfg.WeatherBackoffMax,
		},
		CacheTTL: cfg.CacheTTL,
	}

	if cfg.CacheTTL > 0 {
		httpCfg.Cache = p.responseCache(cfg, logger)
	}

	provider := providers.NewOpenMeteoProvider(cfg.WeatherBaseURL, httpCfg, logger)
	weatherSvc := weather.NewService(provider, loc, logger)
	logger.Info("weather provider ready", "provider", provider.Name(), "location", weatherSvc.Location().Key())

	holder := model.NewHolder(model.FileLoader(cfg.ModelPath))
	p.service = forecast.NewService(weatherSvc, forecast.NewForecaster(holder, cfg.GapPolicy), logger)
	return p
}

// responseCache prefers Redis when configured and falls back to memory.
func (p *pipeline) responseCache(cfg *config.AppConfig, logger logr.Logger) cache.Cache {
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, 3)
		if err == nil {
			logger.Info("caching weather responses in redis", "ttl", cfg.CacheTTL.String())
			p.closers = append(p.closers, rc.Close)
			return rc
		}
		logger.Error(err, "redis unavailable; caching weather responses in memory")
	}

	mc := cache.NewMemoryCache(cfg.CacheMaxEntries)
	p.purger = mc
	return mc
}

// resolveLocation geocodes the configured city when no coordinate was given.
func resolveLocation(cfg *config.AppConfig, logger logr.Logger) weather.Location {
	loc := cfg.Location
	if cfg.ExplicitLocation || cfg.GeocoderAPIKey == "" || (loc.City == "" && loc.Country == "") {
		return loc
	}

	resolved, err := weather.Geocode(cfg.GeocoderAPIKey, loc)
	if err != nil {
		logger.Error(err, "geocoding failed; using default coordinate", "location", loc.Key())
		return loc
	}
	logger.Info("geocoded weather location", "city", resolved.City, "country", resolved.Country, "location", resolved.Key())
	return resolved
}
