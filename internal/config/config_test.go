package config

import (
	"strings"
	"testing"
	"time"

	"github.com/i474232898/pedocs-forecast/internal/timeseries"
)

var keys = []string{
	"PORT", "ALLOWED_ORIGINS", "MODEL_PATH", "GAP_POLICY", "WEATHER_BASE_URL",
	"WEATHER_LATITUDE", "WEATHER_LONGITUDE", "WEATHER_LOCATION_CITY", "WEATHER_LOCATION_COUNTRY",
	"GEOCODER_API_KEY", "HTTP_TIMEOUT", "WEATHER_MAX_RETRIES", "WEATHER_BACKOFF_INITIAL",
	"WEATHER_BACKOFF_MAX", "CACHE_TTL", "CACHE_MAX_ENTRIES", "CACHE_PURGE_INTERVAL", "REDIS_URL",
	"RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW", "MAX_UPLOAD_BYTES", "LOG_VERBOSITY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" || cfg.ModelPath != "model/pedocs_model_24hr.json" {
		t.Errorf("unexpected defaults: port=%q model=%q", cfg.Port, cfg.ModelPath)
	}
	if cfg.GapPolicy != timeseries.GapForwardFill {
		t.Errorf("unexpected gap policy %q", cfg.GapPolicy)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "http://localhost:8080" || cfg.AllowedOrigins[1] != FrontendOrigin {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.Location.Latitude != DefaultLatitude || cfg.Location.Longitude != DefaultLongitude || cfg.ExplicitLocation {
		t.Errorf("unexpected location %+v explicit=%v", cfg.Location, cfg.ExplicitLocation)
	}
	if cfg.WeatherMaxRetries != 5 || cfg.WeatherBackoffInitial != 200*time.Millisecond || cfg.WeatherBackoffMax != 5*time.Second {
		t.Errorf("unexpected retry settings %d %s %s", cfg.WeatherMaxRetries, cfg.WeatherBackoffInitial, cfg.WeatherBackoffMax)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("unexpected cache ttl %s", cfg.CacheTTL)
	}
	if cfg.RateLimitMax != 5 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("unexpected rate limit %d/%s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example/ ,,"+FrontendOrigin+"/")
	t.Setenv("GAP_POLICY", "interpolate")
	t.Setenv("WEATHER_LATITUDE", "52.52")
	t.Setenv("WEATHER_LONGITUDE", "13.41")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("CACHE_TTL", "0s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"https://a.example", "https://b.example", FrontendOrigin}
	if strings.Join(cfg.AllowedOrigins, " ") != strings.Join(want, " ") {
		t.Errorf("origins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.GapPolicy != timeseries.GapInterpolate {
		t.Errorf("unexpected gap policy %q", cfg.GapPolicy)
	}
	if !cfg.ExplicitLocation || cfg.Location.Latitude != 52.52 || cfg.Location.Longitude != 13.41 {
		t.Errorf("unexpected location %+v", cfg.Location)
	}
	if cfg.RateLimitMax != 10 || cfg.CacheTTL != 0 || cfg.RedisURL == "" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"gap policy", map[string]string{"GAP_POLICY": "drop"}},
		{"duration", map[string]string{"HTTP_TIMEOUT": "soon"}},
		{"half a coordinate", map[string]string{"WEATHER_LATITUDE": "10"}},
		{"latitude range", map[string]string{"WEATHER_LATITUDE": "100", "WEATHER_LONGITUDE": "0"}},
		{"backoff cap below initial", map[string]string{"WEATHER_BACKOFF_INITIAL": "2s", "WEATHER_BACKOFF_MAX": "1s"}},
		{"rate limit", map[string]string{"RATE_LIMIT_MAX": "0"}},
		{"base url", map[string]string{"WEATHER_BASE_URL": "not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected an error for %v", tt.env)
			}
		})
	}
}
