package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/pedocs-forecast/internal/timeseries"
	"github.com/i474232898/pedocs-forecast/internal/weather"
)

// FrontendOrigin is always allowed by CORS in addition to ALLOWED_ORIGINS.
const FrontendOrigin = "https://delicate-frangollo-3f4686.netlify.app"

// Default coordinate for weather requests.
const (
	DefaultLatitude  = 37.4241
	DefaultLongitude = -122.1661
)

type AppConfig struct {
	Port           string   `validate:"required"`
	AllowedOrigins []string `validate:"min=1,dive,required"`

	ModelPath string `validate:"required"`
	GapPolicy timeseries.GapPolicy

	WeatherBaseURL string `validate:"omitempty,url"`
	Location       weather.Location
	// ExplicitLocation is set when the coordinate came from the environment
	// rather than the defaults.
	ExplicitLocation bool
	GeocoderAPIKey   string

	HTTPTimeout           time.Duration `validate:"gt=0"`
	WeatherMaxRetries     int           `validate:"gte=0"`
	WeatherBackoffInitial time.Duration `validate:"gt=0"`
	WeatherBackoffMax     time.Duration `validate:"gtefield=WeatherBackoffInitial"`

	// Response cache. A zero TTL disables caching; RedisURL selects Redis
	// over the in-memory cache.
	CacheTTL           time.Duration `validate:"gte=0"`
	CacheMaxEntries    int           `validate:"gte=0"`
	CachePurgeInterval time.Duration `validate:"gt=0"`
	RedisURL           string        `validate:"omitempty,url"`

	RateLimitMax    int           `validate:"gt=0"`
	RateLimitWindow time.Duration `validate:"gt=0"`
	MaxUploadBytes  int           `validate:"gt=0"`

	LogVerbosity int `validate:"gte=0"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.AllowedOrigins = parseOrigins(getenvDefault("ALLOWED_ORIGINS", "http://localhost:8080"))
	cfg.ModelPath = getenvDefault("MODEL_PATH", "model/pedocs_model_24hr.json")

	if cfg.GapPolicy, err = timeseries.ParseGapPolicy(getenvDefault("GAP_POLICY", string(timeseries.GapForwardFill))); err != nil {
		return nil, fmt.Errorf("invalid GAP_POLICY: %w", err)
	}

	cfg.WeatherBaseURL = os.Getenv("WEATHER_BASE_URL")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	if err := loadLocation(cfg); err != nil {
		return nil, err
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"WEATHER_BACKOFF_INITIAL", "200ms", &cfg.WeatherBackoffInitial},
		{"WEATHER_BACKOFF_MAX", "5s", &cfg.WeatherBackoffMax},
		{"CACHE_TTL", "1h", &cfg.CacheTTL},
		{"CACHE_PURGE_INTERVAL", "10m", &cfg.CachePurgeInterval},
		{"RATE_LIMIT_WINDOW", "1m", &cfg.RateLimitWindow},
	}
	for _, d := range durations {
		if *d.dest, err = getenvDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	cfg.WeatherMaxRetries = getenvInt("WEATHER_MAX_RETRIES", 5)
	cfg.CacheMaxEntries = getenvInt("CACHE_MAX_ENTRIES", 256)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.RateLimitMax = getenvInt("RATE_LIMIT_MAX", 5)
	cfg.MaxUploadBytes = getenvInt("MAX_UPLOAD_BYTES", 10<<20)
	cfg.LogVerbosity = getenvInt("LOG_VERBOSITY", 0)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseOrigins splits a comma separated list, drops empties and trailing
// slashes, and appends FrontendOrigin once.
func parseOrigins(raw string) []string {
	seen := make(map[string]bool)
	var origins []string
	for _, o := range append(strings.Split(raw, ","), FrontendOrigin) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

func loadLocation(cfg *AppConfig) error {
	cfg.Location = weather.Location{
		City:      os.Getenv("WEATHER_LOCATION_CITY"),
		Country:   os.Getenv("WEATHER_LOCATION_COUNTRY"),
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
	}

	lat, lon := os.Getenv("WEATHER_LATITUDE"), os.Getenv("WEATHER_LONGITUDE")
	if lat == "" && lon == "" {
		return nil
	}
	if lat == "" || lon == "" {
		return fmt.Errorf("WEATHER_LATITUDE and WEATHER_LONGITUDE must be set together")
	}

	var err error
	if cfg.Location.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
		return fmt.Errorf("invalid WEATHER_LATITUDE: %w", err)
	}
	if cfg.Location.Longitude, err = strconv.ParseFloat(lon, 64); err != nil {
		return fmt.Errorf("invalid WEATHER_LONGITUDE: %w", err)
	}
	cfg.ExplicitLocation = true
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
