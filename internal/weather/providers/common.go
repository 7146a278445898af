package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/sony/gobreaker"

	"github.com/i474232898/pedocs-forecast/internal/cache"
	"github.com/i474232898/pedocs-forecast/internal/metrics"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client, resilience and caching settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig

	// Cache is optional; successful bodies are stored for CacheTTL.
	Cache    cache.Cache
	CacheTTL time.Duration
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// statusError is a non-retryable client error (4xx other than 429).
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%v: %d", errUnexpected, e.code)
	}
	return fmt.Sprintf("%v: %d: %s", errUnexpected, e.code, e.body)
}

func (e *statusError) Unwrap() error { return errUnexpected }

func isPermanent(err error) bool {
	var se *statusError
	return errors.As(err, &se)
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// Bad requests are our fault, not the provider's.
		IsSuccessful: func(err error) bool {
			return err == nil || isPermanent(err)
		},
	})
}

// fetchCached serves key from the configured cache, falling back to a
// resilient request whose body is then cached.
func fetchCached(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	logger logr.Logger,
	key string,
	buildRequest func() (*http.Request, error),
) ([]byte, error) {
	if cfg.Cache != nil {
		body, ok, err := cfg.Cache.Get(ctx, key)
		switch {
		case err != nil:
			metrics.WeatherCache.WithLabelValues("error").Inc()
			logger.Error(err, "cache lookup failed; fetching from provider")
		case ok:
			metrics.WeatherCache.WithLabelValues("hit").Inc()
			logger.V(1).Info("serving weather from cache", "key", key)
			return body, nil
		default:
			metrics.WeatherCache.WithLabelValues("miss").Inc()
		}
	}

	body, err := doRequestWithResilience(ctx, provider, cfg, cb, buildRequest)
	if err != nil {
		metrics.WeatherRequests.WithLabelValues(provider, "error").Inc()
		return nil, err
	}
	metrics.WeatherRequests.WithLabelValues(provider, "ok").Inc()

	if cfg.Cache != nil {
		if err := cfg.Cache.Set(ctx, key, body, cfg.CacheTTL); err != nil {
			logger.Error(err, "cache store failed", "key", key)
		}
	}
	return body, nil
}

// doRequestWithResilience executes the HTTP request with retries, exponential
// backoff, and a circuit breaker, returning the response body on success.
func doRequestWithResilience(
	ctx context.Context,
	provider string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
				return nil, &statusError{code: resp.StatusCode, body: string(snippet)}
			}

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return nil, readErr
			}
			return body, nil
		})

		if err == nil {
			// Success.
			body, ok := result.([]byte)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return body, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if isPermanent(err) {
			return nil, err
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, fmt.Errorf("giving up after %d attempts: %w", attempt+1, lastErr)
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		metrics.WeatherRetries.WithLabelValues(provider).Inc()
		attempt++
	}
}
