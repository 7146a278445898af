package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/i474232898/pedocs-forecast/internal/cache"
	"github.com/i474232898/pedocs-forecast/internal/weather"
)

var (
	testLoc   = weather.Location{Latitude: 37.4241, Longitude: -122.1661}
	testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func testConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Client: &http.Client{Timeout: 5 * time.Second},
		Backoff: BackoffConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
	}
}

// hourlyPayload builds a response with n hourly slots starting at testStart.
// names sets the keys of the three variable arrays.
func hourlyPayload(n int, names [3]string) string {
	times := make([]string, n)
	a := make([]string, n)
	b := make([]string, n)
	c := make([]string, n)
	for i := 0; i < n; i++ {
		times[i] = fmt.Sprintf("%d", testStart.Add(time.Duration(i)*time.Hour).Unix())
		a[i] = fmt.Sprintf("%d.5", i)
		b[i] = fmt.Sprintf("%d", 100+i)
		c[i] = "0.1"
	}
	return fmt.Sprintf(`{"latitude":37.42,"longitude":-122.17,"utc_offset_seconds":0,`+
		`"hourly_units":{"time":"unixtime"},`+
		`"hourly":{"time":[%s],"%s":[%s],"%s":[%s],"%s":[%s]}}`,
		strings.Join(times, ","),
		names[0], strings.Join(a, ","),
		names[1], strings.Join(b, ","),
		names[2], strings.Join(c, ","))
}

func TestOpenMeteoFetchHourly(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, hourlyPayload(48, [3]string{"temperature_2m", "wind_speed_10m", "precipitation"}))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.URL, testConfig(), logr.Discard())
	records, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 48 {
		t.Fatalf("expected 48 records, got %d", len(records))
	}
	if !records[0].Timestamp.Equal(testStart) || !records[47].Timestamp.Equal(testStart.Add(47*time.Hour)) {
		t.Errorf("unexpected timeline %s..%s", records[0].Timestamp, records[47].Timestamp)
	}
	if records[3].TemperatureC != 3.5 || records[3].WindSpeedKmh != 103 || records[3].PrecipitationMm != 0.1 {
		t.Errorf("unexpected record %+v", records[3])
	}

	for _, want := range []string{
		"hourly=temperature_2m%2Cwind_speed_10m%2Cprecipitation",
		"start_date=2024-01-01",
		"end_date=2024-01-02",
		"latitude=37.4241",
		"longitude=-122.1661",
		"timeformat=unixtime",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
}

// Values are assigned by position in the response, never by key.
func TestOpenMeteoAssignsVariablesPositionally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, hourlyPayload(3, [3]string{"precipitation", "temperature_2m", "v3"}))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.URL, testConfig(), logr.Discard())
	records, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[2].TemperatureC != 2.5 {
		t.Errorf("temperature should come from the first array, got %v", records[2].TemperatureC)
	}
	if records[2].WindSpeedKmh != 102 {
		t.Errorf("wind speed should come from the second array, got %v", records[2].WindSpeedKmh)
	}
	if records[2].PrecipitationMm != 0.1 {
		t.Errorf("precipitation should come from the third array, got %v", records[2].PrecipitationMm)
	}
}

func TestDecodeHourlyNullsAndErrors(t *testing.T) {
	t0 := testStart.Unix()

	t.Run("null becomes NaN", func(t *testing.T) {
		body := fmt.Sprintf(`{"hourly":{"time":[%d,%d],"a":[1,null],"b":[2,3],"c":[null,0]}}`, t0, t0+3600)
		block, err := decodeHourly([]byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		records, err := block.records()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !math.IsNaN(records[1].TemperatureC) || !math.IsNaN(records[0].PrecipitationMm) {
			t.Errorf("expected NaN for null values, got %+v", records)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing hourly", `{"latitude":1}`},
		{"too few variables", fmt.Sprintf(`{"hourly":{"time":[%d],"a":[1],"b":[2]}}`, t0)},
		{"length mismatch", fmt.Sprintf(`{"hourly":{"time":[%d,%d],"a":[1],"b":[2,3],"c":[4,5]}}`, t0, t0+3600)},
		{"empty timeline", `{"hourly":{"time":[],"a":[],"b":[],"c":[]}}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := decodeHourly([]byte(tt.body))
			if err == nil {
				_, err = block.records()
			}
			if !errors.Is(err, weather.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestOpenMeteoRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, hourlyPayload(24, [3]string{"temperature_2m", "wind_speed_10m", "precipitation"}))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.URL, testConfig(), logr.Discard())
	records, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 24 {
		t.Errorf("expected 24 records, got %d", len(records))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestOpenMeteoGivesUpAfterRetryBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.URL, testConfig(), logr.Discard())
	_, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart)
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected server error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 1 call + 2 retries, got %d", got)
	}
}

func TestOpenMeteoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.URL, testConfig(), logr.Discard())
	_, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart)
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "out of allowed range") {
		t.Errorf("expected provider reason in error, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected a single call, got %d", got)
	}
}

func TestOpenMeteoServesRepeatedRequestsFromCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, hourlyPayload(24, [3]string{"temperature_2m", "wind_speed_10m", "precipitation"}))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Cache = cache.NewMemoryCache(10)
	cfg.CacheTTL = time.Hour

	p := NewOpenMeteoProvider(srv.URL, cfg, logr.Discard())
	for i := 0; i < 3; i++ {
		if _, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart); err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}

	// A different span is a different cache key.
	if _, err := p.FetchHourly(context.Background(), testLoc, testStart, testStart.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestDoRequestWithResilienceConfig(t *testing.T) {
	cb := newCircuitBreaker("test")
	build := func() (*http.Request, error) { return http.NewRequest(http.MethodGet, "http://localhost", nil) }

	if _, err := doRequestWithResilience(context.Background(), "test", HTTPClientConfig{}, cb, build); !errors.Is(err, errNoHTTPClient) {
		t.Errorf("expected errNoHTTPClient, got %v", err)
	}

	cfg := HTTPClientConfig{Client: http.DefaultClient}
	if _, err := doRequestWithResilience(context.Background(), "test", cfg, cb, build); !errors.Is(err, errInvalidConfig) {
		t.Errorf("expected errInvalidConfig, got %v", err)
	}
}
