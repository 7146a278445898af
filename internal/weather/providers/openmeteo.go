package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"

	"github.com/i474232898/pedocs-forecast/internal/weather"
)

// DefaultOpenMeteoURL is the Open-Meteo forecast endpoint. It serves both
// recent past days and the upcoming forecast for start_date/end_date queries.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  logr.Logger
}

// NewOpenMeteoProvider creates a provider for baseURL, or DefaultOpenMeteoURL when empty.
func NewOpenMeteoProvider(baseURL string, httpCfg HTTPClientConfig, logger logr.Logger) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: httpCfg,
		circuit: newCircuitBreaker("openmeteo"),
		logger:  logger.WithName("openmeteo"),
	}
}

// Name returns the provider name used in logs and errors.
func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHourly requests weather.HourlyVariables for the calendar days
// start..end inclusive.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, loc weather.Location, start, end time.Time) ([]weather.Record, error) {
	u := p.requestURL(loc, start, end)

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	}

	body, err := fetchCached(ctx, p.name, p.httpCfg, p.circuit, p.logger, u, buildRequest)
	if err != nil {
		return nil, err
	}

	block, err := decodeHourly(body)
	if err != nil {
		return nil, err
	}
	return block.records()
}

func (p *OpenMeteoProvider) requestURL(loc weather.Location, start, end time.Time) string {
	names := make([]string, len(weather.HourlyVariables))
	for i, v := range weather.HourlyVariables {
		names[i] = string(v)
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	values.Set("hourly", strings.Join(names, ","))
	values.Set("start_date", start.Format(time.DateOnly))
	values.Set("end_date", end.Format(time.DateOnly))
	values.Set("timeformat", "unixtime")

	return fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
}

// hourlyBlock is the "hourly" object of a response. variables holds the
// unnamed value arrays in document order.
type hourlyBlock struct {
	times     []int64
	variables [][]float64
}

// decodeHourly streams the response so the order of the hourly arrays is
// preserved. Open-Meteo emits them in the order they were requested.
func decodeHourly(body []byte) (*hourlyBlock, error) {
	iter := jsoniter.ParseBytes(jsoniter.ConfigDefault, body)

	var (
		block hourlyBlock
		found bool
	)

	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if field != "hourly" {
			it.Skip()
			return true
		}
		found = true
		return it.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
			if name == "time" {
				return it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
					block.times = append(block.times, it.ReadInt64())
					return true
				})
			}
			values := []float64{}
			ok := it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
				if it.WhatIsNext() == jsoniter.NilValue {
					it.ReadNil()
					values = append(values, math.NaN())
					return true
				}
				values = append(values, it.ReadFloat64())
				return true
			})
			block.variables = append(block.variables, values)
			return ok
		})
	})

	if iter.Error != nil && !errors.Is(iter.Error, io.EOF) {
		return nil, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, iter.Error)
	}
	if !found {
		return nil, fmt.Errorf("%w: missing hourly block", weather.ErrMalformedResponse)
	}
	return &block, nil
}

// records rebuilds the hourly timeline as [first, last+interval) and pairs
// the leading variable arrays with it in weather.HourlyVariables order.
func (b *hourlyBlock) records() ([]weather.Record, error) {
	n := len(weather.HourlyVariables)
	if len(b.times) == 0 {
		return nil, fmt.Errorf("%w: empty hourly timeline", weather.ErrMalformedResponse)
	}
	if len(b.variables) < n {
		return nil, fmt.Errorf("%w: expected %d hourly variables, got %d",
			weather.ErrMalformedResponse, n, len(b.variables))
	}

	interval := time.Hour
	if len(b.times) > 1 {
		interval = time.Duration(b.times[1]-b.times[0]) * time.Second
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: non-increasing hourly timeline", weather.ErrMalformedResponse)
	}

	start := time.Unix(b.times[0], 0).UTC()
	end := time.Unix(b.times[len(b.times)-1], 0).UTC().Add(interval)

	var index []time.Time
	for ts := start; ts.Before(end); ts = ts.Add(interval) {
		index = append(index, ts)
	}

	for i := 0; i < n; i++ {
		if len(b.variables[i]) != len(index) {
			return nil, fmt.Errorf("%w: variable %d has %d values for %d hourly slots",
				weather.ErrMalformedResponse, i, len(b.variables[i]), len(index))
		}
	}

	temperature, wind, precipitation := b.variables[0], b.variables[1], b.variables[2]

	out := make([]weather.Record, len(index))
	for i, ts := range index {
		out[i] = weather.Record{
			Timestamp:       ts,
			TemperatureC:    temperature[i],
			WindSpeedKmh:    wind[i],
			PrecipitationMm: precipitation[i],
		}
	}
	return out, nil
}
