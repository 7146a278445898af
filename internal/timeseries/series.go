// Package timeseries provides the time-indexed series and frame types handed
// to the forecasting model.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrLengthMismatch is returned when timestamps and values differ in length.
	ErrLengthMismatch = errors.New("timestamps and values must have the same length")
	// ErrUnsorted is returned when timestamps are not in ascending order.
	ErrUnsorted = errors.New("timestamps must be sorted ascending")
	// ErrMisaligned is returned when a timestamp does not fall on the series grid.
	ErrMisaligned = errors.New("timestamp is not aligned to the series frequency")
	// ErrGap is returned by Regularize under GapError when the grid has holes.
	ErrGap = errors.New("series has missing steps")
	// ErrEmpty is returned when an operation needs at least one sample.
	ErrEmpty = errors.New("series is empty")
)

// Series represents a single named component indexed by time.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// NewWithTimestamps creates a named series with explicit timestamps.
func NewWithTimestamps(name string, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}
	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       name,
	}, nil
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the last timestamp, or the zero time for an empty series.
func (s *Series) End() time.Time {
	if len(s.Timestamps) == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

// Locate returns the position of t in the series. Timestamps must be sorted.
func (s *Series) Locate(t time.Time) (int, bool) {
	return locate(s.Timestamps, t)
}

func locate(index []time.Time, t time.Time) (int, bool) {
	i := sort.Search(len(index), func(i int) bool {
		return !index[i].Before(t)
	})
	if i < len(index) && index[i].Equal(t) {
		return i, true
	}
	return 0, false
}

// GapPolicy decides how Regularize treats grid steps without an observation.
type GapPolicy string

const (
	GapForwardFill GapPolicy = "ffill"
	GapInterpolate GapPolicy = "interpolate"
	GapError       GapPolicy = "error"
)

// ParseGapPolicy validates a policy name.
func ParseGapPolicy(s string) (GapPolicy, error) {
	switch p := GapPolicy(s); p {
	case GapForwardFill, GapInterpolate, GapError:
		return p, nil
	default:
		return "", fmt.Errorf("unknown gap policy %q (want ffill, interpolate or error)", s)
	}
}

// Regularize reindexes s onto a regular grid of the given step starting at
// its first timestamp. Duplicate timestamps keep the last value. Steps with
// no observation are filled according to policy.
func Regularize(s *Series, step time.Duration, policy GapPolicy) (*Series, error) {
	if s.Len() == 0 {
		return nil, ErrEmpty
	}
	if len(s.Timestamps) != len(s.Values) {
		return nil, ErrLengthMismatch
	}
	if step <= 0 {
		return nil, fmt.Errorf("invalid step %s", step)
	}

	start := s.Start()
	for i := 1; i < len(s.Timestamps); i++ {
		if s.Timestamps[i].Before(s.Timestamps[i-1]) {
			return nil, ErrUnsorted
		}
	}
	for _, ts := range s.Timestamps {
		if ts.Sub(start)%step != 0 {
			return nil, fmt.Errorf("%w: %s (step %s)", ErrMisaligned, ts.Format(time.RFC3339), step)
		}
	}

	n := int(s.End().Sub(start)/step) + 1
	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * step)
		values[i] = math.NaN()
	}
	for i, ts := range s.Timestamps {
		values[int(ts.Sub(start)/step)] = s.Values[i]
	}

	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
		}
	}

	if missing > 0 {
		switch policy {
		case GapError:
			return nil, fmt.Errorf("%w: %d of %d steps", ErrGap, missing, n)
		case GapInterpolate:
			interpolate(values)
		default:
			forwardFill(values)
		}
	}

	return &Series{
		Timestamps: timestamps,
		Values:     values,
		Name:       s.Name,
	}, nil
}

// forwardFill replaces NaNs with the previous observed value.
func forwardFill(values []float64) {
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = last
			continue
		}
		last = v
	}
}

// interpolate fills interior NaN runs linearly between their neighbours.
// Leading or trailing runs fall back to the nearest observed value.
func interpolate(values []float64) {
	prev := -1
	for i := 0; i < len(values); i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			lo, hi := values[prev], values[i]
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				values[j] = lo + (hi-lo)*float64(j-prev)/span
			}
		}
		prev = i
	}
	forwardFill(values)
}
