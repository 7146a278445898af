// Package ingest turns an uploaded CSV into a canonical, sorted series of
// PEDOCS score observations.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names the upload must carry.
const (
	ColumnHour  = "Hour"
	ColumnScore = "PEDOCS Score"
)

var (
	// ErrValidation is the parent of every input error; callers map it to a 4xx.
	ErrValidation = errors.New("invalid upload")

	ErrEncoding       = fmt.Errorf("%w: file is not valid UTF-8 text", ErrValidation)
	ErrMalformedCSV   = fmt.Errorf("%w: file is not a readable CSV", ErrValidation)
	ErrMissingColumns = fmt.Errorf("%w: CSV must include '%s' and '%s' columns", ErrValidation, ColumnHour, ColumnScore)
	ErrNoObservations = fmt.Errorf("%w: CSV has no rows with a valid timestamp and score", ErrValidation)
)

// Observation is one uploaded row after parsing.
type Observation struct {
	Timestamp time.Time
	Score     float64
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse validates raw CSV bytes and returns the observations sorted ascending
// by timestamp. Rows whose timestamp or score cannot be parsed are dropped.
func Parse(raw []byte) ([]Observation, error) {
	if !utf8.Valid(raw) {
		return nil, ErrEncoding
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	records, err := readRecords(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	if len(records) == 0 || !hasColumns(records[0], ColumnHour, ColumnScore) {
		return nil, ErrMissingColumns
	}
	if len(records) == 1 {
		return nil, ErrNoObservations
	}

	df := dataframe.LoadRecords(
		records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, df.Err)
	}

	hours := df.Col(ColumnHour).Records()
	scores := df.Col(ColumnScore).Records()

	obs := make([]Observation, 0, len(hours))
	for i := range hours {
		ts, ok := ParseTimestamp(hours[i])
		if !ok {
			continue
		}
		score, ok := parseScore(scores[i])
		if !ok {
			continue
		}
		obs = append(obs, Observation{Timestamp: ts, Score: score})
	}

	if len(obs) == 0 {
		return nil, ErrNoObservations
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})

	return obs, nil
}

// readRecords reads every CSV record and fits each row to the header width.
// Short rows are padded with empty fields and long rows are truncated, so a
// row missing its score is dropped later instead of failing the upload.
func readRecords(raw []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil || len(records) == 0 {
		return records, err
	}

	width := len(records[0])
	for i, rec := range records[1:] {
		switch {
		case len(rec) < width:
			padded := make([]string, width)
			copy(padded, rec)
			records[i+1] = padded
		case len(rec) > width:
			records[i+1] = rec[:width]
		}
	}
	return records, nil
}

func hasColumns(names []string, want ...string) bool {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, w := range want {
		if !seen[w] {
			return false
		}
	}
	return true
}

func parseScore(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// timestampLayouts are tried in order. Layouts without a zone parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006",
}

// ParseTimestamp parses an upload timestamp, normalising it to UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateSpan returns the calendar days (UTC midnight) of the first and last
// observation. obs must be sorted and non-empty.
func DateSpan(obs []Observation) (start, end time.Time) {
	first := obs[0].Timestamp
	last := obs[len(obs)-1].Timestamp
	return first.Truncate(24 * time.Hour), last.Truncate(24 * time.Hour)
}
