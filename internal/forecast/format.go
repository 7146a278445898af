package forecast

import (
	"github.com/i474232898/pedocs-forecast/internal/timeseries"
)

// TimestampLayout renders forecast timestamps as date and time separated
// by a space, always in UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// Point is one forecast step as returned to clients.
type Point struct {
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
}

// Format converts model output to client records in step order.
func Format(s *timeseries.Series) []Point {
	if s == nil {
		return []Point{}
	}
	out := make([]Point, s.Len())
	for i, v := range s.Values {
		out[i] = Point{
			Timestamp: s.Timestamps[i].UTC().Format(TimestampLayout),
			Score:     v,
		}
	}
	return out
}
