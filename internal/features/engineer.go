package features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/i474232898/pedocs-forecast/internal/timeseries"
)

// Frame column names.
const (
	ColumnScore         = "pedocs_score"
	ColumnTemperature   = "temperature_2m"
	ColumnWindSpeed     = "wind_speed_10m"
	ColumnPrecipitation = "precipitation"
	ColumnDayOfWeek     = "day_of_week"
	ColumnHour          = "hour"
	ColumnIsWeekend     = "is_weekend"
	ColumnIsPeakHour    = "is_peak_hour"
	ColumnIsValleyHour  = "is_valley_hour"
)

// RollingWindows are the trailing window sizes, in rows, of the score means.
var RollingWindows = [...]int{3, 6, 12, 24, 48}

// RollingColumn names the rolling mean column for window w.
func RollingColumn(w int) string {
	return fmt.Sprintf("%s_rolling_%dh", ColumnScore, w)
}

// PastCovariates lists the covariates only known up to the last observation.
var PastCovariates = func() []string {
	names := make([]string, len(RollingWindows))
	for i, w := range RollingWindows {
		names[i] = RollingColumn(w)
	}
	return names
}()

// FutureCovariates lists the covariates known ahead of time, in model order.
var FutureCovariates = []string{
	ColumnIsPeakHour,
	ColumnTemperature,
	ColumnWindSpeed,
	ColumnIsValleyHour,
	ColumnIsWeekend,
}

// Row is a merged row with derived calendar flags and rolling means.
type Row struct {
	MergedRow

	DayOfWeek    int // 0 = Monday .. 6 = Sunday
	Hour         int
	IsWeekend    bool
	IsPeakHour   bool
	IsValleyHour bool

	// Rolling[i] is the mean over RollingWindows[i] rows.
	Rolling [len(RollingWindows)]float64
}

// Engineer derives feature rows from merged rows. Input order is kept and
// the input is not modified.
func Engineer(merged []MergedRow) []Row {
	out := make([]Row, len(merged))
	for i, m := range merged {
		ts := m.Timestamp.UTC()
		dow := weekdayIndex(ts.Weekday())
		hour := ts.Hour()

		row := Row{
			MergedRow:    m,
			DayOfWeek:    dow,
			Hour:         hour,
			IsWeekend:    dow >= 5,
			IsPeakHour:   hour == 0 || hour > 18,
			IsValleyHour: hour >= 5 && hour <= 9,
		}
		for k, w := range RollingWindows {
			row.Rolling[k] = trailingMean(merged, i, w)
		}
		out[i] = row
	}
	return out
}

// weekdayIndex maps time.Weekday (Sunday = 0) to Monday = 0.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// trailingMean averages the observed scores of rows (end-w, end]. Missing
// scores are skipped; NaN when the window has none.
func trailingMean(rows []MergedRow, end, w int) float64 {
	start := end - w + 1
	if start < 0 {
		start = 0
	}
	window := make([]float64, 0, end-start+1)
	for j := start; j <= end; j++ {
		if rows[j].HasScore() {
			window = append(window, rows[j].Score)
		}
	}
	if len(window) == 0 {
		return math.NaN()
	}
	return stat.Mean(window, nil)
}

// Frame lays rows out as named columns over their timestamps. Flags are
// encoded as 0/1.
func Frame(rows []Row) (*timeseries.Frame, error) {
	n := len(rows)
	index := make([]time.Time, n)
	cols := map[string][]float64{
		ColumnScore:         make([]float64, n),
		ColumnTemperature:   make([]float64, n),
		ColumnWindSpeed:     make([]float64, n),
		ColumnPrecipitation: make([]float64, n),
		ColumnDayOfWeek:     make([]float64, n),
		ColumnHour:          make([]float64, n),
		ColumnIsWeekend:     make([]float64, n),
		ColumnIsPeakHour:    make([]float64, n),
		ColumnIsValleyHour:  make([]float64, n),
	}
	rolling := make([][]float64, len(RollingWindows))
	for k := range rolling {
		rolling[k] = make([]float64, n)
	}

	for i, r := range rows {
		if i > 0 && !r.Timestamp.After(rows[i-1].Timestamp) {
			return nil, fmt.Errorf("row %d at %s: %w", i, r.Timestamp.Format(time.RFC3339), timeseries.ErrUnsorted)
		}
		index[i] = r.Timestamp
		cols[ColumnScore][i] = r.Score
		cols[ColumnTemperature][i] = r.TemperatureC
		cols[ColumnWindSpeed][i] = r.WindSpeedKmh
		cols[ColumnPrecipitation][i] = r.PrecipitationMm
		cols[ColumnDayOfWeek][i] = float64(r.DayOfWeek)
		cols[ColumnHour][i] = float64(r.Hour)
		cols[ColumnIsWeekend][i] = flag(r.IsWeekend)
		cols[ColumnIsPeakHour][i] = flag(r.IsPeakHour)
		cols[ColumnIsValleyHour][i] = flag(r.IsValleyHour)
		for k := range RollingWindows {
			rolling[k][i] = r.Rolling[k]
		}
	}

	frame := timeseries.NewFrame(index)
	for _, name := range []string{
		ColumnScore, ColumnTemperature, ColumnWindSpeed, ColumnPrecipitation,
		ColumnDayOfWeek, ColumnHour, ColumnIsWeekend, ColumnIsPeakHour, ColumnIsValleyHour,
	} {
		if err := frame.AddColumn(name, cols[name]); err != nil {
			return nil, err
		}
	}
	for k, w := range RollingWindows {
		if err := frame.AddColumn(RollingColumn(w), rolling[k]); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
