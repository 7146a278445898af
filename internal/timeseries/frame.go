package timeseries

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownColumn is returned when a frame lookup names a missing column.
var ErrUnknownColumn = errors.New("unknown column")

// Frame is a multi-component series: several named columns sharing one
// ascending time index. Column order is insertion order.
type Frame struct {
	Index   []time.Time
	names   []string
	columns map[string][]float64
}

// NewFrame creates an empty frame over index.
func NewFrame(index []time.Time) *Frame {
	return &Frame{
		Index:   index,
		columns: make(map[string][]float64),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Index)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// AddColumn appends or replaces a column. values must match the index length.
func (f *Frame) AddColumn(name string, values []float64) error {
	if len(values) != len(f.Index) {
		return fmt.Errorf("column %q: %w", name, ErrLengthMismatch)
	}
	if _, ok := f.columns[name]; !ok {
		f.names = append(f.names, name)
	}
	f.columns[name] = values
	return nil
}

// Column returns the values of a column.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.columns[name]
	return v, ok
}

// Select returns a frame restricted to the given columns, in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := NewFrame(f.Index)
	for _, name := range names {
		v, ok := f.columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if err := out.AddColumn(name, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Locate returns the row position of t.
func (f *Frame) Locate(t time.Time) (int, bool) {
	return locate(f.Index, t)
}
