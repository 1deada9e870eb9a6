package dataset

import (
	"fmt"
	"math"
	"time"
)

// Column names for the fixed 19-column site schema.
const (
	ColTimestamp     = "Timestamp"
	ColGHI           = "GHI"
	ColDNI           = "DNI"
	ColDHI           = "DHI"
	ColModA          = "ModA"
	ColModB          = "ModB"
	ColTamb          = "Tamb"
	ColRH            = "RH"
	ColWS            = "WS"
	ColWSgust        = "WSgust"
	ColWSstdev       = "WSstdev"
	ColWD            = "WD"
	ColWDstdev       = "WDstdev"
	ColBP            = "BP"
	ColCleaning      = "Cleaning"
	ColPrecipitation = "Precipitation"
	ColTModA         = "TModA"
	ColTModB         = "TModB"
	ColComments      = "Comments"
)

// NumericColumns lists every numeric column in schema order.
var NumericColumns = []string{
	ColGHI, ColDNI, ColDHI, ColModA, ColModB,
	ColTamb, ColRH, ColWS, ColWSgust, ColWSstdev,
	ColWD, ColWDstdev, ColBP, ColCleaning, ColPrecipitation,
	ColTModA, ColTModB,
}

// IrradianceColumns are the sky-facing irradiance sensors. Negative readings
// on these are sensor noise, not valid measurements.
var IrradianceColumns = []string{ColGHI, ColDNI, ColDHI}

// MissingColumnError reports a requested column absent from a frame.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not in table", e.Column)
}

// Frame is an ordered, timestamped observation table. Numeric cells use NaN
// as the missing marker. Timestamps are non-decreasing after ReadCSV.
//
// Frames have value semantics at the operation level: cleaning and metric
// operations never modify a frame they were given, they Clone first.
type Frame struct {
	times    []time.Time
	comments []string
	columns  []string
	data     map[string][]float64
}

// New creates an empty frame with the given numeric columns.
func New(columns []string) *Frame {
	f := &Frame{
		columns: append([]string(nil), columns...),
		data:    make(map[string][]float64, len(columns)),
	}
	for _, c := range f.columns {
		f.data[c] = nil
	}
	return f
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.times)
}

// Columns returns the numeric column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.columns...)
}

// HasColumn reports whether a numeric column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Times returns the timestamp column. Callers must not modify the slice.
func (f *Frame) Times() []time.Time {
	return f.times
}

// Comments returns the free-text column, which may be nil.
func (f *Frame) Comments() []string {
	return f.comments
}

// Column returns the values of a numeric column. Callers must not modify the
// slice; mutating operations Clone the frame first.
func (f *Frame) Column(name string) ([]float64, error) {
	vals, ok := f.data[name]
	if !ok {
		return nil, &MissingColumnError{Column: name}
	}
	return vals, nil
}

// SetColumn replaces the values of an existing numeric column.
func (f *Frame) SetColumn(name string, values []float64) error {
	if _, ok := f.data[name]; !ok {
		return &MissingColumnError{Column: name}
	}
	if len(values) != f.Len() {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(values), f.Len())
	}
	f.data[name] = values
	return nil
}

// AddColumn appends a new numeric column after the existing ones.
func (f *Frame) AddColumn(name string, values []float64) error {
	if _, ok := f.data[name]; ok {
		return fmt.Errorf("column %q already in table", name)
	}
	if len(values) != f.Len() {
		return fmt.Errorf("column %q: got %d values for %d rows", name, len(values), f.Len())
	}
	f.columns = append(f.columns, name)
	f.data[name] = values
	return nil
}

// AppendRow adds one row. values must be aligned with Columns().
func (f *Frame) AppendRow(t time.Time, values []float64, comment string) error {
	if len(values) != len(f.columns) {
		return fmt.Errorf("append row: got %d values for %d columns", len(values), len(f.columns))
	}
	f.times = append(f.times, t)
	f.comments = append(f.comments, comment)
	for i, c := range f.columns {
		f.data[c] = append(f.data[c], values[i])
	}
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		times:    append([]time.Time(nil), f.times...),
		comments: append([]string(nil), f.comments...),
		columns:  append([]string(nil), f.columns...),
		data:     make(map[string][]float64, len(f.columns)),
	}
	for _, c := range f.columns {
		out.data[c] = append([]float64(nil), f.data[c]...)
	}
	return out
}

// Filter returns a new frame keeping only rows where keep[i] is true.
func (f *Frame) Filter(keep []bool) *Frame {
	out := New(f.columns)
	for i := range f.times {
		if i < len(keep) && keep[i] {
			out.times = append(out.times, f.times[i])
			if f.comments != nil {
				out.comments = append(out.comments, f.comments[i])
			} else {
				out.comments = append(out.comments, "")
			}
			for _, c := range f.columns {
				out.data[c] = append(out.data[c], f.data[c][i])
			}
		}
	}
	return out
}

// MissingCount returns the number of NaN cells in a column.
func (f *Frame) MissingCount(name string) (int, error) {
	vals, err := f.Column(name)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n, nil
}
