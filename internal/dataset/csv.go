package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"time"
)

// Timestamp layouts seen in the site exports, tried in order.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadCSV loads one site file. The header must include a Timestamp column;
// a trailing Comments column is kept as free text and every other column is
// parsed as numeric with blank or unparseable cells becoming NaN. Rows are
// stably sorted by timestamp so the non-decreasing invariant holds on return.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	tsIdx := -1
	commentIdx := -1
	var numericCols []string
	var numericIdx []int
	for i, name := range header {
		switch name {
		case ColTimestamp:
			tsIdx = i
		case ColComments:
			commentIdx = i
		default:
			numericCols = append(numericCols, name)
			numericIdx = append(numericIdx, i)
		}
	}
	if tsIdx < 0 {
		return nil, &MissingColumnError{Column: ColTimestamp}
	}

	f := New(numericCols)
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A malformed row must not truncate the table silently.
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		line++
		if tsIdx >= len(record) {
			return nil, fmt.Errorf("%s line %d: missing timestamp field", path, line)
		}
		t, err := parseTimestamp(record[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		values := make([]float64, len(numericCols))
		for j, idx := range numericIdx {
			values[j] = math.NaN()
			if idx < len(record) && record[idx] != "" {
				if v, perr := strconv.ParseFloat(record[idx], 64); perr == nil {
					values[j] = v
				}
			}
		}

		comment := ""
		if commentIdx >= 0 && commentIdx < len(record) {
			comment = record[commentIdx]
		}
		if err := f.AppendRow(t, values, comment); err != nil {
			return nil, err
		}
	}

	sortByTime(f)
	return f, nil
}

// sortByTime stably reorders rows by timestamp. Files are normally already
// ordered, so this is a no-op in the common case.
func sortByTime(f *Frame) {
	if sort.SliceIsSorted(f.times, func(i, j int) bool { return f.times[i].Before(f.times[j]) }) {
		return
	}
	order := make([]int, f.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return f.times[order[a]].Before(f.times[order[b]]) })

	times := make([]time.Time, f.Len())
	comments := make([]string, f.Len())
	for i, src := range order {
		times[i] = f.times[src]
		comments[i] = f.comments[src]
	}
	f.times = times
	f.comments = comments
	for _, c := range f.columns {
		vals := make([]float64, f.Len())
		for i, src := range order {
			vals[i] = f.data[c][src]
		}
		f.data[c] = vals
	}
}

// WriteCSV writes a frame in the same columnar shape it was loaded from:
// Timestamp, numeric columns in order, Comments last. NaN cells are written
// as empty fields.
func WriteCSV(f *Frame, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append([]string{ColTimestamp}, f.columns...)
	header = append(header, ColComments)
	if err := w.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i := 0; i < f.Len(); i++ {
		record[0] = f.times[i].Format("2006-01-02 15:04")
		for j, c := range f.columns {
			v := f.data[c][i]
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		comment := ""
		if f.comments != nil {
			comment = f.comments[i]
		}
		record[len(record)-1] = comment
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
