// Package cleaning implements the deterministic data-cleaning operations for
// site observation tables: duplicate removal, negative-irradiance cleanup,
// outlier detection and treatment, and missing-value imputation. Every
// operation returns a new frame plus a report entry and leaves its input
// untouched.
package cleaning

import (
	"fmt"
	"math"

	"github.com/solarcross/solarcross/internal/dataset"
)

// RemoveDuplicates drops all but the first row for each timestamp.
func RemoveDuplicates(f *dataset.Frame) (*dataset.Frame, ReportEntry) {
	seen := make(map[int64]bool, f.Len())
	keep := make([]bool, f.Len())
	removed := 0
	for i, t := range f.Times() {
		key := t.UnixNano()
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		keep[i] = true
	}

	var out *dataset.Frame
	if removed > 0 {
		out = f.Filter(keep)
	} else {
		out = f.Clone()
	}
	return out, ReportEntry{
		Op:     OpRemoveDuplicates,
		Count:  removed,
		Detail: "kept first occurrence per timestamp",
	}
}

// CleanNegatives applies a negative-value policy to the given columns.
// All columns are checked for existence before anything is modified, so a
// missing column error leaves no partial mutation.
func CleanNegatives(f *dataset.Frame, columns []string, policy NegativePolicy) (*dataset.Frame, []ReportEntry, error) {
	if _, err := ParseNegativePolicy(string(policy)); err != nil {
		return nil, nil, err
	}
	for _, col := range columns {
		if !f.HasColumn(col) {
			return nil, nil, &dataset.MissingColumnError{Column: col}
		}
	}

	out := f.Clone()
	var entries []ReportEntry
	for _, col := range columns {
		vals, _ := out.Column(col)
		fixed := append([]float64(nil), vals...)
		count := 0
		for i, v := range fixed {
			if math.IsNaN(v) || v >= 0 {
				continue
			}
			count++
			switch policy {
			case NegativeZero:
				fixed[i] = 0
			case NegativeMissing:
				fixed[i] = math.NaN()
			case NegativeAbsolute:
				fixed[i] = math.Abs(v)
			}
		}
		if err := out.SetColumn(col, fixed); err != nil {
			return nil, nil, err
		}
		entries = append(entries, ReportEntry{
			Op:     OpCleanNegatives,
			Column: col,
			Count:  count,
			Detail: fmt.Sprintf("policy=%s", policy),
		})
	}
	return out, entries, nil
}
