package cleaning

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/solarcross/solarcross/internal/dataset"
)

// Impute fills (or drops) the missing values of one column. The input frame
// is never modified.
func Impute(f *dataset.Frame, column string, strategy ImputeStrategy) (*dataset.Frame, ReportEntry, error) {
	if _, err := ParseImputeStrategy(string(strategy)); err != nil {
		return nil, ReportEntry{}, err
	}
	vals, err := f.Column(column)
	if err != nil {
		return nil, ReportEntry{}, err
	}

	missing := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			missing++
		}
	}
	entry := ReportEntry{
		Op:     OpImpute,
		Column: column,
		Count:  missing,
		Detail: fmt.Sprintf("strategy=%s", strategy),
	}
	if missing == 0 {
		return f.Clone(), entry, nil
	}

	if strategy == ImputeDrop {
		keep := make([]bool, len(vals))
		for i, v := range vals {
			keep[i] = !math.IsNaN(v)
		}
		return f.Filter(keep), entry, nil
	}

	out := f.Clone()
	fixed := append([]float64(nil), vals...)

	switch strategy {
	case ImputeForwardFill:
		prev := math.NaN()
		for i, v := range fixed {
			if math.IsNaN(v) {
				fixed[i] = prev
			} else {
				prev = v
			}
		}
	case ImputeBackwardFill:
		next := math.NaN()
		for i := len(fixed) - 1; i >= 0; i-- {
			if math.IsNaN(fixed[i]) {
				fixed[i] = next
			} else {
				next = fixed[i]
			}
		}
	case ImputeInterpolate:
		interpolateLinear(fixed)
	case ImputeMean:
		fill, _ := stats.Mean(dropNaN(vals))
		fillNaN(fixed, fill)
	case ImputeMedian:
		fill, _ := stats.Median(dropNaN(vals))
		fillNaN(fixed, fill)
	case ImputeZero:
		fillNaN(fixed, 0)
	}

	if err := out.SetColumn(column, fixed); err != nil {
		return nil, ReportEntry{}, err
	}
	return out, entry, nil
}

// interpolateLinear fills interior NaN runs linearly between their non-NaN
// neighbours. Leading and trailing runs have only one neighbour and take its
// value, matching pandas' default forward behavior for trailing gaps while
// leaving leading gaps untouched.
func interpolateLinear(vals []float64) {
	lastKnown := -1
	for i := 0; i < len(vals); i++ {
		if math.IsNaN(vals[i]) {
			continue
		}
		if lastKnown >= 0 && i-lastKnown > 1 {
			step := (vals[i] - vals[lastKnown]) / float64(i-lastKnown)
			for j := lastKnown + 1; j < i; j++ {
				vals[j] = vals[lastKnown] + step*float64(j-lastKnown)
			}
		}
		lastKnown = i
	}
	// Trailing gap: carry the last known value forward.
	if lastKnown >= 0 {
		for j := lastKnown + 1; j < len(vals); j++ {
			vals[j] = vals[lastKnown]
		}
	}
}

func fillNaN(vals []float64, fill float64) {
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = fill
		}
	}
}
