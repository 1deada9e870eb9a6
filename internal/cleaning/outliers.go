package cleaning

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/solarcross/solarcross/internal/dataset"
)

// Detection holds the side-effect-free result of an outlier scan: one flag
// per row plus the clip bounds implied by the method and threshold. Missing
// cells are never flagged.
type Detection struct {
	Column    string
	Method    OutlierMethod
	Threshold float64
	Flags     []bool
	Lower     float64
	Upper     float64
	Count     int
}

// DetectZScore flags rows whose value lies more than threshold sample
// standard deviations from the column mean. Mean and deviation are always
// recomputed from the column as given, never cached.
func DetectZScore(f *dataset.Frame, column string, threshold float64) (Detection, error) {
	if threshold <= 0 {
		return Detection{}, fmt.Errorf("z-score threshold must be positive, got %g", threshold)
	}
	vals, err := f.Column(column)
	if err != nil {
		return Detection{}, err
	}

	det := Detection{
		Column:    column,
		Method:    MethodZScore,
		Threshold: threshold,
		Flags:     make([]bool, len(vals)),
	}

	mean, std := meanStd(vals)
	det.Lower = mean - threshold*std
	det.Upper = mean + threshold*std
	if std == 0 || math.IsNaN(std) {
		return det, nil
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.Abs((v-mean)/std) > threshold {
			det.Flags[i] = true
			det.Count++
		}
	}
	return det, nil
}

// DetectIQR flags rows outside [Q1 - k*IQR, Q3 + k*IQR].
func DetectIQR(f *dataset.Frame, column string, k float64) (Detection, error) {
	if k <= 0 {
		return Detection{}, fmt.Errorf("IQR multiplier must be positive, got %g", k)
	}
	vals, err := f.Column(column)
	if err != nil {
		return Detection{}, err
	}

	det := Detection{
		Column:    column,
		Method:    MethodIQR,
		Threshold: k,
		Flags:     make([]bool, len(vals)),
	}

	clean := dropNaN(vals)
	if len(clean) == 0 {
		return det, nil
	}
	q1, _ := stats.Percentile(clean, 25)
	q3, _ := stats.Percentile(clean, 75)
	iqr := q3 - q1
	det.Lower = q1 - k*iqr
	det.Upper = q3 + k*iqr
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if v < det.Lower || v > det.Upper {
			det.Flags[i] = true
			det.Count++
		}
	}
	return det, nil
}

// TreatOutliers applies a treatment to the rows flagged by a detection.
// Median and mean replacements are computed from the column's current
// non-missing values; clip uses the detection's bounds.
func TreatOutliers(f *dataset.Frame, det Detection, treatment OutlierTreatment) (*dataset.Frame, ReportEntry, error) {
	if _, err := ParseOutlierTreatment(string(treatment)); err != nil {
		return nil, ReportEntry{}, err
	}
	vals, err := f.Column(det.Column)
	if err != nil {
		return nil, ReportEntry{}, err
	}
	if len(det.Flags) != len(vals) {
		return nil, ReportEntry{}, fmt.Errorf("column %q: detection covers %d rows, table has %d",
			det.Column, len(det.Flags), len(vals))
	}

	out := f.Clone()
	fixed, _ := out.Column(det.Column)
	fixed = append([]float64(nil), fixed...)

	var replacement float64
	switch treatment {
	case TreatMedian:
		replacement, _ = stats.Median(dropNaN(vals))
	case TreatMean:
		replacement, _ = stats.Mean(dropNaN(vals))
	}

	count := 0
	for i, flagged := range det.Flags {
		if !flagged {
			continue
		}
		count++
		switch treatment {
		case TreatMissing:
			fixed[i] = math.NaN()
		case TreatMedian, TreatMean:
			fixed[i] = replacement
		case TreatClip:
			if fixed[i] < det.Lower {
				fixed[i] = det.Lower
			} else if fixed[i] > det.Upper {
				fixed[i] = det.Upper
			}
		}
	}
	if err := out.SetColumn(det.Column, fixed); err != nil {
		return nil, ReportEntry{}, err
	}
	return out, ReportEntry{
		Op:     OpTreatOutliers,
		Column: det.Column,
		Count:  count,
		Detail: fmt.Sprintf("method=%s threshold=%g treatment=%s", det.Method, det.Threshold, treatment),
	}, nil
}

// meanStd returns the mean and sample standard deviation of the non-missing
// values.
func meanStd(vals []float64) (float64, float64) {
	clean := dropNaN(vals)
	if len(clean) == 0 {
		return math.NaN(), math.NaN()
	}
	mean, _ := stats.Mean(clean)
	if len(clean) < 2 {
		return mean, 0
	}
	std, _ := stats.StandardDeviationSample(clean)
	return mean, std
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
