package solar

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/solarcross/solarcross/internal/dataset"
)

// PatternStat aggregates one column over a time bucket.
type PatternStat struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Max  float64 `json:"max"`
	N    int     `json:"n"`
}

// HourlyPatterns aggregates a column by hour of day (0..23). Missing values
// are dropped and empty hours are absent from the result.
func HourlyPatterns(f *dataset.Frame, column string) (map[int]PatternStat, error) {
	return bucketPatterns(f, column, func(i int) int { return f.Times()[i].Hour() })
}

// MonthlyPatterns aggregates a column by calendar month (1..12).
func MonthlyPatterns(f *dataset.Frame, column string) (map[int]PatternStat, error) {
	return bucketPatterns(f, column, func(i int) int { return int(f.Times()[i].Month()) })
}

func bucketPatterns(f *dataset.Frame, column string, key func(i int) int) (map[int]PatternStat, error) {
	vals, err := f.Column(column)
	if err != nil {
		return nil, err
	}

	buckets := make(map[int][]float64)
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		k := key(i)
		buckets[k] = append(buckets[k], v)
	}

	out := make(map[int]PatternStat, len(buckets))
	for k, b := range buckets {
		ps := PatternStat{N: len(b)}
		ps.Mean, _ = stats.Mean(b)
		ps.Max, _ = stats.Max(b)
		if len(b) > 1 {
			ps.Std, _ = stats.StandardDeviationSample(b)
		}
		out[k] = ps
	}
	return out, nil
}
