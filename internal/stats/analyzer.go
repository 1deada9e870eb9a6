// Package stats implements the hypothesis tests and descriptive statistics
// used for cross-site comparison: normality tests, correlation matrices with
// significance, and parametric/non-parametric group comparisons. All tests
// are pure functions of their numeric inputs; NaN marks a missing value and
// is dropped before any computation.
package stats

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// Analyzer evaluates hypothesis tests at a fixed significance level.
type Analyzer struct {
	Alpha float64
}

// NewAnalyzer returns an analyzer for the given significance level.
func NewAnalyzer(alpha float64) (*Analyzer, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("significance level must be in (0, 1), got %g", alpha)
	}
	return &Analyzer{Alpha: alpha}, nil
}

// InsufficientDataError reports a test requested on too few valid
// observations.
type InsufficientDataError struct {
	What string
	N    int
	Min  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %d valid observations, need at least %d", e.What, e.N, e.Min)
}

// Descriptive summarizes one numeric sample. Missing values are excluded
// from every figure; a sample with no valid values yields the zero value.
type Descriptive struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

// Describe computes descriptive statistics for a sample.
func Describe(values []float64) Descriptive {
	clean := dropNaN(values)
	if len(clean) == 0 {
		return Descriptive{}
	}
	d := Descriptive{Count: len(clean)}
	d.Mean, _ = stats.Mean(clean)
	d.Min, _ = stats.Min(clean)
	d.Max, _ = stats.Max(clean)
	d.Median, _ = stats.Median(clean)
	d.Q25, _ = stats.Percentile(clean, 25)
	d.Q75, _ = stats.Percentile(clean, 75)
	if len(clean) > 1 {
		d.Std, _ = stats.StandardDeviationSample(clean)
	}
	return d
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleVariance returns the n-1 variance.
func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values)-1)
}
