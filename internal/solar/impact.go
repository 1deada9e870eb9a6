package solar

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/solarcross/solarcross/internal/dataset"
)

// DefaultCleaningWindow is how far before and after a cleaning event the
// module readings are averaged.
const DefaultCleaningWindow = 7 * 24 * time.Hour

// CleaningImpact summarizes how module irradiance readings change around
// panel cleaning events. Analyzed counts the events with valid data on both
// sides of the window; events at the edges of the record may have none.
type CleaningImpact struct {
	Column             string  `json:"column"`
	Events             int     `json:"events"`
	Analyzed           int     `json:"events_analyzed"`
	MeanBefore         float64 `json:"mean_before"`
	MeanAfter          float64 `json:"mean_after"`
	PercentImprovement float64 `json:"percent_improvement"`
}

// AssessCleaningImpact compares the mean of a module irradiance column in
// the window before each cleaning event against the window starting at the
// event. Rows with Cleaning == 1 mark events.
func AssessCleaningImpact(f *dataset.Frame, column string, window time.Duration) (CleaningImpact, error) {
	flags, err := f.Column(dataset.ColCleaning)
	if err != nil {
		return CleaningImpact{}, err
	}
	vals, err := f.Column(column)
	if err != nil {
		return CleaningImpact{}, err
	}
	times := f.Times()

	impact := CleaningImpact{Column: column}
	var befores, afters []float64
	for i, flag := range flags {
		if flag != 1 {
			continue
		}
		impact.Events++

		event := times[i]
		before := windowMean(times, vals, event.Add(-window), event)
		after := windowMean(times, vals, event, event.Add(window))
		if math.IsNaN(before) || math.IsNaN(after) {
			continue
		}
		befores = append(befores, before)
		afters = append(afters, after)
	}

	if len(befores) == 0 {
		return impact, nil
	}
	impact.Analyzed = len(befores)
	impact.MeanBefore, _ = stats.Mean(befores)
	impact.MeanAfter, _ = stats.Mean(afters)
	if impact.MeanBefore != 0 {
		impact.PercentImprovement = (impact.MeanAfter - impact.MeanBefore) / impact.MeanBefore * 100
	}
	return impact, nil
}

// windowMean averages the non-missing values with timestamps in [from, to).
func windowMean(times []time.Time, vals []float64, from, to time.Time) float64 {
	sum, n := 0.0, 0
	for i, t := range times {
		if t.Before(from) || !t.Before(to) {
			continue
		}
		if math.IsNaN(vals[i]) {
			continue
		}
		sum += vals[i]
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
