package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// Group is one named sample entering a comparison.
type Group struct {
	Name   string
	Values []float64
}

// GroupStats summarizes one group as it entered a test, after missing values
// were dropped.
type GroupStats struct {
	Name   string  `json:"name"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
}

// TestResult is the common shape of every hypothesis test outcome. Excluded
// lists groups dropped for having fewer than two valid observations.
type TestResult struct {
	Test           string       `json:"test"`
	Statistic      float64      `json:"statistic"`
	PValue         float64      `json:"p_value"`
	Significant    bool         `json:"significant"`
	Groups         []GroupStats `json:"groups"`
	Excluded       []string     `json:"excluded,omitempty"`
	Interpretation string       `json:"interpretation"`
}

// minGroupSize is the smallest group a comparison will accept; smaller groups
// are excluded and reported, not silently dropped.
const minGroupSize = 2

// prepareGroups drops missing values and splits off groups too small to test.
func prepareGroups(groups []Group) (kept []Group, excluded []string) {
	for _, g := range groups {
		clean := dropNaN(g.Values)
		if len(clean) < minGroupSize {
			excluded = append(excluded, g.Name)
			continue
		}
		kept = append(kept, Group{Name: g.Name, Values: clean})
	}
	return kept, excluded
}

func groupStats(groups []Group) []GroupStats {
	out := make([]GroupStats, len(groups))
	for i, g := range groups {
		d := Describe(g.Values)
		out[i] = GroupStats{Name: g.Name, N: d.Count, Mean: d.Mean, Std: d.Std, Median: d.Median}
	}
	return out
}

func (a *Analyzer) finish(res TestResult, subject string) TestResult {
	res.Significant = res.PValue < a.Alpha
	verdict := "no significant difference"
	if res.Significant {
		verdict = "significant difference"
	}
	res.Interpretation = fmt.Sprintf("%s: %s in %s (p=%.4f)", res.Test, verdict, subject, res.PValue)
	return res
}

// TTest compares two group means. With welch true the variances are not
// assumed equal and the Welch-Satterthwaite degrees of freedom are used.
func (a *Analyzer) TTest(g1, g2 Group, welch bool) (TestResult, error) {
	kept, excluded := prepareGroups([]Group{g1, g2})
	if len(kept) < 2 {
		return TestResult{}, &InsufficientDataError{What: "t-test", N: len(kept), Min: 2}
	}

	x, y := kept[0].Values, kept[1].Values
	n1, n2 := float64(len(x)), float64(len(y))
	m1, m2 := mean(x), mean(y)
	v1, v2 := sampleVariance(x), sampleVariance(y)

	var t, df float64
	name := "student-t"
	if welch {
		name = "welch-t"
		se1, se2 := v1/n1, v2/n2
		se := se1 + se2
		if se == 0 {
			return TestResult{}, fmt.Errorf("t-test: both groups have zero variance")
		}
		t = (m1 - m2) / math.Sqrt(se)
		df = se * se / (se1*se1/(n1-1) + se2*se2/(n2-1))
	} else {
		pooled := ((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2)
		if pooled == 0 {
			return TestResult{}, fmt.Errorf("t-test: both groups have zero variance")
		}
		t = (m1 - m2) / math.Sqrt(pooled*(1/n1+1/n2))
		df = n1 + n2 - 2
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := clamp01(2 * dist.CDF(-math.Abs(t)))

	res := TestResult{
		Test:      name,
		Statistic: t,
		PValue:    p,
		Groups:    groupStats(kept),
		Excluded:  excluded,
	}
	return a.finish(res, "group means"), nil
}

// MannWhitney is the two-sided rank-sum test with normal approximation,
// tie-corrected variance, and continuity correction.
func (a *Analyzer) MannWhitney(g1, g2 Group) (TestResult, error) {
	kept, excluded := prepareGroups([]Group{g1, g2})
	if len(kept) < 2 {
		return TestResult{}, &InsufficientDataError{What: "mann-whitney", N: len(kept), Min: 2}
	}

	x, y := kept[0].Values, kept[1].Values
	n1, n2 := float64(len(x)), float64(len(y))
	combined := append(append([]float64(nil), x...), y...)
	ranks := averageRanks(combined)

	r1 := 0.0
	for i := range x {
		r1 += ranks[i]
	}
	u1 := r1 - n1*(n1+1)/2
	u2 := n1*n2 - u1
	u := math.Min(u1, u2)

	n := n1 + n2
	ties := tieCorrection(combined)
	variance := n1 * n2 / 12 * (n + 1 - ties/(n*(n-1)))
	if variance == 0 {
		return TestResult{}, fmt.Errorf("mann-whitney: all values identical")
	}
	z := (u - n1*n2/2 + 0.5) / math.Sqrt(variance)
	p := clamp01(2 * distuv.UnitNormal.CDF(-math.Abs(z)))

	res := TestResult{
		Test:      "mann-whitney",
		Statistic: u,
		PValue:    p,
		Groups:    groupStats(kept),
		Excluded:  excluded,
	}
	return a.finish(res, "group distributions"), nil
}

// OneWayANOVA tests whether any of the group means differ.
func (a *Analyzer) OneWayANOVA(groups []Group) (TestResult, error) {
	kept, excluded := prepareGroups(groups)
	if len(kept) < 2 {
		return TestResult{}, &InsufficientDataError{What: "anova", N: len(kept), Min: 2}
	}

	total := 0
	grandSum := 0.0
	for _, g := range kept {
		total += len(g.Values)
		for _, v := range g.Values {
			grandSum += v
		}
	}
	grand := grandSum / float64(total)

	ssb, ssw := 0.0, 0.0
	for _, g := range kept {
		m := mean(g.Values)
		ssb += float64(len(g.Values)) * (m - grand) * (m - grand)
		for _, v := range g.Values {
			ssw += (v - m) * (v - m)
		}
	}

	dfb := float64(len(kept) - 1)
	dfw := float64(total - len(kept))
	if dfw <= 0 || ssw == 0 {
		return TestResult{}, fmt.Errorf("anova: no within-group variance")
	}
	f := (ssb / dfb) / (ssw / dfw)
	dist := distuv.F{D1: dfb, D2: dfw}
	p := clamp01(1 - dist.CDF(f))

	res := TestResult{
		Test:      "anova",
		Statistic: f,
		PValue:    p,
		Groups:    groupStats(kept),
		Excluded:  excluded,
	}
	return a.finish(res, groupSubject(kept)), nil
}

// KruskalWallis is the rank-based counterpart of the one-way ANOVA, with the
// standard tie correction and a chi-squared reference with k-1 degrees of
// freedom.
func (a *Analyzer) KruskalWallis(groups []Group) (TestResult, error) {
	kept, excluded := prepareGroups(groups)
	if len(kept) < 2 {
		return TestResult{}, &InsufficientDataError{What: "kruskal-wallis", N: len(kept), Min: 2}
	}

	var combined []float64
	sizes := make([]int, len(kept))
	for i, g := range kept {
		sizes[i] = len(g.Values)
		combined = append(combined, g.Values...)
	}
	n := float64(len(combined))
	ranks := averageRanks(combined)

	h := 0.0
	offset := 0
	for i := range kept {
		sum := 0.0
		for j := 0; j < sizes[i]; j++ {
			sum += ranks[offset+j]
		}
		h += sum * sum / float64(sizes[i])
		offset += sizes[i]
	}
	h = 12/(n*(n+1))*h - 3*(n+1)

	ties := tieCorrection(combined)
	correction := 1 - ties/(n*n*n-n)
	if correction == 0 {
		return TestResult{}, fmt.Errorf("kruskal-wallis: all values identical")
	}
	h /= correction

	dist := distuv.ChiSquared{K: float64(len(kept) - 1)}
	p := clamp01(1 - dist.CDF(h))

	res := TestResult{
		Test:      "kruskal-wallis",
		Statistic: h,
		PValue:    p,
		Groups:    groupStats(kept),
		Excluded:  excluded,
	}
	return a.finish(res, groupSubject(kept)), nil
}

func groupSubject(groups []Group) string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}
