package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalityMethod selects the normality test.
type NormalityMethod string

const (
	// MethodAndersonDarling weights the distribution tails, which is where
	// irradiance data deviates most.
	MethodAndersonDarling NormalityMethod = "anderson"
	// MethodKolmogorov compares the empirical CDF against a normal fitted by
	// sample mean and deviation.
	MethodKolmogorov NormalityMethod = "kstest"
	// MethodDAgostino combines skewness and kurtosis into a chi-squared K²
	// statistic.
	MethodDAgostino NormalityMethod = "dagostino"
)

func ParseNormalityMethod(s string) (NormalityMethod, error) {
	switch NormalityMethod(s) {
	case MethodAndersonDarling, MethodKolmogorov, MethodDAgostino:
		return NormalityMethod(s), nil
	}
	return "", fmt.Errorf("unknown normality method %q", s)
}

// NormalityResult reports a normality verdict with its underlying statistic.
type NormalityResult struct {
	Method         NormalityMethod `json:"method"`
	Statistic      float64         `json:"statistic"`
	PValue         float64         `json:"p_value"`
	Normal         bool            `json:"normal"`
	N              int             `json:"n"`
	Interpretation string          `json:"interpretation"`
}

// TestNormality tests whether a sample is plausibly normal at the analyzer's
// significance level.
func (a *Analyzer) TestNormality(values []float64, method NormalityMethod) (NormalityResult, error) {
	if _, err := ParseNormalityMethod(string(method)); err != nil {
		return NormalityResult{}, err
	}
	clean := dropNaN(values)

	minN := 3
	if method == MethodDAgostino {
		minN = 8
	}
	if len(clean) < minN {
		return NormalityResult{}, &InsufficientDataError{What: "normality test", N: len(clean), Min: minN}
	}

	var stat, p float64
	switch method {
	case MethodAndersonDarling:
		stat, p = andersonDarling(clean)
	case MethodKolmogorov:
		stat, p = kolmogorovSmirnov(clean)
	case MethodDAgostino:
		stat, p = dagostinoK2(clean)
	}

	res := NormalityResult{
		Method:    method,
		Statistic: stat,
		PValue:    p,
		Normal:    p > a.Alpha,
		N:         len(clean),
	}
	verdict := "does not appear"
	if res.Normal {
		verdict = "appears"
	}
	res.Interpretation = fmt.Sprintf("data %s to be normally distributed (p=%.4f)", verdict, p)
	return res, nil
}

// andersonDarling computes the A² statistic against a normal with estimated
// mean and variance, with the small-sample correction, and the Stephens
// p-value approximation.
func andersonDarling(values []float64) (float64, float64) {
	n := len(values)
	z := standardize(values)
	sort.Float64s(z)

	norm := distuv.UnitNormal
	sum := 0.0
	for i := 0; i < n; i++ {
		lo := norm.CDF(z[i])
		hi := norm.CDF(z[n-1-i])
		// Clamp away from 0/1 to keep the logs finite.
		lo = clampProb(lo)
		hi = clampProb(hi)
		sum += float64(2*i+1) * (math.Log(lo) + math.Log(1-hi))
	}
	a2 := -float64(n) - sum/float64(n)

	nf := float64(n)
	aStar := a2 * (1 + 0.75/nf + 2.25/(nf*nf))

	var p float64
	switch {
	case aStar < 0.2:
		p = 1 - math.Exp(-13.436+101.14*aStar-223.73*aStar*aStar)
	case aStar < 0.34:
		p = 1 - math.Exp(-8.318+42.796*aStar-59.938*aStar*aStar)
	case aStar < 0.6:
		p = math.Exp(0.9177 - 4.279*aStar - 1.38*aStar*aStar)
	default:
		p = math.Exp(1.2937 - 5.709*aStar + 0.0186*aStar*aStar)
	}
	return aStar, clamp01(p)
}

// kolmogorovSmirnov computes the one-sample D statistic against a fitted
// normal and the asymptotic Kolmogorov p-value.
func kolmogorovSmirnov(values []float64) (float64, float64) {
	n := len(values)
	z := standardize(values)
	sort.Float64s(z)

	norm := distuv.UnitNormal
	d := 0.0
	for i := 0; i < n; i++ {
		cdf := norm.CDF(z[i])
		dPlus := float64(i+1)/float64(n) - cdf
		dMinus := cdf - float64(i)/float64(n)
		if dPlus > d {
			d = dPlus
		}
		if dMinus > d {
			d = dMinus
		}
	}

	sqrtN := math.Sqrt(float64(n))
	lambda := (sqrtN + 0.12 + 0.11/sqrtN) * d
	p := 0.0
	for k := 1; k <= 100; k++ {
		term := 2 * math.Pow(-1, float64(k-1)) * math.Exp(-2*float64(k*k)*lambda*lambda)
		p += term
		if math.Abs(term) < 1e-10 {
			break
		}
	}
	return d, clamp01(p)
}

// dagostinoK2 computes D'Agostino's K² omnibus statistic: the skewness and
// kurtosis transforms are each brought to approximate normality and their
// squares summed against a chi-squared with 2 degrees of freedom.
func dagostinoK2(values []float64) (float64, float64) {
	n := float64(len(values))
	m := mean(values)
	sd := math.Sqrt(sampleVariance(values))
	if sd == 0 {
		return 0, 1
	}

	g1 := skewness(values, m, sd)
	g2 := kurtosisExcess(values, m, sd)

	// Skewness transform.
	y := g1 * math.Sqrt((n+1)*(n+3)/(6*(n-2)))
	beta2 := 3 * (n*n + 27*n - 70) * (n + 1) * (n + 3) / ((n - 2) * (n + 5) * (n + 7) * (n + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	if w2 <= 0 {
		return 0, 1
	}
	delta := 1 / math.Sqrt(math.Log(math.Sqrt(w2)))
	alpha := math.Sqrt(2 / (w2 - 1))
	ay := y / alpha
	z1 := delta * math.Log(ay+math.Sqrt(ay*ay+1))

	// Kurtosis transform (Anscombe-Glynn).
	e := 3 * (n - 1) / (n + 1)
	v := 24 * n * (n - 2) * (n - 3) / ((n + 1) * (n + 1) * (n + 3) * (n + 5))
	if v <= 0 {
		return 0, 1
	}
	x := (g2 + 3 - e) / math.Sqrt(v)
	sqrtBeta1 := 6 * (n*n - 5*n + 2) / ((n + 7) * (n + 9)) *
		math.Sqrt(6*(n+3)*(n+5)/(n*(n-2)*(n-3)))
	ak := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	if ak <= 4 {
		return 0, 1
	}
	den := 1 + x*math.Sqrt(2/(ak-4))
	if den <= 0 {
		return math.Inf(1), 0
	}
	z2 := ((1 - 2/(9*ak)) - math.Pow((1-2/ak)/den, 1.0/3.0)) / math.Sqrt(2/(9*ak))

	k2 := z1*z1 + z2*z2
	chi2 := distuv.ChiSquared{K: 2}
	return k2, clamp01(1 - chi2.CDF(k2))
}

func skewness(values []float64, m, sd float64) float64 {
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		d := (v - m) / sd
		sum += d * d * d
	}
	g := sum / n
	return g * math.Sqrt(n*(n-1)) / (n - 2)
}

// kurtosisExcess returns sample excess kurtosis (0 for a normal).
func kurtosisExcess(values []float64, m, sd float64) float64 {
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		d := (v - m) / sd
		sum += d * d * d * d
	}
	k := sum / n
	if n > 3 {
		k = k*(n-1)/((n-2)*(n-3)) + 6/(n+1)
	}
	return k - 3
}

func standardize(values []float64) []float64 {
	m := mean(values)
	sd := math.Sqrt(sampleVariance(values))
	z := make([]float64, len(values))
	if sd == 0 {
		return z
	}
	for i, v := range values {
		z[i] = (v - m) / sd
	}
	return z
}

func clampProb(p float64) float64 {
	const eps = 1e-12
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
