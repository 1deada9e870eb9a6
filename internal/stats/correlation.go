package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// CorrelationMethod selects the correlation coefficient.
type CorrelationMethod string

const (
	MethodPearson  CorrelationMethod = "pearson"
	MethodSpearman CorrelationMethod = "spearman"
	MethodKendall  CorrelationMethod = "kendall"
)

func ParseCorrelationMethod(s string) (CorrelationMethod, error) {
	switch CorrelationMethod(s) {
	case MethodPearson, MethodSpearman, MethodKendall:
		return CorrelationMethod(s), nil
	}
	return "", fmt.Errorf("unknown correlation method %q", s)
}

// Correlation is one pairwise coefficient with its two-sided significance.
type Correlation struct {
	Method      CorrelationMethod `json:"method"`
	Coefficient float64           `json:"coefficient"`
	PValue      float64           `json:"p_value"`
	N           int               `json:"n"`
	Significant bool              `json:"significant"`
}

// Correlate computes the coefficient between two samples. Rows where either
// value is missing are dropped pairwise; fewer than three complete pairs is
// an error.
func (a *Analyzer) Correlate(x, y []float64, method CorrelationMethod) (Correlation, error) {
	if _, err := ParseCorrelationMethod(string(method)); err != nil {
		return Correlation{}, err
	}
	if len(x) != len(y) {
		return Correlation{}, fmt.Errorf("samples have different lengths: %d vs %d", len(x), len(y))
	}
	px, py := completePairs(x, y)
	if len(px) < 3 {
		return Correlation{}, &InsufficientDataError{What: "correlation", N: len(px), Min: 3}
	}

	r, p := correlate(px, py, method)
	return Correlation{
		Method:      method,
		Coefficient: r,
		PValue:      p,
		N:           len(px),
		Significant: p < a.Alpha,
	}, nil
}

// Matrix holds a symmetric coefficient matrix over named columns alongside
// its p-value matrix. Cells with fewer than three complete pairs are NaN.
type Matrix struct {
	Method  CorrelationMethod `json:"method"`
	Columns []string          `json:"columns"`
	R       [][]float64       `json:"r"`
	P       [][]float64       `json:"p"`
}

// SignificantPairs counts the off-diagonal pairs whose p-value is below the
// significance level.
func (m Matrix) SignificantPairs(alpha float64) int {
	count := 0
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			if !math.IsNaN(m.P[i][j]) && m.P[i][j] < alpha {
				count++
			}
		}
	}
	return count
}

// CorrelationMatrix computes the pairwise coefficient and p-value matrices
// for the named columns. Each pair is reduced to its complete rows
// independently, so a gap in one column does not discard the others.
func (a *Analyzer) CorrelationMatrix(columns []string, data map[string][]float64, method CorrelationMethod) (Matrix, error) {
	if _, err := ParseCorrelationMethod(string(method)); err != nil {
		return Matrix{}, err
	}
	for _, col := range columns {
		if _, ok := data[col]; !ok {
			return Matrix{}, fmt.Errorf("no data for column %q", col)
		}
	}

	k := len(columns)
	m := Matrix{
		Method:  method,
		Columns: append([]string(nil), columns...),
		R:       make([][]float64, k),
		P:       make([][]float64, k),
	}
	for i := range m.R {
		m.R[i] = make([]float64, k)
		m.P[i] = make([]float64, k)
	}

	for i := 0; i < k; i++ {
		m.R[i][i] = 1
		for j := i + 1; j < k; j++ {
			px, py := completePairs(data[columns[i]], data[columns[j]])
			if len(px) < 3 {
				m.R[i][j], m.R[j][i] = math.NaN(), math.NaN()
				m.P[i][j], m.P[j][i] = math.NaN(), math.NaN()
				continue
			}
			r, p := correlate(px, py, method)
			m.R[i][j], m.R[j][i] = r, r
			m.P[i][j], m.P[j][i] = p, p
		}
	}
	return m, nil
}

func correlate(x, y []float64, method CorrelationMethod) (float64, float64) {
	n := len(x)
	switch method {
	case MethodSpearman:
		x = averageRanks(x)
		y = averageRanks(y)
		fallthrough
	case MethodPearson:
		r := stat.Correlation(x, y, nil)
		return r, pearsonP(r, n)
	case MethodKendall:
		tau := stat.Kendall(x, y, nil)
		return tau, kendallP(tau, n)
	}
	return math.NaN(), math.NaN()
}

// pearsonP is the two-sided p-value from the exact t-distribution of the
// coefficient under the null.
func pearsonP(r float64, n int) float64 {
	if n < 3 || math.IsNaN(r) {
		return math.NaN()
	}
	if r >= 1 || r <= -1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return clamp01(2 * dist.CDF(-math.Abs(t)))
}

// kendallP uses the normal approximation to tau's null distribution.
func kendallP(tau float64, n int) float64 {
	if n < 3 || math.IsNaN(tau) {
		return math.NaN()
	}
	nf := float64(n)
	z := 3 * tau * math.Sqrt(nf*(nf-1)) / math.Sqrt(2*(2*nf+5))
	return clamp01(2 * distuv.UnitNormal.CDF(-math.Abs(z)))
}

// completePairs drops every index where either sample is missing.
func completePairs(x, y []float64) ([]float64, []float64) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	px := make([]float64, 0, n)
	py := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		px = append(px, x[i])
		py = append(py, y[i])
	}
	return px, py
}
