package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelatePerfectLinear(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{2, 4, 6, 8, 10, 12}

	for _, method := range []CorrelationMethod{MethodPearson, MethodSpearman, MethodKendall} {
		c, err := a.Correlate(x, y, method)
		require.NoError(t, err, method)
		assert.InDelta(t, 1, c.Coefficient, 1e-9, "%s", method)
		assert.True(t, c.Significant, "%s p=%g", method, c.PValue)
	}
}

func TestCorrelateNegative(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{10, 8, 6, 4, 2}

	c, err := a.Correlate(x, y, MethodPearson)
	require.NoError(t, err)
	assert.InDelta(t, -1, c.Coefficient, 1e-9)
}

func TestCorrelateSpearmanMonotonic(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	x := []float64{1, 2, 3, 4, 5, 6, 7}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = math.Exp(v)
	}

	c, err := a.Correlate(x, y, MethodSpearman)
	require.NoError(t, err)
	assert.InDelta(t, 1, c.Coefficient, 1e-9)

	p, err := a.Correlate(x, y, MethodPearson)
	require.NoError(t, err)
	assert.Less(t, p.Coefficient, 1.0)
}

func TestCorrelatePairwiseMissing(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	nan := math.NaN()
	x := []float64{1, 2, nan, 4, 5, 6}
	y := []float64{2, 4, 6, nan, 10, 12}

	c, err := a.Correlate(x, y, MethodPearson)
	require.NoError(t, err)
	assert.Equal(t, 4, c.N)
	assert.InDelta(t, 1, c.Coefficient, 1e-9)
}

func TestCorrelateTooFewPairs(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	nan := math.NaN()

	_, err := a.Correlate([]float64{1, nan, 3, nan}, []float64{2, 4, nan, 8}, MethodPearson)
	var ide *InsufficientDataError
	assert.ErrorAs(t, err, &ide)
}

func TestCorrelateLengthMismatch(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	_, err := a.Correlate([]float64{1, 2, 3}, []float64{1, 2}, MethodPearson)
	assert.Error(t, err)
}

func TestCorrelationMatrix(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	data := map[string][]float64{
		"GHI": {100, 200, 300, 400, 500, 600},
		"DNI": {90, 180, 290, 380, 510, 590},
		"RH":  {80, 70, 60, 50, 40, 30},
	}
	cols := []string{"GHI", "DNI", "RH"}

	m, err := a.CorrelationMatrix(cols, data, MethodPearson)
	require.NoError(t, err)
	require.Equal(t, cols, m.Columns)

	for i := range cols {
		assert.InDelta(t, 1, m.R[i][i], 1e-9)
	}
	assert.InDelta(t, m.R[0][1], m.R[1][0], 1e-12, "symmetric")
	assert.Greater(t, m.R[0][1], 0.99)
	assert.Less(t, m.R[0][2], -0.99)
	assert.Equal(t, 3, m.SignificantPairs(0.05))
}

func TestCorrelationMatrixSparseCell(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	nan := math.NaN()
	data := map[string][]float64{
		"GHI":  {100, 200, 300, 400, 500},
		"DNI":  {90, 180, 290, 380, 510},
		"Tamb": {25, nan, nan, nan, 31},
	}
	cols := []string{"GHI", "DNI", "Tamb"}

	m, err := a.CorrelationMatrix(cols, data, MethodSpearman)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(m.R[0][1]))
	assert.True(t, math.IsNaN(m.R[0][2]), "too few complete pairs yields NaN")
	assert.True(t, math.IsNaN(m.P[2][0]))
}

func TestCorrelationMatrixMissingColumn(t *testing.T) {
	a, _ := NewAnalyzer(0.05)
	_, err := a.CorrelationMatrix([]string{"GHI", "WS"}, map[string][]float64{"GHI": {1, 2, 3}}, MethodPearson)
	assert.Error(t, err)
}

func TestAverageRanksTies(t *testing.T) {
	ranks := averageRanks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, ranks)
}
