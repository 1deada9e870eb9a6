package cleaning

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarcross/solarcross/internal/dataset"
)

func frameWithGHI(t *testing.T, values []float64) *dataset.Frame {
	t.Helper()
	f := dataset.New([]string{dataset.ColGHI})
	base := time.Date(2021, 8, 9, 6, 0, 0, 0, time.UTC)
	for i, v := range values {
		require.NoError(t, f.AppendRow(base.Add(time.Duration(i)*time.Minute), []float64{v}, ""))
	}
	return f
}

func ghi(t *testing.T, f *dataset.Frame) []float64 {
	t.Helper()
	vals, err := f.Column(dataset.ColGHI)
	require.NoError(t, err)
	return vals
}

func TestRemoveDuplicatesKeepsFirst(t *testing.T) {
	f := frameWithGHI(t, []float64{10, 20, 30})
	// Re-add the second timestamp with a different value.
	require.NoError(t, f.AppendRow(f.Times()[1], []float64{999}, ""))

	out, entry := RemoveDuplicates(f)

	assert.Equal(t, 1, entry.Count)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{10, 20, 30}, ghi(t, out))
	assert.Equal(t, 4, f.Len(), "input frame modified")
}

func TestCleanNegativesPolicies(t *testing.T) {
	cases := []struct {
		policy NegativePolicy
		want   float64
	}{
		{NegativeZero, 0},
		{NegativeAbsolute, 5.5},
	}
	for _, tc := range cases {
		f := frameWithGHI(t, []float64{-5.5, 100, math.NaN()})
		out, entries, err := CleanNegatives(f, []string{dataset.ColGHI}, tc.policy)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].Count)
		assert.Equal(t, tc.want, ghi(t, out)[0], "policy %s", tc.policy)
		assert.True(t, math.IsNaN(ghi(t, out)[2]), "NaN cell touched by policy %s", tc.policy)
	}

	f := frameWithGHI(t, []float64{-5.5, 100})
	out, _, err := CleanNegatives(f, []string{dataset.ColGHI}, NegativeMissing)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ghi(t, out)[0]))
	assert.Equal(t, -5.5, ghi(t, f)[0], "input frame modified")
}

func TestCleanNegativesMissingColumn(t *testing.T) {
	f := frameWithGHI(t, []float64{1, 2})
	_, _, err := CleanNegatives(f, []string{"DNI"}, NegativeZero)
	var missing *dataset.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "DNI", missing.Column)
}

func TestDetectZScore(t *testing.T) {
	// 20 tight values around 100 and one far spike.
	vals := make([]float64, 0, 21)
	for i := 0; i < 20; i++ {
		vals = append(vals, 100+float64(i%5))
	}
	vals = append(vals, 5000)
	f := frameWithGHI(t, vals)

	det, err := DetectZScore(f, dataset.ColGHI, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, det.Count)
	assert.True(t, det.Flags[20])
}

func TestDetectZScoreConstantColumn(t *testing.T) {
	f := frameWithGHI(t, []float64{7, 7, 7, 7})
	det, err := DetectZScore(f, dataset.ColGHI, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, det.Count)
}

func TestDetectZScoreIgnoresMissing(t *testing.T) {
	f := frameWithGHI(t, []float64{1, 2, math.NaN(), 3})
	det, err := DetectZScore(f, dataset.ColGHI, 1)
	require.NoError(t, err)
	assert.False(t, det.Flags[2])
}

func TestDetectIQR(t *testing.T) {
	vals := []float64{10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 500}
	f := frameWithGHI(t, vals)

	det, err := DetectIQR(f, dataset.ColGHI, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1, det.Count)
	assert.True(t, det.Flags[10])
	assert.Greater(t, det.Upper, 19.0)
}

func TestTreatOutliers(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 1000}
	det := Detection{
		Column: dataset.ColGHI,
		Method: MethodZScore,
		Flags:  []bool{false, false, false, false, true},
		Lower:  0,
		Upper:  50,
	}

	t.Run("missing", func(t *testing.T) {
		f := frameWithGHI(t, vals)
		out, entry, err := TreatOutliers(f, det, TreatMissing)
		require.NoError(t, err)
		assert.Equal(t, 1, entry.Count)
		assert.True(t, math.IsNaN(ghi(t, out)[4]))
	})

	t.Run("median", func(t *testing.T) {
		f := frameWithGHI(t, vals)
		out, _, err := TreatOutliers(f, det, TreatMedian)
		require.NoError(t, err)
		assert.Equal(t, 30.0, ghi(t, out)[4])
	})

	t.Run("clip", func(t *testing.T) {
		f := frameWithGHI(t, vals)
		out, _, err := TreatOutliers(f, det, TreatClip)
		require.NoError(t, err)
		assert.Equal(t, 50.0, ghi(t, out)[4])
	})
}

func TestTreatOutliersLengthMismatch(t *testing.T) {
	f := frameWithGHI(t, []float64{1, 2, 3})
	det := Detection{Column: dataset.ColGHI, Flags: []bool{true}}
	_, _, err := TreatOutliers(f, det, TreatMissing)
	assert.Error(t, err)
}

func TestImputeInterpolate(t *testing.T) {
	f := frameWithGHI(t, []float64{math.NaN(), 10, math.NaN(), math.NaN(), 40, math.NaN()})
	out, entry, err := Impute(f, dataset.ColGHI, ImputeInterpolate)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.Count)

	got := ghi(t, out)
	assert.True(t, math.IsNaN(got[0]), "leading gap should stay missing")
	assert.InDelta(t, 20, got[2], 1e-9)
	assert.InDelta(t, 30, got[3], 1e-9)
	assert.Equal(t, 40.0, got[5], "trailing gap carries last value forward")
}

func TestImputeFillStrategies(t *testing.T) {
	cases := []struct {
		strategy ImputeStrategy
		idx      int
		want     float64
	}{
		{ImputeForwardFill, 2, 20},
		{ImputeBackwardFill, 2, 40},
		{ImputeMean, 2, 25},
		{ImputeMedian, 2, 25},
		{ImputeZero, 2, 0},
	}
	for _, tc := range cases {
		f := frameWithGHI(t, []float64{10, 20, math.NaN(), 40, 30})
		out, _, err := Impute(f, dataset.ColGHI, tc.strategy)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ghi(t, out)[tc.idx], "strategy %s", tc.strategy)
	}
}

func TestImputeDrop(t *testing.T) {
	f := frameWithGHI(t, []float64{10, math.NaN(), 30})
	out, entry, err := Impute(f, dataset.ColGHI, ImputeDrop)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Count)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []float64{10, 30}, ghi(t, out))
}

func TestParseStrategiesRejectUnknown(t *testing.T) {
	_, err := ParseNegativePolicy("nuke")
	assert.Error(t, err)
	_, err = ParseOutlierMethod("vibes")
	assert.Error(t, err)
	_, err = ParseOutlierTreatment("ignore")
	assert.Error(t, err)
	_, err = ParseImputeStrategy("magic")
	assert.Error(t, err)
}
