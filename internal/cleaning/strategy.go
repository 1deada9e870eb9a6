package cleaning

import "fmt"

// Strategy names are closed enumerations: unrecognized values are rejected
// when configuration is parsed, not when an operation runs.

// NegativePolicy controls how negative irradiance readings are replaced.
type NegativePolicy string

const (
	// NegativeZero replaces negatives with 0. Negative irradiance only occurs
	// from sensor noise at night when the true value is zero, so this is the
	// default.
	NegativeZero NegativePolicy = "zero"
	// NegativeMissing replaces negatives with NaN, deferring to imputation.
	NegativeMissing NegativePolicy = "missing"
	// NegativeAbsolute takes the absolute value. Not recommended: it mirrors
	// the noise into a positive bias instead of removing it.
	NegativeAbsolute NegativePolicy = "abs"
)

func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch NegativePolicy(s) {
	case NegativeZero, NegativeMissing, NegativeAbsolute:
		return NegativePolicy(s), nil
	}
	return "", fmt.Errorf("unknown negative-value policy %q", s)
}

// OutlierMethod selects the outlier detector.
type OutlierMethod string

const (
	MethodZScore OutlierMethod = "zscore"
	MethodIQR    OutlierMethod = "iqr"
)

func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch OutlierMethod(s) {
	case MethodZScore, MethodIQR:
		return OutlierMethod(s), nil
	}
	return "", fmt.Errorf("unknown outlier method %q", s)
}

// OutlierTreatment controls what happens to flagged points.
type OutlierTreatment string

const (
	TreatMissing OutlierTreatment = "missing"
	TreatMedian  OutlierTreatment = "median"
	TreatMean    OutlierTreatment = "mean"
	TreatClip    OutlierTreatment = "clip"
)

func ParseOutlierTreatment(s string) (OutlierTreatment, error) {
	switch OutlierTreatment(s) {
	case TreatMissing, TreatMedian, TreatMean, TreatClip:
		return OutlierTreatment(s), nil
	}
	return "", fmt.Errorf("unknown outlier treatment %q", s)
}

// ImputeStrategy controls how missing values are filled.
type ImputeStrategy string

const (
	ImputeDrop         ImputeStrategy = "drop"
	ImputeForwardFill  ImputeStrategy = "ffill"
	ImputeBackwardFill ImputeStrategy = "bfill"
	// ImputeInterpolate is linear interpolation between neighbours, the
	// recommended strategy for one-minute time series.
	ImputeInterpolate ImputeStrategy = "interpolate"
	ImputeMean        ImputeStrategy = "mean"
	ImputeMedian      ImputeStrategy = "median"
	ImputeZero        ImputeStrategy = "zero"
)

func ParseImputeStrategy(s string) (ImputeStrategy, error) {
	switch ImputeStrategy(s) {
	case ImputeDrop, ImputeForwardFill, ImputeBackwardFill, ImputeInterpolate,
		ImputeMean, ImputeMedian, ImputeZero:
		return ImputeStrategy(s), nil
	}
	return "", fmt.Errorf("unknown imputation strategy %q", s)
}
