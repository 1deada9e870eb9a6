// Package solar derives physical quantities from irradiance observations:
// clearness index, diffuse fraction, sky-condition categories and daily
// energy totals. Every function is a stateless transform; the input frame is
// never modified.
package solar

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/solarcross/solarcross/internal/dataset"
)

// DefaultSolarConstant is the extraterrestrial irradiance in W/m².
const DefaultSolarConstant = 1361.0

// DefaultDaylightThreshold is the GHI level above which a sample counts as
// daylight, in W/m².
const DefaultDaylightThreshold = 10.0

// Derived column names appended by Derive.
const (
	ColClearnessIndex  = "ClearnessIndex"
	ColDiffuseFraction = "DiffuseFraction"
)

// Config parameterizes the metric calculations for one site. Latitude and
// longitude are carried for future solar-geometry work; the current formulas
// do not use them.
type Config struct {
	SolarConstant     float64 `json:"solar_constant"`
	DaylightThreshold float64 `json:"daylight_threshold"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
}

// DefaultConfig returns the standard metric parameters.
func DefaultConfig() Config {
	return Config{
		SolarConstant:     DefaultSolarConstant,
		DaylightThreshold: DefaultDaylightThreshold,
	}
}

// ClearnessIndex returns GHI divided by the solar constant for every row.
// Values above 1 are kept as-is; they indicate a sensor or calibration
// anomaly worth seeing, not an error. A non-positive constant makes every
// value missing.
func ClearnessIndex(f *dataset.Frame, solarConstant float64) ([]float64, error) {
	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ghi))
	if solarConstant <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}
	for i, v := range ghi {
		out[i] = v / solarConstant
	}
	return out, nil
}

// DiffuseFraction returns DHI/GHI clipped to [0, 1]. Rows where GHI is zero
// or negative (nighttime) are missing rather than a division artifact.
func DiffuseFraction(f *dataset.Frame) ([]float64, error) {
	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return nil, err
	}
	dhi, err := f.Column(dataset.ColDHI)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ghi))
	for i := range ghi {
		if ghi[i] <= 0 || math.IsNaN(ghi[i]) || math.IsNaN(dhi[i]) {
			out[i] = math.NaN()
			continue
		}
		kd := dhi[i] / ghi[i]
		if kd < 0 {
			kd = 0
		} else if kd > 1 {
			kd = 1
		}
		out[i] = kd
	}
	return out, nil
}

// SkyCondition is a coarse category derived from the clearness index.
type SkyCondition string

const (
	SkyOvercast     SkyCondition = "overcast"
	SkyPartlyCloudy SkyCondition = "partly_cloudy"
	SkyClear        SkyCondition = "clear"
)

// ClassifySky maps a clearness index to its sky-condition band. Band lower
// bounds are inclusive. A missing index has no category.
func ClassifySky(kt float64) (SkyCondition, bool) {
	switch {
	case math.IsNaN(kt):
		return "", false
	case kt < 0.3:
		return SkyOvercast, true
	case kt < 0.65:
		return SkyPartlyCloudy, true
	default:
		return SkyClear, true
	}
}

// SkyDistribution counts rows per sky condition over a clearness index
// series. Missing values are not counted.
func SkyDistribution(kt []float64) map[SkyCondition]int {
	dist := map[SkyCondition]int{
		SkyOvercast:     0,
		SkyPartlyCloudy: 0,
		SkyClear:        0,
	}
	for _, v := range kt {
		if cond, ok := ClassifySky(v); ok {
			dist[cond]++
		}
	}
	return dist
}

// DailyEnergy is the integrated GHI for one calendar day.
type DailyEnergy struct {
	Date   time.Time `json:"date"`
	KWhM2  float64   `json:"kwh_m2"`
	Sample int       `json:"samples"`
}

// DailyEnergyTotals integrates GHI over each calendar day by the trapezoid
// rule and scales W/m² to kWh/m². Segments touching a missing value
// contribute nothing. One result per calendar day present in the input, in
// order.
func DailyEnergyTotals(f *dataset.Frame) ([]DailyEnergy, error) {
	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return nil, err
	}
	times := f.Times()

	var out []DailyEnergy
	var cur *DailyEnergy
	for i := range times {
		day := times[i].Truncate(24 * time.Hour)
		if cur == nil || !cur.Date.Equal(day) {
			out = append(out, DailyEnergy{Date: day})
			cur = &out[len(out)-1]
		}
		cur.Sample++
		if i == 0 {
			continue
		}
		// Trapezoid segment between consecutive samples of the same day.
		if !times[i-1].Truncate(24 * time.Hour).Equal(day) {
			continue
		}
		if math.IsNaN(ghi[i-1]) || math.IsNaN(ghi[i]) {
			continue
		}
		hours := times[i].Sub(times[i-1]).Hours()
		cur.KWhM2 += (ghi[i-1] + ghi[i]) / 2 * hours / 1000
	}
	return out, nil
}

// DaylightMask flags rows whose GHI exceeds the daylight threshold. Missing
// GHI is never daylight.
func DaylightMask(f *dataset.Frame, threshold float64) ([]bool, error) {
	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(ghi))
	for i, v := range ghi {
		mask[i] = !math.IsNaN(v) && v > threshold
	}
	return mask, nil
}

// ModuleEfficiency estimates the relative panel efficiency from module
// temperature using a linear temperature coefficient, bounded to [0.5, 1.2].
// The reference is 1.0 at 25°C with the typical -0.4%/°C coefficient.
func ModuleEfficiency(f *dataset.Frame, tempColumn string) ([]float64, error) {
	const (
		referenceTemp   = 25.0
		tempCoefficient = -0.004
	)
	temps, err := f.Column(tempColumn)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(temps))
	for i, t := range temps {
		if math.IsNaN(t) {
			out[i] = math.NaN()
			continue
		}
		eff := 1 + tempCoefficient*(t-referenceTemp)
		if eff < 0.5 {
			eff = 0.5
		} else if eff > 1.2 {
			eff = 1.2
		}
		out[i] = eff
	}
	return out, nil
}

// Derive returns a copy of the frame with the clearness index and diffuse
// fraction appended as columns.
func Derive(f *dataset.Frame, cfg Config) (*dataset.Frame, error) {
	kt, err := ClearnessIndex(f, cfg.SolarConstant)
	if err != nil {
		return nil, err
	}
	kd, err := DiffuseFraction(f)
	if err != nil {
		return nil, err
	}
	out := f.Clone()
	if err := out.AddColumn(ColClearnessIndex, kt); err != nil {
		return nil, err
	}
	if err := out.AddColumn(ColDiffuseFraction, kd); err != nil {
		return nil, err
	}
	return out, nil
}

// Assessment summarizes a site's solar resource.
type Assessment struct {
	MeanGHI         float64              `json:"mean_ghi"`
	MaxGHI          float64              `json:"max_ghi"`
	MeanDNI         float64              `json:"mean_dni"`
	MeanDHI         float64              `json:"mean_dhi"`
	MeanClearness   float64              `json:"mean_clearness_index"`
	DaylightPercent float64              `json:"daylight_percent"`
	MeanDailyEnergy float64              `json:"mean_daily_energy_kwh_m2"`
	EstAnnualGHI    float64              `json:"estimated_annual_ghi_kwh_m2"`
	PeakSunHours    float64              `json:"peak_sun_hours"`
	SkyDistribution map[SkyCondition]int `json:"sky_distribution"`
	DailyEnergy     []DailyEnergy        `json:"daily_energy"`
}

// AssessPotential computes the full resource assessment for one site.
func AssessPotential(f *dataset.Frame, cfg Config) (Assessment, error) {
	if f.Len() == 0 {
		return Assessment{}, fmt.Errorf("assess potential: empty table")
	}
	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return Assessment{}, err
	}
	dni, err := f.Column(dataset.ColDNI)
	if err != nil {
		return Assessment{}, err
	}
	dhi, err := f.Column(dataset.ColDHI)
	if err != nil {
		return Assessment{}, err
	}
	kt, err := ClearnessIndex(f, cfg.SolarConstant)
	if err != nil {
		return Assessment{}, err
	}
	daily, err := DailyEnergyTotals(f)
	if err != nil {
		return Assessment{}, err
	}
	mask, err := DaylightMask(f, cfg.DaylightThreshold)
	if err != nil {
		return Assessment{}, err
	}

	daylight := 0
	for _, d := range mask {
		if d {
			daylight++
		}
	}
	sumEnergy := 0.0
	for _, d := range daily {
		sumEnergy += d.KWhM2
	}
	meanDaily := sumEnergy / float64(len(daily))

	a := Assessment{
		DaylightPercent: float64(daylight) / float64(f.Len()) * 100,
		MeanDailyEnergy: meanDaily,
		EstAnnualGHI:    meanDaily * 365,
		PeakSunHours:    meanDaily,
		SkyDistribution: SkyDistribution(kt),
		DailyEnergy:     daily,
	}
	a.MeanGHI, _ = stats.Mean(nonMissing(ghi))
	a.MaxGHI, _ = stats.Max(nonMissing(ghi))
	a.MeanDNI, _ = stats.Mean(nonMissing(dni))
	a.MeanDHI, _ = stats.Mean(nonMissing(dhi))
	a.MeanClearness, _ = stats.Mean(nonMissing(kt))
	return a, nil
}

func nonMissing(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
