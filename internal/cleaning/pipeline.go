package cleaning

import (
	"fmt"
	"sort"

	"github.com/solarcross/solarcross/internal/dataset"
)

// Config drives a full cleaning run. Strategy fields are validated up front;
// Run rejects a config it has not validated.
type Config struct {
	// NegativeColumns are cleaned with NegativePolicy before any outlier
	// work. Negative sensor noise must be removed first or it would be
	// flagged as a statistical outlier instead of a physical impossibility.
	NegativeColumns []string       `json:"negative_columns"`
	NegativePolicy  NegativePolicy `json:"negative_policy"`

	// OutlierColumns are scanned with OutlierMethod. DetectThreshold is used
	// for the reported flag count, TreatThreshold for the actual treatment.
	// The defaults (3 and 4 for z-score) reflect empirical tuning against the
	// heavy right skew of irradiance data and are deliberately configurable.
	OutlierColumns  []string         `json:"outlier_columns"`
	OutlierMethod   OutlierMethod    `json:"outlier_method"`
	DetectThreshold float64          `json:"detect_threshold"`
	TreatThreshold  float64          `json:"treat_threshold"`
	Treatment       OutlierTreatment `json:"treatment"`

	// Impute is the default imputation strategy; ImputeOverrides adjusts it
	// per column. Imputation runs on every outlier column plus any override
	// column.
	Impute          ImputeStrategy            `json:"impute"`
	ImputeOverrides map[string]ImputeStrategy `json:"impute_overrides,omitempty"`
}

// DefaultConfig mirrors the standard cleaning pass used on the site exports.
func DefaultConfig() Config {
	return Config{
		NegativeColumns: append([]string(nil), dataset.IrradianceColumns...),
		NegativePolicy:  NegativeZero,
		OutlierColumns: []string{
			dataset.ColGHI, dataset.ColDNI, dataset.ColDHI,
			dataset.ColTamb, dataset.ColWS, dataset.ColRH,
		},
		OutlierMethod:   MethodZScore,
		DetectThreshold: 3,
		TreatThreshold:  4,
		Treatment:       TreatMissing,
		Impute:          ImputeInterpolate,
	}
}

// Validate rejects unknown strategy names and out-of-range thresholds.
func (c Config) Validate() error {
	if _, err := ParseNegativePolicy(string(c.NegativePolicy)); err != nil {
		return err
	}
	if _, err := ParseOutlierMethod(string(c.OutlierMethod)); err != nil {
		return err
	}
	if _, err := ParseOutlierTreatment(string(c.Treatment)); err != nil {
		return err
	}
	if _, err := ParseImputeStrategy(string(c.Impute)); err != nil {
		return err
	}
	for col, s := range c.ImputeOverrides {
		if _, err := ParseImputeStrategy(string(s)); err != nil {
			return fmt.Errorf("column %q: %w", col, err)
		}
	}
	if c.DetectThreshold <= 0 {
		return fmt.Errorf("detect threshold must be positive, got %g", c.DetectThreshold)
	}
	if c.TreatThreshold <= 0 {
		return fmt.Errorf("treat threshold must be positive, got %g", c.TreatThreshold)
	}
	return nil
}

// Run executes the standard cleaning sequence on one table:
// dedupe, negative-value cleanup, outlier flag + treatment, imputation.
// On error the input frame is returned unchanged alongside the report built
// so far.
func Run(f *dataset.Frame, cfg Config) (*dataset.Frame, Report, error) {
	var report Report
	if err := cfg.Validate(); err != nil {
		return f, report, err
	}

	cur, entry := RemoveDuplicates(f)
	report.add(entry)

	cur, entries, err := CleanNegatives(cur, cfg.NegativeColumns, cfg.NegativePolicy)
	if err != nil {
		return f, report, err
	}
	for _, e := range entries {
		report.add(e)
	}

	for _, col := range cfg.OutlierColumns {
		// Report how many points the tighter detection threshold flags, then
		// treat only those past the removal threshold.
		flagged, err := detect(cur, col, cfg.OutlierMethod, cfg.DetectThreshold)
		if err != nil {
			return f, report, err
		}
		report.add(ReportEntry{
			Op:     OpFlagOutliers,
			Column: col,
			Count:  flagged.Count,
			Detail: fmt.Sprintf("method=%s threshold=%g", cfg.OutlierMethod, cfg.DetectThreshold),
		})

		treatable := flagged
		if cfg.TreatThreshold != cfg.DetectThreshold {
			treatable, err = detect(cur, col, cfg.OutlierMethod, cfg.TreatThreshold)
			if err != nil {
				return f, report, err
			}
		}
		cur, entry, err = TreatOutliers(cur, treatable, cfg.Treatment)
		if err != nil {
			return f, report, err
		}
		report.add(entry)
	}

	for _, col := range imputeColumns(cfg) {
		strategy := cfg.Impute
		if s, ok := cfg.ImputeOverrides[col]; ok {
			strategy = s
		}
		next, entry, err := Impute(cur, col, strategy)
		if err != nil {
			return f, report, err
		}
		cur = next
		report.add(entry)
	}

	return cur, report, nil
}

func detect(f *dataset.Frame, col string, method OutlierMethod, threshold float64) (Detection, error) {
	if method == MethodIQR {
		return DetectIQR(f, col, threshold)
	}
	return DetectZScore(f, col, threshold)
}

func imputeColumns(cfg Config) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, c := range cfg.OutlierColumns {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	var extras []string
	for c := range cfg.ImputeOverrides {
		if !seen[c] {
			seen[c] = true
			extras = append(extras, c)
		}
	}
	sort.Strings(extras)
	return append(cols, extras...)
}
