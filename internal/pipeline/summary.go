package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/solarcross/solarcross/internal/solar"
	"github.com/solarcross/solarcross/internal/stats"
)

// Summary is the derived document the dashboard consumes: per-site
// descriptive and solar figures plus the cross-site comparison results.
type Summary struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Alpha       float64       `json:"alpha"`
	Sites       []SiteSummary `json:"sites"`
	Comparisons []Comparison  `json:"comparisons"`
}

// SiteSummary describes one site after cleaning.
type SiteSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
	Rows    int    `json:"rows"`

	GHI              stats.Descriptive         `json:"ghi"`
	Normality        *stats.NormalityResult    `json:"ghi_normality,omitempty"`
	Correlations     stats.Matrix              `json:"correlations"`
	SignificantPairs int                       `json:"significant_pairs"`
	Solar            solar.Assessment          `json:"solar"`
	HourlyGHI        map[int]solar.PatternStat `json:"hourly_ghi,omitempty"`
	MonthlyGHI       map[int]solar.PatternStat `json:"monthly_ghi,omitempty"`
	CleaningImpact   *solar.CleaningImpact     `json:"cleaning_impact,omitempty"`
}

// Comparison holds every cross-site test for one metric column.
type Comparison struct {
	Column        string             `json:"column"`
	ANOVA         stats.TestResult   `json:"anova"`
	KruskalWallis stats.TestResult   `json:"kruskal_wallis"`
	Pairwise      []stats.TestResult `json:"pairwise"`
}

// SummaryPath returns where WriteSummary puts the document.
func (c Config) SummaryPath() string {
	return filepath.Join(c.OutDir, "summary.json")
}

// WriteSummary persists the summary document for the presentation layer.
func (r *Runner) WriteSummary(s *Summary) error {
	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return os.WriteFile(r.cfg.SummaryPath(), data, 0o644)
}

// ReadSummary loads a previously written summary document.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return &s, nil
}

// SummaryPath on the runner for callers that only hold a runner.
func (r *Runner) SummaryPath() string {
	return r.cfg.SummaryPath()
}
