package pipeline

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/solarcross/solarcross/internal/cleaning"
	"github.com/solarcross/solarcross/internal/dataset"
	"github.com/solarcross/solarcross/internal/metrics"
	"github.com/solarcross/solarcross/internal/models"
	"github.com/solarcross/solarcross/internal/solar"
	"github.com/solarcross/solarcross/internal/stats"
	"github.com/solarcross/solarcross/internal/store"
)

// Runner executes pipeline stages against one store.
type Runner struct {
	cfg      Config
	store    *store.Store
	analyzer *stats.Analyzer
}

// NewRunner validates the config and builds a runner.
func NewRunner(cfg Config, st *store.Store) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := stats.NewAnalyzer(cfg.Alpha)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, store: st, analyzer: analyzer}, nil
}

// SeedSites upserts every configured site row.
func (r *Runner) SeedSites() error {
	for _, s := range r.cfg.Sites {
		site := models.Site{
			SiteID:     s.ID,
			Name:       s.Name,
			Country:    s.Country,
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			SourceFile: s.File,
		}
		if err := r.store.UpsertSite(site); err != nil {
			return fmt.Errorf("upsert site %s: %w", s.ID, err)
		}
	}
	return nil
}

func (r *Runner) rawPath(s SiteConfig) string {
	return filepath.Join(r.cfg.DataDir, s.File)
}

func (r *Runner) cleanedPath(s SiteConfig) string {
	return filepath.Join(r.cfg.OutDir, s.ID+"_clean.csv")
}

// CleanSite runs the full cleaning pass for one site: load the raw export,
// clean it, write the cleaned file, and persist derived artifacts.
func (r *Runner) CleanSite(siteID string) (cleaning.Report, error) {
	site, err := r.cfg.Site(siteID)
	if err != nil {
		return cleaning.Report{}, err
	}

	started := time.Now()
	raw, err := dataset.ReadCSV(r.rawPath(site))
	if err != nil {
		return cleaning.Report{}, fmt.Errorf("load %s: %w", site.ID, err)
	}
	metrics.RowsLoaded.WithLabelValues(site.ID).Add(float64(raw.Len()))
	log.Printf("clean: %s loaded %d rows from %s", site.ID, raw.Len(), site.File)

	cleaned, report, err := cleaning.Run(raw, r.cfg.Cleaning)
	if err != nil {
		return report, fmt.Errorf("clean %s: %w", site.ID, err)
	}
	log.Printf("clean: %s %d -> %d rows\n%s", site.ID, raw.Len(), cleaned.Len(), report.String())

	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return report, err
	}
	if err := dataset.WriteCSV(cleaned, r.cleanedPath(site)); err != nil {
		return report, fmt.Errorf("write cleaned %s: %w", site.ID, err)
	}

	r.recordCleaning(site.ID, report)
	if err := r.persistDerived(site, cleaned); err != nil {
		return report, err
	}
	metrics.CleanDuration.WithLabelValues(site.ID).Observe(time.Since(started).Seconds())
	return report, nil
}

// CleanAll cleans every configured site in order.
func (r *Runner) CleanAll() error {
	for _, s := range r.cfg.Sites {
		if _, err := r.CleanSite(s.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) recordCleaning(siteID string, report cleaning.Report) {
	now := time.Now().UTC()
	for _, e := range report.Entries {
		switch e.Op {
		case cleaning.OpRemoveDuplicates:
			metrics.DuplicatesRemoved.WithLabelValues(siteID).Add(float64(e.Count))
		case cleaning.OpTreatOutliers:
			metrics.OutliersTreated.WithLabelValues(siteID, e.Column).Add(float64(e.Count))
		case cleaning.OpImpute:
			metrics.ValuesImputed.WithLabelValues(siteID, e.Column).Add(float64(e.Count))
		}
		entry := models.CleaningLogEntry{
			SiteID: siteID,
			RunAt:  now,
			Op:     e.Op,
			Column: e.Column,
			Count:  e.Count,
			Detail: e.Detail,
		}
		if err := r.store.InsertCleaningLog(entry); err != nil {
			log.Printf("clean: %s log entry: %v", siteID, err)
		}
	}
}

// persistDerived stores column stats, daily energy totals and the sky
// distribution for one cleaned site.
func (r *Runner) persistDerived(site SiteConfig, f *dataset.Frame) error {
	for _, col := range f.Columns() {
		vals, err := f.Column(col)
		if err != nil {
			return err
		}
		d := stats.Describe(vals)
		cs := models.ColumnStats{
			SiteID: site.ID,
			Column: col,
			Count:  d.Count,
			Mean:   nullFloat(d.Mean, d.Count > 0),
			Std:    nullFloat(d.Std, d.Count > 1),
			Min:    nullFloat(d.Min, d.Count > 0),
			Q25:    nullFloat(d.Q25, d.Count > 0),
			Median: nullFloat(d.Median, d.Count > 0),
			Q75:    nullFloat(d.Q75, d.Count > 0),
			Max:    nullFloat(d.Max, d.Count > 0),
		}
		if err := r.store.UpsertColumnStats(cs); err != nil {
			return fmt.Errorf("column stats %s/%s: %w", site.ID, col, err)
		}
	}

	daily, err := solar.DailyEnergyTotals(f)
	if err != nil {
		return err
	}
	for _, d := range daily {
		de := models.DailyEnergy{SiteID: site.ID, Date: d.Date, KWhM2: d.KWhM2, Samples: d.Sample}
		if err := r.store.UpsertDailyEnergy(de); err != nil {
			return fmt.Errorf("daily energy %s: %w", site.ID, err)
		}
	}

	kt, err := solar.ClearnessIndex(f, r.cfg.Solar.SolarConstant)
	if err != nil {
		return err
	}
	dist := solar.SkyDistribution(kt)
	var counts []models.SkyConditionCount
	for _, cond := range []solar.SkyCondition{solar.SkyOvercast, solar.SkyPartlyCloudy, solar.SkyClear} {
		counts = append(counts, models.SkyConditionCount{
			SiteID:    site.ID,
			Condition: string(cond),
			Count:     dist[cond],
		})
	}
	return r.store.ReplaceSkyConditions(site.ID, counts)
}

// loadCleaned reads a site's cleaned file, falling back to cleaning the raw
// export on the fly when no cleaned file exists yet.
func (r *Runner) loadCleaned(site SiteConfig) (*dataset.Frame, error) {
	path := r.cleanedPath(site)
	if _, err := os.Stat(path); err == nil {
		return dataset.ReadCSV(path)
	}
	log.Printf("analyze: %s has no cleaned file, cleaning now", site.ID)
	if _, err := r.CleanSite(site.ID); err != nil {
		return nil, err
	}
	return dataset.ReadCSV(path)
}

// Analyze runs the per-site correlation matrices and the cross-site
// comparison tests, persists them, and returns the summary document.
func (r *Runner) Analyze() (*Summary, error) {
	frames := make(map[string]*dataset.Frame, len(r.cfg.Sites))
	for _, s := range r.cfg.Sites {
		f, err := r.loadCleaned(s)
		if err != nil {
			return nil, err
		}
		frames[s.ID] = f
	}

	summary := &Summary{
		GeneratedAt: time.Now().UTC(),
		Alpha:       r.cfg.Alpha,
	}

	for _, s := range r.cfg.Sites {
		site, err := r.analyzeSite(s, frames[s.ID])
		if err != nil {
			return nil, err
		}
		summary.Sites = append(summary.Sites, site)
	}

	for _, col := range r.cfg.CompareColumns {
		cmp, err := r.compareSites(col, frames)
		if err != nil {
			return nil, err
		}
		summary.Comparisons = append(summary.Comparisons, cmp)
	}

	run := models.AnalysisRun{
		RunAt:       summary.GeneratedAt,
		Alpha:       summary.Alpha,
		Sites:       len(summary.Sites),
		Comparisons: len(summary.Comparisons),
	}
	if err := r.store.InsertAnalysisRun(run); err != nil {
		log.Printf("analyze: record run: %v", err)
	}
	return summary, nil
}

func (r *Runner) analyzeSite(s SiteConfig, f *dataset.Frame) (SiteSummary, error) {
	site := SiteSummary{ID: s.ID, Name: s.Name, Country: s.Country, Rows: f.Len()}

	ghi, err := f.Column(dataset.ColGHI)
	if err != nil {
		return site, err
	}
	site.GHI = stats.Describe(ghi)

	norm, err := r.analyzer.TestNormality(ghi, r.cfg.NormalityMethod)
	if err != nil {
		log.Printf("analyze: %s normality: %v", s.ID, err)
	} else {
		site.Normality = &norm
		metrics.TestsRun.WithLabelValues(string(norm.Method)).Inc()
	}

	data := make(map[string][]float64, len(r.cfg.CorrelationColumns))
	var cols []string
	for _, col := range r.cfg.CorrelationColumns {
		vals, err := f.Column(col)
		if err != nil {
			// A configured column that is not in the data is a config error,
			// not something to analyze around.
			return site, fmt.Errorf("correlations %s: %w", s.ID, err)
		}
		cols = append(cols, col)
		data[col] = vals
	}
	matrix, err := r.analyzer.CorrelationMatrix(cols, data, r.cfg.CorrelationMethod)
	if err != nil {
		return site, fmt.Errorf("correlations %s: %w", s.ID, err)
	}
	site.Correlations = matrix
	site.SignificantPairs = matrix.SignificantPairs(r.cfg.Alpha)

	for i, a := range matrix.Columns {
		for j := i + 1; j < len(matrix.Columns); j++ {
			row := models.Correlation{
				SiteID:  s.ID,
				Method:  string(matrix.Method),
				ColumnA: a,
				ColumnB: matrix.Columns[j],
				R:       nullFloat(matrix.R[i][j], !math.IsNaN(matrix.R[i][j])),
				P:       nullFloat(matrix.P[i][j], !math.IsNaN(matrix.P[i][j])),
				N:       f.Len(),
			}
			if err := r.store.UpsertCorrelation(row); err != nil {
				return site, fmt.Errorf("store correlation %s: %w", s.ID, err)
			}
		}
	}

	assessment, err := solar.AssessPotential(f, solar.Config{
		SolarConstant:     r.cfg.Solar.SolarConstant,
		DaylightThreshold: r.cfg.Solar.DaylightThreshold,
		Latitude:          s.Latitude,
		Longitude:         s.Longitude,
	})
	if err != nil {
		return site, fmt.Errorf("assess %s: %w", s.ID, err)
	}
	assessment.DailyEnergy = nil // stored separately, keep the summary small
	site.Solar = assessment

	hourly, err := solar.HourlyPatterns(f, dataset.ColGHI)
	if err != nil {
		return site, fmt.Errorf("hourly patterns %s: %w", s.ID, err)
	}
	site.HourlyGHI = hourly
	monthly, err := solar.MonthlyPatterns(f, dataset.ColGHI)
	if err != nil {
		return site, fmt.Errorf("monthly patterns %s: %w", s.ID, err)
	}
	site.MonthlyGHI = monthly

	// Cleaning impact needs the ModA and Cleaning columns; exports without
	// them simply have no impact figure.
	impact, err := solar.AssessCleaningImpact(f, dataset.ColModA, solar.DefaultCleaningWindow)
	if err != nil {
		log.Printf("analyze: %s cleaning impact: %v", s.ID, err)
	} else if impact.Analyzed > 0 {
		site.CleaningImpact = &impact
	}
	return site, nil
}

// compareSites runs the multi-group and pairwise tests for one metric column
// across all sites.
func (r *Runner) compareSites(column string, frames map[string]*dataset.Frame) (Comparison, error) {
	cmp := Comparison{Column: column}

	var groups []stats.Group
	for _, s := range r.cfg.Sites {
		vals, err := frames[s.ID].Column(column)
		if err != nil {
			return cmp, fmt.Errorf("compare %s: %w", column, err)
		}
		groups = append(groups, stats.Group{Name: s.ID, Values: vals})
	}

	anova, err := r.analyzer.OneWayANOVA(groups)
	if err != nil {
		return cmp, fmt.Errorf("anova %s: %w", column, err)
	}
	cmp.ANOVA = anova
	r.recordTest(column, anova)

	kw, err := r.analyzer.KruskalWallis(groups)
	if err != nil {
		return cmp, fmt.Errorf("kruskal-wallis %s: %w", column, err)
	}
	cmp.KruskalWallis = kw
	r.recordTest(column, kw)

	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			welch, err := r.analyzer.TTest(groups[i], groups[j], true)
			if err != nil {
				log.Printf("analyze: welch %s %s/%s: %v", column, groups[i].Name, groups[j].Name, err)
				continue
			}
			cmp.Pairwise = append(cmp.Pairwise, welch)
			r.recordTest(column, welch)

			mw, err := r.analyzer.MannWhitney(groups[i], groups[j])
			if err != nil {
				log.Printf("analyze: mann-whitney %s %s/%s: %v", column, groups[i].Name, groups[j].Name, err)
				continue
			}
			cmp.Pairwise = append(cmp.Pairwise, mw)
			r.recordTest(column, mw)
		}
	}
	return cmp, nil
}

func (r *Runner) recordTest(column string, res stats.TestResult) {
	metrics.TestsRun.WithLabelValues(res.Test).Inc()
	row := models.TestResult{
		RunAt:       time.Now().UTC(),
		Metric:      column,
		Test:        res.Test,
		Groups:      joinGroupNames(res.Groups),
		Statistic:   res.Statistic,
		PValue:      res.PValue,
		Significant: res.Significant,
	}
	if len(res.Excluded) > 0 {
		row.Excluded = sql.NullString{String: strings.Join(res.Excluded, ","), Valid: true}
	}
	if err := r.store.InsertTestResult(row); err != nil {
		log.Printf("analyze: store %s result: %v", res.Test, err)
	}
}

func nullFloat(v float64, valid bool) sql.NullFloat64 {
	if !valid || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func joinGroupNames(groups []stats.GroupStats) string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return strings.Join(names, ",")
}
