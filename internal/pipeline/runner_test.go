package pipeline

import (
	"database/sql"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/solarcross/solarcross/internal/cleaning"
	"github.com/solarcross/solarcross/internal/dataset"
	"github.com/solarcross/solarcross/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

type fixtureRow struct {
	ts       time.Time
	ghi      float64
	modA     float64
	cleaning int
}

// writeFixture writes a raw site CSV with the full column set the default
// cleaning config expects. Columns the row struct does not carry get bland
// in-range values.
func writeFixture(t *testing.T, path string, rows []fixtureRow) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "Timestamp,GHI,DNI,DHI,Tamb,RH,WS,ModA,Cleaning,Comments")
	for _, r := range rows {
		ghi := ""
		if !math.IsNaN(r.ghi) {
			ghi = fmt.Sprintf("%g", r.ghi)
		}
		fmt.Fprintf(f, "%s,%s,200,80,28,55,2.5,%g,%d,\n",
			r.ts.Format("2006-01-02 15:04"), ghi, r.modA, r.cleaning)
	}
}

func testConfig(t *testing.T, sites []SiteConfig) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dir
	cfg.OutDir = filepath.Join(dir, "processed")
	cfg.Sites = sites
	// The fixture only varies GHI; restrict the analysis to it so constant
	// columns do not degenerate the group tests.
	cfg.CompareColumns = []string{"GHI"}
	cfg.CorrelationColumns = []string{"GHI", "DNI", "Tamb"}
	return cfg
}

// A table with duplicate timestamps, a negative GHI reading and one wild
// anomaly comes out deduplicated, non-negative, and with the anomaly replaced
// by the column median.
func TestCleanSiteEndToEnd(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	var rows []fixtureRow
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rows = append(rows, fixtureRow{ts: start.Add(time.Duration(i) * time.Minute), ghi: 300 + rng.NormFloat64()*50})
	}
	rows[3].ghi = -5
	rows[11].ghi = 10000
	// Two rows repeat earlier timestamps; dedupe keeps the first occurrence.
	rows = append(rows,
		fixtureRow{ts: rows[5].ts, ghi: 111},
		fixtureRow{ts: rows[8].ts, ghi: 222},
	)

	sites := []SiteConfig{{ID: "benin", Name: "Malanville", Country: "Benin", File: "benin.csv"}}
	cfg := testConfig(t, sites)
	cfg.Cleaning.TreatThreshold = 3
	cfg.Cleaning.Treatment = cleaning.TreatMedian
	writeFixture(t, filepath.Join(cfg.DataDir, "benin.csv"), rows)

	st := setupTestStore(t)
	r, err := NewRunner(cfg, st)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := r.SeedSites(); err != nil {
		t.Fatalf("seed sites: %v", err)
	}

	report, err := r.CleanSite("benin")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}

	cleaned, err := dataset.ReadCSV(filepath.Join(cfg.OutDir, "benin_clean.csv"))
	if err != nil {
		t.Fatalf("read cleaned: %v", err)
	}
	if cleaned.Len() != 20 {
		t.Errorf("rows = %d, want 20 after removing 2 duplicates", cleaned.Len())
	}

	ghi, err := cleaned.Column(dataset.ColGHI)
	if err != nil {
		t.Fatalf("ghi column: %v", err)
	}
	for i, v := range ghi {
		if v < 0 {
			t.Errorf("ghi[%d] = %g, want non-negative", i, v)
		}
		if v == 10000 {
			t.Errorf("anomalous value survived at row %d", i)
		}
	}

	var dupes, treated int
	for _, e := range report.Entries {
		switch {
		case e.Op == cleaning.OpRemoveDuplicates:
			dupes = e.Count
		case e.Op == cleaning.OpTreatOutliers && e.Column == dataset.ColGHI:
			treated += e.Count
		}
	}
	if dupes != 2 {
		t.Errorf("duplicates removed = %d, want 2", dupes)
	}
	if treated < 1 {
		t.Errorf("outliers treated = %d, want at least 1", treated)
	}

	// Derived artifacts landed in the store.
	cs, err := st.GetColumnStats("benin")
	if err != nil {
		t.Fatalf("column stats: %v", err)
	}
	if len(cs) == 0 {
		t.Error("no column stats persisted")
	}
	logEntries, err := st.GetCleaningLog("benin", 100)
	if err != nil {
		t.Fatalf("cleaning log: %v", err)
	}
	if len(logEntries) != len(report.Entries) {
		t.Errorf("log entries = %d, want %d", len(logEntries), len(report.Entries))
	}
}

// Three sites with group means near 242, 205 and 232 and realistic spread
// must produce a significant ANOVA on GHI.
func TestAnalyzeSeparatedSites(t *testing.T) {
	start := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	means := map[string]float64{"benin": 242.4, "sierraleone": 204.5, "togo": 232.0}

	sites := []SiteConfig{
		{ID: "benin", Name: "Malanville", Country: "Benin", File: "benin.csv"},
		{ID: "sierraleone", Name: "Bumbuna", Country: "Sierra Leone", File: "sierraleone.csv"},
		{ID: "togo", Name: "Dapaong", Country: "Togo", File: "togo.csv"},
	}
	cfg := testConfig(t, sites)

	seed := int64(7)
	for _, s := range sites {
		rng := rand.New(rand.NewSource(seed))
		seed++
		var rows []fixtureRow
		for i := 0; i < 300; i++ {
			row := fixtureRow{
				ts:   start.Add(time.Duration(i) * time.Minute),
				ghi:  means[s.ID] + rng.NormFloat64()*40,
				modA: 160,
			}
			// Benin gets a panel cleaning halfway through: module readings
			// step from 150 to 180 at the flagged row.
			if s.ID == "benin" {
				if i < 150 {
					row.modA = 150
				} else {
					row.modA = 180
				}
				if i == 150 {
					row.cleaning = 1
				}
			}
			rows = append(rows, row)
		}
		writeFixture(t, filepath.Join(cfg.DataDir, s.File), rows)
	}

	st := setupTestStore(t)
	r, err := NewRunner(cfg, st)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := r.SeedSites(); err != nil {
		t.Fatalf("seed sites: %v", err)
	}
	if err := r.CleanAll(); err != nil {
		t.Fatalf("clean all: %v", err)
	}

	summary, err := r.Analyze()
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(summary.Sites) != 3 {
		t.Fatalf("sites = %d, want 3", len(summary.Sites))
	}

	for _, site := range summary.Sites {
		if len(site.HourlyGHI) == 0 {
			t.Errorf("%s: no hourly pattern", site.ID)
		}
		if _, ok := site.MonthlyGHI[6]; !ok {
			t.Errorf("%s: june missing from monthly pattern", site.ID)
		}
		switch site.ID {
		case "benin":
			if site.CleaningImpact == nil {
				t.Fatal("benin: no cleaning impact despite a flagged event")
			}
			if site.CleaningImpact.Analyzed != 1 {
				t.Errorf("benin: analyzed = %d, want 1", site.CleaningImpact.Analyzed)
			}
			if math.Abs(site.CleaningImpact.PercentImprovement-20) > 1e-6 {
				t.Errorf("benin: improvement = %g%%, want 20%%", site.CleaningImpact.PercentImprovement)
			}
		default:
			if site.CleaningImpact != nil {
				t.Errorf("%s: cleaning impact present without events", site.ID)
			}
		}
	}

	var ghiCmp *Comparison
	for i := range summary.Comparisons {
		if summary.Comparisons[i].Column == "GHI" {
			ghiCmp = &summary.Comparisons[i]
		}
	}
	if ghiCmp == nil {
		t.Fatal("no GHI comparison in summary")
	}
	if !ghiCmp.ANOVA.Significant {
		t.Errorf("ANOVA p = %g, want < %g", ghiCmp.ANOVA.PValue, cfg.Alpha)
	}
	if !ghiCmp.KruskalWallis.Significant {
		t.Errorf("Kruskal-Wallis p = %g, want < %g", ghiCmp.KruskalWallis.PValue, cfg.Alpha)
	}
	if len(ghiCmp.Pairwise) != 6 {
		t.Errorf("pairwise tests = %d, want 6 (3 pairs x 2 tests)", len(ghiCmp.Pairwise))
	}

	// Results landed in the store.
	results, err := st.GetTestResults("GHI", 100)
	if err != nil {
		t.Fatalf("test results: %v", err)
	}
	if len(results) != 8 {
		t.Errorf("stored results = %d, want 8", len(results))
	}

	if err := r.WriteSummary(summary); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	loaded, err := ReadSummary(cfg.SummaryPath())
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if len(loaded.Comparisons) != len(summary.Comparisons) {
		t.Errorf("round-trip lost comparisons")
	}
}

// A correlation column the data does not carry must fail the analysis rather
// than silently shrink the matrix.
func TestAnalyzeRejectsMissingCorrelationColumn(t *testing.T) {
	start := time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC)
	sites := []SiteConfig{{ID: "benin", Name: "Malanville", Country: "Benin", File: "benin.csv"}}
	cfg := testConfig(t, sites)
	cfg.CorrelationColumns = []string{"GHI", "ModB"}

	rng := rand.New(rand.NewSource(3))
	var rows []fixtureRow
	for i := 0; i < 50; i++ {
		rows = append(rows, fixtureRow{
			ts:  start.Add(time.Duration(i) * time.Minute),
			ghi: 250 + rng.NormFloat64()*30,
		})
	}
	writeFixture(t, filepath.Join(cfg.DataDir, "benin.csv"), rows)

	st := setupTestStore(t)
	r, err := NewRunner(cfg, st)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := r.SeedSites(); err != nil {
		t.Fatalf("seed sites: %v", err)
	}
	if err := r.CleanAll(); err != nil {
		t.Fatalf("clean all: %v", err)
	}

	if _, err := r.Analyze(); err == nil {
		t.Fatal("analysis accepted a correlation column absent from the data")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Sites) != 3 {
		t.Errorf("default sites = %d, want 3", len(cfg.Sites))
	}
	if cfg.Alpha != 0.05 {
		t.Errorf("alpha = %g, want 0.05", cfg.Alpha)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"alpha": 0.01, "sites": [{"id": "x", "file": "x.csv"}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Alpha != 0.01 {
		t.Errorf("alpha = %g, want 0.01", cfg.Alpha)
	}
	if len(cfg.Sites) != 1 || cfg.Sites[0].ID != "x" {
		t.Errorf("sites not overridden: %+v", cfg.Sites)
	}
}

func TestConfigValidateRejectsBadEnum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CorrelationMethod = "cosine"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown correlation method")
	}

	cfg = DefaultConfig()
	cfg.Cleaning.Impute = "magic"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown impute strategy")
	}
}
