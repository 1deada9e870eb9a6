package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/solarcross/solarcross/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertAndGetSite(t *testing.T) {
	store := setupTestStore(t)

	site := models.Site{
		SiteID:     "benin",
		Name:       "Malanville",
		Country:    "Benin",
		Latitude:   11.87,
		Longitude:  3.38,
		SourceFile: "benin-malanville.csv",
	}

	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite: %v", err)
	}

	sites, err := store.GetSites()
	if err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("len(sites) = %d, want 1", len(sites))
	}
	if sites[0].SiteID != "benin" {
		t.Errorf("SiteID = %q, want benin", sites[0].SiteID)
	}
	if sites[0].Name != "Malanville" {
		t.Errorf("Name = %q, want Malanville", sites[0].Name)
	}
}

func TestUpsertSite_Update(t *testing.T) {
	store := setupTestStore(t)

	site := models.Site{SiteID: "togo", Name: "Dapaong", Country: "Togo"}
	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite: %v", err)
	}

	site.Name = "Dapaong QC"
	if err := store.UpsertSite(site); err != nil {
		t.Fatalf("UpsertSite update: %v", err)
	}

	sites, err := store.GetSites()
	if err != nil {
		t.Fatalf("GetSites: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("len(sites) = %d, want 1", len(sites))
	}
	if sites[0].Name != "Dapaong QC" {
		t.Errorf("Name = %q, want 'Dapaong QC'", sites[0].Name)
	}
}

func TestColumnStats(t *testing.T) {
	store := setupTestStore(t)

	cs := models.ColumnStats{
		SiteID: "benin",
		Column: "GHI",
		Count:  525600,
		Mean:   sql.NullFloat64{Float64: 240.56, Valid: true},
		Std:    sql.NullFloat64{Float64: 331.13, Valid: true},
		Min:    sql.NullFloat64{Float64: 0, Valid: true},
		Max:    sql.NullFloat64{Float64: 1413, Valid: true},
	}
	if err := store.UpsertColumnStats(cs); err != nil {
		t.Fatalf("UpsertColumnStats: %v", err)
	}

	cs.Mean = sql.NullFloat64{Float64: 242.4, Valid: true}
	if err := store.UpsertColumnStats(cs); err != nil {
		t.Fatalf("UpsertColumnStats update: %v", err)
	}

	got, err := store.GetColumnStats("benin")
	if err != nil {
		t.Fatalf("GetColumnStats: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].Mean.Float64 != 242.4 {
		t.Errorf("Mean = %v, want 242.4", got[0].Mean.Float64)
	}
	if !got[0].Q25.Valid && got[0].Q25.Float64 != 0 {
		t.Errorf("Q25 should be null")
	}
}

func TestDailyEnergy(t *testing.T) {
	store := setupTestStore(t)

	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		de := models.DailyEnergy{
			SiteID:  "togo",
			Date:    day.AddDate(0, 0, i),
			KWhM2:   5.5 + float64(i),
			Samples: 1440,
		}
		if err := store.UpsertDailyEnergy(de); err != nil {
			t.Fatalf("UpsertDailyEnergy: %v", err)
		}
	}

	got, err := store.GetDailyEnergy("togo", day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetDailyEnergy: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Date.Equal(day) {
		t.Errorf("Date = %v, want %v", got[0].Date, day)
	}
	if got[1].KWhM2 != 6.5 {
		t.Errorf("KWhM2 = %v, want 6.5", got[1].KWhM2)
	}

	latest, ok, err := store.LatestEnergyDate("togo")
	if err != nil {
		t.Fatalf("LatestEnergyDate: %v", err)
	}
	if !ok || !latest.Equal(day.AddDate(0, 0, 2)) {
		t.Errorf("latest = %v ok = %v, want %v", latest, ok, day.AddDate(0, 0, 2))
	}
	if _, ok, err := store.LatestEnergyDate("benin"); err != nil || ok {
		t.Errorf("empty site: ok = %v err = %v, want no date", ok, err)
	}
}

func TestReplaceSkyConditions(t *testing.T) {
	store := setupTestStore(t)

	first := []models.SkyConditionCount{
		{SiteID: "benin", Condition: "overcast", Count: 100},
		{SiteID: "benin", Condition: "clear", Count: 50},
	}
	if err := store.ReplaceSkyConditions("benin", first); err != nil {
		t.Fatalf("ReplaceSkyConditions: %v", err)
	}

	second := []models.SkyConditionCount{
		{SiteID: "benin", Condition: "overcast", Count: 90},
		{SiteID: "benin", Condition: "partly_cloudy", Count: 40},
		{SiteID: "benin", Condition: "clear", Count: 60},
	}
	if err := store.ReplaceSkyConditions("benin", second); err != nil {
		t.Fatalf("ReplaceSkyConditions update: %v", err)
	}

	got, err := store.GetSkyConditions("benin")
	if err != nil {
		t.Fatalf("GetSkyConditions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, c := range got {
		if c.Condition == "overcast" && c.Count != 90 {
			t.Errorf("overcast count = %d, want 90", c.Count)
		}
	}
}

func TestCleaningLog(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	entries := []models.CleaningLogEntry{
		{SiteID: "benin", RunAt: now, Op: "remove_duplicates", Count: 12},
		{SiteID: "benin", RunAt: now, Op: "impute", Column: "GHI", Count: 350, Detail: "strategy=interpolate"},
	}
	for _, e := range entries {
		if err := store.InsertCleaningLog(e); err != nil {
			t.Fatalf("InsertCleaningLog: %v", err)
		}
	}

	got, err := store.GetCleaningLog("benin", 10)
	if err != nil {
		t.Fatalf("GetCleaningLog: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Newest first, ties broken by insertion order.
	if got[0].Op != "impute" {
		t.Errorf("Op = %q, want impute", got[0].Op)
	}
}

func TestCorrelations(t *testing.T) {
	store := setupTestStore(t)

	c := models.Correlation{
		SiteID:  "togo",
		Method:  "pearson",
		ColumnA: "GHI",
		ColumnB: "Tamb",
		R:       sql.NullFloat64{Float64: 0.62, Valid: true},
		P:       sql.NullFloat64{Float64: 0.0001, Valid: true},
		N:       525600,
	}
	if err := store.UpsertCorrelation(c); err != nil {
		t.Fatalf("UpsertCorrelation: %v", err)
	}

	c.R = sql.NullFloat64{Float64: 0.64, Valid: true}
	if err := store.UpsertCorrelation(c); err != nil {
		t.Fatalf("UpsertCorrelation update: %v", err)
	}

	got, err := store.GetCorrelations("togo", "pearson")
	if err != nil {
		t.Fatalf("GetCorrelations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].R.Float64 != 0.64 {
		t.Errorf("R = %v, want 0.64", got[0].R.Float64)
	}
}

func TestTestResults(t *testing.T) {
	store := setupTestStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	r := models.TestResult{
		RunAt:       now,
		Metric:      "GHI",
		Test:        "anova",
		Groups:      "benin,sierraleone,togo",
		Statistic:   187.3,
		PValue:      0.00001,
		Significant: true,
	}
	if err := store.InsertTestResult(r); err != nil {
		t.Fatalf("InsertTestResult: %v", err)
	}
	r.Test = "kruskal-wallis"
	if err := store.InsertTestResult(r); err != nil {
		t.Fatalf("InsertTestResult: %v", err)
	}

	got, err := store.GetTestResults("GHI", 10)
	if err != nil {
		t.Fatalf("GetTestResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].Significant {
		t.Error("Significant = false, want true")
	}

	latest, err := store.GetLatestTestResults(1)
	if err != nil {
		t.Fatalf("GetLatestTestResults: %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("len = %d, want 1", len(latest))
	}
	if latest[0].Test != "kruskal-wallis" {
		t.Errorf("Test = %q, want kruskal-wallis", latest[0].Test)
	}
}

func TestAnalysisRuns(t *testing.T) {
	store := setupTestStore(t)

	_, ok, err := store.LatestAnalysisRun()
	if err != nil {
		t.Fatalf("LatestAnalysisRun: %v", err)
	}
	if ok {
		t.Fatal("found a run before any were recorded")
	}

	now := time.Now().UTC().Truncate(time.Second)
	runs := []models.AnalysisRun{
		{RunAt: now.Add(-time.Hour), Alpha: 0.05, Sites: 3, Comparisons: 3},
		{RunAt: now, Alpha: 0.01, Sites: 3, Comparisons: 1},
	}
	for _, r := range runs {
		if err := store.InsertAnalysisRun(r); err != nil {
			t.Fatalf("InsertAnalysisRun: %v", err)
		}
	}

	latest, ok, err := store.LatestAnalysisRun()
	if err != nil {
		t.Fatalf("LatestAnalysisRun: %v", err)
	}
	if !ok {
		t.Fatal("no run found after insert")
	}
	if latest.Alpha != 0.01 {
		t.Errorf("Alpha = %v, want 0.01", latest.Alpha)
	}
	if !latest.RunAt.Equal(now) {
		t.Errorf("RunAt = %v, want %v", latest.RunAt, now)
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("version = %d, want %d", v, len(migrations))
	}
}
