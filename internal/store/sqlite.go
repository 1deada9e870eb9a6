package store

import (
	"database/sql"
	"time"

	"github.com/solarcross/solarcross/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertSite(site models.Site) error {
	_, err := s.db.Exec(`
		INSERT INTO sites (site_id, name, country, latitude, longitude, source_file)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			source_file = excluded.source_file
	`, site.SiteID, site.Name, site.Country, site.Latitude, site.Longitude, site.SourceFile)
	return err
}

func (s *Store) GetSites() ([]models.Site, error) {
	rows, err := s.db.Query(`SELECT site_id, name, country, latitude, longitude, source_file FROM sites ORDER BY site_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.SiteID, &site.Name, &site.Country, &site.Latitude, &site.Longitude, &site.SourceFile); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *Store) UpsertColumnStats(cs models.ColumnStats) error {
	_, err := s.db.Exec(`
		INSERT INTO column_stats (site_id, column_name, count, mean, std, min, q25, median, q75, max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, column_name) DO UPDATE SET
			count = excluded.count,
			mean = excluded.mean,
			std = excluded.std,
			min = excluded.min,
			q25 = excluded.q25,
			median = excluded.median,
			q75 = excluded.q75,
			max = excluded.max
	`, cs.SiteID, cs.Column, cs.Count, cs.Mean, cs.Std, cs.Min, cs.Q25, cs.Median, cs.Q75, cs.Max)
	return err
}

func (s *Store) GetColumnStats(siteID string) ([]models.ColumnStats, error) {
	rows, err := s.db.Query(`
		SELECT site_id, column_name, count, mean, std, min, q25, median, q75, max
		FROM column_stats
		WHERE site_id = ?
		ORDER BY column_name
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ColumnStats
	for rows.Next() {
		var cs models.ColumnStats
		if err := rows.Scan(&cs.SiteID, &cs.Column, &cs.Count, &cs.Mean, &cs.Std, &cs.Min, &cs.Q25, &cs.Median, &cs.Q75, &cs.Max); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) UpsertDailyEnergy(de models.DailyEnergy) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_energy (site_id, date, kwh_m2, samples)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(site_id, date) DO UPDATE SET
			kwh_m2 = excluded.kwh_m2,
			samples = excluded.samples
	`, de.SiteID, de.Date.Format("2006-01-02"), de.KWhM2, de.Samples)
	return err
}

// LatestEnergyDate returns the most recent date with a stored daily energy
// row for the site, or ok=false when none exist.
func (s *Store) LatestEnergyDate(siteID string) (time.Time, bool, error) {
	var date sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM daily_energy WHERE site_id = ?`, siteID).Scan(&date)
	if err != nil {
		return time.Time{}, false, err
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", date.String)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (s *Store) GetDailyEnergy(siteID string, start, end time.Time) ([]models.DailyEnergy, error) {
	rows, err := s.db.Query(`
		SELECT site_id, date, kwh_m2, samples
		FROM daily_energy
		WHERE site_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, siteID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyEnergy
	for rows.Next() {
		var de models.DailyEnergy
		var date string
		if err := rows.Scan(&de.SiteID, &date, &de.KWhM2, &de.Samples); err != nil {
			return nil, err
		}
		de.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, err
		}
		out = append(out, de)
	}
	return out, rows.Err()
}

// ReplaceSkyConditions swaps out a site's sky-condition distribution in one
// transaction.
func (s *Store) ReplaceSkyConditions(siteID string, counts []models.SkyConditionCount) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sky_conditions WHERE site_id = ?`, siteID); err != nil {
		tx.Rollback()
		return err
	}
	for _, c := range counts {
		if _, err := tx.Exec(`
			INSERT INTO sky_conditions (site_id, condition, count) VALUES (?, ?, ?)
		`, siteID, c.Condition, c.Count); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetSkyConditions(siteID string) ([]models.SkyConditionCount, error) {
	rows, err := s.db.Query(`
		SELECT site_id, condition, count FROM sky_conditions WHERE site_id = ? ORDER BY condition
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SkyConditionCount
	for rows.Next() {
		var c models.SkyConditionCount
		if err := rows.Scan(&c.SiteID, &c.Condition, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertCleaningLog(e models.CleaningLogEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO cleaning_log (site_id, run_at, op, column_name, count, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.SiteID, e.RunAt, e.Op, e.Column, e.Count, e.Detail)
	return err
}

func (s *Store) GetCleaningLog(siteID string, limit int) ([]models.CleaningLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, site_id, run_at, op, column_name, count, detail
		FROM cleaning_log
		WHERE site_id = ?
		ORDER BY run_at DESC, id DESC
		LIMIT ?
	`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CleaningLogEntry
	for rows.Next() {
		var e models.CleaningLogEntry
		if err := rows.Scan(&e.ID, &e.SiteID, &e.RunAt, &e.Op, &e.Column, &e.Count, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCorrelation(c models.Correlation) error {
	_, err := s.db.Exec(`
		INSERT INTO correlations (site_id, method, column_a, column_b, r, p, n)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, method, column_a, column_b) DO UPDATE SET
			r = excluded.r,
			p = excluded.p,
			n = excluded.n
	`, c.SiteID, c.Method, c.ColumnA, c.ColumnB, c.R, c.P, c.N)
	return err
}

func (s *Store) GetCorrelations(siteID, method string) ([]models.Correlation, error) {
	rows, err := s.db.Query(`
		SELECT site_id, method, column_a, column_b, r, p, n
		FROM correlations
		WHERE site_id = ? AND method = ?
		ORDER BY column_a, column_b
	`, siteID, method)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Correlation
	for rows.Next() {
		var c models.Correlation
		if err := rows.Scan(&c.SiteID, &c.Method, &c.ColumnA, &c.ColumnB, &c.R, &c.P, &c.N); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertAnalysisRun(r models.AnalysisRun) error {
	_, err := s.db.Exec(`
		INSERT INTO analysis_runs (run_at, alpha, sites, comparisons)
		VALUES (?, ?, ?, ?)
	`, r.RunAt, r.Alpha, r.Sites, r.Comparisons)
	return err
}

// LatestAnalysisRun returns the most recent run, or ok false when no analysis
// has been recorded yet.
func (s *Store) LatestAnalysisRun() (models.AnalysisRun, bool, error) {
	var r models.AnalysisRun
	err := s.db.QueryRow(`
		SELECT id, run_at, alpha, sites, comparisons
		FROM analysis_runs
		ORDER BY run_at DESC, id DESC
		LIMIT 1
	`).Scan(&r.ID, &r.RunAt, &r.Alpha, &r.Sites, &r.Comparisons)
	if err == sql.ErrNoRows {
		return models.AnalysisRun{}, false, nil
	}
	if err != nil {
		return models.AnalysisRun{}, false, err
	}
	return r, true, nil
}

func (s *Store) InsertTestResult(r models.TestResult) error {
	_, err := s.db.Exec(`
		INSERT INTO test_results (run_at, metric, test, group_names, statistic, p_value, significant, excluded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunAt, r.Metric, r.Test, r.Groups, r.Statistic, r.PValue, r.Significant, r.Excluded)
	return err
}

func (s *Store) GetTestResults(metric string, limit int) ([]models.TestResult, error) {
	rows, err := s.db.Query(`
		SELECT id, run_at, metric, test, group_names, statistic, p_value, significant, excluded
		FROM test_results
		WHERE metric = ?
		ORDER BY run_at DESC, id DESC
		LIMIT ?
	`, metric, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TestResult
	for rows.Next() {
		var r models.TestResult
		if err := rows.Scan(&r.ID, &r.RunAt, &r.Metric, &r.Test, &r.Groups, &r.Statistic, &r.PValue, &r.Significant, &r.Excluded); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetLatestTestResults(limit int) ([]models.TestResult, error) {
	rows, err := s.db.Query(`
		SELECT id, run_at, metric, test, group_names, statistic, p_value, significant, excluded
		FROM test_results
		ORDER BY run_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TestResult
	for rows.Next() {
		var r models.TestResult
		if err := rows.Scan(&r.ID, &r.RunAt, &r.Metric, &r.Test, &r.Groups, &r.Statistic, &r.PValue, &r.Significant, &r.Excluded); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
