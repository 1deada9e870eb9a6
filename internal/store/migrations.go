package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS sites (
    site_id TEXT PRIMARY KEY,
    name TEXT,
    country TEXT,
    latitude REAL,
    longitude REAL,
    source_file TEXT
);

CREATE TABLE IF NOT EXISTS column_stats (
    site_id TEXT NOT NULL,
    column_name TEXT NOT NULL,
    count INTEGER NOT NULL,
    mean REAL,
    std REAL,
    min REAL,
    q25 REAL,
    median REAL,
    q75 REAL,
    max REAL,
    PRIMARY KEY (site_id, column_name)
);

CREATE TABLE IF NOT EXISTS daily_energy (
    site_id TEXT NOT NULL,
    date DATE NOT NULL,
    kwh_m2 REAL NOT NULL,
    samples INTEGER NOT NULL,
    PRIMARY KEY (site_id, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_energy_date ON daily_energy(date);

CREATE TABLE IF NOT EXISTS sky_conditions (
    site_id TEXT NOT NULL,
    condition TEXT NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (site_id, condition)
);

CREATE TABLE IF NOT EXISTS cleaning_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id TEXT NOT NULL,
    run_at DATETIME NOT NULL,
    op TEXT NOT NULL,
    column_name TEXT,
    count INTEGER NOT NULL,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_cleaning_log_site ON cleaning_log(site_id, run_at);
`,
	},
	{
		Version:     2,
		Description: "Analysis results",
		SQL: `
CREATE TABLE IF NOT EXISTS correlations (
    site_id TEXT NOT NULL,
    method TEXT NOT NULL,
    column_a TEXT NOT NULL,
    column_b TEXT NOT NULL,
    r REAL,
    p REAL,
    n INTEGER NOT NULL,
    PRIMARY KEY (site_id, method, column_a, column_b)
);

CREATE TABLE IF NOT EXISTS test_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_at DATETIME NOT NULL,
    metric TEXT NOT NULL,
    test TEXT NOT NULL,
    group_names TEXT NOT NULL,
    statistic REAL NOT NULL,
    p_value REAL NOT NULL,
    significant BOOLEAN NOT NULL,
    excluded TEXT
);

CREATE INDEX IF NOT EXISTS idx_test_results_metric ON test_results(metric, run_at);
`,
	},
	{
		Version:     3,
		Description: "Analysis run history",
		SQL: `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_at DATETIME NOT NULL,
    alpha REAL NOT NULL,
    sites INTEGER NOT NULL,
    comparisons INTEGER NOT NULL
);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
