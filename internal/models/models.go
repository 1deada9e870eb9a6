package models

import (
	"database/sql"
	"time"
)

type Site struct {
	SiteID     string
	Name       string
	Country    string
	Latitude   float64
	Longitude  float64
	SourceFile string
}

type ColumnStats struct {
	SiteID string
	Column string
	Count  int
	Mean   sql.NullFloat64
	Std    sql.NullFloat64
	Min    sql.NullFloat64
	Q25    sql.NullFloat64
	Median sql.NullFloat64
	Q75    sql.NullFloat64
	Max    sql.NullFloat64
}

type DailyEnergy struct {
	SiteID  string
	Date    time.Time
	KWhM2   float64
	Samples int
}

type SkyConditionCount struct {
	SiteID    string
	Condition string
	Count     int
}

type CleaningLogEntry struct {
	ID     int64
	SiteID string
	RunAt  time.Time
	Op     string
	Column string
	Count  int
	Detail string
}

type Correlation struct {
	SiteID  string
	Method  string
	ColumnA string
	ColumnB string
	R       sql.NullFloat64
	P       sql.NullFloat64
	N       int
}

type AnalysisRun struct {
	ID          int64
	RunAt       time.Time
	Alpha       float64
	Sites       int
	Comparisons int
}

type TestResult struct {
	ID          int64
	RunAt       time.Time
	Metric      string
	Test        string
	Groups      string
	Statistic   float64
	PValue      float64
	Significant bool
	Excluded    sql.NullString
}
