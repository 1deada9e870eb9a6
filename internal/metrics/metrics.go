package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcross_rows_loaded_total",
			Help: "Total observation rows loaded from site files",
		},
		[]string{"site"},
	)

	DuplicatesRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcross_duplicates_removed_total",
			Help: "Total duplicate rows dropped during cleaning",
		},
		[]string{"site"},
	)

	OutliersTreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcross_outliers_treated_total",
			Help: "Total outlier values treated during cleaning",
		},
		[]string{"site", "column"},
	)

	ValuesImputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcross_values_imputed_total",
			Help: "Total missing values imputed during cleaning",
		},
		[]string{"site", "column"},
	)

	TestsRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarcross_hypothesis_tests_total",
			Help: "Total hypothesis tests evaluated",
		},
		[]string{"test"},
	)

	CleanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarcross_clean_duration_seconds",
			Help:    "Wall time of a full cleaning pass per site",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"site"},
	)
)
