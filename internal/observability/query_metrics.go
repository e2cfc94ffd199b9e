package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pxql_queries_total",
			Help: "Total number of executed table queries by outcome.",
		},
		[]string{"table", "status"},
	)
	queryRecordsScannedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pxql_query_records_scanned_total",
			Help: "Total number of records read from table stores while executing queries.",
		},
		[]string{"table"},
	)
	queryRowsReturnedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pxql_query_rows_returned_total",
			Help: "Total number of projected rows returned by queries.",
		},
		[]string{"table"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pxql_query_duration_seconds",
			Help:    "Query scan latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"table"},
	)
	tableOpenDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pxql_table_open_duration_seconds",
			Help:    "Latency of opening a table store, including object downloads.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		queriesTotal,
		queryRecordsScannedTotal,
		queryRowsReturnedTotal,
		queryDurationSeconds,
		tableOpenDurationSeconds,
	)
}

const (
	QueryStatusOK          = "ok"
	QueryStatusInvalid     = "invalid"
	QueryStatusReadError   = "read_error"
	QueryStatusCanceled    = "canceled"
	QueryStatusUnavailable = "unavailable"
)

func ObserveQuery(table, status string, scanned, returned int, elapsed time.Duration) {
	queriesTotal.WithLabelValues(table, status).Inc()
	if scanned > 0 {
		queryRecordsScannedTotal.WithLabelValues(table).Add(float64(scanned))
	}
	if returned > 0 {
		queryRowsReturnedTotal.WithLabelValues(table).Add(float64(returned))
	}
	queryDurationSeconds.WithLabelValues(table).Observe(elapsed.Seconds())
}

func ObserveTableOpen(kind string, elapsed time.Duration) {
	tableOpenDurationSeconds.WithLabelValues(kind).Observe(elapsed.Seconds())
}
