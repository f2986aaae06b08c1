package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gym_http_requests_total",
		Help: "Total HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gym_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	SyncRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_sync_runs_total",
		Help: "Completed reconciliation passes",
	})

	SyncRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_sync_records_total",
		Help: "Member records upserted by reconciliation",
	})

	SyncErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_sync_errors_total",
		Help: "Per-record reconciliation failures (skipped rows)",
	})

	SyncOrphansDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gym_sync_orphans_deleted_total",
		Help: "Signed-up ledger rows removed by the cleanup pass",
	})

	SystemCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gym_system_cpu_percent",
		Help: "Host CPU utilisation",
	})

	SystemMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gym_system_memory_percent",
		Help: "Host memory utilisation",
	})
)
