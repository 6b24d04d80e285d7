package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_requests_total",
			Help: "Total number of requests per route",
		},
		[]string{"route"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "energyplatform_request_duration_seconds",
			Help:    "Request duration in seconds per route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_request_errors_total",
			Help: "Total number of error responses per route and status code",
		},
		[]string{"route", "code"},
	)
)

var (
	BillsComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_bills_computed_total",
			Help: "Bills computed successfully per sector",
		},
		[]string{"sector"},
	)

	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_validation_failures_total",
			Help: "Rejected bill requests per reason",
		},
		[]string{"reason"},
	)

	InvoicesRenderedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energyplatform_invoices_rendered_total",
			Help: "Invoice documents rendered",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_events_published_total",
			Help: "Billing events handed to the broker per outcome",
		},
		[]string{"outcome"},
	)

	InvoiceBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "energyplatform_invoice_bytes",
			Help:    "Size of rendered invoice documents",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 8),
		},
	)
)

var (
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_geocode_requests_total",
			Help: "Geocoding lookups per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	GeocodeCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_geocode_cache_total",
			Help: "Geocoding cache lookups per cache layer and result",
		},
		[]string{"layer", "result"},
	)
)

var (
	DBPoolOpenConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_db_pool_open_conns",
			Help: "Open connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolIdleConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_db_pool_idle_conns",
			Help: "Idle connections in the DB pool per driver",
		},
		[]string{"driver"},
	)

	DBPoolInUseConns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_db_pool_in_use_conns",
			Help: "Currently in-use connections per driver",
		},
		[]string{"driver"},
	)

	DBPoolWaitCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_db_pool_wait_count",
			Help: "Total number of connections waited for per driver",
		},
		[]string{"driver"},
	)
)

func UpdateDBPoolMetrics(driver string, s sql.DBStats) {
	DBPoolOpenConns.WithLabelValues(driver).Set(float64(s.OpenConnections))
	DBPoolIdleConns.WithLabelValues(driver).Set(float64(s.Idle))
	DBPoolInUseConns.WithLabelValues(driver).Set(float64(s.InUse))
	DBPoolWaitCount.WithLabelValues(driver).Set(float64(s.WaitCount))
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "energyplatform_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "energyplatform_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)

	InvoicesPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "energyplatform_invoices_purged_total",
			Help: "Archived invoices removed by the retention job",
		},
	)
)

func UpdateJobMetrics(job string, startedAt, finishedAt time.Time, err error) {
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(finishedAt.Sub(startedAt).Seconds())
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(finishedAt.Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
