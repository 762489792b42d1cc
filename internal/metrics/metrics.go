// Package metrics exposes the Prometheus collectors of the inspection
// service.
package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_reports_total",
			Help: "Total number of report exports by outcome",
		},
		[]string{"outcome"}, // ok, failed
	)

	reportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_report_duration_seconds",
			Help:    "Report export duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	reportPages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_report_pages",
			Help:    "Number of pages per exported report",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	reportWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_report_warnings_total",
			Help: "Degraded conditions met while exporting reports",
		},
		[]string{"type"},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_record_operations_total",
			Help: "Total number of project and machine operations",
		},
		[]string{"kind", "action"},
	)

	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_database_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

var once sync.Once

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(reportsTotal)
	prometheus.MustRegister(reportDuration)
	prometheus.MustRegister(reportPages)
	prometheus.MustRegister(reportWarningsTotal)
	prometheus.MustRegister(recordsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)

	once.Do(func() {
		// the default registry may already carry these
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one served API request
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordReport records a finished export
func RecordReport(ok bool, pages int, duration float64) {
	if !ok {
		reportsTotal.WithLabelValues("failed").Inc()
		return
	}
	reportsTotal.WithLabelValues("ok").Inc()
	reportDuration.Observe(duration)
	reportPages.Observe(float64(pages))
}

// RecordReportWarning counts one degraded condition of an export
func RecordReportWarning(kind string) {
	reportWarningsTotal.WithLabelValues(kind).Inc()
}

// RecordOperation counts a record operation, e.g. ("machine", "create")
func RecordOperation(kind, action string) {
	recordsTotal.WithLabelValues(kind, action).Inc()
}

// UpdateDatabaseConnections refreshes the connection pool gauges
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	return nil
}
