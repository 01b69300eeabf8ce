package telemetry

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pdv"

// Bucket boundaries in seconds
var (
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DBDurationBuckets   = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)

// Metrics holds the Prometheus collectors scraped at /metrics. Every
// recording method is safe on a nil receiver so services can run without it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
	dbQueries    *prometheus.HistogramVec

	sales         *prometheus.CounterVec
	salesAmount   *prometheus.CounterVec
	fiscalDocs    *prometheus.CounterVec
	printJobs     *prometheus.CounterVec
	notifications *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

// NewMetrics creates a registry with the Go runtime, process and application
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency.", Buckets: HTTPDurationBuckets,
		}, []string{"method", "route"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "Requests currently being served.",
		}),
		dbQueries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "db", Name: "query_duration_seconds",
			Help: "Database statement latency.", Buckets: DBDurationBuckets,
		}, []string{"operation", "table", "result"}),
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_total",
			Help: "Sales by final status.",
		}, []string{"status"}),
		salesAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_amount_brl_total",
			Help: "Completed sales amount by payment method.",
		}, []string{"method"}),
		fiscalDocs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fiscal_documents_total",
			Help: "Fiscal document transitions by type and status.",
		}, []string{"type", "status"}),
		printJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "print_jobs_total",
			Help: "Print jobs by document and result.",
		}, []string{"document", "status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notifications_total",
			Help: "Notifications by channel and result.",
		}, []string{"channel", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.httpInFlight, m.dbQueries,
		m.sales, m.salesAmount, m.fiscalDocs, m.printJobs, m.notifications, m.rateLimited,
	)
	return m
}

// RegisterDB exports the connection pool statistics of db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted increments the in-flight gauge and returns its matching decrement
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveHTTP records a finished request
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveQuery records a database statement
func (m *Metrics) ObserveQuery(operation, table string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if failed {
		result = "error"
	}
	m.dbQueries.WithLabelValues(operation, table, result).Observe(elapsed.Seconds())
}

// SaleCompleted records a completed sale split by payment method amounts
func (m *Metrics) SaleCompleted(byMethod map[string]float64) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues("completed").Inc()
	for method, amount := range byMethod {
		m.salesAmount.WithLabelValues(method).Add(amount)
	}
}

// SaleCancelled records a cancelled sale
func (m *Metrics) SaleCancelled() {
	if m == nil {
		return
	}
	m.sales.WithLabelValues("cancelled").Inc()
}

// FiscalDocument records a fiscal document reaching status
func (m *Metrics) FiscalDocument(docType, status string) {
	if m == nil {
		return
	}
	m.fiscalDocs.WithLabelValues(docType, status).Inc()
}

// PrintJob records the outcome of a print job
func (m *Metrics) PrintJob(document, status string) {
	if m == nil {
		return
	}
	m.printJobs.WithLabelValues(document, status).Inc()
}

// Notification records the outcome of a notification
func (m *Metrics) Notification(channel, status string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel, status).Inc()
}

// RateLimited records a throttled request
func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
