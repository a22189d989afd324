package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the impact dashboard.
// Metrics are organized by subsystem: dashboard loads, source requests,
// normalization, and widget rendering. All counters and histograms are
// registered via promauto with the default Prometheus registry.
type Metrics struct {
	// LoadsStarted counts dashboard loads initiated (first load and refresh).
	LoadsStarted prometheus.Counter

	// LoadsCompleted counts dashboard loads that finished successfully.
	LoadsCompleted prometheus.Counter

	// LoadsFailed counts dashboard loads that ended in failure, labeled by error kind.
	LoadsFailed *prometheus.CounterVec

	// LoadDuration observes the end-to-end duration of loads in seconds.
	LoadDuration prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to the bibliometric source,
	// labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests, labeled by source,
	// endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes HTTP request duration in seconds.
	SourceRequestDuration *prometheus.HistogramVec

	// RecordsNormalized counts raw records successfully normalized into rows.
	RecordsNormalized prometheus.Counter

	// RecordsSkipped counts raw records skipped during normalization, labeled by reason.
	RecordsSkipped *prometheus.CounterVec

	// RowsPerLoad observes the number of publication rows produced per load.
	RowsPerLoad prometheus.Histogram

	// WidgetRenders counts widget render invocations, labeled by widget.
	WidgetRenders *prometheus.CounterVec

	// WidgetRenderDuration observes widget render duration in seconds, labeled by widget.
	WidgetRenderDuration *prometheus.HistogramVec

	// SessionsActive tracks the number of live dashboard sessions.
	SessionsActive prometheus.Gauge

	// HTTPRequestsTotal counts inbound HTTP requests, labeled by method, route, and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes inbound HTTP request duration in seconds.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Loads
		LoadsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_started_total",
			Help:      "Total number of dashboard loads started",
		}),
		LoadsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_completed_total",
			Help:      "Total number of dashboard loads completed successfully",
		}),
		LoadsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_failed_total",
			Help:      "Total number of dashboard loads that failed by error kind",
		}, []string{"kind"}),
		LoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of dashboard loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Source requests
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to the bibliometric source",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to the bibliometric source",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Duration of requests to the bibliometric source in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source", "endpoint"}),

		// Normalization
		RecordsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_normalized_total",
			Help:      "Total number of raw records normalized into publication rows",
		}),
		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_skipped_total",
			Help:      "Total number of raw records skipped during normalization by reason",
		}, []string{"reason"}),
		RowsPerLoad: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_per_load",
			Help:      "Number of publication rows produced per load",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),

		// Widgets
		WidgetRenders: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_renders_total",
			Help:      "Total number of widget render invocations by widget",
		}, []string{"widget"}),
		WidgetRenderDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "widget_render_duration_seconds",
			Help:      "Duration of widget renders in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1},
		}, []string{"widget"}),

		// Sessions
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of live dashboard sessions",
		}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of inbound HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
	}
}

// RecordLoadStarted records that a dashboard load has started.
func (m *Metrics) RecordLoadStarted() {
	m.LoadsStarted.Inc()
}

// RecordLoadCompleted records a successful load and its row count.
func (m *Metrics) RecordLoadCompleted(durationSeconds float64, rowCount int) {
	m.LoadsCompleted.Inc()
	m.LoadDuration.Observe(durationSeconds)
	m.RowsPerLoad.Observe(float64(rowCount))
}

// RecordLoadFailed records a failed load by error kind.
func (m *Metrics) RecordLoadFailed(kind string, durationSeconds float64) {
	m.LoadsFailed.WithLabelValues(kind).Inc()
	m.LoadDuration.Observe(durationSeconds)
}

// RecordSourceRequest records a request to the bibliometric source.
func (m *Metrics) RecordSourceRequest(source, endpoint string, durationSeconds float64) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
	m.SourceRequestDuration.WithLabelValues(source, endpoint).Observe(durationSeconds)
}

// RecordSourceRequestFailed records a failed request to the bibliometric source.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordRecordsNormalized records normalization results.
func (m *Metrics) RecordRecordsNormalized(normalized int) {
	m.RecordsNormalized.Add(float64(normalized))
}

// RecordRecordSkipped records a raw record skipped during normalization.
func (m *Metrics) RecordRecordSkipped(reason string) {
	m.RecordsSkipped.WithLabelValues(reason).Inc()
}

// RecordWidgetRender records a widget render invocation.
func (m *Metrics) RecordWidgetRender(widget string, durationSeconds float64) {
	m.WidgetRenders.WithLabelValues(widget).Inc()
	m.WidgetRenderDuration.WithLabelValues(widget).Observe(durationSeconds)
}

// RecordSessionOpened records a new dashboard session.
func (m *Metrics) RecordSessionOpened() {
	m.SessionsActive.Inc()
}

// RecordSessionClosed records a closed dashboard session.
func (m *Metrics) RecordSessionClosed() {
	m.SessionsActive.Dec()
}

// RecordHTTPRequest records one inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
