package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Dashboard refresh metrics
	RefreshesTotal     *prometheus.CounterVec
	RefreshDuration    *prometheus.HistogramVec
	RefreshesInFlight  prometheus.Gauge
	CampaignsRefreshed *prometheus.CounterVec

	// Snapshot cache metrics
	CacheReads  *prometheus.CounterVec
	CacheWrites *prometheus.CounterVec

	// Upstream API metrics
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamFailures *prometheus.CounterVec

	// Campaign status mutations
	StatusUpdates *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		RefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_refreshes_total",
				Help: "Total number of dashboard refreshes",
			},
			[]string{"status", "trigger"},
		),

		RefreshDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dashboard_refresh_duration_seconds",
				Help:    "Dashboard refresh duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"trigger"},
		),

		RefreshesInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dashboard_refreshes_in_flight",
				Help: "Number of dashboard refreshes currently in progress",
			},
		),

		CampaignsRefreshed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dashboard_campaigns_refreshed_total",
				Help: "Total number of campaign records replaced by refreshes",
			},
			[]string{"trigger"},
		),

		CacheReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_cache_reads_total",
				Help: "Total number of snapshot cache reads",
			},
			[]string{"outcome"},
		),

		CacheWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapshot_cache_writes_total",
				Help: "Total number of snapshot cache writes",
			},
			[]string{"outcome"},
		),

		UpstreamCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_calls_total",
				Help: "Total number of upstream API calls",
			},
			[]string{"endpoint", "status"},
		),

		UpstreamDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_api_duration_seconds",
				Help:    "Upstream API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		UpstreamFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_failures_total",
				Help: "Total number of upstream API failures",
			},
			[]string{"endpoint", "error_type"},
		),

		StatusUpdates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campaign_status_updates_total",
				Help: "Total number of optimistic campaign status updates",
			},
			[]string{"outcome"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Dashboard refresh metrics
func (m *Metrics) RecordRefresh(status, trigger string, duration time.Duration) {
	m.RefreshesTotal.WithLabelValues(status, trigger).Inc()
	m.RefreshDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// Campaign records replaced by a refresh
func (m *Metrics) RecordCampaignsRefreshed(trigger string, count int) {
	m.CampaignsRefreshed.WithLabelValues(trigger).Add(float64(count))
}

// Snapshot cache read outcome: hit, stale_hit, miss, malformed
func (m *Metrics) RecordCacheRead(outcome string) {
	m.CacheReads.WithLabelValues(outcome).Inc()
}

// Snapshot cache write outcome: success, failure
func (m *Metrics) RecordCacheWrite(outcome string) {
	m.CacheWrites.WithLabelValues(outcome).Inc()
}

// Upstream API call metrics
func (m *Metrics) RecordUpstreamCall(endpoint, status string, duration time.Duration) {
	m.UpstreamCalls.WithLabelValues(endpoint, status).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Upstream API failure metrics
func (m *Metrics) RecordUpstreamFailure(endpoint, errorType string) {
	m.UpstreamFailures.WithLabelValues(endpoint, errorType).Inc()
}

// Optimistic status update outcome: committed, rolled_back
func (m *Metrics) RecordStatusUpdate(outcome string) {
	m.StatusUpdates.WithLabelValues(outcome).Inc()
}

// Refreshes in progress counter
func (m *Metrics) IncRefreshesInFlight() {
	m.RefreshesInFlight.Inc()
}

// Refreshes in progress counter
func (m *Metrics) DecRefreshesInFlight() {
	m.RefreshesInFlight.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
