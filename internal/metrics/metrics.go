package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whatsrelay"

// Outcome labels for reply correlation
const (
	ReplyRouted    = "routed"
	ReplyUnmatched = "unmatched"
	ReplyFailed    = "failed"
)

// Metrics holds all Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	MessagesReceived  *prometheus.CounterVec
	MessagesForwarded *prometheus.CounterVec
	MessagesFiltered  *prometheus.CounterVec
	ForwardFailures   *prometheus.CounterVec
	Replies           *prometheus.CounterVec
	ForwardDuration   prometheus.Histogram

	StatusTransitions *prometheus.CounterVec
	ReconnectAttempts *prometheus.CounterVec
	LiveAccounts      prometheus.Gauge

	CleanupDeleted *prometheus.CounterVec

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPActiveRequests prometheus.Gauge
}

// New registers the service collectors, plus the Go runtime and process
// collectors, on a dedicated registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MessagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages handed to the routing engine",
		}, []string{"account"}),
		MessagesForwarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_forwarded_total",
			Help:      "Messages forwarded to a destination chat",
		}, []string{"account", "type"}),
		MessagesFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_filtered_total",
			Help:      "Messages that matched a rule but were rejected by its filter",
		}, []string{"account", "filter"}),
		ForwardFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_failures_total",
			Help:      "Forwarding failures by pipeline stage",
		}, []string{"account", "stage"}),
		Replies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Quoted replies by correlation outcome",
		}, []string{"account", "outcome"}),
		ForwardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Time spent routing a single inbound message",
			Buckets:   prometheus.DefBuckets,
		}),
		StatusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_status_transitions_total",
			Help:      "Account status changes by target status",
		}, []string{"status"}),
		ReconnectAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts scheduled per account",
		}, []string{"account"}),
		LiveAccounts: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_accounts",
			Help:      "Accounts with a live protocol client",
		}),
		CleanupDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_deleted_rows_total",
			Help:      "Rows removed by retention cleanup",
		}, []string{"table"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Admin API requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Admin API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPActiveRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_active",
			Help:      "Admin API requests in flight",
		}),
	}
}

// Registry exposes the underlying registry, mostly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) MessageReceived(accountID string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(accountID).Inc()
}

func (m *Metrics) MessageForwarded(accountID, msgType string, took time.Duration) {
	if m == nil {
		return
	}
	m.MessagesForwarded.WithLabelValues(accountID, msgType).Inc()
	m.ForwardDuration.Observe(took.Seconds())
}

func (m *Metrics) MessageFiltered(accountID, filter string) {
	if m == nil {
		return
	}
	m.MessagesFiltered.WithLabelValues(accountID, filter).Inc()
}

func (m *Metrics) ForwardFailed(accountID, stage string) {
	if m == nil {
		return
	}
	m.ForwardFailures.WithLabelValues(accountID, stage).Inc()
}

func (m *Metrics) Reply(accountID, outcome string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(accountID, outcome).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ReconnectScheduled(accountID string) {
	if m == nil {
		return
	}
	m.ReconnectAttempts.WithLabelValues(accountID).Inc()
}

func (m *Metrics) SetLiveAccounts(n int) {
	if m == nil {
		return
	}
	m.LiveAccounts.Set(float64(n))
}

func (m *Metrics) RowsCleaned(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CleanupDeleted.WithLabelValues(table).Add(float64(n))
}

// RequestStarted marks a request in flight and returns the function that
// records its completion
func (m *Metrics) RequestStarted(method, route string) func(status string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.HTTPActiveRequests.Inc()
	return func(status string) {
		m.HTTPActiveRequests.Dec()
		m.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
