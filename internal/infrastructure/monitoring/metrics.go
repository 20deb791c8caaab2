package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsSpawned  *prometheus.CounterVec
	SessionsRespawns prometheus.Counter

	// PTY I/O metrics
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter

	// Interrupt metrics
	Interrupts *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "termd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termd_sessions_active",
				Help: "Number of live terminal sessions",
			},
		),
		SessionsSpawned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termd_sessions_spawned_total",
				Help: "Total sessions spawned, by shell kind",
			},
			[]string{"shell"},
		),
		SessionsRespawns: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "termd_sessions_respawned_total",
				Help: "Total automatic shell respawns after descendant kills",
			},
		),

		BytesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "termd_pty_bytes_read_total",
				Help: "Total bytes drained from PTY masters",
			},
		),
		BytesWritten: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "termd_pty_bytes_written_total",
				Help: "Total bytes written to PTY masters",
			},
		),

		Interrupts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "termd_interrupts_total",
				Help: "Interrupt requests, by resolution (soft, tree_kill, forced)",
			},
			[]string{"kind"},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termd_ws_connections",
				Help: "Number of open WebSocket terminal attachments",
			},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "termd_uptime_seconds",
				Help: "Daemon uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records metrics for a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSpawn records a session spawn for the given shell kind
func (m *Metrics) RecordSpawn(shell string) {
	m.SessionsSpawned.WithLabelValues(shell).Inc()
	m.SessionsActive.Inc()
}

// RecordExit records a session leaving the Running state
func (m *Metrics) RecordExit() {
	m.SessionsActive.Dec()
}

// RecordInterrupt records an interrupt request resolution
func (m *Metrics) RecordInterrupt(kind string) {
	m.Interrupts.WithLabelValues(kind).Inc()
}
