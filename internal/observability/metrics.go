package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "companion_active_sessions",
		Help: "Number of active voice sessions",
	})

	totalSessions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "companion_sessions_total",
		Help: "Total number of voice sessions started",
	})

	sessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "companion_session_duration_seconds",
		Help:    "Duration of voice sessions in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	sessionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_session_outcomes_total",
		Help: "Terminal session outcomes",
	}, []string{"outcome"}) // outcome: "ended" or "error"

	// Transport metrics
	transportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_transport_requests_total",
		Help: "Total number of backend HTTP requests",
	}, []string{"endpoint", "status"})

	transportLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "companion_transport_latency_seconds",
		Help:    "Backend HTTP request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0, 60.0},
	}, []string{"endpoint"})

	pollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "companion_orchestration_polls",
		Help:    "Orchestration readiness polls per session",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 40},
	})

	// Stream metrics
	inboundFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_stream_frames_total",
		Help: "Inbound stream frames by type",
	}, []string{"type"})

	audioBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_audio_bytes_total",
		Help: "Total audio bytes moved over the stream",
	}, []string{"direction"}) // direction: "in" or "out"

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companion_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "companion_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// SessionMetrics tracks metrics for a single voice session
type SessionMetrics struct {
	mu        sync.Mutex
	startTime time.Time
	polls     int
	done      bool
}

// NewSessionMetrics creates a metrics tracker for one session and counts its start
func NewSessionMetrics() *SessionMetrics {
	activeSessions.Inc()
	totalSessions.Inc()
	return &SessionMetrics{startTime: time.Now()}
}

// RecordPoll counts one orchestration readiness poll
func (m *SessionMetrics) RecordPoll() {
	m.mu.Lock()
	m.polls++
	m.mu.Unlock()
}

// RecordEnd records the terminal outcome of the session. Safe to call once;
// later calls are ignored so double teardown does not skew the gauges.
func (m *SessionMetrics) RecordEnd(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.done = true

	activeSessions.Dec()
	sessionDuration.Observe(time.Since(m.startTime).Seconds())
	sessionOutcomes.WithLabelValues(outcome).Inc()
	pollAttempts.Observe(float64(m.polls))
}

// RecordTransportRequest records one backend HTTP call
func RecordTransportRequest(endpoint, status string, latency time.Duration) {
	transportRequests.WithLabelValues(endpoint, status).Inc()
	transportLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordInboundFrame counts one decoded stream frame
func RecordInboundFrame(frameType string) {
	inboundFrames.WithLabelValues(frameType).Inc()
}

// RecordAudioBytes records audio bytes moved over the stream
func RecordAudioBytes(direction string, bytes int) {
	audioBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
