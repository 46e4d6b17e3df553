package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call metrics
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_pipeline_active_calls",
		Help: "Number of active phone calls",
	})

	totalCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_calls_total",
		Help: "Total number of calls handled",
	})

	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_pipeline_call_duration_seconds",
		Help:    "Duration of phone calls in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// Turn metrics
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_pipeline_turns_total",
		Help: "Total conversational turns by outcome",
	}, []string{"outcome"}) // completed, empty_transcript, provider_error, barged_in

	bargeInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_barge_ins_total",
		Help: "Total playback interruptions by the caller",
	})

	// Provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_pipeline_provider_requests_total",
		Help: "Total provider requests",
	}, []string{"provider", "status"})

	providerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_pipeline_provider_latency_seconds",
		Help:    "Provider request latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"provider"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_pipeline_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_pipeline_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"provider"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_pipeline_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // "in" or "out"

	framesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_pipeline_frames_sent_total",
		Help: "Total outbound audio frames emitted",
	})
)

// Turn outcomes recorded against voice_pipeline_turns_total.
const (
	TurnCompleted       = "completed"
	TurnEmptyTranscript = "empty_transcript"
	TurnProviderError   = "provider_error"
	TurnBargedIn        = "barged_in"
)

// Metrics tracks metrics for a single call.
type Metrics struct {
	callID    string
	startTime time.Time

	mu             sync.Mutex
	providerStarts map[string]time.Time
}

// NewCallMetrics creates a new metrics tracker for a call.
func NewCallMetrics(callID string) *Metrics {
	return &Metrics{
		callID:         callID,
		startTime:      time.Now(),
		providerStarts: make(map[string]time.Time),
	}
}

// RecordCallStart records the start of a call.
func (m *Metrics) RecordCallStart() {
	activeCalls.Inc()
	totalCalls.Inc()
}

// RecordCallEnd records the end of a call.
func (m *Metrics) RecordCallEnd() {
	activeCalls.Dec()
	callDuration.Observe(time.Since(m.startTime).Seconds())
}

// RecordProviderStart marks the start of a provider request.
func (m *Metrics) RecordProviderStart(provider string) {
	m.mu.Lock()
	m.providerStarts[provider] = time.Now()
	m.mu.Unlock()
}

// RecordProviderEnd marks the end of a provider request.
func (m *Metrics) RecordProviderEnd(provider string, success bool) {
	m.mu.Lock()
	start, ok := m.providerStarts[provider]
	delete(m.providerStarts, provider)
	m.mu.Unlock()

	if ok {
		providerLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
	status := "success"
	if !success {
		status = "error"
	}
	providerRequests.WithLabelValues(provider, status).Inc()
}

// RecordTurn records the outcome of one conversational turn.
func (m *Metrics) RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

// RecordBargeIn records a caller interrupting playback.
func (m *Metrics) RecordBargeIn() {
	bargeInsTotal.Inc()
	turnsTotal.WithLabelValues(TurnBargedIn).Inc()
}

// RecordError records an error.
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed.
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordFrameSent records one outbound frame.
func (m *Metrics) RecordFrameSent() {
	framesSent.Inc()
}

// UpdateCircuitBreakerState updates the circuit breaker state gauge.
func UpdateCircuitBreakerState(provider string, state int) {
	circuitBreakerState.WithLabelValues(provider).Set(float64(state))
}
