// Package metrics exposes Prometheus instrumentation for the interview
// client over a private registry. Every Record helper is safe to call on
// a nil *Metrics, so callers wire instrumentation unconditionally and
// simply pass nil when no metrics listener is configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the interview client.
type Metrics struct {
	registry *prometheus.Registry

	// Turn metrics
	PhaseTransitions   *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	TimerExpirations   prometheus.Counter

	// Capture metrics
	CaptureTotal *prometheus.CounterVec

	// Speech metrics
	SpeechRequestsTotal *prometheus.CounterVec

	// Upload metrics
	UploadsActive     prometheus.Gauge
	UploadsTotal      *prometheus.CounterVec
	UploadChunksTotal prometheus.Counter
	UploadBytesTotal  prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "ivk"
	}

	registry := prometheus.NewRegistry()

	phaseTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_transitions_total",
			Help:      "Total turn phase transitions",
		},
		[]string{"from", "to"},
	)

	submissionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_submissions_total",
			Help:      "Total turn submissions",
		},
		[]string{"status"},
	)

	submissionDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_submission_duration_seconds",
			Help:      "Turn submission round trip in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	timerExpirations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timer_expirations_total",
			Help:      "Total answer timers that ran out",
		},
	)

	captureTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_sessions_total",
			Help:      "Total capture sessions by result",
		},
		[]string{"result"},
	)

	speechRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_requests_total",
			Help:      "Total speech service requests",
		},
		[]string{"kind", "status"},
	)

	uploadsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uploads_active",
			Help:      "Number of upload tasks in flight",
		},
	)

	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total upload tasks by terminal status",
		},
		[]string{"status"},
	)

	uploadChunksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_chunks_total",
			Help:      "Total upload chunks sent",
		},
	)

	uploadBytesTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
	)

	// Register all metrics
	registry.MustRegister(
		phaseTransitions,
		submissionsTotal,
		submissionDuration,
		timerExpirations,
		captureTotal,
		speechRequestsTotal,
		uploadsActive,
		uploadsTotal,
		uploadChunksTotal,
		uploadBytesTotal,
	)

	return &Metrics{
		registry:            registry,
		PhaseTransitions:    phaseTransitions,
		SubmissionsTotal:    submissionsTotal,
		SubmissionDuration:  submissionDuration,
		TimerExpirations:    timerExpirations,
		CaptureTotal:        captureTotal,
		SpeechRequestsTotal: speechRequestsTotal,
		UploadsActive:       uploadsActive,
		UploadsTotal:        uploadsTotal,
		UploadChunksTotal:   uploadChunksTotal,
		UploadBytesTotal:    uploadBytesTotal,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPhaseTransition records a turn controller phase change.
func (m *Metrics) RecordPhaseTransition(from, to string) {
	if m == nil {
		return
	}
	m.PhaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordSubmission records a completed turn submission.
func (m *Metrics) RecordSubmission(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(status).Inc()
	m.SubmissionDuration.Observe(duration.Seconds())
}

// RecordTimerExpiration records an answer timer running out.
func (m *Metrics) RecordTimerExpiration() {
	if m == nil {
		return
	}
	m.TimerExpirations.Inc()
}

// RecordCaptureStart records a capture session starting.
func (m *Metrics) RecordCaptureStart() {
	if m == nil {
		return
	}
	m.CaptureTotal.WithLabelValues("started").Inc()
}

// RecordCaptureFailure records a capture session that failed to start.
func (m *Metrics) RecordCaptureFailure() {
	if m == nil {
		return
	}
	m.CaptureTotal.WithLabelValues("failed").Inc()
}

// RecordSpeechRequest records a transcription or synthesis request.
func (m *Metrics) RecordSpeechRequest(kind, status string) {
	if m == nil {
		return
	}
	m.SpeechRequestsTotal.WithLabelValues(kind, status).Inc()
}

// RecordUploadStart records an upload task entering flight.
func (m *Metrics) RecordUploadStart() {
	if m == nil {
		return
	}
	m.UploadsActive.Inc()
}

// RecordUploadEnd records an upload task reaching a terminal status along
// with how many chunks and bytes it actually sent.
func (m *Metrics) RecordUploadEnd(status string, chunks int, bytes int64) {
	if m == nil {
		return
	}
	m.UploadsActive.Dec()
	m.UploadsTotal.WithLabelValues(status).Inc()
	m.UploadChunksTotal.Add(float64(chunks))
	m.UploadBytesTotal.Add(float64(bytes))
}
