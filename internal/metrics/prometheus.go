package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a recorder command is rejected.
const (
	ReasonAlreadyRecording = "already_recording"
	ReasonNotRecording     = "not_recording"
)

// Metrics contains all Prometheus metrics for the recorder.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Session metrics
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsCancelled prometheus.Counter
	AccessDenied      prometheus.Counter
	RejectedCommands  *prometheus.CounterVec
	Recording         prometheus.Gauge

	// Capture metrics
	BlocksAccepted *prometheus.CounterVec
	BlocksDropped  prometheus.Counter

	// Output metrics
	ContainerBytes    prometheus.Histogram
	RecordingDuration prometheus.Histogram
	EncodeDuration    prometheus.Histogram
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Session metrics
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavrecorder_sessions_started_total",
			Help: "Total number of accepted start commands",
		}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavrecorder_sessions_completed_total",
			Help: "Total number of sessions stopped and encoded",
		}),
		SessionsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavrecorder_sessions_cancelled_total",
			Help: "Total number of sessions stopped before access was granted",
		}),
		AccessDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavrecorder_access_denied_total",
			Help: "Total number of access requests denied by the source",
		}),
		RejectedCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavrecorder_rejected_commands_total",
			Help: "Total number of start or stop commands rejected in the current state",
		}, []string{"reason"}),
		Recording: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wavrecorder_recording",
			Help: "1 while the recorder is in the recording state, 0 otherwise",
		}),

		// Capture metrics
		BlocksAccepted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wavrecorder_blocks_accepted_total",
			Help: "Total number of sample blocks appended to a channel store",
		}, []string{"channel"}),
		BlocksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "wavrecorder_blocks_dropped_total",
			Help: "Total number of sample blocks discarded after stop or for an unknown channel",
		}),

		// Output metrics
		ContainerBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavrecorder_container_size_bytes",
			Help:    "Size of produced WAV containers in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),
		RecordingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavrecorder_recording_duration_seconds",
			Help:    "Wall clock time between start and stop of completed sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),
		EncodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wavrecorder_encode_duration_seconds",
			Help:    "Time spent merging, interleaving and encoding on stop",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		}),
	}
}

// RecordSessionStarted increments the started counter and raises the recording gauge
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.Recording.Set(1)
}

// RecordSessionCompleted records a stopped session and its output
func (m *Metrics) RecordSessionCompleted(durationSeconds float64, containerBytes int, encodeSeconds float64) {
	if m == nil {
		return
	}
	m.SessionsCompleted.Inc()
	m.Recording.Set(0)
	m.RecordingDuration.Observe(durationSeconds)
	m.ContainerBytes.Observe(float64(containerBytes))
	m.EncodeDuration.Observe(encodeSeconds)
}

// RecordSessionCancelled records a session stopped while its access request was pending
func (m *Metrics) RecordSessionCancelled() {
	if m == nil {
		return
	}
	m.SessionsCancelled.Inc()
}

// RecordAccessDenied records a denied access request, which ends the session
func (m *Metrics) RecordAccessDenied() {
	if m == nil {
		return
	}
	m.AccessDenied.Inc()
	m.Recording.Set(0)
}

// RecordSessionAbandoned lowers the recording gauge for a session ended by its context
func (m *Metrics) RecordSessionAbandoned() {
	if m == nil {
		return
	}
	m.Recording.Set(0)
}

// RecordRejectedCommand records a start or stop issued in the wrong state
func (m *Metrics) RecordRejectedCommand(reason string) {
	if m == nil {
		return
	}
	m.RejectedCommands.WithLabelValues(reason).Inc()
}

// RecordBlock records the outcome of pushing one block
func (m *Metrics) RecordBlock(channel string, accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.BlocksAccepted.WithLabelValues(channel).Inc()
	} else {
		m.BlocksDropped.Inc()
	}
}
