package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	datagrams = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "udp",
			Name:      "datagrams_total",
			Help:      "Datagrams handed to the frame assembler, by kind.",
		},
		[]string{"kind"},
	)
	queueDrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "udp",
			Name:      "queue_drops_total",
			Help:      "Datagrams dropped because the assembler queue was full.",
		},
	)
	truncated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "udp",
			Name:      "truncated_total",
			Help:      "Datagrams larger than the read buffer, delivered truncated.",
		},
	)
	lines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "frame",
			Name:      "lines_total",
			Help:      "Scan lines per completed frame, by outcome.",
		},
		[]string{"outcome"},
	)
	framesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "frame",
			Name:      "completed_total",
			Help:      "Frames published to the frame store.",
		},
	)
	frameRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sensorlink",
			Subsystem: "frame",
			Name:      "rate_fps",
			Help:      "Completed frames per second over the last reporting interval.",
		},
	)
	inferencePasses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "inference",
			Name:      "passes_total",
			Help:      "Inference passes by outcome.",
		},
		[]string{"outcome"},
	)
	inferenceSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "inference",
			Name:      "skipped_total",
			Help:      "Frame-ready notifications ignored because a pass was in flight.",
		},
	)
	inferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sensorlink",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Inference pass duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	recorderFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sensorlink",
			Subsystem: "recorder",
			Name:      "frames_total",
			Help:      "Frames handed to the recording sink, by status.",
		},
		[]string{"status"},
	)
)

// Line outcomes.
const (
	LineReceived     = "received"
	LineInterpolated = "interpolated"
	LineCopied       = "copied"
	LineUnresolved   = "unresolved"
	LineOverflow     = "overflow"
)

// Inference outcomes.
const (
	InferenceOK      = "ok"
	InferenceError   = "error"
	InferenceAborted = "aborted"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			datagrams, queueDrops, truncated, lines, framesCompleted, frameRate,
			inferencePasses, inferenceSkipped, inferenceDuration, recorderFrames,
		)
	})
}

func RecordDatagram(kind string) {
	RegisterMetrics()
	datagrams.WithLabelValues(kind).Inc()
}

func RecordQueueDrop() {
	RegisterMetrics()
	queueDrops.Inc()
}

func RecordTruncated() {
	RegisterMetrics()
	truncated.Inc()
}

func RecordLines(outcome string, n int) {
	RegisterMetrics()
	if n > 0 {
		lines.WithLabelValues(outcome).Add(float64(n))
	}
}

func RecordFrameCompleted() {
	RegisterMetrics()
	framesCompleted.Inc()
}

func SetFrameRate(fps float64) {
	RegisterMetrics()
	frameRate.Set(fps)
}

func RecordInference(outcome string, duration time.Duration) {
	RegisterMetrics()
	inferencePasses.WithLabelValues(outcome).Inc()
	if outcome != InferenceAborted {
		inferenceDuration.Observe(duration.Seconds())
	}
}

func RecordInferenceSkipped() {
	RegisterMetrics()
	inferenceSkipped.Inc()
}

func RecordRecorderFrame(ok bool) {
	RegisterMetrics()
	status := "written"
	if !ok {
		status = "failed"
	}
	recorderFrames.WithLabelValues(status).Inc()
}
