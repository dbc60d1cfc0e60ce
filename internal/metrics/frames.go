package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "frames",
		Name:      "published_total",
		Help:      "Frames copied into the shared slot by the delivery callback",
	})

	framesCloned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "frames",
		Name:      "cloned_total",
		Help:      "Frames cloned out of the shared slot by polling consumers",
	})

	framesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "frames",
		Name:      "rejected_total",
		Help:      "Frames rejected by the shared slot (size mismatch with negotiated geometry)",
	})

	publishSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "camnode",
		Subsystem: "frames",
		Name:      "publish_seconds",
		Help:      "Lock hold time of a single frame publish",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
	})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "camnode",
		Subsystem: "session",
		Name:      "state",
		Help:      "Current session state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	pipelineBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "pipeline",
		Name:      "builds_total",
		Help:      "Pipeline constructions by topology",
	}, []string{"topology"})

	pipelineFaults = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "camnode",
		Subsystem: "pipeline",
		Name:      "faults_total",
		Help:      "Unrecoverable pipeline faults",
	})
)

// IncFramesPublished records one publish into the shared slot.
func IncFramesPublished() {
	framesPublished.Inc()
}

// IncFramesCloned records one clone-out by a consumer.
func IncFramesCloned() {
	framesCloned.Inc()
}

// IncFramesRejected records a publish rejected for a size mismatch.
func IncFramesRejected() {
	framesRejected.Inc()
}

// ObservePublish records the lock hold time of a publish.
func ObservePublish(seconds float64) {
	publishSeconds.Observe(seconds)
}

// SetSessionState marks the given state active and all others inactive.
func SetSessionState(state string) {
	for _, s := range []string{"idle", "running", "recording", "error"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

// IncPipelineBuilds records a pipeline construction.
func IncPipelineBuilds(topology string) {
	pipelineBuilds.WithLabelValues(topology).Inc()
}

// IncPipelineFaults records an unrecoverable pipeline fault.
func IncPipelineFaults() {
	pipelineFaults.Inc()
}
