package events

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "events_delivered_total",
		Help:      "Number of registration events published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "events_failed_total",
		Help:      "Number of registration events that could not be published.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "events_dropped_total",
		Help:      "Number of registration events discarded because the queue was full.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "batch_duration_seconds",
		Help:      "Time spent encoding and delivering one batch of events.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "signup_service",
		Subsystem: "events",
		Name:      "queue_depth",
		Help:      "Events waiting to be delivered.",
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, droppedCounter, batchDuration, queueDepth)
}
