// Package observability exposes Prometheus metrics for roster changes.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "signup_service"

var (
	signupCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "signups_total",
		Help:      "Number of successful signups, labeled by activity.",
	}, []string{"activity"})

	unregisterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "unregistrations_total",
		Help:      "Number of successful unregistrations, labeled by activity.",
	}, []string{"activity"})

	rejectionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "rejections_total",
		Help:      "Number of rejected roster changes, labeled by operation and reason.",
	}, []string{"operation", "reason"})

	rosterGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "participants",
		Help:      "Current number of participants per activity.",
	}, []string{"activity"})

	lastChangeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "last_registration_change_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful signup or unregister.",
	})
)

func init() {
	prometheus.MustRegister(signupCounter, unregisterCounter, rejectionCounter, rosterGauge, lastChangeGauge)
}

// RecordSignup counts a signup and updates the roster gauge.
func RecordSignup(activity string, rosterSize int, ts time.Time) {
	signupCounter.WithLabelValues(activity).Inc()
	SetRosterSize(activity, rosterSize)
	recordChange(ts)
}

// RecordUnregister counts an unregistration and updates the roster gauge.
func RecordUnregister(activity string, rosterSize int, ts time.Time) {
	unregisterCounter.WithLabelValues(activity).Inc()
	SetRosterSize(activity, rosterSize)
	recordChange(ts)
}

// RecordRejection counts a failed roster change.
func RecordRejection(operation, reason string) {
	rejectionCounter.WithLabelValues(operation, reason).Inc()
}

// SetRosterSize sets the participant gauge for an activity.
func SetRosterSize(activity string, size int) {
	rosterGauge.WithLabelValues(activity).Set(float64(size))
}

func recordChange(ts time.Time) {
	if ts.IsZero() {
		return
	}
	lastChangeGauge.Set(float64(ts.Unix()))
}
