// Package observability provides Prometheus metrics for the matching and dispatch pipeline.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all Prometheus metrics exposed by the application.
type Metrics struct {
	// Matching pipeline
	EventsProcessed   prometheus.Counter     // Total detection events run through matching
	EventsMalformed   prometheus.Counter     // Events whose classifier payload failed to parse
	ProfileMatches    prometheus.Counter     // ProfileMatch joins created
	PatternMatches    prometheus.Counter     // PatternMatch joins created
	MatchingDuration  prometheus.Histogram   // Per-event matching latency

	// Notification dispatch
	NotificationsSent   *prometheus.CounterVec // Successful sends by provider kind
	NotificationsFailed *prometheus.CounterVec // Terminal failures by provider kind
	NotificationRetries *prometheus.CounterVec // Retry attempts by provider kind

	registry *prometheus.Registry
}

// NewMetrics creates and registers all application metrics on the given registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}

	m.EventsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_events_processed_total",
		Help: "Total number of detection events processed by the matching engine",
	})
	m.EventsMalformed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_events_malformed_total",
		Help: "Total number of events with unparseable classifier payloads",
	})
	m.ProfileMatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_profile_matches_total",
		Help: "Total number of prediction-to-profile matches recorded",
	})
	m.PatternMatches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapwatch_pattern_matches_total",
		Help: "Total number of filename-pattern matches recorded",
	})
	m.MatchingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapwatch_matching_duration_seconds",
		Help:    "Time spent matching a single event against all profiles",
		Buckets: prometheus.DefBuckets,
	})

	m.NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_notifications_sent_total",
		Help: "Total number of notifications delivered, by provider kind",
	}, []string{"provider"})
	m.NotificationsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_notifications_failed_total",
		Help: "Total number of notifications that failed after all retries, by provider kind",
	}, []string{"provider"})
	m.NotificationRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapwatch_notification_retries_total",
		Help: "Total number of notification send retries, by provider kind",
	}, []string{"provider"})

	collectors := []prometheus.Collector{
		m.EventsProcessed, m.EventsMalformed,
		m.ProfileMatches, m.PatternMatches, m.MatchingDuration,
		m.NotificationsSent, m.NotificationsFailed, m.NotificationRetries,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return m, nil
}

// Registry returns the underlying Prometheus registry for HTTP exposure.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
