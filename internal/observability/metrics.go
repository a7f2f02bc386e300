package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "habit_tracker",
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity written to the store.",
	})

	activitiesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habit_tracker",
		Subsystem: "activities",
		Name:      "created_total",
		Help:      "Number of activities logged, labeled by category.",
	}, []string{"category"})

	activitiesDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habit_tracker",
		Subsystem: "activities",
		Name:      "deleted_total",
		Help:      "Number of activities deleted by their owners.",
	})

	weeklyDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "habit_tracker",
		Subsystem: "analytics",
		Name:      "weekly_duration_seconds",
		Help:      "Time spent loading and aggregating a weekly report.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	weeklyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habit_tracker",
		Subsystem: "analytics",
		Name:      "weekly_failures_total",
		Help:      "Number of weekly reports that could not be produced.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habit_tracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, labeled by method and status code.",
	}, []string{"method", "code"})
)

func init() {
	prometheus.MustRegister(activityPersistGauge, activitiesCreated, activitiesDeleted, weeklyDuration, weeklyFailures, httpRequests)
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}

// RecordActivityCreated counts a new activity in its category.
func RecordActivityCreated(category string) {
	activitiesCreated.WithLabelValues(category).Inc()
}

// RecordActivityDeleted counts a deletion.
func RecordActivityDeleted() {
	activitiesDeleted.Inc()
}

// ObserveWeekly records the latency of a weekly report and whether it failed.
func ObserveWeekly(started time.Time, err error) {
	weeklyDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		weeklyFailures.Inc()
	}
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(method string, code int) {
	httpRequests.WithLabelValues(method, statusLabel(code)).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
