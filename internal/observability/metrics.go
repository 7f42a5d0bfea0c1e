// Package observability holds the Prometheus metrics exported by the bot.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gamification"

var (
	xpAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "xp_awarded_total",
		Help:      "Sum of XP deltas applied to user aggregates, labeled by activity.",
	}, []string{"activity"})

	awardFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "award_failures_total",
		Help:      "Number of XP awards that failed to persist the user aggregate.",
	})

	badgesUnlocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "badges",
		Name:      "unlocked_total",
		Help:      "Number of badges granted, labeled by rule category.",
	}, []string{"category"})

	badgeCategoryFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "badges",
		Name:      "category_failures_total",
		Help:      "Number of badge rule categories that failed and were skipped.",
	}, []string{"category"})

	badgeEvaluation = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "badges",
		Name:      "evaluation_duration_seconds",
		Help:      "Time spent evaluating all badge rules for one award.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	rateLimitDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "decisions_total",
		Help:      "Rate limiter decisions, labeled by action and outcome.",
	}, []string{"action", "outcome"})

	rateLimitFailOpen = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "fail_open_total",
		Help:      "Number of times the durable counter failed and the action was allowed anyway.",
	}, []string{"action"})

	notificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Number of notification deliveries that failed, labeled by sink.",
	}, []string{"sink"})
)

func init() {
	prometheus.MustRegister(
		xpAwarded,
		awardFailures,
		badgesUnlocked,
		badgeCategoryFailures,
		badgeEvaluation,
		rateLimitDecisions,
		rateLimitFailOpen,
		notificationFailures,
	)
}

// RecordXPAwarded adds an applied XP delta for an activity.
func RecordXPAwarded(activity string, delta int64) {
	if delta <= 0 {
		return
	}
	xpAwarded.WithLabelValues(activity).Add(float64(delta))
}

// RecordAwardFailure counts an award whose aggregate write failed.
func RecordAwardFailure() {
	awardFailures.Inc()
}

// RecordBadgeUnlocked counts a granted badge.
func RecordBadgeUnlocked(category string) {
	badgesUnlocked.WithLabelValues(category).Inc()
}

// RecordBadgeCategoryFailure counts a rule category that was skipped after an error.
func RecordBadgeCategoryFailure(category string) {
	badgeCategoryFailures.WithLabelValues(category).Inc()
}

// ObserveBadgeEvaluation records how long one evaluation pass took.
func ObserveBadgeEvaluation(d time.Duration) {
	badgeEvaluation.Observe(d.Seconds())
}

// RecordRateLimitDecision counts an allow/reject decision.
func RecordRateLimitDecision(action, outcome string) {
	rateLimitDecisions.WithLabelValues(action, outcome).Inc()
}

// RecordRateLimitFailOpen counts a fail-open decision.
func RecordRateLimitFailOpen(action string) {
	rateLimitFailOpen.WithLabelValues(action).Inc()
}

// RecordNotificationFailure counts a failed delivery.
func RecordNotificationFailure(sink string) {
	notificationFailures.WithLabelValues(sink).Inc()
}
