package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsStarted counts started sessions by difficulty filter.
	SessionsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemaster_sessions_started_total",
			Help: "Total number of quiz sessions started",
		},
		[]string{"difficulty"},
	)

	// SessionsFinished counts finished and abandoned sessions.
	SessionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemaster_sessions_finished_total",
			Help: "Total number of quiz sessions that ended",
		},
		[]string{"outcome"}, // finished, abandoned
	)

	// AnswersTotal counts answers by result.
	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemaster_answers_total",
			Help: "Total number of answered or skipped questions",
		},
		[]string{"result"}, // correct, wrong, skipped
	)

	// SessionPercentage records final scores.
	SessionPercentage = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codemaster_session_percentage",
			Help:    "Distribution of finished session percentages",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// XPAwarded sums the XP credited to the player.
	XPAwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codemaster_xp_awarded_total",
			Help: "Total XP awarded across finished sessions",
		},
	)

	// BadgesUnlocked counts unlocks per badge.
	BadgesUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codemaster_badges_unlocked_total",
			Help: "Total number of badge unlocks",
		},
		[]string{"badge"},
	)

	// LiveSubscribers tracks connected live-update subscribers.
	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codemaster_live_subscribers",
			Help: "Current number of live update subscribers",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
