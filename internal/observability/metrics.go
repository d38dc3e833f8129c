// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "conduit_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AuthEvents counts registrations, logins, refreshes and logouts by outcome.
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_auth_events_total",
		Help: "Authentication events by type and outcome",
	}, []string{"event", "outcome"})

	// ArticlesCreated counts successfully published articles.
	ArticlesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_articles_created_total",
		Help: "Total number of articles created",
	})

	// CommentsCreated counts successfully posted comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conduit_comments_created_total",
		Help: "Total number of comments created",
	})

	// FavoriteActions counts favorite and unfavorite requests.
	FavoriteActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_favorite_actions_total",
		Help: "Favorite actions by kind",
	}, []string{"action"})

	// FollowActions counts follow and unfollow requests.
	FollowActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_follow_actions_total",
		Help: "Follow actions by kind",
	}, []string{"action"})

	// EventsPublished counts domain events pushed to Redis by type and outcome.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "conduit_events_published_total",
		Help: "Domain events published by type and outcome",
	}, []string{"type", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// Outcome maps an error to the "ok"/"error" label used by the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
