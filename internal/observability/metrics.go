package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriscan_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// EngagementToggles counts like/favorite toggles by target, kind and direction.
	EngagementToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriscan_engagement_toggles_total",
		Help: "Total number of engagement toggles",
	}, []string{"target", "kind", "direction"})

	// CommentSubtreeSize records how many comments a single delete removed.
	CommentSubtreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nutriscan_comment_subtree_delete_size",
		Help:    "Number of comments removed per comment delete, including replies",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	})

	// LoginAttempts counts login attempts by login type and outcome.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriscan_login_attempts_total",
		Help: "Total number of login attempts",
	}, []string{"login_type", "outcome"})
)

// RecordToggle increments the toggle counter; added selects the "add" or "remove" direction.
func RecordToggle(target, kind string, added bool) {
	direction := "remove"
	if added {
		direction = "add"
	}
	EngagementToggles.WithLabelValues(target, kind, direction).Inc()
}
