package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "echoverse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// TokensIssued counts single-use auth tokens issued by purpose.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_auth_tokens_issued_total",
		Help: "Total number of single-use auth tokens issued by purpose",
	}, []string{"purpose"})

	// TokensConsumed counts token consumption attempts by purpose and result.
	TokensConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_auth_tokens_consumed_total",
		Help: "Total number of token consumption attempts by purpose and result",
	}, []string{"purpose", "result"})

	// EmailsSent counts outbound emails by template and result.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_emails_sent_total",
		Help: "Total number of outbound emails by template and result",
	}, []string{"template", "result"})

	// ModerationActions counts admin moderation actions by action type.
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_moderation_actions_total",
		Help: "Total number of admin moderation actions by action type",
	}, []string{"action"})

	// MediaUploads counts media uploads to the blob store by media type and result.
	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echoverse_media_uploads_total",
		Help: "Total number of media uploads by media type and result",
	}, []string{"media_type", "result"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
