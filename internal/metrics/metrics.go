package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the API.
type Metrics struct {
	ScoreRequests           prometheus.Counter
	ScoreDuration           prometheus.Histogram
	RecommendationsByStatus *prometheus.CounterVec

	FeedbackRecorded *prometheus.CounterVec

	RemindersGenerated prometheus.Counter
	CalendarFailures   prometheus.Counter
	NotificationsSent  *prometheus.CounterVec

	HTTPRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// NewMetrics registers the collectors on first call and returns the shared set.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			ScoreRequests: promauto.NewCounter(prometheus.CounterOpts{
				Name: "credit_score_requests_total",
				Help: "Number of spend snapshots scored",
			}),
			ScoreDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "credit_score_duration_seconds",
				Help:    "Time spent scoring a spend snapshot",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}),
			RecommendationsByStatus: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "credit_recommendations_total",
					Help: "Scored recommendations by eligibility status",
				},
				[]string{"offer_id", "status"},
			),
			FeedbackRecorded: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "credit_feedback_total",
					Help: "Feedback records by offer and action",
				},
				[]string{"offer_id", "action"},
			),
			RemindersGenerated: promauto.NewCounter(prometheus.CounterOpts{
				Name: "credit_reminders_generated_total",
				Help: "Reminder events generated",
			}),
			CalendarFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "credit_calendar_failures_total",
				Help: "Reminder events the calendar sink rejected",
			}),
			NotificationsSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "credit_notifications_total",
					Help: "Notifications handed to the notifier by outcome",
				},
				[]string{"kind", "success"},
			),
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "credit_http_requests_total",
					Help: "HTTP requests by method, route and status",
				},
				[]string{"method", "route", "status"},
			),
		}
	})
	return sharedMetrics
}

// RecordScore counts one scoring run and its per-offer outcomes.
func (m *Metrics) RecordScore(seconds float64, statuses map[string]string) {
	m.ScoreRequests.Inc()
	m.ScoreDuration.Observe(seconds)
	for offerID, status := range statuses {
		m.RecommendationsByStatus.WithLabelValues(offerID, status).Inc()
	}
}

func (m *Metrics) RecordFeedback(offerID, action string) {
	m.FeedbackRecorded.WithLabelValues(offerID, action).Inc()
}

func (m *Metrics) RecordNotification(kind string, success bool) {
	outcome := "false"
	if success {
		outcome = "true"
	}
	m.NotificationsSent.WithLabelValues(kind, outcome).Inc()
}
