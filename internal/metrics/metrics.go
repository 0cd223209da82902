package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently held in memory",
		},
	)
	TrialsEntered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trials_entered_total",
			Help: "Total trial entries",
		},
		[]string{"trial"},
	)
	TrialsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trials_completed_total",
			Help: "Total trial completion events, replays included",
		},
		[]string{"trial"},
	)
	TrialScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trial_score",
			Help:    "Scores recorded on first completion of a trial",
			Buckets: prometheus.LinearBuckets(100, 100, 10),
		},
		[]string{"trial"},
	)
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Final result submissions by sink and outcome",
		},
		[]string{"sink", "outcome"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_clients",
			Help: "Open websocket connections",
		},
	)

	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"scope", "endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"scope", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(TrialsEntered)
	prometheus.MustRegister(TrialsCompleted)
	prometheus.MustRegister(TrialScores)
	prometheus.MustRegister(Submissions)
	prometheus.MustRegister(WSClients)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
}
