// Package metrics exposes Prometheus counters for quiz play.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuizzesStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizwalk_quizzes_started_total",
			Help: "Quiz attempts started",
		},
	)

	QuizzesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizwalk_quizzes_completed_total",
			Help: "Quiz attempts completed",
		},
	)

	AnswersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizwalk_answers_total",
			Help: "Recorded answers by correctness",
		},
		[]string{"correct"},
	)

	Reveals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizwalk_reveals_total",
			Help: "Proximity checks by outcome",
		},
		[]string{"status"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizwalk_active_sessions",
			Help: "Logged in player sessions",
		},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(QuizzesStarted, QuizzesCompleted, AnswersSubmitted, Reveals, ActiveSessions)
	})
}

// ObserveAnswer counts a recorded answer.
func ObserveAnswer(correct bool) {
	AnswersSubmitted.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

// ObserveReveal counts a proximity check outcome.
func ObserveReveal(status string) {
	Reveals.WithLabelValues(status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
