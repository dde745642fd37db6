package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. It implements app.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	AttemptsOpened   *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	LeaderboardBuild prometheus.Histogram
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		AttemptsOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_attempts_opened_total",
				Help: "Open calls by outcome (created, refreshed, locked)",
			},
			[]string{"result"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Answer submissions by outcome (correct, wrong, conflict)",
			},
			[]string{"result"},
		),
		LeaderboardBuild: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quiz_leaderboard_build_seconds",
				Help:    "Time spent computing a leaderboard",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		m.AttemptsOpened,
		m.Submissions,
		m.LeaderboardBuild,
		m.RequestCounter,
		m.RequestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) AttemptOpened(outcome string) {
	m.AttemptsOpened.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AnswerSubmitted(outcome string) {
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LeaderboardBuilt(d time.Duration) {
	m.LeaderboardBuild.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies under route, the pattern the
// handler was registered with rather than the raw path.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes websocket upgrades through to the underlying connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
