package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics encapsulates the Prometheus instrumentation of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solvesTotal     *prometheus.CounterVec
	modelVariables  prometheus.Histogram
}

// New registers the service collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timely_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timely_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	solveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timely_solve_duration_seconds",
		Help:    "Duration of timetable builds, from normalization to extraction",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"status"})

	solvesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timely_solves_total",
		Help: "Total number of timetable builds by outcome",
	}, []string{"status"})

	modelVariables := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timely_model_variables",
		Help:    "Number of model variables per build",
		Buckets: prometheus.ExponentialBuckets(100, 4, 8),
	})

	registry.MustRegister(requestDuration, requestTotal, solveDuration, solvesTotal, modelVariables)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		solveDuration:   solveDuration,
		solvesTotal:     solvesTotal,
		modelVariables:  modelVariables,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveSolve records one build. variables is zero when no model was built.
func (m *Metrics) ObserveSolve(status string, duration time.Duration, variables int) {
	if m == nil {
		return
	}
	m.solveDuration.WithLabelValues(status).Observe(duration.Seconds())
	m.solvesTotal.WithLabelValues(status).Inc()
	if variables > 0 {
		m.modelVariables.Observe(float64(variables))
	}
}
