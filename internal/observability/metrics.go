package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	gatePasses      *prometheus.CounterVec
	sales           *prometheus.CounterVec
	creditApprovals prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and dealership metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "showroom_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	gatePasses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_gate_passes_total",
		Help: "Gate pass requests by outcome (issued, reprint, rejected, failed).",
	}, []string{"outcome"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "showroom_sales_total",
		Help: "Sale creations by outcome (created, conflict, failed).",
	}, []string{"outcome"})
	approvals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "showroom_credit_approvals_total",
		Help: "Credit promises recorded.",
	})
	registry.MustRegister(requests, duration, gatePasses, sales, approvals)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		gatePasses:      gatePasses,
		sales:           sales,
		creditApprovals: approvals,
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// GatePass counts a gate pass outcome.
func (m *Metrics) GatePass(outcome string) {
	if m == nil {
		return
	}
	m.gatePasses.WithLabelValues(outcome).Inc()
}

// Sale counts a sale creation outcome.
func (m *Metrics) Sale(outcome string) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues(outcome).Inc()
}

// CreditApproved counts a recorded credit promise.
func (m *Metrics) CreditApproved() {
	if m == nil {
		return
	}
	m.creditApprovals.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
