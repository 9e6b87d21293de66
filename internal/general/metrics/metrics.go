package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	bookingsCreated  *prometheus.CounterVec
	seatOperations   *prometheus.CounterVec
	releaseClamped   prometheus.Counter
	transitions      *prometheus.CounterVec
	ratingUpdates    prometheus.Counter
	projectionEvents *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carpool_bookings_created_total",
			Help: "Bookings created, by initial status.",
		}, []string{"status"}),
		seatOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carpool_seat_operations_total",
			Help: "Seat reserve and release calls, by outcome.",
		}, []string{"op", "result"}),
		releaseClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carpool_seat_release_clamped_total",
			Help: "Releases that would have pushed seats above capacity.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carpool_booking_transitions_total",
			Help: "Booking status change attempts.",
		}, []string{"from", "to", "result"}),
		ratingUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carpool_rating_updates_total",
			Help: "Ratings folded into user averages.",
		}),
		projectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carpool_projection_events_total",
			Help: "Events handled by the ride stats projector.",
		}, []string{"kind", "result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carpool_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.bookingsCreated,
		m.seatOperations,
		m.releaseClamped,
		m.transitions,
		m.ratingUpdates,
		m.projectionEvents,
		m.requestDuration,
	)
	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) BookingCreated(status string) { m.bookingsCreated.WithLabelValues(status).Inc() }

func (m *Metrics) SeatOperation(op, result string) { m.seatOperations.WithLabelValues(op, result).Inc() }

func (m *Metrics) ReleaseClamped() { m.releaseClamped.Inc() }

func (m *Metrics) Transition(from, to, result string) { m.transitions.WithLabelValues(from, to, result).Inc() }

func (m *Metrics) RatingUpdated() { m.ratingUpdates.Inc() }

func (m *Metrics) ProjectionEvent(kind, result string) {
	m.projectionEvents.WithLabelValues(kind, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request latency by matched route pattern and status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.WithLabelValues(route, strconv.Itoa(ww.code)).Observe(time.Since(start).Seconds())
	})
}

func skipPath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
