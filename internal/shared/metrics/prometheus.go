package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	triageClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_classifications_total",
			Help: "Total number of symptom classifications",
		},
		[]string{"situation", "source"},
	)

	hospitalRankings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hospital_rankings_total",
			Help: "Total number of hospital ranking requests served",
		},
		[]string{"situation"},
	)

	bookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created",
		},
		[]string{"kind"},
	)

	dispatchTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_status_transitions_total",
			Help: "Total number of ambulance dispatch status transitions",
		},
		[]string{"from", "to"},
	)

	appointmentStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointment_status_changes_total",
			Help: "Total number of appointment status changes",
		},
		[]string{"from", "to"},
	)

	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications created",
		},
		[]string{"recipient_role"},
	)

	dischargeFanouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discharge_fanouts_total",
			Help: "Total number of discharge notification fan-outs",
		},
	)

	aiFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_ai_fallbacks_total",
			Help: "Total number of classifications that fell back to keyword scoring",
		},
	)
)

// RecordClassification records a triage classification by situation and
// decision source (critical, ai, fallback).
func RecordClassification(situation, source string) {
	triageClassifications.WithLabelValues(situation, source).Inc()
}

// RecordAIFallback records a degraded classification.
func RecordAIFallback() {
	aiFallbacks.Inc()
}

// RecordRanking records a hospital ranking request.
func RecordRanking(situation string) {
	hospitalRankings.WithLabelValues(situation).Inc()
}

// RecordBooking records a booking creation ("appointment" or "ambulance").
func RecordBooking(kind string) {
	bookingsCreated.WithLabelValues(kind).Inc()
}

// RecordDispatchTransition records an ambulance status transition.
func RecordDispatchTransition(from, to string) {
	dispatchTransitions.WithLabelValues(from, to).Inc()
}

// RecordAppointmentStatusChange records an appointment status change.
func RecordAppointmentStatusChange(from, to string) {
	appointmentStatusChanges.WithLabelValues(from, to).Inc()
}

// RecordNotification records a created notification.
func RecordNotification(recipientRole string) {
	notificationsCreated.WithLabelValues(recipientRole).Inc()
}

// RecordDischargeFanout records a discharge fan-out.
func RecordDischargeFanout() {
	dischargeFanouts.Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses ID-like path segments to avoid cardinality explosion
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if len(s) >= 20 || looksNumeric(s) {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
