package metrics

import (
	"net/http"
	"strconv"
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
	patientsRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "patients_registered_total",
			Help: "Total number of patients registered",
		},
	)

	masterRecordsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "master_records_saved_total",
			Help: "Total number of master-data records created or updated",
		},
		[]string{"entity"},
	)

	masterRecordsDeactivated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "master_records_deactivated_total",
			Help: "Total number of master-data records soft deleted",
		},
		[]string{"entity"},
	)

	receiptsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advance_receipts_created_total",
			Help: "Total number of advance receipts created",
		},
	)

	receiptsAdjusted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advance_receipts_adjusted_total",
			Help: "Total number of advance receipt adjustments",
		},
	)

	appointmentsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total number of appointments booked",
		},
		[]string{"provider"},
	)

	appointmentConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "appointment_conflicts_total",
			Help: "Total number of bookings rejected for overlap",
		},
	)

	alertsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_delivered_total",
			Help: "Total number of patient alerts delivered",
		},
		[]string{"severity", "status"},
	)
)

// RecordPatientRegistered increments the patient registration counter
func RecordPatientRegistered() {
	patientsRegistered.Inc()
}

// RecordMasterSaved increments the save counter for a master entity
func RecordMasterSaved(entity string) {
	masterRecordsSaved.WithLabelValues(entity).Inc()
}

// RecordMasterDeactivated increments the soft-delete counter for a master entity
func RecordMasterDeactivated(entity string) {
	masterRecordsDeactivated.WithLabelValues(entity).Inc()
}

// RecordReceiptCreated increments the receipt counter
func RecordReceiptCreated() {
	receiptsCreated.Inc()
}

// RecordReceiptAdjusted increments the adjustment counter
func RecordReceiptAdjusted() {
	receiptsAdjusted.Inc()
}

// RecordAppointmentBooked increments the booking counter
func RecordAppointmentBooked(provider string) {
	appointmentsBooked.WithLabelValues(provider).Inc()
}

// RecordAppointmentConflict increments the conflict counter
func RecordAppointmentConflict() {
	appointmentConflicts.Inc()
}

// RecordAlertDelivered increments the alert delivery counter
func RecordAlertDelivered(severity, status string) {
	alertsDelivered.WithLabelValues(severity, status).Inc()
}

// Middleware collects HTTP metrics for every request
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

// Handler returns the /metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
