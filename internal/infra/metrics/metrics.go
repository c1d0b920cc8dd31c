package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkaro_booking_operations_total",
			Help: "Booking lifecycle operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parkaro_booking_operation_seconds",
			Help:    "Duration of booking lifecycle operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	SweepAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkaro_sweep_affected_total",
			Help: "Bookings touched by automation passes",
		},
		[]string{"pass"},
	)

	NotifyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkaro_notify_failures_total",
			Help: "Notifications that failed after commit",
		},
		[]string{"type"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkaro_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)
)

// Observe учитывает одну операцию. outcome — вид ошибки или "ok".
func Observe(op, outcome string, started time.Time) {
	BookingOps.WithLabelValues(op, outcome).Inc()
	OpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
