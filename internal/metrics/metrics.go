package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by mode.",
		},
		[]string{"mode"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by their owners.",
		},
	)

	bookingJoined = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "booking_joined_total",
			Help:      "Count of members joining social sessions.",
		},
	)

	bookingRescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "booking_rescheduled_total",
			Help:      "Count of bookings moved to another slot.",
		},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "booking_conflict_total",
			Help:      "Count of requests rejected because the slot was taken.",
		},
		[]string{"operation"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "simbay",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests per endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, bookingJoined,
			bookingRescheduled, bookingConflicts, httpRequests)
	})
}

func IncBookingCreated(mode string) {
	bookingCreated.WithLabelValues(mode).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingJoined() {
	bookingJoined.Inc()
}

func IncBookingRescheduled() {
	bookingRescheduled.Inc()
}

func IncBookingConflict(operation string) {
	bookingConflicts.WithLabelValues(operation).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
