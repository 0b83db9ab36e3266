// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_booking_operations_total",
			Help: "Booking ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	lockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinema_show_lock_wait_seconds",
			Help:    "Time spent waiting for the per-show booking lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"backend"},
	)

	broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_seat_broadcasts_total",
			Help: "Seat update deliveries to viewers",
		},
		[]string{"result"},
	)

	viewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinema_seat_viewers",
			Help: "Connected seat map viewers across all shows",
		},
	)

	payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_payments_total",
			Help: "Payment flow events",
		},
		[]string{"event"},
	)
)

// BookingOp records the outcome of a ledger operation ("ok", "conflict", ...).
func BookingOp(operation, outcome string) {
	bookingOps.WithLabelValues(operation, outcome).Inc()
}

// LockWait records how long a caller queued for a show lock.
func LockWait(backend string, d time.Duration) {
	lockWait.WithLabelValues(backend).Observe(d.Seconds())
}

// Delivered counts events handed to a viewer buffer.
func Delivered(n int) {
	if n > 0 {
		broadcasts.WithLabelValues("delivered").Add(float64(n))
	}
}

// Dropped counts viewers evicted because their buffer was full.
func Dropped(n int) {
	if n > 0 {
		broadcasts.WithLabelValues("dropped").Add(float64(n))
	}
}

// ViewerJoined and ViewerLeft track the live subscription gauge.
func ViewerJoined() { viewers.Inc() }
func ViewerLeft()   { viewers.Dec() }

// Payment counts checkout, reconcile and webhook events.
func Payment(event string) {
	payments.WithLabelValues(event).Inc()
}
