// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts the outcomes of both checkout phases.
type CheckoutMetrics struct {
	Reservations *prometheus.CounterVec
	Settlements  *prometheus.CounterVec
	HoldsSwept   prometheus.Counter
}

func NewCheckoutMetrics() *CheckoutMetrics {
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecomstore",
		Subsystem: "checkout",
		Name:      "reservations_total",
		Help:      "Reservation attempts by outcome.",
	}, []string{"outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecomstore",
		Subsystem: "checkout",
		Name:      "settlements_total",
		Help:      "Settlement attempts by outcome.",
	}, []string{"outcome"})
	holdsSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ecomstore",
		Subsystem: "checkout",
		Name:      "holds_swept_total",
		Help:      "Expired stock holds removed by the background sweep.",
	})

	prometheus.MustRegister(reservations, settlements, holdsSwept)
	return &CheckoutMetrics{
		Reservations: reservations,
		Settlements:  settlements,
		HoldsSwept:   holdsSwept,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
