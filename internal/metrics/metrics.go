// Package metrics registers the Prometheus collectors exported on /metrics.
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
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotel_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_reservations_total",
		Help: "Reservation operations by outcome",
	}, []string{"outcome"})

	availabilityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_availability_checks_total",
		Help: "Availability checks by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// ObserveReservation counts a reservation operation outcome such as
// "created", "conflict", "cancelled" or "completed".
func ObserveReservation(outcome string) {
	reservationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAvailability counts an availability check.
func ObserveAvailability(available bool) {
	result := "unavailable"
	if available {
		result = "available"
	}
	availabilityChecks.WithLabelValues(result).Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
