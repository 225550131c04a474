package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lemonbook",
			Name:      "api_requests_total",
			Help:      "Count of reservation API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	hoursFallback = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lemonbook",
			Name:      "working_hours_fallback_total",
			Help:      "Count of working-hours lookups that fell back to the default window.",
		},
	)

	bookingSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lemonbook",
			Name:      "booking_submissions_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	listingRenders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lemonbook",
			Name:      "listing_renders_total",
			Help:      "Count of booking list renders.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, hoursFallback, bookingSubmissions, listingRenders)
	})
}

// IncAPIRequest counts one API call. code 0 means the request never got a response.
func IncAPIRequest(endpoint string, code int) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	apiRequests.WithLabelValues(endpoint, label).Inc()
}

func IncHoursFallback() {
	hoursFallback.Inc()
}

func IncBookingSubmission(outcome string) {
	bookingSubmissions.WithLabelValues(outcome).Inc()
}

func IncListingRender() {
	listingRenders.Inc()
}
