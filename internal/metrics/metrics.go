// Package metrics exposes Prometheus counters for sign-ins, enrollments and
// HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	RecordLogin(method, outcome string)
	RecordRegistration()
	RecordNotification(result string)
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	logins        *prometheus.CounterVec
	registrations prometheus.Counter
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jadpai_logins_total",
			Help: "Sign-in attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jadpai_registrations_total",
			Help: "Accounts created with a password.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jadpai_notifications_total",
			Help: "Enrollment status notifications by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jadpai_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jadpai_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.notifications,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

// RecordHTTPRequest counts one request.  route is the registered path
// pattern, not the raw URL, to keep label cardinality bounded.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordLogin(string, string)                           {}
func (Nop) RecordRegistration()                                  {}
func (Nop) RecordNotification(string)                            {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
