// Package metrics exposes Prometheus collectors for the API and the
// studio's business events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge

	enrollments *prometheus.CounterVec
	payments    *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	mails       *prometheus.CounterVec
	jobs        *prometheus.CounterVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yoga_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yoga_http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_enrollments_total",
			Help: "Enrollment attempts by outcome.",
		}, []string{"outcome"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_payments_total",
			Help: "Payment transitions by purpose and status.",
		}, []string{"purpose", "status"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_webhooks_total",
			Help: "Gateway webhooks by provider and result.",
		}, []string{"provider", "result"}),
		mails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_mails_total",
			Help: "Outbound mails by template and result.",
		}, []string{"template", "result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yoga_job_runs_total",
			Help: "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration, m.inFlight,
		m.enrollments, m.payments, m.webhooks, m.mails, m.jobs,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records one observation per request, labelled with the route
// pattern so path parameters do not explode cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Enrollment(outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Payment(purpose, status string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(purpose, status).Inc()
}

func (m *Metrics) Webhook(provider, result string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) Mail(template string, err error) {
	if m == nil {
		return
	}
	m.mails.WithLabelValues(template, result(err)).Inc()
}

func (m *Metrics) Job(name string, err error) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(name, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
