// Package metrics owns the Prometheus registry and the collectors the API
// and background jobs report to.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	PanicsRecovered   prometheus.Counter
	BookingsCreated   prometheus.Counter
	BookingTransition *prometheus.CounterVec
	PaymentsCreated   *prometheus.CounterVec
	PaymentsOrphaned  *prometheus.CounterVec
	WebhooksReceived  *prometheus.CounterVec
	RetryJobs         *prometheus.CounterVec
	Notifications     *prometheus.CounterVec
	JobRuns           *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		PanicsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "http_panics_recovered_total",
			Help: "Total number of HTTP requests recovered from a panic.",
		}),
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings created.",
		}),
		BookingTransition: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_status_transitions_total",
			Help: "Booking status transitions by target status.",
		}, []string{"status"}),
		PaymentsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Payment charges created by method.",
		}, []string{"method"}),
		PaymentsOrphaned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_refund_due_total",
			Help: "Payments settled after their booking was cancelled, by method.",
		}, []string{"method"}),
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Webhook calls by provider and outcome.",
		}, []string{"provider", "result"}),
		RetryJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retry_jobs_total",
			Help: "Retry queue executions by operation and outcome.",
		}, []string{"operation", "result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Notification deliveries by channel and outcome.",
		}, []string{"channel", "result"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job runs by job and outcome.",
		}, []string{"job", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
