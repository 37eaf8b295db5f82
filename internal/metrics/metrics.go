package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg              *prometheus.Registry
	OrdersSubmitted  *prometheus.CounterVec
	OrdersDecided    *prometheus.CounterVec
	SubmitLatencySec prometheus.Histogram
	EventsPublished  prometheus.Counter
	EventsFailed     prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iprx_orders_submitted_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	decided := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iprx_orders_decided_total",
		Help: "Approve and reject calls by decision and outcome.",
	}, []string{"decision", "outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "iprx_order_submit_seconds",
		Buckets: prometheus.DefBuckets,
	})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "iprx_events_published_total"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "iprx_events_failed_total"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iprx_http_requests_total",
	}, []string{"method", "route", "status"})

	r.MustRegister(submitted, decided, latency, published, failed, requests)
	return &Registry{
		reg:              r,
		OrdersSubmitted:  submitted,
		OrdersDecided:    decided,
		SubmitLatencySec: latency,
		EventsPublished:  published,
		EventsFailed:     failed,
		HTTPRequests:     requests,
	}
}

func (r *Registry) ObserveSubmission(outcome string, took time.Duration) {
	r.OrdersSubmitted.WithLabelValues(outcome).Inc()
	r.SubmitLatencySec.Observe(took.Seconds())
}

func (r *Registry) ObserveDecision(decision, outcome string) {
	r.OrdersDecided.WithLabelValues(decision, outcome).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
