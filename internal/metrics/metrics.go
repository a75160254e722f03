// Package metrics содержит Prometheus-метрики сервиса.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "drinkbar"

// Метки исходов оформления заказа.
const (
	OutcomeAdmitted          = "admitted"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeAgeRestricted     = "age_restricted"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

// Metrics набор коллекторов сервиса на собственном реестре.
type Metrics struct {
	registry *prometheus.Registry

	OrderAdmissions    *prometheus.CounterVec
	PaymentTransitions *prometheus.CounterVec
	OrderDeletions     prometheus.Counter
	HTTPDuration       *prometheus.HistogramVec
}

// New регистрирует коллекторы в новом реестре.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		OrderAdmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_admissions_total",
			Help:      "Order admission decisions by outcome.",
		}, []string{"outcome"}),
		PaymentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_transitions_total",
			Help:      "Payment lifecycle transitions by resulting status.",
		}, []string{"status"}),
		OrderDeletions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_deletions_total",
			Help:      "Orders soft-deleted by administrators.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	m.registry.MustRegister(
		m.OrderAdmissions,
		m.PaymentTransitions,
		m.OrderDeletions,
		m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
