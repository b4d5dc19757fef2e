// Package metrics holds the Prometheus collectors of the marketplace. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	transitions          *prometheus.CounterVec
	transitionFailures   *prometheus.CounterVec
	ordersCreated        *prometheus.CounterVec
	checkouts            prometheus.Counter
	fulfilmentTime       prometheus.Histogram
	notificationsDropped *prometheus.CounterVec
	notificationsFailed  *prometheus.CounterVec
}

// New creates the collectors and registers them, with the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_transitions_total",
				Help: "Order status transitions applied, by action and resulting status",
			},
			[]string{"action", "status"},
		),
		transitionFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_transition_failures_total",
				Help: "Order transitions refused, by action and error kind",
			},
			[]string{"action", "kind"},
		),
		ordersCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Orders placed, by origin",
			},
			[]string{"source"},
		),
		checkouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cart_checkouts_total",
				Help: "Successful cart checkouts",
			},
		),
		fulfilmentTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "order_fulfilment_seconds",
				Help:    "Time from order placement to delivery",
				Buckets: prometheus.LinearBuckets(0, 300, 20), // 5-minute buckets
			},
		),
		notificationsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_dropped_total",
				Help: "Notifications discarded because the dispatch queue was full",
			},
			[]string{"kind"},
		),
		notificationsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_failed_total",
				Help: "Notifications a sink failed to deliver",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.transitionFailures,
		m.ordersCreated,
		m.checkouts,
		m.fulfilmentTime,
		m.notificationsDropped,
		m.notificationsFailed,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Transition(action, status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, status).Inc()
}

func (m *Metrics) TransitionFailed(action, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "internal"
	}
	m.transitionFailures.WithLabelValues(action, kind).Inc()
}

func (m *Metrics) OrdersCreated(source string, n int) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) Checkout() {
	if m == nil {
		return
	}
	m.checkouts.Inc()
}

// Delivered observes how long an order took from placement to delivery.
func (m *Metrics) Delivered(placed, delivered time.Time) {
	if m == nil {
		return
	}
	m.fulfilmentTime.Observe(delivered.Sub(placed).Seconds())
}

func (m *Metrics) NotificationDropped(kind string) {
	if m == nil {
		return
	}
	m.notificationsDropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) NotificationFailed(kind string) {
	if m == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(kind).Inc()
}
