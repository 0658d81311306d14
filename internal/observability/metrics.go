package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pizzeria"

// Metrics holds the Prometheus collectors for the service. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorTotal      *prometheus.CounterVec

	ordersPlaced      prometheus.Counter
	ordersCancelled   prometheus.Counter
	paymentsTotal     *prometheus.CounterVec
	promotionsApplied prometheus.Counter
	loyaltyPoints     *prometheus.CounterVec
	stockLow          prometheus.Counter
	wsConnections     prometheus.Gauge
	notifications     *prometheus.CounterVec
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error responses by code.",
		}, []string{"method", "path", "code"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders successfully placed.",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "cancelled_total",
			Help:      "Orders cancelled.",
		}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "payments",
			Name:      "total",
			Help:      "Payment outcomes.",
		}, []string{"status"}),
		promotionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "promotions",
			Name:      "applied_total",
			Help:      "Promotion codes applied to orders.",
		}),
		loyaltyPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loyalty",
			Name:      "points_total",
			Help:      "Loyalty points earned or redeemed.",
		}, []string{"direction"}),
		stockLow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "low_stock_alerts_total",
			Help:      "Components that crossed their low stock threshold.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "ws_connections",
			Help:      "Open notification websocket connections.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notifications persisted by type.",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestTotal,
		m.requestDuration,
		m.errorTotal,
		m.ordersPlaced,
		m.ordersCancelled,
		m.paymentsTotal,
		m.promotionsApplied,
		m.loyaltyPoints,
		m.stockLow,
		m.wsConnections,
		m.notifications,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) OrderPlaced() {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *Metrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.ordersCancelled.Inc()
}

func (m *Metrics) PaymentRecorded(status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) PromotionApplied() {
	if m == nil {
		return
	}
	m.promotionsApplied.Inc()
}

func (m *Metrics) PointsEarned(points int) {
	if m == nil || points <= 0 {
		return
	}
	m.loyaltyPoints.WithLabelValues("earned").Add(float64(points))
}

func (m *Metrics) PointsRedeemed(points int) {
	if m == nil || points <= 0 {
		return
	}
	m.loyaltyPoints.WithLabelValues("redeemed").Add(float64(points))
}

func (m *Metrics) LowStock(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.stockLow.Add(float64(count))
}

func (m *Metrics) NotificationSent(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// ConnectionOpened and ConnectionClosed track the websocket gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}
