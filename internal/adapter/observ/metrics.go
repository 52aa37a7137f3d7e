package observ

import (
	"time"

	"github.com/aq2208/gstore-api/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gstore_http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	checkoutOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_checkout_outcomes_total",
			Help: "Checkout attempts by path (gateway|direct) and outcome",
		},
		[]string{"path", "outcome"},
	)

	ordersCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_orders_completed_total",
			Help: "Orders moved to COMPLETED",
		},
		[]string{"path"},
	)

	revenue = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_orders_revenue_total",
			Help: "Sum of completed order totals",
		},
		[]string{"path"},
	)

	outboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_outbox_published_total",
			Help: "Outbox records handed to the broker, by topic and result",
		},
		[]string{"topic", "result"},
	)

	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gstore_events_consumed_total",
			Help: "Broker messages consumed, by source and result",
		},
		[]string{"source", "result"},
	)
)

func ObserveHTTP(method, path, status string, d time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(float64(d.Milliseconds()))
}

// OutboxPublished matches usecase.OutboxRelay.OnPublish.
func OutboxPublished(topic string, err error) {
	outboxPublished.WithLabelValues(topic, result(err)).Inc()
}

func EventConsumed(source string, err error) {
	eventsConsumed.WithLabelValues(source, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Recorder feeds checkout outcomes into Prometheus.
type Recorder struct{}

func (Recorder) CheckoutOutcome(path, outcome string) {
	checkoutOutcomes.WithLabelValues(path, outcome).Inc()
}

func (Recorder) OrderCompleted(path string, total decimal.Decimal) {
	ordersCompleted.WithLabelValues(path).Inc()
	revenue.WithLabelValues(path).Add(total.InexactFloat64())
}

var _ usecase.Recorder = Recorder{}
