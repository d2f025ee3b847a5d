package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoca-dev/Tomo-web/pkg/metrics"
)

// Metrics counts conversation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	updates         *prometheus.CounterVec
	ordersCreated   prometheus.Counter
	ordersCompleted prometheus.Counter
	orderFailures   *prometheus.CounterVec
}

func NewMetrics(reg *metrics.Registry) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tomoca_bot",
			Name:      "updates_total",
			Help:      "Inbound Telegram updates by kind.",
		}, []string{"kind"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tomoca_bot",
			Name:      "orders_created_total",
			Help:      "Orders created through the bot.",
		}),
		ordersCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tomoca_bot",
			Name:      "orders_completed_total",
			Help:      "Confirmed orders that received a delivery address.",
		}),
		orderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tomoca_bot",
			Name:      "order_failures_total",
			Help:      "Failed order writes by stage.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.updates, m.ordersCreated, m.ordersCompleted, m.orderFailures)
	return m
}

func (m *Metrics) update(kind string) {
	if m != nil {
		m.updates.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) orderCreated() {
	if m != nil {
		m.ordersCreated.Inc()
	}
}

func (m *Metrics) orderCompleted() {
	if m != nil {
		m.ordersCompleted.Inc()
	}
}

func (m *Metrics) orderFailed(stage string) {
	if m != nil {
		m.orderFailures.WithLabelValues(stage).Inc()
	}
}
