package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus series of a Client. A nil *Metrics records
// nothing.
type Metrics struct {
	Calls                *prometheus.CounterVec
	CallDuration         *prometheus.HistogramVec
	PendingRequests      prometheus.Gauge
	ActiveSubscriptions  prometheus.Gauge
	Notifications        *prometheus.CounterVec
	NotificationsDropped *prometheus.CounterVec
	ConnectionState      prometheus.Gauge
}

// NewMetrics registers the series with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry registers the series with registry, or with the
// default registerer when registry is nil.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polkaclient_rpc_calls_total",
			Help: "RPC calls by method and outcome",
		}, []string{"method", "outcome"}),
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "polkaclient_rpc_call_duration_seconds",
			Help:    "Time from sending a request to receiving its response",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		PendingRequests: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polkaclient_rpc_pending_requests",
			Help: "Requests awaiting a response",
		}),
		ActiveSubscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polkaclient_rpc_active_subscriptions",
			Help: "Live subscriptions",
		}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polkaclient_rpc_notifications_total",
			Help: "Notifications delivered to handlers by topic kind",
		}, []string{"topic"}),
		NotificationsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polkaclient_rpc_notifications_dropped_total",
			Help: "Notifications dropped by topic kind and reason",
		}, []string{"topic", "reason"}),
		ConnectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polkaclient_rpc_connection_state",
			Help: "0 disconnected, 1 connecting, 2 connected, 3 closing",
		}),
	}
}

func (m *Metrics) callFinished(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Calls.WithLabelValues(method, outcome).Inc()
	m.CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) pendingAdded(delta float64) {
	if m != nil {
		m.PendingRequests.Add(delta)
	}
}

func (m *Metrics) subscriptionsAdded(delta float64) {
	if m != nil {
		m.ActiveSubscriptions.Add(delta)
	}
}

func (m *Metrics) notificationDelivered(kind TopicKind) {
	if m != nil {
		m.Notifications.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) notificationDropped(kind TopicKind, reason string) {
	if m != nil {
		m.NotificationsDropped.WithLabelValues(string(kind), reason).Inc()
	}
}

func (m *Metrics) stateChanged(s State) {
	if m != nil {
		m.ConnectionState.Set(float64(s))
	}
}
