package monitoring

import (
	"medrelay/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge

	connectionsTotal prometheus.Counter
	roomsTotal       prometheus.Counter
	joinsTotal       prometheus.Counter
	leavesTotal      prometheus.Counter

	messagesRelayedTotal *prometheus.CounterVec
	errorsTotal          *prometheus.CounterVec

	fanoutSize prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "medrelay_connections_active",
			Help: "Number of currently connected signaling clients",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "medrelay_rooms_active",
			Help: "Number of rooms currently present in the directory",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medrelay_connections_total",
			Help: "Total number of signaling connections accepted",
		}),

		roomsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medrelay_rooms_created_total",
			Help: "Total number of rooms created",
		}),

		joinsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medrelay_room_joins_total",
			Help: "Total number of room joins",
		}),

		leavesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medrelay_room_leaves_total",
			Help: "Total number of room leaves, explicit or by disconnect",
		}),

		messagesRelayedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medrelay_messages_relayed_total",
			Help: "Total number of signaling messages relayed, by type",
		}, []string{"type"}),

		errorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medrelay_errors_total",
			Help: "Total number of per-message errors reported to senders, by code",
		}, []string{"code"}),

		fanoutSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medrelay_broadcast_fanout_size",
			Help:    "Number of recipients per broadcast message",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
	}
}

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RoomCreated() {
	p.roomsActive.Inc()
	p.roomsTotal.Inc()
}

func (p *PrometheusCollector) RoomDestroyed() {
	p.roomsActive.Dec()
}

func (p *PrometheusCollector) MemberJoined() {
	p.joinsTotal.Inc()
}

func (p *PrometheusCollector) MemberLeft() {
	p.leavesTotal.Inc()
}

func (p *PrometheusCollector) MessageRelayed(messageType string, fanout int) {
	p.messagesRelayedTotal.WithLabelValues(messageType).Inc()
	p.fanoutSize.Observe(float64(fanout))
}

func (p *PrometheusCollector) ErrorReported(code string) {
	p.errorsTotal.WithLabelValues(code).Inc()
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)
