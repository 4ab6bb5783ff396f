package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 世界运行期关键指标，经 /metrics 以 Prometheus 格式输出
type Metrics struct {
	TicksTotal      prometheus.Counter
	BroadcastsTotal prometheus.Counter
	InputsTotal     prometheus.Counter
	DroppedTotal    *prometheus.CounterVec
	PlayersOnline   prometheus.Gauge
	TickDuration    prometheus.Histogram
}

// 丢弃原因标签取值
const (
	DropMalformed    = "malformed"
	DropUnknownType  = "unknown_type"
	DropStaleID      = "stale_id"
	DropBackpressure = "backpressure"
)

// NewMetrics 在给定注册表上构建全部指标（namespace 固定为 pixelarena）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pixelarena",
			Name:      "ticks_total",
			Help:      "Simulation ticks advanced.",
		}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pixelarena",
			Name:      "broadcasts_total",
			Help:      "Snapshot broadcast cycles completed.",
		}),
		InputsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pixelarena",
			Name:      "inputs_applied_total",
			Help:      "Input messages applied to a live entity.",
		}),
		DroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixelarena",
			Name:      "messages_dropped_total",
			Help:      "Messages dropped, by reason.",
		}, []string{"reason"}),
		PlayersOnline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "pixelarena",
			Name:      "players_online",
			Help:      "Entities currently registered.",
		}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pixelarena",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent advancing one tick.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Dropped 按原因累计一条被丢弃的消息
func (m *Metrics) Dropped(reason string) {
	m.DroppedTotal.WithLabelValues(reason).Inc()
}
