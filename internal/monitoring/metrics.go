// Package monitoring exposes client-side counters for the frame stream and
// an optional local HTTP listener serving them.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Frame kinds, used as the label of FramesTotal.
const (
	KindFragment   = "fragment"
	KindCompletion = "completion"
	KindSignal     = "signal"
	KindPlainText  = "plain_text"
)

// Metrics holds all Prometheus metrics for one client process.
type Metrics struct {
	FramesTotal   *prometheus.CounterVec
	FramesDropped prometheus.Counter
	SendsTotal    prometheus.Counter
	ResetsTotal   prometheus.Counter
	ConnectionUp  prometheus.Gauge
	Messages      prometheus.Gauge
}

// NewMetrics creates a metrics collector registered on reg. Tests pass a
// fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FramesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_frames_total",
				Help: "Total inbound frames decoded, by event kind",
			},
			[]string{"kind"},
		),
		FramesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_frames_dropped_total",
				Help: "Total inbound frames matching no recognized shape",
			},
		),
		SendsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_sends_total",
				Help: "Total user messages transmitted",
			},
		),
		ResetsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chat_resets_total",
				Help: "Total conversation resets",
			},
		),
		ConnectionUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_connection_up",
				Help: "Whether the session connection is open (1) or not (0)",
			},
		),
		Messages: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_messages",
				Help: "Current number of messages in the conversation",
			},
		),
	}
}
