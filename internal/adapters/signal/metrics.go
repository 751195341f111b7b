package signal

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Peers    prometheus.Gauge
	Messages *prometheus.CounterVec
	Dropped  *prometheus.CounterVec
}

// NewMetrics registers the broker's collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "meet",
			Subsystem: "signal",
			Name:      "peers",
			Help:      "Connected signaling peers.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "signal",
			Name:      "messages_total",
			Help:      "Signaling messages received, by type.",
		}, []string{"type"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "signal",
			Name:      "dropped_total",
			Help:      "Messages not relayed, by reason.",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.Peers, m.Messages, m.Dropped)
	return m
}
