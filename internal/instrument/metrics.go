// Package instrument exposes the node's runtime counters as
// Prometheus metrics, named meshcore_* following the reference
// codebase's katzenpost_* convention in internal/instrument/
// prometheus.go, but always compiled in rather than gated behind a
// build tag: a resource-constrained node still benefits from a
// scrape-free in-process registry it can otherwise ignore.
package instrument

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the node's Prometheus registry and the gauges/counters
// other packages update as they run.
type Metrics struct {
	Registry *prometheus.Registry

	PacketsSent    *prometheus.CounterVec
	PacketsRecv    *prometheus.CounterVec
	DedupDrops     prometheus.Counter
	ReplayRejects  prometheus.Counter
	ContactFull    prometheus.Counter
	PoolFullEvents prometheus.Counter
	AirtimeUsed    prometheus.Gauge
	QueueDepth     prometheus.Gauge
}

// New builds a fresh registry with every meshcore_* metric registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meshcore_packets_sent_total",
			Help: "Packets transmitted, labeled by route mode.",
		}, []string{"route"}),
		PacketsRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meshcore_packets_recv_total",
			Help: "Packets received, labeled by route mode.",
		}, []string{"route"}),
		DedupDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_dedup_drops_total",
			Help: "Packets suppressed as duplicates of a recently-seen hash.",
		}),
		ReplayRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_replay_rejects_total",
			Help: "Messages dropped for failing the strict-monotone timestamp check.",
		}),
		ContactFull: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_contact_table_full_total",
			Help: "Attempts to add a contact while the table was at capacity.",
		}),
		PoolFullEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_pool_full_events_total",
			Help: "Packet pool allocations that failed because no slot was free.",
		}),
		AirtimeUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_airtime_utilization_ratio",
			Help: "Cumulative transmit airtime divided by uptime.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_tx_queue_depth",
			Help: "Packets currently queued for transmission.",
		}),
	}

	reg.MustRegister(m.PacketsSent, m.PacketsRecv, m.DedupDrops, m.ReplayRejects,
		m.ContactFull, m.PoolFullEvents, m.AirtimeUsed, m.QueueDepth)
	return m
}

// Sample updates the gauges from a router/pool snapshot. Called once
// per Mesh.Loop iteration; cheap enough not to need its own ticker.
func (m *Metrics) Sample(totalAirTimeMillis uint64, uptimeMillis uint32, queueLen int) {
	if uptimeMillis > 0 {
		m.AirtimeUsed.Set(float64(totalAirTimeMillis) / float64(uptimeMillis))
	}
	m.QueueDepth.Set(float64(queueLen))
}
