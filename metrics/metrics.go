// Package metrics registers the Prometheus instruments every subsystem
// reports through.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every counter/gauge the hub updates. Construct one with
// New and call prometheus.MustRegister-backed Register() once at startup.
type Registry struct {
	ActiveListeners prometheus.Gauge
	ActiveDrones    prometheus.Gauge

	PortsProbedTotal    *prometheus.CounterVec
	BroadcastFramesTotal *prometheus.CounterVec
	PersistBatchTotal    *prometheus.CounterVec
	PersistBatchSize     prometheus.Gauge
}

// New constructs every instrument, unregistered.
func New() *Registry {
	return &Registry{
		ActiveListeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_listeners",
			Help: "Number of ports currently bound by a Listener.",
		}),
		ActiveDrones: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_drones",
			Help: "Number of drone states within the stale threshold.",
		}),
		PortsProbedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ports_probed_total",
			Help: "Total port probes, labeled by outcome.",
		}, []string{"result"}),
		BroadcastFramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_frames_total",
			Help: "Total WebSocket frames emitted, labeled by session filter kind.",
		}, []string{"filter"}),
		PersistBatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persist_batch_total",
			Help: "Total persistence batch flushes, labeled by outcome.",
		}, []string{"outcome"}),
		PersistBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "persist_batch_size",
			Help: "Size of the most recent persistence batch.",
		}),
	}
}

// Register wires every instrument into the default registry. Panics on a
// duplicate registration, matching prometheus.MustRegister's contract.
func (r *Registry) Register() {
	prometheus.MustRegister(
		r.ActiveListeners,
		r.ActiveDrones,
		r.PortsProbedTotal,
		r.BroadcastFramesTotal,
		r.PersistBatchTotal,
		r.PersistBatchSize,
	)
}
