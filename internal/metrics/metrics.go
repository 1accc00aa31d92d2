package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "event_portal"

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// RealtimeConnections is the number of open websocket clients.
	RealtimeConnections = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_connections",
			Help:      "Number of connected real-time clients",
		},
	)

	// RealtimeDropped counts messages not delivered because a buffer was full.
	RealtimeDropped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_dropped_messages_total",
			Help:      "Total number of real-time messages dropped",
		},
	)

	// CountersRepaired counts events whose participant counter was recomputed
	// by the reconciler because it had drifted.
	CountersRepaired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_counters_repaired_total",
			Help:      "Total number of drifted participant counters repaired",
		},
	)

	// AuthThrottled counts register and login attempts refused by the limiter.
	AuthThrottled = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_throttled_total",
			Help:      "Total number of authentication attempts refused by the rate limiter",
		},
	)
)

var initOnce sync.Once

// Init registers the Go runtime and process collectors.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
