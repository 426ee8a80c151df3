package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every collector exposed on the agent's /metrics endpoint.
var Registry = prometheus.NewRegistry()

var (
	// LinkLayerUp reports each link layer: 1 = up, 0 = down or connecting.
	LinkLayerUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cpeer_link_layer_up",
			Help: "Whether a link layer (radio, bearer, session) is up (1) or not (0).",
		},
		[]string{"layer"},
	)

	// ReconnectAttemptsTotal counts recovery attempts per layer.
	ReconnectAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpeer_link_reconnect_attempts_total",
			Help: "Total number of link layer recovery attempts.",
		},
		[]string{"layer", "result"}, // result: success/failed
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpeer_commands_total",
			Help: "Total number of inbound commands by decoded kind.",
		},
		[]string{"command"},
	)

	OTAStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cpeer_ota_status_total",
			Help: "Total number of published firmware update and version check outcomes.",
		},
		[]string{"status"},
	)

	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cpeer_heartbeats_total",
			Help: "Total number of heartbeat documents published.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LinkLayerUp,
		ReconnectAttemptsTotal,
		CommandsTotal,
		OTAStatusTotal,
		HeartbeatsTotal,
	)
}

// BoolGauge converts a flag into a gauge value.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
