package network

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/netsim/internal/logging"
)

// ServerMetrics exposes the server's tick loop and connection state as
// Prometheus gauges/histograms, one namespace/subsystem pair per
// exporter.
type ServerMetrics struct {
	tickDuration      prometheus.Histogram
	connectedClients  prometheus.Gauge
	clientHealth      *prometheus.GaugeVec
	commandsPerTick   prometheus.Histogram
}

// NewServerMetrics builds and registers the server's metrics. Safe to
// call once per process; a second registration panics, matching
// prometheus.MustRegister's contract.
func NewServerMetrics() *ServerMetrics {
	m := &ServerMetrics{
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netsim",
			Subsystem: "server",
			Name:      "tick_duration_seconds",
			Help:      "Wall time spent executing one simulation tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netsim",
			Subsystem: "server",
			Name:      "connected_clients",
			Help:      "Number of clients currently connected.",
		}),
		clientHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netsim",
			Subsystem: "server",
			Name:      "client_health",
			Help:      "Frames of slack a client currently has (see server health accounting).",
		}, []string{"client_id"}),
		commandsPerTick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "netsim",
			Subsystem: "server",
			Name:      "commands_per_tick",
			Help:      "Number of commands folded into a single tick.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
	prometheus.MustRegister(m.tickDuration, m.connectedClients, m.clientHealth, m.commandsPerTick)
	return m
}

// StartHTTP serves /metrics on addr in a background goroutine.
func (m *ServerMetrics) StartHTTP(addr string, logger *logging.Logger) {
	go func() {
		logger.Info("metrics endpoint listening on %s", addr)
		if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
			logger.Error("metrics server stopped: %v", err)
		}
	}()
}
