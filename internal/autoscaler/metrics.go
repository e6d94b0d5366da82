package autoscaler

import "github.com/prometheus/client_golang/prometheus"

const (
	tickScaled  = "scaled"
	tickIdle    = "idle"
	tickGuarded = "guarded"
	tickBusy    = "busy"
	tickStale   = "stale"
	tickError   = "error"
)

var (
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbcluster",
			Subsystem: "autoscaler",
			Name:      "ticks_total",
			Help:      "Total number of autoscaler ticks by result",
		},
		[]string{"result"},
	)

	avgConnectionsPerNode = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dbcluster",
			Subsystem: "autoscaler",
			Name:      "avg_connections_per_node",
			Help:      "Average connections per worker at the last tick",
		},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal, avgConnectionsPerNode)
}

func (a *Autoscaler) recordTick(result string) {
	if a.enableMetrics {
		ticksTotal.WithLabelValues(result).Inc()
	}
}

func (a *Autoscaler) recordAvgConnections(avg float64) {
	if a.enableMetrics {
		avgConnectionsPerNode.Set(avg)
	}
}
