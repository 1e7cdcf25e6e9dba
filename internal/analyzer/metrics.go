package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the analyzer gateway the way escrow's gate instruments
// its signal pipeline: one histogram per call shape, one counter for the
// failure path operators actually care about paging on.
type Metrics struct {
	CallDuration *prometheus.HistogramVec
	Respawns     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analyzer_call_duration_seconds",
			Help:    "Latency of UCI analyzer gateway calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation"}),
		Respawns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_respawns_total",
			Help: "Number of times the analyzer subprocess was respawned after termination.",
		}, []string{"reason"}),
	}
}
