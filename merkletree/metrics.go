package merkletree

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registerer is the prometheus.Registerer instrumentation registers
// against. It defaults to prometheus.DefaultRegisterer but tests may swap
// it for a fresh prometheus.NewRegistry(), the pattern trillian's internal
// instrumentation uses to avoid cross-test metric collisions.
var Registerer prometheus.Registerer = prometheus.DefaultRegisterer

var (
	buildNodesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dapol_build_nodes_total",
		Help: "Total number of tree nodes constructed across all builds.",
	})
	buildDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dapol_build_duration_seconds",
		Help:    "Wall-clock duration of BuildTree calls.",
		Buckets: prometheus.DefBuckets,
	})
	proofRecomputeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dapol_proof_recompute_total",
		Help: "Number of sibling subtrees recomputed during proof generation because they were not retained in the store.",
	})
)

func init() {
	Registerer.MustRegister(buildNodesTotal, buildDurationSeconds, proofRecomputeTotal)
}
