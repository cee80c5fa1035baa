package ring

import (
	"sync/atomic"
	"time"
)

// RoutingMetrics captures runtime find_successor routing statistics,
// returned by Node.Metrics.
type RoutingMetrics struct {
	LocalHitCount             uint64  `json:"local_hits"`
	ForwardedCount            uint64  `json:"forwarded"`
	ForwardFailureCount       uint64  `json:"forward_failures"`
	AvgLocalHitLatencyMs      float64 `json:"avg_local_hit_ms"`
	AvgForwardedLatencyMs     float64 `json:"avg_forwarded_ms"`
	AvgForwardFailureLatency  float64 `json:"avg_forward_failure_ms"`
}

// routingStats tracks find_successor instrumentation: whether a lookup
// resolved in this node's own successor arc or had to hop to a peer.
type routingStats struct {
	localHitCount       atomic.Uint64
	forwardedCount      atomic.Uint64
	forwardFailureCount atomic.Uint64

	localHitLatency       atomic.Int64
	forwardedLatency      atomic.Int64
	forwardFailureLatency atomic.Int64
}

func newRoutingStats() *routingStats {
	return &routingStats{}
}

func (s *routingStats) observeLocalHit(d time.Duration) {
	s.localHitCount.Add(1)
	s.localHitLatency.Add(d.Nanoseconds())
}

func (s *routingStats) observeForwarded(d time.Duration) {
	s.forwardedCount.Add(1)
	s.forwardedLatency.Add(d.Nanoseconds())
}

func (s *routingStats) observeForwardFailure(d time.Duration) {
	s.forwardFailureCount.Add(1)
	s.forwardFailureLatency.Add(d.Nanoseconds())
}

func (s *routingStats) snapshot() RoutingMetrics {
	return RoutingMetrics{
		LocalHitCount:            s.localHitCount.Load(),
		ForwardedCount:           s.forwardedCount.Load(),
		ForwardFailureCount:      s.forwardFailureCount.Load(),
		AvgLocalHitLatencyMs:     avgMillis(s.localHitLatency.Load(), s.localHitCount.Load()),
		AvgForwardedLatencyMs:    avgMillis(s.forwardedLatency.Load(), s.forwardedCount.Load()),
		AvgForwardFailureLatency: avgMillis(s.forwardFailureLatency.Load(), s.forwardFailureCount.Load()),
	}
}

func avgMillis(totalNano int64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNano) / float64(count) / 1e6
}
