package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Gateway counts traffic to one remote payment gateway.
type Gateway struct {
	Requests      Counter
	Failures      Counter
	AuthRefreshes Counter
	MockResponses Counter
	// latency is the cumulative request duration in microseconds.
	latency Counter
}

func (g *Gateway) Observe(t *Timer) {
	g.latency.Add(uint64(t.Duration().Microseconds()))
}

type GatewaySnapshot struct {
	Requests        uint64 `json:"requests"`
	Failures        uint64 `json:"failures"`
	AuthRefreshes   uint64 `json:"auth_refreshes"`
	MockResponses   uint64 `json:"mock_responses"`
	AvgLatencyMicro uint64 `json:"avg_latency_us"`
}

func (g *Gateway) Snapshot() GatewaySnapshot {
	s := GatewaySnapshot{
		Requests:      g.Requests.Load(),
		Failures:      g.Failures.Load(),
		AuthRefreshes: g.AuthRefreshes.Load(),
		MockResponses: g.MockResponses.Load(),
	}
	if s.Requests > 0 {
		s.AvgLatencyMicro = g.latency.Load() / s.Requests
	}
	return s
}
