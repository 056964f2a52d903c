package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Concurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	c.Add(5)

	assert.Equal(t, uint64(55), c.Load())
}

func TestTimer_Duration(t *testing.T) {
	timer := StartTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 2*time.Millisecond)
}

func TestGateway_Snapshot(t *testing.T) {
	var g Gateway
	assert.Equal(t, GatewaySnapshot{}, g.Snapshot())

	g.Requests.Inc()
	g.Requests.Inc()
	g.Failures.Inc()
	g.AuthRefreshes.Inc()
	g.latency.Add(300)

	s := g.Snapshot()
	assert.Equal(t, uint64(2), s.Requests)
	assert.Equal(t, uint64(1), s.Failures)
	assert.Equal(t, uint64(1), s.AuthRefreshes)
	assert.Equal(t, uint64(0), s.MockResponses)
	assert.Equal(t, uint64(150), s.AvgLatencyMicro)
}
