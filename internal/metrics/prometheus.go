package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Register exposes g on reg as counters labeled with the gateway name.
// The counters read the atomic values at scrape time.
func (g *Gateway) Register(reg prometheus.Registerer, namespace, gateway string) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := prometheus.Labels{"gateway": gateway}

	counter := func(name, help string, c *Counter) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, func() float64 { return float64(c.Load()) })
	}

	collectors := []prometheus.Collector{
		counter("gateway_requests_total", "Requests sent to the payment gateway.", &g.Requests),
		counter("gateway_failures_total", "Gateway requests that failed or returned a non-2xx status.", &g.Failures),
		counter("gateway_auth_refreshes_total", "Successful gateway token acquisitions.", &g.AuthRefreshes),
		counter("gateway_mock_responses_total", "Status checks answered by mock mode.", &g.MockResponses),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "gateway_request_duration_seconds_total",
			Help:        "Cumulative time spent waiting on the payment gateway.",
			ConstLabels: labels,
		}, func() float64 { return float64(g.latency.Load()) / 1e6 }),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
