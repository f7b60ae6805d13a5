package mergeability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "prkeeper"

type metricCollector struct {
	pollIterations prometheus.Counter
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		pollIterations: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      "mergeability_poll_iterations_total",
				Help:      "count of iterations waiting for github to compute the mergeability of pull requests",
			},
		),
	}
}

func (m *metricCollector) PollIterationsInc() {
	m.pollIterations.Inc()
}
