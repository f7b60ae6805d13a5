package bookkeeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/logfields"
)

const metricNamespace = "prkeeper"

const pullsProcessedMetricName = "pulls_processed_total"

const resultLabel = "result"

type resultLabelVal string

const (
	resultLabelInSyncVal     resultLabelVal = "in_sync"
	resultLabelReconciledVal resultLabelVal = "reconciled"
	resultLabelFilteredVal   resultLabelVal = "filtered"
	resultLabelSkippedVal    resultLabelVal = "skipped"
	resultLabelFailedVal     resultLabelVal = "failed"
)

type metricCollector struct {
	logger         *zap.Logger
	pullsProcessed *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		pullsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      pullsProcessedMetricName,
				Help:      "count of pull requests processed by a bookkeeping pass",
			},
			[]string{resultLabel},
		),
	}
}

func (m *metricCollector) PullsProcessedInc(result resultLabelVal) {
	cnt, err := m.pullsProcessed.GetMetricWith(prometheus.Labels{resultLabel: string(result)})
	if err != nil {
		m.logger.Warn(
			"could not record metric",
			zap.String("metric", pullsProcessedMetricName),
			logfields.Event("recording_metric_failed"),
			zap.Error(err),
		)
		return
	}

	cnt.Inc()
}
