package action

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/simplesurance/prkeeper/internal/logfields"
)

const metricNamespace = "prkeeper"

const (
	actionsMetricName        = "actions_total"
	actionFailuresMetricName = "action_failures_total"
)

const (
	actionLabel = "action"
	dryRunLabel = "dry_run"
)

type metricCollector struct {
	logger         *zap.Logger
	actions        *prometheus.CounterVec
	actionFailures *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		logger: zap.L().Named(loggerName).Named("metrics"),
		actions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      actionsMetricName,
				Help:      "count of applied or simulated pull request mutations",
			},
			[]string{actionLabel, dryRunLabel},
		),
		actionFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      actionFailuresMetricName,
				Help:      "count of pull request mutations that failed",
			},
			[]string{actionLabel},
		),
	}
}

func (m *metricCollector) logGetMetricFailed(metricName string, err error) {
	m.logger.Warn(
		"could not record metric",
		zap.String("metric", metricName),
		logfields.Event("recording_metric_failed"),
		zap.Error(err),
	)
}

func (m *metricCollector) ActionsInc(kind Kind, dryRun bool) {
	cnt, err := m.actions.GetMetricWith(prometheus.Labels{
		actionLabel: string(kind),
		dryRunLabel: strconv.FormatBool(dryRun),
	})
	if err != nil {
		m.logGetMetricFailed(actionsMetricName, err)
		return
	}

	cnt.Inc()
}

func (m *metricCollector) ActionFailuresInc(kind Kind) {
	cnt, err := m.actionFailures.GetMetricWith(prometheus.Labels{actionLabel: string(kind)})
	if err != nil {
		m.logGetMetricFailed(actionFailuresMetricName, err)
		return
	}

	cnt.Inc()
}
