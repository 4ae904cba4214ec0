// Package metrics exposes prometheus counters for the validation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EvaluationsTotal  prometheus.Counter
	EvaluationsFailed prometheus.Counter
	VerdictsByOutcome *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgate_evaluations_total",
			Help: "Number of case evaluations run.",
		}),
		EvaluationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgate_evaluations_failed_total",
			Help: "Number of case evaluations that errored before producing a verdict.",
		}),
		VerdictsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_verdicts_total",
			Help: "Number of verdicts produced, by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordVerdict counts a produced verdict by validity.
func (m *Metrics) RecordVerdict(valid bool) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.VerdictsByOutcome.WithLabelValues(outcome).Inc()
}

// RecordEvaluation counts one evaluation attempt.
func (m *Metrics) RecordEvaluation(err error) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.Inc()
	if err != nil {
		m.EvaluationsFailed.Inc()
	}
}
