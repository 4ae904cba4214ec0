package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus metrics.
type Metrics struct {
	CasesCreated      prometheus.Counter
	CaseTransitions   *prometheus.CounterVec
	TransitionFailed  *prometheus.CounterVec
	AssignmentsTotal  prometheus.Counter
	AssignmentsFailed prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CasesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgate_cases_created_total",
			Help: "Total number of cases received at intake",
		}),
		CaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_case_transitions_total",
			Help: "Case status transitions by resulting status",
		}, []string{"status"}),
		TransitionFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "docgate_case_transition_failures_total",
			Help: "Rejected case transitions by failure kind",
		}, []string{"reason"}),
		AssignmentsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgate_assignments_total",
			Help: "Total number of round-robin assignments",
		}),
		AssignmentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "docgate_assignments_failed_total",
			Help: "Assignments that failed because no handler was active",
		}),
	}
}

// IncrementTransition records a completed transition into the given status.
func (m *Metrics) IncrementTransition(status string) {
	if m == nil {
		return
	}
	m.CaseTransitions.WithLabelValues(status).Inc()
}

// IncrementTransitionFailure records a guard or concurrency failure.
func (m *Metrics) IncrementTransitionFailure(reason string) {
	if m == nil {
		return
	}
	m.TransitionFailed.WithLabelValues(reason).Inc()
}
