package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
type Metrics struct {
	// Workflow actions by action id and result (ok, illegal, precondition, conflict, structural, error)
	ActionsTotal *prometheus.CounterVec

	// Duration of a full ProcessAction call including commit
	ActionLatency prometheus.Histogram

	// Ledger rows written by event type
	LedgerRowsTotal *prometheus.CounterVec

	// Redelivered facts that collapsed onto an existing ledger row
	LedgerDuplicatesTotal prometheus.Counter

	// Change facts emitted by entity
	ChangeFactsTotal *prometheus.CounterVec

	// Notification failures by channel
	NotificationFailuresTotal *prometheus.CounterVec

	// Stage reconciliation jobs by result (done, failed)
	ReconcileJobsTotal *prometheus.CounterVec
}

// New registers the engine metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ip_tracking_workflow_actions_total",
			Help: "Workflow actions processed by action and result",
		}, []string{"action", "result"}),

		ActionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ip_tracking_workflow_action_duration_seconds",
			Help:    "Duration of workflow actions including the transaction commit",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LedgerRowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ip_tracking_ledger_rows_total",
			Help: "Tracking history rows appended by event type",
		}, []string{"event_type"}),

		LedgerDuplicatesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ip_tracking_ledger_duplicates_total",
			Help: "Redelivered facts skipped by the ledger",
		}),

		ChangeFactsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ip_tracking_change_facts_total",
			Help: "Change facts observed on watched entities",
		}, []string{"entity"}),

		NotificationFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ip_tracking_notification_failures_total",
			Help: "Notification deliveries that failed, by channel",
		}, []string{"channel"}),

		ReconcileJobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ip_tracking_stage_reconcile_jobs_total",
			Help: "Stage reconciliation jobs processed by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementAction(action, result string) {
	if m != nil {
		m.ActionsTotal.WithLabelValues(action, result).Inc()
	}
}

func (m *Metrics) ObserveActionLatency(d time.Duration) {
	if m != nil {
		m.ActionLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementLedgerRow(eventType string) {
	if m != nil {
		m.LedgerRowsTotal.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementLedgerDuplicate() {
	if m != nil {
		m.LedgerDuplicatesTotal.Inc()
	}
}

func (m *Metrics) IncrementChangeFact(entity string) {
	if m != nil {
		m.ChangeFactsTotal.WithLabelValues(entity).Inc()
	}
}

func (m *Metrics) IncrementNotificationFailure(channel string) {
	if m != nil {
		m.NotificationFailuresTotal.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncrementReconcileJob(result string) {
	if m != nil {
		m.ReconcileJobsTotal.WithLabelValues(result).Inc()
	}
}
