package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersUseInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncrementAction("submit", "ok")
	m.IncrementAction("submit", "ok")
	m.IncrementLedgerRow("stage_transition")
	m.IncrementNotificationFailure("mail")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActionsTotal.WithLabelValues("submit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerRowsTotal.WithLabelValues("stage_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationFailuresTotal.WithLabelValues("mail")))

	// A second engine on a fresh registry must not collide.
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}

func TestNilMetricsIsANoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementAction("submit", "ok")
		m.IncrementLedgerRow("status_change")
		m.IncrementLedgerDuplicate()
		m.IncrementChangeFact("submission")
		m.IncrementNotificationFailure("mail")
		m.IncrementReconcileJob("done")
	})
}
