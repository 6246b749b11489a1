package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Reconcile outcome labels.
const (
	ReconcileResultApplied       = "applied"
	ReconcileResultDuplicate     = "duplicate"
	ReconcileResultSuperseded    = "superseded"
	ReconcileResultUnknownIntent = "unknown_intent"
	ReconcileResultError         = "error"
)

// ReconcileMetrics records webhook reconciliation outcomes.
type ReconcileMetrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	orphans  prometheus.Counter
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_events_total",
		Help: "Gateway events processed by the reconciler, by outcome.",
	}, []string{"result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_apply_duration_seconds",
		Help:    "Duration of reconciler apply calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orphaned_intents_total",
		Help: "Gateway intents created but never attached to a bill.",
	})
	reg.MustRegister(events, duration, orphans)
	return &ReconcileMetrics{
		events:   events,
		duration: duration,
		orphans:  orphans,
	}
}

// ObserveApply records one reconciler apply call.
func (m *ReconcileMetrics) ObserveApply(result string, elapsed time.Duration) {
	if m == nil || m.events == nil {
		return
	}
	label := normalizeLabel(result)
	m.events.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

// IncOrphanedIntent counts an intent that exists at the gateway without a bill.
func (m *ReconcileMetrics) IncOrphanedIntent() {
	if m == nil || m.orphans == nil {
		return
	}
	m.orphans.Inc()
}
