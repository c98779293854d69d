package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records rule-engine activity: evaluations, conflict
// rejections, and snapshot reloads.
type EngineMetrics struct {
	evalDuration *prometheus.HistogramVec
	evaluations  *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	reloads      prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	evalDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "discount_evaluation_duration_seconds",
		Help:    "Duration of discount evaluations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "discount_evaluations_total",
		Help: "Discount evaluations by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_conflicts_rejected_total",
		Help: "Catalog mutations rejected for overlapping windows.",
	}, []string{"catalog"})
	reloads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_snapshot_reloads_total",
		Help: "Catalog snapshot reloads.",
	})
	reg.MustRegister(evalDuration, evaluations, conflicts, reloads)
	return &EngineMetrics{
		evalDuration: evalDuration,
		evaluations:  evaluations,
		conflicts:    conflicts,
		reloads:      reloads,
	}
}

// ObserveEvaluation records one evaluation with its outcome.
func (m *EngineMetrics) ObserveEvaluation(outcome string, duration time.Duration) {
	if m == nil || m.evalDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.evalDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.evaluations.WithLabelValues(label).Inc()
}

// IncConflict counts a rejected mutation for the named catalog.
func (m *EngineMetrics) IncConflict(catalog string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(catalog)).Inc()
}

// IncSnapshotReload counts a snapshot rebuild.
func (m *EngineMetrics) IncSnapshotReload() {
	if m == nil || m.reloads == nil {
		return
	}
	m.reloads.Inc()
}

func normalizeLabel(value string) string {
	label := strings.TrimSpace(strings.ToLower(value))
	if label == "" {
		return "unknown"
	}
	return strings.ReplaceAll(label, " ", "_")
}
