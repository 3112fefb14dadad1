package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the model planner.
type Metrics struct {
	PlanBuildTotal       *prometheus.CounterVec
	PlanBuildDurationMs  *prometheus.HistogramVec
	PolicyRejectionTotal *prometheus.CounterVec
	PreferenceOpTotal    *prometheus.CounterVec
	ChainResolutionTotal *prometheus.CounterVec
	RateLimitHitTotal    *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics with the default
// registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PlanBuildTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modelplan_plan_build_total",
			Help: "Total dynamic plan builds by result.",
		}, []string{"engine", "result"}),

		PlanBuildDurationMs: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modelplan_plan_build_duration_ms",
			Help:    "Dynamic plan build duration in milliseconds, including catalog and signal loading.",
			Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 5000, 20000},
		}, []string{"engine"}),

		PolicyRejectionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modelplan_policy_rejection_total",
			Help: "Candidates rejected by the admission policy.",
		}, []string{"provider"}),

		PreferenceOpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modelplan_preference_operation_total",
			Help: "Manual preference operations by operation and outcome.",
		}, []string{"operation", "outcome"}),

		ChainResolutionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modelplan_chain_resolution_total",
			Help: "Runtime chain resolutions by role and outcome.",
		}, []string{"role", "outcome"}),

		RateLimitHitTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "modelplan_ratelimit_hit_total",
			Help: "Admin requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
}

// RecordPlanBuild records one plan build. result is "ok", "empty" or "error".
func (m *Metrics) RecordPlanBuild(engine, result string, elapsed time.Duration) {
	m.PlanBuildTotal.WithLabelValues(engine, result).Inc()
	m.PlanBuildDurationMs.WithLabelValues(engine).Observe(float64(elapsed.Microseconds()) / 1000)
}

func (m *Metrics) RecordPolicyRejection(provider string) {
	m.PolicyRejectionTotal.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordPreferenceOp(operation, outcome string) {
	m.PreferenceOpTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordChainResolution records a runtime resolution. outcome is "primary",
// "fallback" or "exhausted".
func (m *Metrics) RecordChainResolution(role, outcome string) {
	m.ChainResolutionTotal.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) RecordRateLimitHit(route string) {
	m.RateLimitHitTotal.WithLabelValues(route).Inc()
}
