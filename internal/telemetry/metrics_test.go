package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	c, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("failed to get metric: %v", err)
	}
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func TestNewMetricsWith(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	if m.PlanBuildTotal == nil {
		t.Error("PlanBuildTotal should not be nil")
	}
	if m.PlanBuildDurationMs == nil {
		t.Error("PlanBuildDurationMs should not be nil")
	}
	if m.PreferenceOpTotal == nil {
		t.Error("PreferenceOpTotal should not be nil")
	}
	if m.ChainResolutionTotal == nil {
		t.Error("ChainResolutionTotal should not be nil")
	}

	// registering twice on the same registry must panic
	defer func() {
		if recover() == nil {
			t.Error("expected duplicate registration to panic")
		}
	}()
	NewMetricsWith(reg)
}

func TestRecordPlanBuild(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWith(reg)

	m.RecordPlanBuild("v1", "ok", 12*time.Millisecond)
	m.RecordPlanBuild("v1", "ok", 3*time.Millisecond)
	m.RecordPlanBuild("v2", "empty", time.Millisecond)

	if got := counterValue(t, m.PlanBuildTotal, "v1", "ok"); got != 2 {
		t.Errorf("expected 2 v1 builds, got %v", got)
	}
	if got := counterValue(t, m.PlanBuildTotal, "v2", "empty"); got != 1 {
		t.Errorf("expected 1 empty v2 build, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() != "modelplan_plan_build_duration_ms" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			h := metric.GetHistogram()
			if h.GetSampleCount() == 2 && h.GetSampleSum() == 15 {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected v1 histogram with 2 samples summing to 15ms")
	}
}

func TestRecordCounters(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry())

	m.RecordPreferenceOp("apply", "refused")
	m.RecordChainResolution("oracle", "fallback")
	m.RecordPolicyRejection("github-copilot")
	m.RecordRateLimitHit("/v1/preferences")

	if got := counterValue(t, m.PreferenceOpTotal, "apply", "refused"); got != 1 {
		t.Errorf("preference op count = %v, want 1", got)
	}
	if got := counterValue(t, m.ChainResolutionTotal, "oracle", "fallback"); got != 1 {
		t.Errorf("chain resolution count = %v, want 1", got)
	}
	if got := counterValue(t, m.PolicyRejectionTotal, "github-copilot"); got != 1 {
		t.Errorf("policy rejection count = %v, want 1", got)
	}
	if got := counterValue(t, m.RateLimitHitTotal, "/v1/preferences"); got != 1 {
		t.Errorf("rate limit count = %v, want 1", got)
	}
}
