package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/af-corp/aegis-modelplan/internal/config"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

func testCfg(enabled bool) func() config.PolicyConfig {
	return func() config.PolicyConfig {
		return config.PolicyConfig{
			Enabled:           enabled,
			EvaluationTimeout: 100 * time.Millisecond,
		}
	}
}

const admissionPolicy = `
package modelplan.policy

import rego.v1

default allow := true
default reason := ""

blocked_providers := {"github-copilot"}

deny contains msg if {
	input.candidate.status == "alpha"
	msg := "alpha models are not admitted"
}

deny contains msg if {
	blocked_providers[input.candidate.providerID]
	msg := sprintf("provider %s is blocked", [input.candidate.providerID])
}

allow := false if {
	count(deny) > 0
}

reason := concat("; ", deny) if {
	count(deny) > 0
}
`

func loadTestEvaluator(t *testing.T, enabled bool, policy string) *Evaluator {
	t.Helper()
	e := NewEvaluator(testCfg(enabled))
	if err := e.LoadFromModules(map[string]string{"admission.rego": policy}); err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}
	return e
}

func candidates() []types.DiscoveredModel {
	return []types.DiscoveredModel{
		{ProviderID: "openai", Model: "openai/gpt-5.3-codex", Status: types.StatusActive},
		{ProviderID: "github-copilot", Model: "github-copilot/gpt-5", Status: types.StatusActive},
		{ProviderID: "google", Model: "google/gemini-3-pro", Status: types.StatusAlpha},
		{ProviderID: "anthropic", Model: "anthropic/claude-opus-4-6", Status: types.StatusBeta},
	}
}

func TestEvaluator_Admit(t *testing.T) {
	e := loadTestEvaluator(t, true, admissionPolicy)

	admitted, rejected := e.Admit(context.Background(), candidates())

	if len(admitted) != 2 || admitted[0].Model != "openai/gpt-5.3-codex" || admitted[1].Model != "anthropic/claude-opus-4-6" {
		t.Errorf("unexpected admitted set %+v", admitted)
	}
	if len(rejected) != 2 {
		t.Fatalf("expected 2 rejections, got %+v", rejected)
	}
	if rejected[0].Model != "github-copilot/gpt-5" || rejected[0].Reason != "provider github-copilot is blocked" {
		t.Errorf("unexpected rejection %+v", rejected[0])
	}
	if rejected[1].Reason != "alpha models are not admitted" {
		t.Errorf("unexpected rejection %+v", rejected[1])
	}
}

func TestEvaluator_DisabledAdmitsAll(t *testing.T) {
	e := NewEvaluator(testCfg(false))
	admitted, rejected := e.Admit(context.Background(), candidates())
	if len(admitted) != len(candidates()) || rejected != nil {
		t.Errorf("expected all candidates admitted, got %d admitted, %v rejected", len(admitted), rejected)
	}
}

func TestEvaluator_NoPoliciesFailsClosed(t *testing.T) {
	e := NewEvaluator(testCfg(true))
	allowed, reason, err := e.Evaluate(context.Background(), Input{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("expected denial without policies")
	}
	if reason != "no policies loaded" {
		t.Errorf("unexpected reason %q", reason)
	}
}

func TestEvaluator_InvalidPolicy(t *testing.T) {
	e := NewEvaluator(testCfg(true))
	if err := e.LoadFromModules(map[string]string{"bad.rego": "package modelplan.policy\nallow := "}); err == nil {
		t.Error("expected compile error")
	}
	if err := e.LoadFromModules(nil); err == nil {
		t.Error("expected error for empty module set")
	}
}

func TestLoadRegoFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"admission.rego":      admissionPolicy,
		"lib/helpers.rego":    "package modelplan.lib\n",
		"admission_test.rego": "package modelplan.policy_test\n",
		"README.md":           "not rego",
	}
	for name, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	modules, err := LoadRegoFiles(dir)
	if err != nil {
		t.Fatalf("LoadRegoFiles: %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %v", modules)
	}
	if _, ok := modules["lib/helpers.rego"]; !ok {
		t.Error("expected nested module keyed by relative path")
	}
}

func TestEvaluator_Load(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "admission.rego"), []byte(admissionPolicy), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewEvaluator(func() config.PolicyConfig {
		return config.PolicyConfig{Enabled: true, BundlePath: dir}
	})
	if err := e.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	allowed, _, err := e.Evaluate(context.Background(), Input{Candidate: candidates()[0]})
	if err != nil || !allowed {
		t.Errorf("expected openai candidate to be allowed, got %v %v", allowed, err)
	}
}
