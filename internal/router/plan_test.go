package router

import (
	"reflect"
	"slices"
	"testing"

	"github.com/af-corp/aegis-modelplan/internal/scoring"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

func testCatalog() []types.DiscoveredModel {
	return []types.DiscoveredModel{
		{ProviderID: "openai", Model: "openai/gpt-5.3-codex", Name: "GPT-5.3 Codex", Status: types.StatusActive,
			ContextLimit: 400_000, OutputLimit: 128_000, Reasoning: true, Toolcall: true, Attachment: true},
		{ProviderID: "anthropic", Model: "anthropic/claude-opus-4-6", Name: "Claude Opus 4.6", Status: types.StatusActive,
			ContextLimit: 200_000, OutputLimit: 64_000, Reasoning: true, Toolcall: true, Attachment: true},
		{ProviderID: "opencode", Model: "opencode/big-pickle", Name: "Big Pickle", Status: types.StatusActive,
			ContextLimit: 200_000, OutputLimit: 32_000, Toolcall: true},
		{ProviderID: "opencode", Model: "opencode/gpt-5-nano", Name: "GPT-5 Nano", Status: types.StatusBeta,
			ContextLimit: 400_000, OutputLimit: 128_000, Reasoning: true, Toolcall: true},
		{ProviderID: "chutes", Model: "chutes/kimi-k2.5", Name: "Kimi K2.5", Status: types.StatusActive,
			ContextLimit: 256_000, OutputLimit: 64_000, Reasoning: true, Toolcall: true},
		{ProviderID: "google", Model: "google/gemini-3-pro", Name: "Gemini 3 Pro", Status: types.StatusDeprecated,
			ContextLimit: 1_000_000, OutputLimit: 64_000, Reasoning: true, Toolcall: true, Attachment: true},
	}
}

func TestEnabledProviders(t *testing.T) {
	got := EnabledProviders(types.InstallConfig{
		HasCopilot:            true,
		HasAntigravity:        true,
		HasKimi:               true,
		UseOpenCodeFreeModels: true,
	})
	want := []string{"github-copilot", "kimi-for-coding", "google", "opencode"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBuildPlan_NoProvidersMeansNoPlan(t *testing.T) {
	if plan := BuildPlan(testCatalog(), types.InstallConfig{}, nil, scoring.CapabilityScorer{}); plan != nil {
		t.Errorf("expected nil plan, got %+v", plan)
	}
}

func TestBuildPlan_EmptyPoolMeansNoPlan(t *testing.T) {
	install := types.InstallConfig{HasKimi: true}
	if plan := BuildPlan(testCatalog(), install, nil, scoring.NewEngine()); plan != nil {
		t.Errorf("expected nil plan, got %+v", plan)
	}
}

func TestBuildPlan_EveryRoleAssigned(t *testing.T) {
	install := types.InstallConfig{HasOpenAI: true, HasAnthropic: true, UseOpenCodeFreeModels: true}
	plan := BuildPlan(testCatalog(), install, nil, scoring.CapabilityScorer{})
	if plan == nil {
		t.Fatal("expected a plan")
	}

	for _, role := range types.Roles() {
		chain := plan.Chains[role]
		if len(chain) == 0 || len(chain) > MaxChainLength {
			t.Errorf("%s: bad chain length %d", role, len(chain))
		}
		if !reflect.DeepEqual(Dedupe(chain...), chain) {
			t.Errorf("%s: duplicate entries in %v", role, chain)
		}
		agent := plan.Agents[role]
		if agent.Model != chain[0] {
			t.Errorf("%s: agent model %s is not chain head %s", role, agent.Model, chain[0])
		}
		if agent.Variant != role.Variant() {
			t.Errorf("%s: expected variant %q, got %q", role, role.Variant(), agent.Variant)
		}
		for _, id := range chain {
			if id == "chutes/kimi-k2.5" || id == "google/gemini-3-pro" {
				t.Errorf("%s: disabled provider model %s in chain", role, id)
			}
		}
	}
}

func TestBuildPlan_SyntheticInjection(t *testing.T) {
	install := types.InstallConfig{
		HasChutes:                    true,
		SelectedChutesPrimaryModel:   "chutes/deepseek-v3.2",
		SelectedChutesSecondaryModel: "chutes/qwen3-coder",
	}
	plan := BuildPlan(testCatalog(), install, nil, scoring.NewEngine())
	if plan == nil {
		t.Fatal("expected a plan")
	}

	if !slices.Contains(plan.Chains[types.RoleOracle], "chutes/deepseek-v3.2") {
		t.Errorf("oracle chain misses primary pick: %v", plan.Chains[types.RoleOracle])
	}
	if !slices.Contains(plan.Chains[types.RoleFixer], "chutes/qwen3-coder") {
		t.Errorf("fixer chain misses secondary pick: %v", plan.Chains[types.RoleFixer])
	}
}

func TestEnsureSyntheticModels(t *testing.T) {
	catalog := testCatalog()
	out := EnsureSyntheticModels(catalog, "chutes/kimi-k2.5", "chutes/new-model", "not-qualified", "chutes/new-model")

	if len(catalog) != len(testCatalog()) {
		t.Fatal("input catalog was modified")
	}
	if len(out) != len(catalog)+1 {
		t.Fatalf("expected exactly one synthetic model, got %d extra", len(out)-len(catalog))
	}

	want := types.DiscoveredModel{
		ProviderID:   "chutes",
		Model:        "chutes/new-model",
		Name:         "new-model",
		Status:       types.StatusActive,
		ContextLimit: 200_000,
		OutputLimit:  32_000,
		Reasoning:    true,
		Toolcall:     true,
	}
	if got := out[len(out)-1]; !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestBuildPlan_Deterministic(t *testing.T) {
	install := types.InstallConfig{
		HasOpenAI: true, HasAnthropic: true, HasChutes: true, HasAntigravity: true, UseOpenCodeFreeModels: true,
		SelectedOpenCodePrimaryModel: "opencode/gpt-5-nano",
	}
	signals := types.SignalMap{
		"kimi-k2.5":     {QualityScore: types.Float(64), CodingScore: types.Float(70), LatencySeconds: types.Float(2.1)},
		"gpt-5.3-codex": {QualityScore: types.Float(72), InputPricePer1M: types.Float(1.25), OutputPricePer1M: types.Float(10)},
	}

	catalog := testCatalog()
	reversed := slices.Clone(catalog)
	slices.Reverse(reversed)

	for name, scorer := range map[string]scoring.Scorer{"v1": scoring.CapabilityScorer{}, "v2": scoring.NewEngine()} {
		a := BuildPlan(catalog, install, signals, scorer)
		b := BuildPlan(reversed, install, signals, scorer)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: plan depends on catalog order:\n%+v\n%+v", name, a, b)
		}
		for _, role := range types.Roles() {
			if a.Agents[role].Model == "google/gemini-3-pro" {
				t.Errorf("%s/%s: deprecated model selected while others exist", name, role)
			}
		}
	}
}
