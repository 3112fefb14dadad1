package router

import (
	"github.com/af-corp/aegis-modelplan/internal/scoring"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Synthetic candidate defaults for explicit picks the catalog does not list.
const (
	syntheticContextLimit = 200_000
	syntheticOutputLimit  = 32_000
)

// EnabledProviders maps install flags to provider IDs, in a fixed order.
func EnabledProviders(install types.InstallConfig) []string {
	flags := []struct {
		on       bool
		provider string
	}{
		{install.HasOpenAI, "openai"},
		{install.HasAnthropic, "anthropic"},
		{install.HasCopilot, "github-copilot"},
		{install.HasZaiPlan, "zai-coding-plan"},
		{install.HasKimi, "kimi-for-coding"},
		{install.HasAntigravity, "google"},
		{install.HasChutes, "chutes"},
		{install.UseOpenCodeFreeModels, "opencode"},
	}
	var out []string
	for _, f := range flags {
		if f.on {
			out = append(out, f.provider)
		}
	}
	return out
}

// SyntheticModel describes an explicitly picked model the catalog has not
// indexed. ok is false when id is not of the form "provider/id".
func SyntheticModel(id string) (types.DiscoveredModel, bool) {
	provider, bare, ok := types.SplitModelID(id)
	if !ok {
		return types.DiscoveredModel{}, false
	}
	return types.DiscoveredModel{
		ProviderID:   provider,
		Model:        id,
		Name:         bare,
		Status:       types.StatusActive,
		ContextLimit: syntheticContextLimit,
		OutputLimit:  syntheticOutputLimit,
		Reasoning:    true,
		Toolcall:     true,
		Attachment:   false,
	}, true
}

// EnsureSyntheticModels returns a copy of catalog with a synthetic candidate
// appended for every id it does not already contain.
func EnsureSyntheticModels(catalog []types.DiscoveredModel, ids ...string) []types.DiscoveredModel {
	out := make([]types.DiscoveredModel, len(catalog), len(catalog)+len(ids))
	copy(out, catalog)

	known := make(map[string]struct{}, len(catalog))
	for _, m := range catalog {
		known[m.Model] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		m, ok := SyntheticModel(id)
		if !ok {
			continue
		}
		known[id] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FilterProviders keeps candidates whose provider is in providers.
func FilterProviders(models []types.DiscoveredModel, providers []string) []types.DiscoveredModel {
	allowed := make(map[string]struct{}, len(providers))
	for _, p := range providers {
		allowed[p] = struct{}{}
	}
	var out []types.DiscoveredModel
	for _, m := range models {
		if _, ok := allowed[m.ProviderID]; ok {
			out = append(out, m)
		}
	}
	return out
}

func pick(role types.Role, primary, secondary string) string {
	if role.PrefersSecondaryPick() && secondary != "" {
		return secondary
	}
	return primary
}

// CandidatePool returns the candidates automatic selection ranks: the
// catalog plus synthetic entries for explicit picks, limited to enabled
// providers.
func CandidatePool(catalog []types.DiscoveredModel, install types.InstallConfig) []types.DiscoveredModel {
	return FilterProviders(
		EnsureSyntheticModels(catalog, install.SelectedModels()...),
		EnabledProviders(install),
	)
}

// BuildPlan ranks the enabled candidates for every role and assembles the
// dynamic plan. It returns nil when no enabled provider has a candidate.
func BuildPlan(catalog []types.DiscoveredModel, install types.InstallConfig, signals types.SignalMap, scorer scoring.Scorer) *types.DynamicPlan {
	pool := CandidatePool(catalog, install)
	if len(pool) == 0 {
		return nil
	}

	plan := &types.DynamicPlan{
		Agents: make(map[types.Role]types.AgentAssignment, len(types.Roles())),
		Chains: make(map[types.Role][]string, len(types.Roles())),
	}
	for _, role := range types.Roles() {
		ranked := scoring.Rank(pool, role, signals, scorer)
		chain := BuildChain(ranked,
			pick(role, install.SelectedChutesPrimaryModel, install.SelectedChutesSecondaryModel),
			pick(role, install.SelectedOpenCodePrimaryModel, install.SelectedOpenCodeSecondaryModel),
		)
		plan.Agents[role] = types.AgentAssignment{Model: chain[0], Variant: role.Variant()}
		plan.Chains[role] = chain
	}
	return plan
}
