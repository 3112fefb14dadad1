// Package preferences compiles user-authored manual plans into the persisted
// configuration and implements the show/plan/apply/reset-agent operations.
package preferences

import (
	"github.com/af-corp/aegis-modelplan/internal/planconfig"
	"github.com/af-corp/aegis-modelplan/internal/precedence"
	"github.com/af-corp/aegis-modelplan/internal/router"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

const (
	defaultFallbackEnabled = true
	defaultTimeoutMs       = 15_000
)

// SystemDefault is the chain every compiled manual chain falls back to.
var SystemDefault = []string{router.TerminalModel}

// DefaultFill pads derived chains to four entries.
var DefaultFill = []string{
	"opencode/gpt-5-nano",
	"opencode/glm-4.7-free",
	router.TerminalModel,
	"opencode/sonic",
}

// positionDefaults fill a derived plan when the chain is still short.
var positionDefaults = [4]string{
	router.TerminalModel,
	"opencode/gpt-5-nano",
	"opencode/glm-4.7-free",
	"opencode/sonic",
}

// Compile folds plan into a copy of cfg. For each role in plan the root
// agent keeps its fields and takes the plan's primary model, the "manual"
// preset entry starts from the active preset's entry with the new model, and
// the resolved chain replaces the role's fallback chain. The active preset
// becomes "manual". Roles absent from plan keep their manual preset entry,
// chain and manualPlan snapshot; other presets and unknown keys are carried
// over unchanged. cfg is not modified.
func Compile(cfg *planconfig.Config, plan planconfig.ManualPlan) *planconfig.Config {
	if cfg == nil {
		cfg = &planconfig.Config{}
	}
	next := cfg.Clone()
	active := cfg.ActivePresetAgents()

	if next.Agents == nil {
		next.Agents = make(map[string]planconfig.AgentOverride)
	}
	manual := planconfig.Preset(next.Presets[planconfig.ManualPresetName])
	if manual == nil {
		manual = make(planconfig.Preset, len(plan))
	}
	chains := make(map[string][]string)
	if next.Fallback != nil {
		for k, v := range next.Fallback.Chains {
			chains[k] = v
		}
	}

	for _, role := range types.Roles() {
		name := string(role)
		entry, planned := plan[role]
		if !planned {
			continue
		}

		res := precedence.Resolve(precedence.Input{
			Role:          role,
			Manual:        entry.Models(),
			SystemDefault: SystemDefault,
		})
		chains[name] = res.Chain

		root := next.Agents[name]
		root.Model = entry.Primary
		next.Agents[name] = root

		preset := active[name].Clone()
		preset.Model = entry.Primary
		manual[name] = preset
	}

	if next.Presets == nil {
		next.Presets = make(map[string]planconfig.Preset)
	}
	next.Presets[planconfig.ManualPresetName] = manual
	next.Preset = planconfig.ManualPresetName

	fallback := next.Fallback
	if fallback == nil {
		fallback = &planconfig.FallbackConfig{}
	}
	if fallback.Enabled == nil {
		v := defaultFallbackEnabled
		fallback.Enabled = &v
	}
	if fallback.TimeoutMs == nil {
		v := defaultTimeoutMs
		fallback.TimeoutMs = &v
	}
	fallback.Chains = chains
	next.Fallback = fallback

	snapshot := next.ManualPlan
	if snapshot == nil {
		snapshot = make(planconfig.ManualPlan, len(plan))
	}
	for role, entry := range plan {
		snapshot[role] = entry
	}
	next.ManualPlan = snapshot
	return next
}
