package preferences

import (
	"github.com/af-corp/aegis-modelplan/internal/planconfig"
	"github.com/af-corp/aegis-modelplan/internal/router"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// DeriveChain returns the four-entry chain a role currently uses: its
// primary model, its configured fallback chain, then DefaultFill.
func DeriveChain(cfg *planconfig.Config, role types.Role) []string {
	ids := append([]string{cfg.AgentPrimary(role)}, cfg.FallbackChain(role)...)
	ids = append(ids, DefaultFill...)
	chain := router.Dedupe(ids...)
	if len(chain) > len(positionDefaults) {
		chain = chain[:len(positionDefaults)]
	}
	return chain
}

// DeriveAgentPlan turns DeriveChain into a ManualAgentPlan.
func DeriveAgentPlan(cfg *planconfig.Config, role types.Role) planconfig.ManualAgentPlan {
	chain := DeriveChain(cfg, role)
	at := func(i int) string {
		if i < len(chain) {
			return chain[i]
		}
		return positionDefaults[i]
	}
	return planconfig.ManualAgentPlan{
		Primary:   at(0),
		Fallback1: at(1),
		Fallback2: at(2),
		Fallback3: at(3),
	}
}

// DeriveManualPlan derives every role's plan from cfg.
func DeriveManualPlan(cfg *planconfig.Config) planconfig.ManualPlan {
	plan := make(planconfig.ManualPlan, len(types.Roles()))
	for _, role := range types.Roles() {
		plan[role] = DeriveAgentPlan(cfg, role)
	}
	return plan
}
