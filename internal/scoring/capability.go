package scoring

import "github.com/af-corp/aegis-modelplan/internal/types"

// PenaltyFloor is the score given to candidates that must sort last: deprecated
// models and models lacking tool calling for roles that depend on it. They
// stay selectable when nothing better exists.
const PenaltyFloor = -10_000

// CapabilityScorer is the original role formula over raw normalized
// attributes plus an additive external-signal boost.
type CapabilityScorer struct{}

// Score implements Scorer.
func (CapabilityScorer) Score(m types.DiscoveredModel, role types.Role, signals types.SignalMap) float64 {
	return CapabilityScore(role, m) + SignalBoost(role, m, signals)
}

func statusMultiplier(s types.ModelStatus) float64 {
	switch s {
	case types.StatusActive:
		return 1
	case types.StatusBeta:
		return 0.7
	case types.StatusAlpha:
		return 0.4
	default:
		return 0
	}
}

func flag(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// floorReason returns why a candidate is pinned to PenaltyFloor for role, or
// "" when it is not.
func floorReason(role types.Role, m types.DiscoveredModel) string {
	if m.Status == types.StatusDeprecated {
		return "deprecated"
	}
	if role.RequiresToolCall() && !m.Toolcall {
		return "missing_toolcall"
	}
	return ""
}

// CapabilityScore is the intrinsic part of the v1 score.
func CapabilityScore(role types.Role, m types.DiscoveredModel) float64 {
	if floorReason(role, m) != "" {
		return PenaltyFloor
	}

	context := normalize(float64(m.ContextLimit), maxContextTokens)
	output := normalize(float64(m.OutputLimit), maxOutputTokens)
	reasoning := flag(m.Reasoning)
	toolcall := flag(m.Toolcall)
	attachment := flag(m.Attachment)
	status := statusMultiplier(m.Status)

	switch role {
	case types.RoleOracle:
		return status*20 + context*28 + reasoning*26 + toolcall*10 + output*8
	case types.RoleOrchestrator:
		return status*20 + reasoning*22 + toolcall*24 + context*20 + output*8
	case types.RoleDesigner:
		return status*20 + attachment*24 + output*20 + reasoning*14 + toolcall*10 + context*8
	case types.RoleExplorer:
		return status*20 + toolcall*20 + output*14 + context*10 + reasoning*8
	case types.RoleLibrarian:
		return status*20 + context*30 + output*20 + toolcall*16 + reasoning*8
	case types.RoleFixer:
		return status*20 + toolcall*24 + reasoning*18 + output*16 + context*12
	default:
		return 0
	}
}

// SignalBoost is the external-signal part of the v1 score. Latency and price
// subtract, so the boost can be negative. No matching signal means 0.
func SignalBoost(role types.Role, m types.DiscoveredModel, signals types.SignalMap) float64 {
	sig, ok := FindSignal(m, signals)
	if !ok {
		return 0
	}

	quality := normalize(sig.Quality(), 100)
	coding := normalize(sig.Coding(), 100)
	latency := normalize(sig.Latency(), maxLatencySeconds)
	price := normalize(sig.BlendedPrice(), 30)

	switch role {
	case types.RoleExplorer:
		return quality*10 + coding*8 - latency*18 - price*12
	case types.RoleDesigner:
		return quality*10 + coding*6 - latency*8 - price*8
	case types.RoleLibrarian:
		return quality*12 + coding*8 - latency*6 - price*8
	case types.RoleFixer:
		return quality*10 + coding*14 - latency*8 - price*8
	default:
		return quality*14 + coding*12 - latency*8 - price*10
	}
}
