package types

// AgentAssignment is the model chosen for one role plus its variant tag.
type AgentAssignment struct {
	Model   string `json:"model"`
	Variant string `json:"variant,omitempty"`
}

// DynamicPlan is the per-role output of automatic selection. It is rebuilt on
// every request and never persisted by the engine.
type DynamicPlan struct {
	Agents map[Role]AgentAssignment `json:"agents"`
	Chains map[Role][]string        `json:"chains"`
}
