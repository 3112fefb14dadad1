package types

// InstallConfig describes which providers the user enabled and which models
// they picked explicitly during installation. Empty strings mean "no pick".
type InstallConfig struct {
	HasOpenAI             bool `json:"hasOpenAI" yaml:"has_openai"`
	HasAnthropic          bool `json:"hasAnthropic" yaml:"has_anthropic"`
	HasCopilot            bool `json:"hasCopilot" yaml:"has_copilot"`
	HasZaiPlan            bool `json:"hasZaiPlan" yaml:"has_zai_plan"`
	HasKimi               bool `json:"hasKimi" yaml:"has_kimi"`
	HasAntigravity        bool `json:"hasAntigravity" yaml:"has_antigravity"`
	HasChutes             bool `json:"hasChutes" yaml:"has_chutes"`
	UseOpenCodeFreeModels bool `json:"useOpenCodeFreeModels" yaml:"use_opencode_free_models"`

	SelectedChutesPrimaryModel     string `json:"selectedChutesPrimaryModel,omitempty" yaml:"selected_chutes_primary_model"`
	SelectedChutesSecondaryModel   string `json:"selectedChutesSecondaryModel,omitempty" yaml:"selected_chutes_secondary_model"`
	SelectedOpenCodePrimaryModel   string `json:"selectedOpenCodePrimaryModel,omitempty" yaml:"selected_opencode_primary_model"`
	SelectedOpenCodeSecondaryModel string `json:"selectedOpenCodeSecondaryModel,omitempty" yaml:"selected_opencode_secondary_model"`
}

// SelectedModels returns the explicit picks in injection order, skipping
// empty ones.
func (c InstallConfig) SelectedModels() []string {
	var out []string
	for _, m := range []string{
		c.SelectedChutesPrimaryModel,
		c.SelectedChutesSecondaryModel,
		c.SelectedOpenCodePrimaryModel,
		c.SelectedOpenCodeSecondaryModel,
	} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
