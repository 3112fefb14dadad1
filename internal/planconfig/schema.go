// Package planconfig models the persisted agent configuration file: the
// active preset, root agent overrides, named presets, the fallback section
// and the manual plan snapshot. Keys this package does not know about are
// carried through reads and writes untouched.
package planconfig

import (
	"maps"
	"slices"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// ManualPresetName is the preset the plan compiler writes to.
const ManualPresetName = "manual"

// AgentOverride is one agent entry. Only the model is interpreted; every
// other key is kept verbatim in Extra.
type AgentOverride struct {
	Model string
	Extra map[string]RawValue
}

// Preset maps agent names to overrides.
type Preset map[string]AgentOverride

// FallbackConfig is the "fallback" section. Nil pointers mean the key is
// absent from the file.
type FallbackConfig struct {
	Enabled   *bool
	TimeoutMs *int
	Chains    map[string][]string
	Extra     map[string]RawValue
}

// ManualAgentPlan is a primary model and three ordered fallbacks.
type ManualAgentPlan struct {
	Primary   string `json:"primary"`
	Fallback1 string `json:"fallback1"`
	Fallback2 string `json:"fallback2"`
	Fallback3 string `json:"fallback3"`
}

// Models returns the plan as an ordered list.
func (p ManualAgentPlan) Models() []string {
	return []string{p.Primary, p.Fallback1, p.Fallback2, p.Fallback3}
}

// ManualPlan holds one ManualAgentPlan per role.
type ManualPlan map[types.Role]ManualAgentPlan

// Config is the whole persisted file.
type Config struct {
	Preset     string
	Agents     map[string]AgentOverride
	Presets    map[string]Preset
	Fallback   *FallbackConfig
	ManualPlan ManualPlan
	Extra      map[string]RawValue
}

// ActivePresetAgents returns the agents of the preset named by Preset when
// that preset exists, otherwise the root agent map.
func (c *Config) ActivePresetAgents() map[string]AgentOverride {
	if c.Preset != "" {
		if p, ok := c.Presets[c.Preset]; ok {
			return p
		}
	}
	return c.Agents
}

// AgentPrimary returns the root agent model for role, falling back to the
// active preset's model. It returns "" when neither is set.
func (c *Config) AgentPrimary(role types.Role) string {
	if m := c.Agents[string(role)].Model; m != "" {
		return m
	}
	return c.ActivePresetAgents()[string(role)].Model
}

// FallbackChain returns the configured chain for role, or nil.
func (c *Config) FallbackChain(role types.Role) []string {
	if c.Fallback == nil {
		return nil
	}
	return c.Fallback.Chains[string(role)]
}

// Clone returns a deep copy that shares no mutable state with c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Preset:     c.Preset,
		Agents:     cloneAgents(c.Agents),
		Fallback:   c.Fallback.Clone(),
		ManualPlan: maps.Clone(c.ManualPlan),
		Extra:      cloneExtra(c.Extra),
	}
	if c.Presets != nil {
		out.Presets = make(map[string]Preset, len(c.Presets))
		for name, p := range c.Presets {
			out.Presets[name] = Preset(cloneAgents(p))
		}
	}
	return out
}

// Clone returns a deep copy of f.
func (f *FallbackConfig) Clone() *FallbackConfig {
	if f == nil {
		return nil
	}
	out := &FallbackConfig{Extra: cloneExtra(f.Extra)}
	if f.Enabled != nil {
		v := *f.Enabled
		out.Enabled = &v
	}
	if f.TimeoutMs != nil {
		v := *f.TimeoutMs
		out.TimeoutMs = &v
	}
	if f.Chains != nil {
		out.Chains = make(map[string][]string, len(f.Chains))
		for k, v := range f.Chains {
			out.Chains[k] = slices.Clone(v)
		}
	}
	return out
}

// Clone returns a deep copy of a.
func (a AgentOverride) Clone() AgentOverride {
	return AgentOverride{Model: a.Model, Extra: cloneExtra(a.Extra)}
}

func cloneAgents[M ~map[string]AgentOverride](in M) map[string]AgentOverride {
	if in == nil {
		return nil
	}
	out := make(map[string]AgentOverride, len(in))
	for k, v := range in {
		out[k] = v.Clone()
	}
	return out
}

func cloneExtra(in map[string]RawValue) map[string]RawValue {
	if in == nil {
		return nil
	}
	out := make(map[string]RawValue, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
