package planconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tailscale/hujson"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// RawValue is an uninterpreted JSON value.
type RawValue = json.RawMessage

var errNotObject = errors.New("configuration must be a JSON object")

// Parse decodes a configuration file. Comments and trailing commas are
// accepted. An empty document yields an empty configuration.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Config{}, nil
	}
	std, err := hujson.Standardize(slices.Clone(data))
	if err != nil {
		return nil, err
	}
	std = bytes.TrimSpace(std)
	if len(std) == 0 || std[0] != '{' {
		return nil, errNotObject
	}
	cfg := &Config{}
	if err := json.Unmarshal(std, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes c as two-space indented JSON with a trailing newline.
// Object keys are written in sorted order.
func Marshal(c *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// splitObject decodes a JSON object into its members. A JSON null yields a
// nil map.
func splitObject(data []byte) (map[string]RawValue, error) {
	var raw map[string]RawValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// take decodes and removes key from raw when present.
func take(raw map[string]RawValue, key string, dest any) error {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	delete(raw, key)
	if err := json.Unmarshal(v, dest); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func extraOrNil(raw map[string]RawValue) map[string]RawValue {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// encode is json.Marshal without HTML escaping, so hand-written strings
// such as prompts survive a rewrite unchanged.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// joinObject merges known members over extra and encodes the result.
func joinObject(extra map[string]RawValue, known map[string]any) ([]byte, error) {
	out := make(map[string]RawValue, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		b, err := encode(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = b
	}
	return encode(out)
}

func (a AgentOverride) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if a.Model != "" {
		known["model"] = a.Model
	}
	return joinObject(a.Extra, known)
}

func (a *AgentOverride) UnmarshalJSON(data []byte) error {
	raw, err := splitObject(data)
	if err != nil {
		return err
	}
	var next AgentOverride
	if err := take(raw, "model", &next.Model); err != nil {
		return err
	}
	next.Extra = extraOrNil(raw)
	*a = next
	return nil
}

func (f FallbackConfig) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if f.Enabled != nil {
		known["enabled"] = *f.Enabled
	}
	if f.TimeoutMs != nil {
		known["timeoutMs"] = *f.TimeoutMs
	}
	if f.Chains != nil {
		known["chains"] = f.Chains
	}
	return joinObject(f.Extra, known)
}

func (f *FallbackConfig) UnmarshalJSON(data []byte) error {
	raw, err := splitObject(data)
	if err != nil {
		return err
	}
	var next FallbackConfig
	if err := take(raw, "enabled", &next.Enabled); err != nil {
		return err
	}
	if err := take(raw, "timeoutMs", &next.TimeoutMs); err != nil {
		return err
	}
	if err := take(raw, "chains", &next.Chains); err != nil {
		return err
	}
	next.Extra = extraOrNil(raw)
	*f = next
	return nil
}

func (c Config) MarshalJSON() ([]byte, error) {
	known := map[string]any{}
	if c.Preset != "" {
		known["preset"] = c.Preset
	}
	if c.Agents != nil {
		known["agents"] = c.Agents
	}
	if c.Presets != nil {
		known["presets"] = c.Presets
	}
	if c.Fallback != nil {
		known["fallback"] = c.Fallback
	}
	if c.ManualPlan != nil {
		known["manualPlan"] = c.ManualPlan
	}
	return joinObject(c.Extra, known)
}

func (c *Config) UnmarshalJSON(data []byte) error {
	raw, err := splitObject(data)
	if err != nil {
		return err
	}
	var next Config
	for key, dest := range map[string]any{
		"preset":     &next.Preset,
		"agents":     &next.Agents,
		"presets":    &next.Presets,
		"fallback":   &next.Fallback,
		"manualPlan": &next.ManualPlan,
	} {
		if err := take(raw, key, dest); err != nil {
			return err
		}
	}
	next.Extra = extraOrNil(raw)
	*c = next
	return nil
}

// MarshalJSON writes roles in plan order, followed by any unknown keys in
// sorted order.
func (p ManualPlan) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(role types.Role, plan ManualAgentPlan) error {
		key, err := encode(string(role))
		if err != nil {
			return err
		}
		val, err := encode(plan)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	for _, role := range types.Roles() {
		if plan, ok := p[role]; ok {
			if err := write(role, plan); err != nil {
				return nil, err
			}
		}
	}
	var unknown []types.Role
	for role := range p {
		if !role.Valid() {
			unknown = append(unknown, role)
		}
	}
	slices.Sort(unknown)
	for _, role := range unknown {
		if err := write(role, p[role]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
