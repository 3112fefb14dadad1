package types

import "strings"

// ModelStatus is the lifecycle stage a catalog reports for a model.
type ModelStatus string

const (
	StatusActive     ModelStatus = "active"
	StatusBeta       ModelStatus = "beta"
	StatusAlpha      ModelStatus = "alpha"
	StatusDeprecated ModelStatus = "deprecated"
)

// DiscoveredModel is a candidate model as reported by the model catalog.
// Model holds the fully-qualified "provider/id" identifier and is the
// candidate's identity.
type DiscoveredModel struct {
	ProviderID   string      `json:"providerID" yaml:"provider_id"`
	Model        string      `json:"model" yaml:"model"`
	Name         string      `json:"name" yaml:"name"`
	Status       ModelStatus `json:"status" yaml:"status"`
	ContextLimit int         `json:"contextLimit" yaml:"context_limit"`
	OutputLimit  int         `json:"outputLimit" yaml:"output_limit"`
	Reasoning    bool        `json:"reasoning" yaml:"reasoning"`
	Toolcall     bool        `json:"toolcall" yaml:"toolcall"`
	Attachment   bool        `json:"attachment" yaml:"attachment"`

	DailyRequestLimit *int     `json:"dailyRequestLimit,omitempty" yaml:"daily_request_limit,omitempty"`
	CostInput         *float64 `json:"costInput,omitempty" yaml:"cost_input,omitempty"`
	CostOutput        *float64 `json:"costOutput,omitempty" yaml:"cost_output,omitempty"`
}

// BareID returns the part of the identifier after the provider prefix, or ""
// when the identifier has no "provider/" prefix.
func (m DiscoveredModel) BareID() string {
	_, id, ok := SplitModelID(m.Model)
	if !ok {
		return ""
	}
	return id
}

// SplitModelID splits "provider/id" at the first slash. Both halves must be
// non-empty.
func SplitModelID(full string) (provider, id string, ok bool) {
	provider, id, found := strings.Cut(full, "/")
	if !found || provider == "" || id == "" {
		return "", "", false
	}
	return provider, id, true
}

// ParseStatus maps a catalog status string to a ModelStatus. Unknown values
// are treated as deprecated so they never outrank known-good models.
func ParseStatus(s string) ModelStatus {
	switch ModelStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive
	case StatusBeta:
		return StatusBeta
	case StatusAlpha:
		return StatusAlpha
	default:
		return StatusDeprecated
	}
}
