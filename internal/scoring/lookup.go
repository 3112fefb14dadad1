package scoring

import (
	"strings"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// LookupKeys returns the signal-map keys for a candidate in priority order:
// the lowercased fully-qualified id, the bare id, then provider-specific
// variants. The first key present in a SignalMap wins.
func LookupKeys(m types.DiscoveredModel) []string {
	keys := make([]string, 0, 4)
	add := func(k string) {
		if k == "" {
			return
		}
		for _, existing := range keys {
			if existing == k {
				return
			}
		}
		keys = append(keys, k)
	}

	add(strings.ToLower(m.Model))
	id := strings.ToLower(m.BareID())
	add(id)

	if m.ProviderID == "chutes" && id != "" {
		add("chutes/" + id)
		add(trimVariantSuffix(id))
	}
	return keys
}

// trimVariantSuffix strips a trailing "-free" or "-flash" from a lowercased id.
func trimVariantSuffix(id string) string {
	for _, suffix := range []string{"-free", "-flash"} {
		if strings.HasSuffix(id, suffix) {
			return strings.TrimSuffix(id, suffix)
		}
	}
	return id
}

// FindSignal returns the first signal matching the candidate's lookup keys.
func FindSignal(m types.DiscoveredModel, signals types.SignalMap) (types.ExternalSignal, bool) {
	if len(signals) == 0 {
		return types.ExternalSignal{}, false
	}
	for _, key := range LookupKeys(m) {
		if sig, ok := signals[key]; ok {
			return sig, true
		}
	}
	return types.ExternalSignal{}, false
}
