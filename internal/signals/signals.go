// Package signals loads third-party benchmark data for candidate models from
// files and PostgreSQL and indexes it by lookup key.
package signals

import (
	"context"
	"strings"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Entry is one signal record together with the identifier it describes,
// either fully qualified ("provider/id") or bare.
type Entry struct {
	Key                  string `json:"key" yaml:"key"`
	types.ExternalSignal `yaml:",inline"`
}

// Source produces signal entries.
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// NormalizeKey lowercases and trims an identifier.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// BuildMap indexes entries by normalized key. A fully-qualified key is also
// indexed under its bare id unless another entry claims that id. The first
// entry for a key wins.
func BuildMap(entries []Entry) types.SignalMap {
	out := make(types.SignalMap, len(entries))
	var bare []Entry
	for _, e := range entries {
		key := NormalizeKey(e.Key)
		if key == "" {
			continue
		}
		if _, ok := out[key]; !ok {
			out[key] = e.ExternalSignal
		}
		if _, id, ok := types.SplitModelID(key); ok {
			bare = append(bare, Entry{Key: id, ExternalSignal: e.ExternalSignal})
		}
	}
	for _, e := range bare {
		if _, ok := out[e.Key]; !ok {
			out[e.Key] = e.ExternalSignal
		}
	}
	return out
}
