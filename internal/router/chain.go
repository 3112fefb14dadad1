// Package router builds per-role fallback chains and the dynamic plan, and
// resolves a chain against live provider health.
package router

import (
	"github.com/af-corp/aegis-modelplan/internal/types"
)

const (
	// MaxChainLength bounds automatically built chains.
	MaxChainLength = 10

	// TerminalModel ends every automatic chain.
	TerminalModel = "opencode/big-pickle"

	rankedWindow = 7
)

// Dedupe returns ids without empty entries and without repeats, keeping the
// first occurrence of each.
func Dedupe(ids ...string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// BuildChain assembles one role's fallback chain: the best ranked candidate,
// the next ranked candidates, the explicit provider picks, then
// TerminalModel. The result is deduplicated and at most MaxChainLength long.
func BuildChain(ranked []types.DiscoveredModel, picks ...string) []string {
	ids := make([]string, 0, rankedWindow+len(picks)+2)
	if len(ranked) > 0 {
		ids = append(ids, ranked[0].Model)
	}
	for i, m := range ranked {
		if i >= rankedWindow {
			break
		}
		ids = append(ids, m.Model)
	}
	ids = append(ids, picks...)
	ids = append(ids, TerminalModel)

	chain := Dedupe(ids...)
	if len(chain) > MaxChainLength {
		chain = chain[:MaxChainLength]
	}
	return chain
}
