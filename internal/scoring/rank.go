package scoring

import (
	"cmp"
	"slices"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Scorer maps a candidate to a role-specific score. Implementations must be
// pure: the same inputs always give the same score.
type Scorer interface {
	Score(m types.DiscoveredModel, role types.Role, signals types.SignalMap) float64
}

// ScoredCandidate is one entry of a v2 ranking.
type ScoredCandidate struct {
	Model     types.DiscoveredModel `json:"model"`
	Total     float64               `json:"total"`
	Breakdown Breakdown             `json:"breakdown"`
}

// compareRanked orders by score descending, then providerID, then model id.
// It is a total order, so the result does not depend on input order.
func compareRanked(aScore, bScore float64, a, b types.DiscoveredModel) int {
	if c := cmp.Compare(bScore, aScore); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ProviderID, b.ProviderID); c != 0 {
		return c
	}
	return cmp.Compare(a.Model, b.Model)
}

// Rank returns a new slice with models ordered best first for role. The
// input slice is left untouched.
func Rank(models []types.DiscoveredModel, role types.Role, signals types.SignalMap, scorer Scorer) []types.DiscoveredModel {
	type entry struct {
		model types.DiscoveredModel
		score float64
	}
	entries := make([]entry, len(models))
	for i, m := range models {
		entries[i] = entry{model: m, score: finite(scorer.Score(m, role, signals))}
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return compareRanked(a.score, b.score, a.model, b.model)
	})

	out := make([]types.DiscoveredModel, len(entries))
	for i, e := range entries {
		out[i] = e.model
	}
	return out
}

// RankV2 ranks with the v2 engine and keeps each candidate's breakdown.
func (e *Engine) RankV2(models []types.DiscoveredModel, role types.Role, signals types.SignalMap) []ScoredCandidate {
	out := make([]ScoredCandidate, len(models))
	for i, m := range models {
		s := e.ScoreCandidate(m, role, signals)
		out[i] = ScoredCandidate{Model: m, Total: s.Total, Breakdown: s.Breakdown}
	}
	slices.SortFunc(out, func(a, b ScoredCandidate) int {
		return compareRanked(a.Total, b.Total, a.Model, b.Model)
	})
	return out
}
