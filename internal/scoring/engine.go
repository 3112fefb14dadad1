package scoring

import "github.com/af-corp/aegis-modelplan/internal/types"

// Weights is one role's linear profile over a FeatureVector. All weights are
// positive; LatencyPenalty and PricePenalty are subtracted.
type Weights struct {
	Status         float64
	Context        float64
	Output         float64
	Reasoning      float64
	Toolcall       float64
	Attachment     float64
	Quality        float64
	Coding         float64
	LatencyPenalty float64
	PricePenalty   float64
}

// DefaultWeights is the role profile table used by NewEngine.
var DefaultWeights = map[types.Role]Weights{
	types.RoleOrchestrator: {
		Status: 16, Context: 2.0, Output: 0.8, Reasoning: 11, Toolcall: 12,
		Quality: 26, Coding: 20, LatencyPenalty: 0.8, PricePenalty: 1.0,
	},
	types.RoleOracle: {
		Status: 16, Context: 2.8, Output: 0.8, Reasoning: 13, Toolcall: 5,
		Quality: 30, Coding: 22, LatencyPenalty: 0.6, PricePenalty: 1.2,
	},
	types.RoleDesigner: {
		Status: 16, Context: 0.8, Output: 2.0, Reasoning: 7, Toolcall: 5, Attachment: 12,
		Quality: 22, Coding: 12, LatencyPenalty: 0.8, PricePenalty: 1.0,
	},
	types.RoleExplorer: {
		Status: 16, Context: 1.0, Output: 1.4, Reasoning: 4, Toolcall: 10,
		Quality: 14, Coding: 12, LatencyPenalty: 1.8, PricePenalty: 1.6,
	},
	types.RoleLibrarian: {
		Status: 16, Context: 3.0, Output: 2.0, Reasoning: 4, Toolcall: 8,
		Quality: 18, Coding: 10, LatencyPenalty: 0.6, PricePenalty: 1.2,
	},
	types.RoleFixer: {
		Status: 16, Context: 1.2, Output: 1.6, Reasoning: 9, Toolcall: 12,
		Quality: 16, Coding: 26, LatencyPenalty: 0.8, PricePenalty: 1.2,
	},
}

// Breakdown explains a v2 score. Weighted holds the signed contribution of
// each feature; penalties appear as negative values. Floor names the rule
// that pinned the total to PenaltyFloor, if any.
type Breakdown struct {
	Features FeatureVector `json:"features"`
	Weighted FeatureVector `json:"weighted"`
	Floor    string        `json:"floor,omitempty"`
}

// Score is a v2 total with its explanation.
type Score struct {
	Total     float64   `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// Engine is the v2 scorer. The zero value is not usable; use NewEngine.
type Engine struct {
	weights map[types.Role]Weights
}

// NewEngine returns an engine using DefaultWeights.
func NewEngine() *Engine {
	return NewEngineWithWeights(DefaultWeights)
}

// NewEngineWithWeights returns an engine using a copy of the given table.
// Roles missing from the table score every feature at zero weight.
func NewEngineWithWeights(weights map[types.Role]Weights) *Engine {
	w := make(map[types.Role]Weights, len(weights))
	for role, profile := range weights {
		w[role] = profile
	}
	return &Engine{weights: w}
}

// ScoreCandidate scores one candidate for role and explains the result.
func (e *Engine) ScoreCandidate(m types.DiscoveredModel, role types.Role, signals types.SignalMap) Score {
	f := ExtractFeatures(m, role, signals)
	w := e.weights[role]

	weighted := FeatureVector{
		Status:         w.Status * f.Status,
		Context:        w.Context * f.Context,
		Output:         w.Output * f.Output,
		Reasoning:      w.Reasoning * f.Reasoning,
		Toolcall:       w.Toolcall * f.Toolcall,
		Attachment:     w.Attachment * f.Attachment,
		Quality:        w.Quality * f.Quality,
		Coding:         w.Coding * f.Coding,
		LatencyPenalty: -w.LatencyPenalty * f.LatencyPenalty,
		PricePenalty:   -w.PricePenalty * f.PricePenalty,
	}

	s := Score{
		Total:     weighted.sum(),
		Breakdown: Breakdown{Features: f, Weighted: weighted},
	}
	if reason := floorReason(role, m); reason != "" {
		s.Total = PenaltyFloor
		s.Breakdown.Floor = reason
	}
	return s
}

// Score implements Scorer.
func (e *Engine) Score(m types.DiscoveredModel, role types.Role, signals types.SignalMap) float64 {
	return e.ScoreCandidate(m, role, signals).Total
}

// sum adds the fields in a fixed order so totals are reproducible bit for bit.
func (v FeatureVector) sum() float64 {
	return v.Status + v.Context + v.Output + v.Reasoning + v.Toolcall +
		v.Attachment + v.Quality + v.Coding + v.LatencyPenalty + v.PricePenalty
}
