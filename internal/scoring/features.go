// Package scoring turns candidate models and benchmark signals into
// role-specific scores and a deterministic ranking.
package scoring

import (
	"math"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

const (
	maxContextTokens  = 1_000_000
	maxOutputTokens   = 300_000
	maxLatencySeconds = 20
	maxBlendedPrice   = 50
)

// FeatureVector is the bounded, normalized view of a candidate used by the
// v2 engine.
//
//	status          [-1, 1]
//	context         [0, 10]
//	output          [0, 10]
//	reasoning       {-1, 1}
//	toolcall        {-1, 1}
//	attachment      {-1, 1}
//	quality, coding [0, 1]
//	latencyPenalty  [0, 20 x role multiplier]
//	pricePenalty    [0, 5]
type FeatureVector struct {
	Status         float64 `json:"status"`
	Context        float64 `json:"context"`
	Output         float64 `json:"output"`
	Reasoning      float64 `json:"reasoning"`
	Toolcall       float64 `json:"toolcall"`
	Attachment     float64 `json:"attachment"`
	Quality        float64 `json:"quality"`
	Coding         float64 `json:"coding"`
	LatencyPenalty float64 `json:"latencyPenalty"`
	PricePenalty   float64 `json:"pricePenalty"`
}

// ExtractFeatures normalizes a candidate and its optional signal. Missing
// signal fields default to zero.
func ExtractFeatures(m types.DiscoveredModel, role types.Role, signals types.SignalMap) FeatureVector {
	sig, _ := FindSignal(m, signals)

	return FeatureVector{
		Status:         statusValue(m.Status),
		Context:        clip(float64(m.ContextLimit), maxContextTokens) / 100_000,
		Output:         clip(float64(m.OutputLimit), maxOutputTokens) / 30_000,
		Reasoning:      polarity(m.Reasoning),
		Toolcall:       polarity(m.Toolcall),
		Attachment:     polarity(m.Attachment),
		Quality:        clamp01(finite(sig.Quality()) / 100),
		Coding:         clamp01(finite(sig.Coding()) / 100),
		LatencyPenalty: clip(finite(sig.Latency()), maxLatencySeconds) * latencyMultiplier(role),
		PricePenalty:   clip(finite(sig.BlendedPrice()), maxBlendedPrice) / 10,
	}
}

func statusValue(s types.ModelStatus) float64 {
	switch s {
	case types.StatusActive:
		return 1
	case types.StatusBeta:
		return 0.4
	case types.StatusAlpha:
		return -0.25
	default:
		return -1
	}
}

// latencyMultiplier scales the latency penalty for latency-sensitive roles.
func latencyMultiplier(role types.Role) float64 {
	if role == types.RoleExplorer {
		return 1.4
	}
	return 1
}

func polarity(v bool) float64 {
	if v {
		return 1
	}
	return -1
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// clip bounds v to [0, ceiling].
func clip(v, ceiling float64) float64 {
	return math.Max(0, math.Min(v, ceiling))
}

// normalize maps v onto [0, 1] against ceiling.
func normalize(v, ceiling float64) float64 {
	v = finite(v)
	if ceiling <= 0 {
		return 0
	}
	return clamp01(v / ceiling)
}
