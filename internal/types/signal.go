package types

// ExternalSignal is third-party benchmark data for one model. Every numeric
// field is optional; nil means the source did not report it.
type ExternalSignal struct {
	Source           string   `json:"source" yaml:"source"`
	QualityScore     *float64 `json:"qualityScore,omitempty" yaml:"quality_score,omitempty"`
	CodingScore      *float64 `json:"codingScore,omitempty" yaml:"coding_score,omitempty"`
	LatencySeconds   *float64 `json:"latencySeconds,omitempty" yaml:"latency_seconds,omitempty"`
	InputPricePer1M  *float64 `json:"inputPricePer1M,omitempty" yaml:"input_price_per_1m,omitempty"`
	OutputPricePer1M *float64 `json:"outputPricePer1M,omitempty" yaml:"output_price_per_1m,omitempty"`
}

// SignalMap indexes signals by lowercased lookup key: a fully-qualified id,
// a bare id, or a provider-specific variant.
type SignalMap map[string]ExternalSignal

// Float returns a pointer to v. Handy for building signals in code.
func Float(v float64) *float64 { return &v }

// BlendedPrice weights input cost 75% and output cost 25% when both are
// present, otherwise returns whichever one is present, otherwise 0.
func (s ExternalSignal) BlendedPrice() float64 {
	switch {
	case s.InputPricePer1M != nil && s.OutputPricePer1M != nil:
		return *s.InputPricePer1M*0.75 + *s.OutputPricePer1M*0.25
	case s.InputPricePer1M != nil:
		return *s.InputPricePer1M
	case s.OutputPricePer1M != nil:
		return *s.OutputPricePer1M
	default:
		return 0
	}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Quality returns the quality score, 0 when missing.
func (s ExternalSignal) Quality() float64 { return valueOr(s.QualityScore, 0) }

// Coding returns the coding score, 0 when missing.
func (s ExternalSignal) Coding() float64 { return valueOr(s.CodingScore, 0) }

// Latency returns the latency in seconds, 0 when missing.
func (s ExternalSignal) Latency() float64 { return valueOr(s.LatencySeconds, 0) }
