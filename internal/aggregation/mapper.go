package aggregation

import "github.com/aristath/sentinel/internal/rules"

// LabelRecommendation is a (label, human-readable recommendation) pair.
type LabelRecommendation struct {
	Label          string
	Recommendation string
}

// threshold is one entry of a purpose's mapping table: scores >= Min map
// to this entry. Entries must be supplied in descending Min order.
type threshold struct {
	Min            float64
	Label          string
	Recommendation string
}

// Mapper reads (value, purpose) and returns (label, recommendation) from a
// closed, per-purpose catalog. The catalog is pluggable — the concrete
// thresholds are a config artifact, not a core semantic, per the runtime's
// design notes.
type Mapper struct {
	tables map[rules.SemanticType][]threshold
}

// NewDefaultMapper returns a Mapper seeded with this service's default
// label catalog.
func NewDefaultMapper() *Mapper {
	return &Mapper{
		tables: map[rules.SemanticType][]threshold{
			rules.DECISION_SIGNAL: {
				{Min: 0.6, Label: "STRONG_BUY", Recommendation: "Strong Buy"},
				{Min: 0.2, Label: "BUY", Recommendation: "Buy"},
				{Min: -0.2, Label: "HOLD", Recommendation: "Hold"},
				{Min: -0.6, Label: "SELL", Recommendation: "Sell"},
				{Min: -1.0, Label: "STRONG_SELL", Recommendation: "Strong Sell"},
			},
			rules.RISK_LEVEL: {
				{Min: 0.75, Label: "VERY_HIGH", Recommendation: "Very High Risk"},
				{Min: 0.5, Label: "HIGH", Recommendation: "High Risk"},
				{Min: 0.25, Label: "MODERATE", Recommendation: "Moderate Risk"},
				{Min: 0.0, Label: "LOW", Recommendation: "Low Risk"},
			},
			rules.OPPORTUNITY_RATING: {
				{Min: 0.75, Label: "EXCELLENT", Recommendation: "Excellent Opportunity"},
				{Min: 0.5, Label: "GOOD", Recommendation: "Good Opportunity"},
				{Min: 0.25, Label: "FAIR", Recommendation: "Fair Opportunity"},
				{Min: 0.0, Label: "POOR", Recommendation: "Poor Opportunity"},
			},
		},
	}
}

// Map returns the (label, recommendation) pair for value under purpose's
// catalog. value is matched against the first threshold whose Min it
// meets or exceeds, scanning in the table's (descending) order; a value
// below every threshold falls to the last (lowest) entry.
func (m *Mapper) Map(value float64, purpose rules.SemanticType) LabelRecommendation {
	table := m.tables[purpose]
	if len(table) == 0 {
		return LabelRecommendation{Label: "UNKNOWN", Recommendation: "No mapping configured"}
	}
	for _, t := range table {
		if value >= t.Min {
			return LabelRecommendation{Label: t.Label, Recommendation: t.Recommendation}
		}
	}
	last := table[len(table)-1]
	return LabelRecommendation{Label: last.Label, Recommendation: last.Recommendation}
}
