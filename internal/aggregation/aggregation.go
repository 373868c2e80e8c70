// Package aggregation turns the multiset of raw rule scores for each
// purpose into a single final number, then into a human-readable label and
// recommendation.
package aggregation

import (
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/rules"
)

// Mean returns the arithmetic mean of xs, or 0 if xs is empty.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Max returns the maximum of xs, or 0 if xs is empty.
func Max(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// Min returns the minimum of xs, or 0 if xs is empty.
func Min(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Weights holds the per-purpose meta-synthesis weights, sourced from the
// user profile (defaults are 1.0).
type Weights struct {
	Decision    float64
	Risk        float64
	Opportunity float64
}

// DefaultWeights returns the spec's default meta-synthesis weights.
func DefaultWeights() Weights {
	return Weights{Decision: 1.0, Risk: 1.0, Opportunity: 1.0}
}

// Aggregator reduces raw per-rule scores into per-purpose aggregates, then
// synthesizes and maps the final recommendation.
type Aggregator struct {
	mapper *Mapper
}

// NewAggregator builds an Aggregator backed by mapper.
func NewAggregator(mapper *Mapper) *Aggregator {
	return &Aggregator{mapper: mapper}
}

// AggregateRawScores applies each purpose's aggregation law:
// DECISION_SIGNAL -> mean, RISK_LEVEL -> max, OPPORTUNITY_RATING -> min.
func (a *Aggregator) AggregateRawScores(decisionScores, riskScores, opportunityScores []float64) domain.AggregatedScoreInfo {
	return domain.AggregatedScoreInfo{
		RawDecisionScore:    Mean(decisionScores),
		RawRiskScore:        Max(riskScores),
		RawOpportunityScore: Min(opportunityScores),
	}
}

// FinalScores is the post-synthesis score per purpose.
type FinalScores struct {
	Decision    float64
	Risk        float64
	Opportunity float64
}

// SynthesizeFinalDecision applies the weighted meta-synthesis formula and
// clamps the decision score to [-1, 1]. Risk and opportunity pass through
// their aggregated raw values unchanged (already bounded to [0, 1] by
// construction of the per-rule scores).
func (a *Aggregator) SynthesizeFinalDecision(agg domain.AggregatedScoreInfo, w Weights) FinalScores {
	raw := agg.RawDecisionScore*w.Decision - agg.RawRiskScore*w.Risk + agg.RawOpportunityScore*w.Opportunity
	return FinalScores{
		Decision:    clamp(raw, -1, 1),
		Risk:        agg.RawRiskScore,
		Opportunity: agg.RawOpportunityScore,
	}
}

// MappedLabels bundles the (label, recommendation) pair per purpose.
type MappedLabels struct {
	Decision    LabelRecommendation
	Risk        LabelRecommendation
	Opportunity LabelRecommendation
}

// MapFinalScores maps each purpose's final score to a label and
// recommendation via the registered mapper.
func (a *Aggregator) MapFinalScores(scores FinalScores) MappedLabels {
	return MappedLabels{
		Decision:    a.mapper.Map(scores.Decision, rules.DECISION_SIGNAL),
		Risk:        a.mapper.Map(scores.Risk, rules.RISK_LEVEL),
		Opportunity: a.mapper.Map(scores.Opportunity, rules.OPPORTUNITY_RATING),
	}
}

