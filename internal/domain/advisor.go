package domain

// Profile is the external user-profile collaborator's payload: the risk
// horizon used to pick `full_analysis`'s profile argument and the
// meta-synthesis weights. It carries no rule-selection predicate.
type Profile struct {
	UserID  string
	Horizon string // short, medium, long
	Weights map[string]float64
}

// TriggeredRuleInfo names one rule that fired during evaluation, alongside
// its raw score.
type TriggeredRuleInfo struct {
	RuleID   string  `json:"rule_id"`
	RuleName string  `json:"rule_name"`
	RawScore float64 `json:"raw_score"`
}

// AggregatedScoreInfo holds the per-purpose aggregate before meta-synthesis.
type AggregatedScoreInfo struct {
	RawDecisionScore    float64 `json:"raw_decision_score"`
	RawRiskScore        float64 `json:"raw_risk_score"`
	RawOpportunityScore float64 `json:"raw_opportunity_score"`
}

// FinalRecommendation is one purpose's fully-mapped advisory output.
type FinalRecommendation struct {
	FinalScore     float64             `json:"final_score"`
	Purpose        string              `json:"purpose"`
	Label          string              `json:"label"`
	Recommendation string              `json:"final_recommend"`
	TriggeredRules []TriggeredRuleInfo `json:"triggered_rules"`
}

// AdvisorReport is the per-(ticker,user) advisory output.
type AdvisorReport struct {
	Ticker              string               `json:"ticker"`
	FinalDecision       FinalRecommendation  `json:"final_decision"`
	FinalRisk           FinalRecommendation  `json:"final_risk"`
	FinalOpportunity    FinalRecommendation  `json:"final_opportunity"`
	AggregatedScores    AggregatedScoreInfo  `json:"aggregated_scores"`
	GeneratedAtUTC      string               `json:"generated_at_utc"`
	GeneratedTimestamp  int64                `json:"generated_timestamp"`
}
