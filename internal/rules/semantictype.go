// Package rules implements the rule-tree evaluation engine: a closed
// semantic type system, the node hierarchy (constant/variable/operator),
// a process-wide node registry and factory, canonical JSON
// serialization, and rule execution/hashing.
package rules

// SemanticType is the closed set of declared types on nodes and arguments.
// It governs well-typedness of rule trees (see concretes and Compatible).
type SemanticType string

const (
	NUMERICAL       SemanticType = "NUMERICAL"
	BOOLEAN         SemanticType = "BOOLEAN"
	PRICE           SemanticType = "PRICE"
	PERCENTAGE      SemanticType = "PERCENTAGE"
	FINANCIAL_RATIO SemanticType = "FINANCIAL_RATIO"
	MOMENTUM        SemanticType = "MOMENTUM"
	TREND           SemanticType = "TREND"
	VOLATILITY      SemanticType = "VOLATILITY"
	VOLUME          SemanticType = "VOLUME"
	SENTIMENT       SemanticType = "SENTIMENT"
	FORECAST_PROB   SemanticType = "FORECAST_PROB"

	DECISION_SIGNAL     SemanticType = "DECISION_SIGNAL"
	RISK_LEVEL          SemanticType = "RISK_LEVEL"
	OPPORTUNITY_RATING  SemanticType = "OPPORTUNITY_RATING"

	ANY         SemanticType = "ANY"
	ANY_NUMERIC SemanticType = "ANY_NUMERIC"
)

// concreteTypes lists every non-abstract SemanticType, in the order they
// are declared above.
var concreteTypes = []SemanticType{
	NUMERICAL, BOOLEAN, PRICE, PERCENTAGE, FINANCIAL_RATIO, MOMENTUM, TREND,
	VOLATILITY, VOLUME, SENTIMENT, FORECAST_PROB,
	DECISION_SIGNAL, RISK_LEVEL, OPPORTUNITY_RATING,
}

// anyNumericConcretes is the numeric subset of concreteTypes: everything
// usable as a plain continuous signal, excluding BOOLEAN and the three
// purpose types.
var anyNumericConcretes = []SemanticType{
	NUMERICAL, PERCENTAGE, FINANCIAL_RATIO, MOMENTUM, TREND, VOLATILITY,
	VOLUME, SENTIMENT, FORECAST_PROB, PRICE,
}

// IsAbstract reports whether t is ANY or ANY_NUMERIC.
func (t SemanticType) IsAbstract() bool {
	return t == ANY || t == ANY_NUMERIC
}

// Concretes returns the set of concrete subtypes of an abstract type. It
// returns nil for a concrete type (concretes is only defined on ANY and
// ANY_NUMERIC).
func Concretes(t SemanticType) []SemanticType {
	switch t {
	case ANY:
		return concreteTypes
	case ANY_NUMERIC:
		return anyNumericConcretes
	default:
		return nil
	}
}

func contains(set []SemanticType, t SemanticType) bool {
	for _, s := range set {
		if s == t {
			return true
		}
	}
	return false
}

// Compatible reports whether a child of declared return type c may be used
// where an argument of declared type a is expected: c = a, or c is a
// concrete subtype of a, or (covariantly) a is a concrete subtype of c.
func Compatible(c, a SemanticType) bool {
	if c == a {
		return true
	}
	if contains(Concretes(a), c) {
		return true
	}
	if contains(Concretes(c), a) {
		return true
	}
	return false
}
