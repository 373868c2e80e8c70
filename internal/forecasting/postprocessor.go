package forecasting

import "math"

// Distribution is an N-day distribution regressor's raw prediction,
// broken out into its named statistical fields so the post-processor
// pipeline can enforce the semantic constraints invariant 6 requires.
type Distribution struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	Q25  float64
	Q75  float64
}

// Vector returns the distribution in the AnalysisReport's fixed
// [mean, std, min, max, q25, q75] field order.
func (d Distribution) Vector() []float64 {
	return []float64{d.Mean, d.Std, d.Min, d.Max, d.Q25, d.Q75}
}

// DistributionProcessor transforms a distribution prediction, given the
// base price the forecast was computed relative to (0 if not applicable).
type DistributionProcessor interface {
	Process(d Distribution, basePrice float64) Distribution
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInvariantsProcessor enforces the n-day distribution's semantic
// constraints: std >= 0; if min > max both collapse to their mean; mean,
// q25, q75 are clipped into [min, max]; if q25 > q75 both collapse to
// their mean.
type ClampInvariantsProcessor struct{}

func (ClampInvariantsProcessor) Process(d Distribution, _ float64) Distribution {
	if d.Std < 0 {
		d.Std = 0
	}
	if d.Min > d.Max {
		mean := (d.Min + d.Max) / 2
		d.Min, d.Max = mean, mean
	}
	d.Mean = clip(d.Mean, d.Min, d.Max)
	d.Q25 = clip(d.Q25, d.Min, d.Max)
	d.Q75 = clip(d.Q75, d.Min, d.Max)
	if d.Q25 > d.Q75 {
		mean := (d.Q25 + d.Q75) / 2
		d.Q25, d.Q75 = mean, mean
	}
	return d
}

// DenormalizeProcessor maps percentage forecasts to absolute price levels
// given a base price: std is scale-only (multiplied by base price), the
// remaining targets are base * (1 + pct).
type DenormalizeProcessor struct{}

func (DenormalizeProcessor) Process(d Distribution, basePrice float64) Distribution {
	return Distribution{
		Mean: basePrice * (1 + d.Mean),
		Std:  basePrice * d.Std,
		Min:  basePrice * (1 + d.Min),
		Max:  basePrice * (1 + d.Max),
		Q25:  basePrice * (1 + d.Q25),
		Q75:  basePrice * (1 + d.Q75),
	}
}

// RoundingProcessor rounds every field to Decimals decimal places.
type RoundingProcessor struct {
	Decimals int
}

func (r RoundingProcessor) Process(d Distribution, _ float64) Distribution {
	factor := math.Pow(10, float64(r.Decimals))
	round := func(v float64) float64 { return math.Round(v*factor) / factor }
	return Distribution{
		Mean: round(d.Mean), Std: round(d.Std), Min: round(d.Min),
		Max: round(d.Max), Q25: round(d.Q25), Q75: round(d.Q75),
	}
}

// Pipeline runs an ordered list of processors over a distribution
// prediction.
type Pipeline []DistributionProcessor

// Run applies every processor in order, threading basePrice through each.
func (p Pipeline) Run(d Distribution, basePrice float64) Distribution {
	for _, proc := range p {
		d = proc.Process(d, basePrice)
	}
	return d
}

// DefaultPipeline is this service's standard n-day distribution
// post-processor ordering: invariant clamping, then de-normalization,
// then rounding.
func DefaultPipeline(decimals int) Pipeline {
	return Pipeline{
		ClampInvariantsProcessor{},
		DenormalizeProcessor{},
		RoundingProcessor{Decimals: decimals},
	}
}
