package forecasting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/forecasting"
)

// Invariant 6: after the clamp-invariants stage, 0 <= std,
// min <= q25 <= q75 <= max, and min <= mean <= max.
func TestClampInvariantsProcessor(t *testing.T) {
	cases := []forecasting.Distribution{
		{Mean: 5, Std: -1, Min: 10, Max: -10, Q25: 100, Q75: -100},
		{Mean: 0.5, Std: 0.2, Min: 0, Max: 1, Q25: 0.9, Q75: 0.1},
		{Mean: 0, Std: 0, Min: 0, Max: 0, Q25: 0, Q75: 0},
	}
	proc := forecasting.ClampInvariantsProcessor{}
	for _, d := range cases {
		out := proc.Process(d, 0)
		assert.GreaterOrEqual(t, out.Std, 0.0)
		assert.LessOrEqual(t, out.Min, out.Q25)
		assert.LessOrEqual(t, out.Q25, out.Q75)
		assert.LessOrEqual(t, out.Q75, out.Max)
		assert.LessOrEqual(t, out.Min, out.Mean)
		assert.LessOrEqual(t, out.Mean, out.Max)
	}
}

func TestDenormalizeProcessorScalesStdOnly(t *testing.T) {
	d := forecasting.Distribution{Mean: 0.1, Std: 0.02, Min: -0.05, Max: 0.2, Q25: 0.05, Q75: 0.15}
	out := forecasting.DenormalizeProcessor{}.Process(d, 100)
	assert.InDelta(t, 100*(1+0.1), out.Mean, 1e-9)
	assert.InDelta(t, 100*0.02, out.Std, 1e-9)
}

func TestRoundingProcessor(t *testing.T) {
	d := forecasting.Distribution{Mean: 1.23456, Std: 0.00001}
	out := forecasting.RoundingProcessor{Decimals: 2}.Process(d, 0)
	assert.Equal(t, 1.23, out.Mean)
	assert.Equal(t, 0.0, out.Std)
}

func TestDefaultPipelineOrdering(t *testing.T) {
	d := forecasting.Distribution{Mean: 5, Std: -1, Min: 10, Max: -10, Q25: 100, Q75: -100}
	out := forecasting.DefaultPipeline(2).Run(d, 50)
	assert.GreaterOrEqual(t, out.Std, 0.0)
	assert.LessOrEqual(t, out.Min, out.Max)
}
