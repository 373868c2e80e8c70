package techreport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/modules/technical"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/techreport"
)

func TestAnalyzeSRLevelsRespectCurrentCloseOrdering(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	require.NotNil(t, report.Daily)

	bars := syntheticBars(300)
	current := bars[len(bars)-1].Close

	for _, s := range report.Daily.SRLevels.Supports {
		assert.Less(t, s.Level, current)
	}
	for _, r := range report.Daily.SRLevels.Resistances {
		assert.GreaterOrEqual(t, r.Level, current)
	}
}

func TestAnalyzeSRLevelsOrderedSupportsDescendingResistancesAscending(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", choppyBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	require.NotNil(t, report.Daily)

	supports := report.Daily.SRLevels.Supports
	for i := 1; i < len(supports); i++ {
		assert.GreaterOrEqual(t, supports[i-1].Level, supports[i].Level)
	}
	resistances := report.Daily.SRLevels.Resistances
	for i := 1; i < len(resistances); i++ {
		assert.LessOrEqual(t, resistances[i-1].Level, resistances[i].Level)
	}
}

// choppyBars oscillates so that both peaks and troughs exist at multiple
// points in the window, unlike the monotonic syntheticBars series.
func choppyBars(n int) []technical.Bar {
	bars := make([]technical.Bar, n)
	price := 100.0
	for i := range bars {
		if i%10 < 5 {
			price += 1
		} else {
			price -= 1
		}
		bars[i] = technical.Bar{Time: time.Unix(int64(i*86400), 0), Open: price, High: price + 2, Low: price - 2, Close: price, Volume: 1000}
	}
	return bars
}
