package techreport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modules/technical"
	"github.com/aristath/sentinel/internal/orchestrator"
	"github.com/aristath/sentinel/internal/techreport"
)

func TestAnalyzePatternsOrderedByScoreThenEvidenceDate(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	require.NotNil(t, report.Daily)

	patterns := report.Daily.Patterns
	require.NotEmpty(t, patterns)
	assert.LessOrEqual(t, len(patterns), 4)
	for i := 1; i < len(patterns); i++ {
		if patterns[i-1].Score != patterns[i].Score {
			assert.GreaterOrEqual(t, patterns[i-1].Score, patterns[i].Score)
		} else {
			assert.True(t, !patterns[i-1].EvidenceDate.Before(patterns[i].EvidenceDate))
		}
	}
}

func TestAnalyzeDetectsDojiOnFlatBodyBar(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)

	var names []string
	for _, p := range report.Daily.Patterns {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "Doji")
}

// doubleTopBars builds two similarly-high peaks (separated far enough
// apart that their extrema windows don't overlap) around a single
// well-defined trough, followed by a close that confirms the neckline
// break.
func doubleTopBars() []technical.Bar {
	bars := make([]technical.Bar, 0, 55)
	day := 0
	add := func(open, high, low, close float64) {
		bars = append(bars, technical.Bar{
			Time: time.Unix(int64(day*86400), 0), Open: open, High: high, Low: low, Close: close, Volume: 1000,
		})
		day++
	}
	for i := 0; i < 35; i++ {
		add(100, 101, 99, 100) // flat baseline
	}
	add(100, 105, 99, 104)   // idx35 rising
	add(104, 110, 103, 109)  // idx36 rising
	add(109, 112, 108, 110)  // idx37 peak1
	add(110, 109, 102, 103)  // idx38 falling
	add(103, 104, 97, 98)    // idx39 falling
	add(98, 100, 93, 95)     // idx40 falling
	add(95, 96, 92, 94)      // idx41 trough
	add(94, 103, 95, 101)    // idx42 rising
	add(101, 108, 100, 107)  // idx43 rising
	add(107, 111, 104, 110)  // idx44 rising
	add(110, 111, 107, 110)  // idx45 plateau
	add(110, 111, 109, 110)  // idx46 plateau
	add(110, 111, 110, 110)  // idx47 plateau
	add(110, 112, 108, 111)  // idx48 peak2
	add(111, 105, 95, 98)    // idx49 falling after peak2
	add(98, 97, 88, 90)      // idx50
	add(90, 89, 80, 85)      // idx51
	add(85, 86, 78, 83)      // idx52
	add(83, 84, 76, 80)      // idx53
	add(80, 81, 75, 78)      // idx54 confirmation: close well below neckline (92)
	return bars
}

func TestAnalyzeDetectsDoubleTopChartPattern(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", doubleTopBars(), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	require.NotNil(t, report.Daily)

	found := false
	for _, p := range report.Daily.Patterns {
		if p.Name == "Double Top" {
			found = true
			assert.Equal(t, domain.PatternTypeChart, p.Type)
			assert.Equal(t, domain.SentimentBearish, p.Sentiment)
		}
	}
	assert.True(t, found, "expected a Double Top pattern, got %+v", report.Daily.Patterns)
}
