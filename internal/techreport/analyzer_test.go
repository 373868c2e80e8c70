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

func syntheticBars(n int) []technical.Bar {
	bars := make([]technical.Bar, n)
	price := 100.0
	for i := range bars {
		price += 0.5
		bars[i] = technical.Bar{Time: time.Unix(int64(i*86400), 0), Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000}
	}
	return bars
}

func TestAnalyzeDailyScopePopulatesKeyIndicators(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	require.NotNil(t, report.Daily)
	assert.Nil(t, report.Intraday)
	assert.NotNil(t, report.Daily.KeyIndicators["close"])
	assert.NotNil(t, report.Daily.KeyIndicators["rsi14"])
}

func TestAnalyzeAllScopePopulatesBothSubReports(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), syntheticBars(50), orchestrator.ScopeAll)
	require.NoError(t, err)
	assert.NotNil(t, report.Daily)
	assert.NotNil(t, report.Intraday)
}

func TestTrendDirectionUptrendWhenSMA50AboveSMA200(t *testing.T) {
	a := techreport.NewAnalyzer()
	report, err := a.Analyze(context.Background(), "AAA", syntheticBars(300), nil, orchestrator.ScopeDaily)
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionUptrend, report.Daily.Trend.Short.Direction)
}
