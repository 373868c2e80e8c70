// Package techreport adapts the technical indicator leaf module into
// orchestrator.TechAnalyzer, turning a bar series into the technical
// sub-report shape the full analysis response carries.
package techreport

import (
	"context"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modules/technical"
	"github.com/aristath/sentinel/internal/orchestrator"
)

// Analyzer implements orchestrator.TechAnalyzer, deriving key indicators,
// trend, a support/resistance ladder, and ranked candlestick/chart
// patterns from a bar series.
type Analyzer struct{}

// NewAnalyzer creates a technical analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze implements orchestrator.TechAnalyzer.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, daily, intraday []technical.Bar, scope orchestrator.Scope) (*domain.TechnicalReport, error) {
	report := &domain.TechnicalReport{}

	if scope == orchestrator.ScopeDaily || scope == orchestrator.ScopeAll {
		if len(daily) > 0 {
			report.Daily = subReport(daily)
		}
	}
	if scope == orchestrator.ScopeIntraday || scope == orchestrator.ScopeAll {
		if len(intraday) > 0 {
			report.Intraday = subReport(intraday)
		}
	}
	return report, nil
}

func subReport(bars []technical.Bar) *domain.TechnicalSubReport {
	ind := technical.Compute(bars)
	last := len(bars) - 1

	keyIndicators := map[string]*float64{
		"close": ptr(bars[last].Close),
		"rsi14": ptr(ind.RSI14[last]),
	}
	if ind.SMA50[last] != 0 {
		keyIndicators["sma50"] = ptr(ind.SMA50[last])
	}
	if ind.SMA200[last] != 0 {
		keyIndicators["sma200"] = ptr(ind.SMA200[last])
	}

	return &domain.TechnicalSubReport{
		KeyIndicators: keyIndicators,
		Trend:         trendFromSMA(ind, last),
		SRLevels:      computeSRLevels(bars, ind, last),
		Patterns:      computePatterns(bars),
	}
}

func trendFromSMA(ind technical.Indicators, last int) domain.Trend {
	view := domain.TrendView{Direction: domain.DirectionUndefined, Strength: domain.StrengthUndefined, Evidence: map[string]float64{}}

	sma50, sma200 := ind.SMA50[last], ind.SMA200[last]
	if sma50 == 0 || sma200 == 0 {
		return domain.Trend{Short: view, Mid: view, Long: view}
	}

	spreadPct := (sma50 - sma200) / sma200 * 100
	view.Evidence["sma50_sma200_spread_pct"] = spreadPct

	switch {
	case spreadPct > 0:
		view.Direction = domain.DirectionUptrend
	case spreadPct < 0:
		view.Direction = domain.DirectionDowntrend
	default:
		view.Direction = domain.DirectionUndefined
	}

	abs := spreadPct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 5:
		view.Strength = domain.StrengthStrong
	case abs >= 1:
		view.Strength = domain.StrengthModerate
	default:
		view.Strength = domain.StrengthWeak
	}

	return domain.Trend{Short: view, Mid: view, Long: view}
}

func ptr(v float64) *float64 { return &v }
