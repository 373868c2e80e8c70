package techreport

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modules/technical"
)

const (
	patternHistoryWindow = 90
	patternLookback      = 5
	patternDistance      = 5
	patternTolerance     = 0.02
	topPatterns          = 4
)

// computePatterns scans the recent bar window for candlestick patterns
// (per-bar body/wick heuristics) and chart patterns (double top/double
// bottom off local extrema), ranks them score descending then evidence
// date descending, and keeps the top topPatterns, matching the daily
// pattern recognizer's find_patterns/_filter_and_prioritize shape.
func computePatterns(bars []technical.Bar) []domain.Pattern {
	window := bars
	if len(window) > patternHistoryWindow {
		window = window[len(window)-patternHistoryWindow:]
	}
	if len(window) < 3 {
		return nil
	}

	var all []domain.Pattern
	all = append(all, candlestickPatterns(window, patternLookback)...)

	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, b := range window {
		highs[i], lows[i] = b.High, b.Low
	}
	peaks, _ := localExtrema(highs, patternDistance)
	_, troughs := localExtrema(lows, patternDistance)

	if p := detectDoubleTop(window, peaks, troughs, patternTolerance); p != nil {
		all = append(all, *p)
	}
	if p := detectDoubleBottom(window, peaks, troughs, patternTolerance); p != nil {
		all = append(all, *p)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].EvidenceDate.After(all[j].EvidenceDate)
	})
	if len(all) > topPatterns {
		all = all[:topPatterns]
	}
	return all
}

// candlestickPatterns checks the last lookback bars for a handful of
// single/two-candle formations, identified directly off each bar's
// body/wick ratios rather than the upstream CDL* column mapping, since
// this runtime's indicator leaf only computes RSI/SMA.
func candlestickPatterns(bars []technical.Bar, lookback int) []domain.Pattern {
	start := len(bars) - lookback
	if start < 1 {
		start = 1
	}

	var out []domain.Pattern
	for i := start; i < len(bars); i++ {
		b := bars[i]
		body := math.Abs(b.Close - b.Open)
		rng := b.High - b.Low
		if rng <= 0 {
			continue
		}
		upperWick := b.High - math.Max(b.Close, b.Open)
		lowerWick := math.Min(b.Close, b.Open) - b.Low

		if body <= 0.1*rng {
			out = append(out, domain.Pattern{
				Name: "Doji", Type: domain.PatternTypeCandlestick, Sentiment: domain.SentimentNeutral,
				Score: 30, Evidence: "body within 10% of the bar's range", EvidenceDate: b.Time,
			})
		}
		if lowerWick >= 2*body && upperWick <= body && b.Close >= b.Open {
			out = append(out, domain.Pattern{
				Name: "Hammer", Type: domain.PatternTypeCandlestick, Sentiment: domain.SentimentBullish,
				Score: 60, Evidence: "long lower wick, small upper wick, bullish body", EvidenceDate: b.Time,
			})
		}
		if upperWick >= 2*body && lowerWick <= body && b.Close <= b.Open {
			out = append(out, domain.Pattern{
				Name: "Shooting Star", Type: domain.PatternTypeCandlestick, Sentiment: domain.SentimentBearish,
				Score: 60, Evidence: "long upper wick, small lower wick, bearish body", EvidenceDate: b.Time,
			})
		}

		prev := bars[i-1]
		prevBody := math.Abs(prev.Close - prev.Open)
		if prevBody == 0 {
			continue
		}
		switch {
		case prev.Close < prev.Open && b.Close > b.Open && b.Open < prev.Close && b.Close > prev.Open:
			out = append(out, domain.Pattern{
				Name: "Bullish Engulfing", Type: domain.PatternTypeCandlestick, Sentiment: domain.SentimentBullish,
				Score: 75, Evidence: "current bullish body engulfs prior bearish body", EvidenceDate: b.Time,
			})
		case prev.Close > prev.Open && b.Close < b.Open && b.Open > prev.Close && b.Close < prev.Open:
			out = append(out, domain.Pattern{
				Name: "Bearish Engulfing", Type: domain.PatternTypeCandlestick, Sentiment: domain.SentimentBearish,
				Score: 75, Evidence: "current bearish body engulfs prior bullish body", EvidenceDate: b.Time,
			})
		}
	}
	return out
}

// localExtrema finds strict local maxima/minima over a +-distance
// neighborhood, a simplified stand-in for the upstream scipy
// find_peaks-based extrema detection.
func localExtrema(values []float64, distance int) (peaks, troughs []int) {
	n := len(values)
	for i := 0; i < n; i++ {
		isPeak, isTrough := true, true
		for j := i - distance; j <= i+distance; j++ {
			if j < 0 || j >= n || j == i {
				continue
			}
			if values[j] >= values[i] {
				isPeak = false
			}
			if values[j] <= values[i] {
				isTrough = false
			}
		}
		if isPeak {
			peaks = append(peaks, i)
		}
		if isTrough {
			troughs = append(troughs, i)
		}
	}
	return peaks, troughs
}

// detectDoubleTop looks for two similarly-high peaks separated by a
// confirmed neckline break, following the daily pattern recognizer's
// _is_double_top.
func detectDoubleTop(bars []technical.Bar, peaks, troughs []int, tolerance float64) *domain.Pattern {
	if len(peaks) < 2 || len(troughs) < 1 {
		return nil
	}
	p1, p2 := peaks[len(peaks)-2], peaks[len(peaks)-1]

	neckline := -1
	for _, t := range troughs {
		if t > p1 && t < p2 {
			neckline = t
		}
	}
	if neckline == -1 {
		return nil
	}

	h1, h2, nl := bars[p1].High, bars[p2].High, bars[neckline].Low
	similar := math.Abs(h1-h2)/((h1+h2)/2) < tolerance
	confirmed := bars[len(bars)-1].Close < nl
	if !(h1 > nl && h2 > nl && similar && confirmed) {
		return nil
	}

	return &domain.Pattern{
		Name: "Double Top", Type: domain.PatternTypeChart, Sentiment: domain.SentimentBearish, Score: 100,
		Evidence: fmt.Sprintf("peak1=%.2f@%s peak2=%.2f@%s neckline=%.2f@%s",
			h1, bars[p1].Time.Format("2006-01-02"), h2, bars[p2].Time.Format("2006-01-02"),
			nl, bars[neckline].Time.Format("2006-01-02")),
		EvidenceDate: bars[len(bars)-1].Time,
	}
}

// detectDoubleBottom mirrors detectDoubleTop for a bullish reversal,
// following _is_double_bottom.
func detectDoubleBottom(bars []technical.Bar, peaks, troughs []int, tolerance float64) *domain.Pattern {
	if len(troughs) < 2 || len(peaks) < 1 {
		return nil
	}
	t1, t2 := troughs[len(troughs)-2], troughs[len(troughs)-1]

	neckline := -1
	for _, p := range peaks {
		if p > t1 && p < t2 {
			neckline = p
		}
	}
	if neckline == -1 {
		return nil
	}

	l1, l2, nl := bars[t1].Low, bars[t2].Low, bars[neckline].High
	similar := math.Abs(l1-l2)/((l1+l2)/2) < tolerance
	confirmed := bars[len(bars)-1].Close > nl
	if !(l1 < nl && l2 < nl && similar && confirmed) {
		return nil
	}

	return &domain.Pattern{
		Name: "Double Bottom", Type: domain.PatternTypeChart, Sentiment: domain.SentimentBullish, Score: 100,
		Evidence: fmt.Sprintf("trough1=%.2f@%s trough2=%.2f@%s neckline=%.2f@%s",
			l1, bars[t1].Time.Format("2006-01-02"), l2, bars[t2].Time.Format("2006-01-02"),
			nl, bars[neckline].Time.Format("2006-01-02")),
		EvidenceDate: bars[len(bars)-1].Time,
	}
}
