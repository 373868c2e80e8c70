package techreport

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/modules/technical"
)

// srHistoryWindow bounds how much trailing history the S/R ladder is
// computed over, mirroring the daily S/R identifier's history_window.
const srHistoryWindow = 90

var fibRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}

// computeSRLevels derives the support/resistance ladders from three of
// the daily S/R identifier's methods: the dynamic moving averages already
// computed for the technical report, classic pivot points off the prior
// bar, and a simple Fibonacci retracement/extension of the recent
// trading range. Every candidate level is bucketed into supports
// (below the current close, sorted descending) or resistances (at or
// above it, sorted ascending), matching sr_levels' ordering invariant.
func computeSRLevels(bars []technical.Bar, ind technical.Indicators, last int) domain.SRLevels {
	window := bars
	if len(window) > srHistoryWindow {
		window = window[len(window)-srHistoryWindow:]
	}
	current := bars[last].Close

	type candidate struct {
		level  float64
		source string
	}
	var candidates []candidate

	if v := ind.SMA50[last]; v != 0 {
		candidates = append(candidates, candidate{v, "sma50"})
	}
	if v := ind.SMA200[last]; v != 0 {
		candidates = append(candidates, candidate{v, "sma200"})
	}

	if last >= 1 {
		prev := bars[last-1]
		h, l, c := prev.High, prev.Low, prev.Close
		pp := (h + l + c) / 3
		candidates = append(candidates,
			candidate{pp, "pivot_pp"},
			candidate{2*pp - l, "pivot_r1"},
			candidate{2*pp - h, "pivot_s1"},
			candidate{pp + (h - l), "pivot_r2"},
			candidate{pp - (h - l), "pivot_s2"},
		)
	}

	swingHigh, swingLow := window[0].High, window[0].Low
	for _, b := range window {
		if b.High > swingHigh {
			swingHigh = b.High
		}
		if b.Low < swingLow {
			swingLow = b.Low
		}
	}
	if priceRange := swingHigh - swingLow; priceRange > 0 {
		for _, ratio := range fibRatios {
			candidates = append(candidates,
				candidate{swingHigh - priceRange*ratio, fmt.Sprintf("fib_retracement_%.3f", ratio)},
				candidate{swingHigh + priceRange*ratio, fmt.Sprintf("fib_extension_%.3f", ratio)},
			)
		}
	}

	var levels domain.SRLevels
	for _, c := range candidates {
		level := math.Round(c.level*100) / 100
		if level < current {
			levels.Supports = append(levels.Supports, domain.SRLevel{Level: level, Source: c.source})
		} else {
			levels.Resistances = append(levels.Resistances, domain.SRLevel{Level: level, Source: c.source})
		}
	}

	sort.Slice(levels.Supports, func(i, j int) bool { return levels.Supports[i].Level > levels.Supports[j].Level })
	sort.Slice(levels.Resistances, func(i, j int) bool { return levels.Resistances[i].Level < levels.Resistances[j].Level })
	return levels
}
