package backtest

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aristath/sentinel/internal/modules/technical"
)

// SelectorConfig tunes the deterministic Point Selector.
type SelectorConfig struct {
	DayOfMonth         int
	MaxSpecialPoints   int
	VolatilityQuantile float64
	RecencyWeight      float64
}

// DefaultSelectorConfig matches this service's defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{DayOfMonth: 1, MaxSpecialPoints: 100, VolatilityQuantile: 0.95, RecencyWeight: 0.5}
}

// candidate is one significant-point proposal before deduplication.
type candidate struct {
	ts         int64
	eventScore float64
}

// PointSelector deterministically picks "special" backtest dates from
// OHLCV history: one per calendar month, plus volatility/trend/momentum
// events, without any external calls.
type PointSelector struct {
	bars  []technical.Bar
	ind   technical.Indicators
	start time.Time
	end   time.Time
	cfg   SelectorConfig

	selected map[int64]struct{}
}

// NewPointSelector builds a selector over bars (ascending by Time) bounded
// to [start, end]. bars must be non-empty.
func NewPointSelector(bars []technical.Bar, start, end time.Time, cfg SelectorConfig) (*PointSelector, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("backtest: OHLCV bars cannot be empty")
	}
	return &PointSelector{
		bars: bars, ind: technical.Compute(bars), start: start, end: end, cfg: cfg,
		selected: make(map[int64]struct{}),
	}, nil
}

// warmedUp reports whether index i is past every indicator's warm-up
// period (SMA200 is the longest window).
func (s *PointSelector) warmedUp(i int) bool {
	return i >= 200 && i < len(s.bars)
}

// AddMonthlyPoints adds, for each month spanned by [start, end], the
// trading day whose date is the latest one on or before that month's
// DayOfMonth.
func (s *PointSelector) AddMonthlyPoints() *PointSelector {
	for monthStart := firstOfMonth(s.start); !monthStart.After(s.end); monthStart = monthStart.AddDate(0, 1, 0) {
		target := time.Date(monthStart.Year(), monthStart.Month(), s.cfg.DayOfMonth, 0, 0, 0, 0, time.UTC)
		var lastIdx = -1
		for i, b := range s.bars {
			if !b.Time.After(target) {
				lastIdx = i
			} else {
				break
			}
		}
		if lastIdx >= 0 {
			s.selected[s.bars[lastIdx].Time.Unix()] = struct{}{}
		}
	}
	return s
}

// AddSignificantPoints adds up to MaxSpecialPoints volatility-spike,
// trend-cross, and momentum-extreme candidates, deduplicated by date
// (keeping the highest event score) and ranked by a recency-weighted
// final score.
func (s *PointSelector) AddSignificantPoints() *PointSelector {
	candidates := s.findVolatilitySpikes()
	candidates = append(candidates, s.findTrendChanges()...)
	candidates = append(candidates, s.findMomentumExtremes()...)
	if len(candidates) == 0 {
		return s
	}

	distinct := dedupeKeepHighest(candidates)
	scored := applyRecencyBias(distinct, s.cfg.RecencyWeight)

	sort.Slice(scored, func(i, j int) bool { return scored[i].final > scored[j].final })
	if len(scored) > s.cfg.MaxSpecialPoints {
		scored = scored[:s.cfg.MaxSpecialPoints]
	}

	for _, c := range scored {
		t := time.Unix(c.ts, 0).UTC()
		if t.After(s.end) || t.Before(s.start) {
			continue
		}
		s.selected[c.ts] = struct{}{}
	}
	return s
}

func (s *PointSelector) findVolatilitySpikes() []candidate {
	var series []float64
	for i := range s.bars {
		if s.warmedUp(i) {
			series = append(series, s.ind.DailyChangePct[i])
		}
	}
	if len(series) == 0 {
		return nil
	}
	sorted := append([]float64(nil), series...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(s.cfg.VolatilityQuantile, stat.Empirical, sorted, nil)

	var out []candidate
	for i := range s.bars {
		if s.warmedUp(i) && s.ind.DailyChangePct[i] >= threshold {
			out = append(out, candidate{ts: s.bars[i].Time.Unix(), eventScore: 0.7})
		}
	}
	return out
}

func (s *PointSelector) findTrendChanges() []candidate {
	var out []candidate
	for i := 1; i < len(s.bars); i++ {
		if !s.warmedUp(i) || !s.warmedUp(i-1) {
			continue
		}
		golden := s.ind.SMA50[i] > s.ind.SMA200[i] && s.ind.SMA50[i-1] <= s.ind.SMA200[i-1]
		death := s.ind.SMA50[i] < s.ind.SMA200[i] && s.ind.SMA50[i-1] >= s.ind.SMA200[i-1]
		if golden || death {
			out = append(out, candidate{ts: s.bars[i].Time.Unix(), eventScore: 1.0})
		}
	}
	return out
}

func (s *PointSelector) findMomentumExtremes() []candidate {
	var out []candidate
	for i := 1; i < len(s.bars); i++ {
		if !s.warmedUp(i) || !s.warmedUp(i-1) {
			continue
		}
		overbought := s.ind.RSI14[i] > 70 && s.ind.RSI14[i-1] <= 70
		oversold := s.ind.RSI14[i] < 30 && s.ind.RSI14[i-1] >= 30
		if overbought || oversold {
			out = append(out, candidate{ts: s.bars[i].Time.Unix(), eventScore: 0.8})
		}
	}
	return out
}

func dedupeKeepHighest(candidates []candidate) []candidate {
	best := make(map[int64]float64)
	for _, c := range candidates {
		if existing, ok := best[c.ts]; !ok || c.eventScore > existing {
			best[c.ts] = c.eventScore
		}
	}
	out := make([]candidate, 0, len(best))
	for ts, score := range best {
		out = append(out, candidate{ts: ts, eventScore: score})
	}
	return out
}

type scoredCandidate struct {
	ts    int64
	final float64
}

func applyRecencyBias(candidates []candidate, recencyWeight float64) []scoredCandidate {
	minTS, maxTS := candidates[0].ts, candidates[0].ts
	for _, c := range candidates {
		if c.ts < minTS {
			minTS = c.ts
		}
		if c.ts > maxTS {
			maxTS = c.ts
		}
	}

	out := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		var recency float64
		if maxTS == minTS {
			recency = 1.0
		} else {
			recency = float64(c.ts-minTS) / float64(maxTS-minTS)
		}
		out[i] = scoredCandidate{ts: c.ts, final: c.eventScore * (1 + recencyWeight*recency)}
	}
	return out
}

// GetPoints returns the final sorted, deduplicated list of selected
// points.
func (s *PointSelector) GetPoints() []time.Time {
	ts := s.GetPointsAsTimestamps()
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = time.Unix(t, 0).UTC()
	}
	return out
}

// GetPointsAsTimestamps returns the final sorted, deduplicated list of
// selected points as Unix seconds.
func (s *PointSelector) GetPointsAsTimestamps() []int64 {
	out := make([]int64, 0, len(s.selected))
	for ts := range s.selected {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
