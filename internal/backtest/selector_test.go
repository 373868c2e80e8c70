package backtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/backtest"
	"github.com/aristath/sentinel/internal/modules/technical"
)

func syntheticBars(n int) []technical.Bar {
	bars := make([]technical.Bar, n)
	price := 100.0
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		if i%17 == 0 {
			price *= 1.08
		} else {
			price *= 1.0005
		}
		bars[i] = technical.Bar{Time: start.AddDate(0, 0, i), Close: price, Open: price, High: price, Low: price, Volume: 1000}
	}
	return bars
}

// Invariant 7: selecting over the same OHLCV and config twice yields
// identical sorted timestamp lists.
func TestPointSelectorIdempotence(t *testing.T) {
	bars := syntheticBars(400)
	start, end := bars[0].Time, bars[len(bars)-1].Time
	cfg := backtest.DefaultSelectorConfig()

	run := func() []int64 {
		sel, err := backtest.NewPointSelector(bars, start, end, cfg)
		require.NoError(t, err)
		sel.AddMonthlyPoints().AddSignificantPoints()
		return sel.GetPointsAsTimestamps()
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)

	for i := 1; i < len(first); i++ {
		assert.Less(t, first[i-1], first[i])
	}
}

func TestPointSelectorRejectsEmptyBars(t *testing.T) {
	_, err := backtest.NewPointSelector(nil, time.Now(), time.Now(), backtest.DefaultSelectorConfig())
	assert.Error(t, err)
}
