// Package technical is the indicator-math leaf: it computes the per-bar
// RSI/SMA features that both the Point Selector and the technical
// AnalysisReport section are built from. The spec treats this math as an
// external collaborator; this implementation is the real (not stubbed)
// producer behind that boundary, backed by go-talib rather than
// hand-rolled rolling windows.
package technical

import (
	"time"

	talib "github.com/markcheno/go-talib"
)

// Bar is one OHLCV row.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Indicators holds the per-bar indicator series this service's Point
// Selector and technical report depend on, aligned index-for-index with
// the input bars (go-talib pads the warm-up period with zeros).
type Indicators struct {
	RSI14           []float64
	SMA50           []float64
	SMA200          []float64
	DailyChangePct  []float64
}

// Compute derives RSI(14), SMA(50), SMA(200), and the absolute daily
// percentage change series from a bar sequence ordered oldest-first.
func Compute(bars []Bar) Indicators {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	return Indicators{
		RSI14:          talib.Rsi(closes, 14),
		SMA50:          talib.Sma(closes, 50),
		SMA200:         talib.Sma(closes, 200),
		DailyChangePct: dailyChangePct(closes),
	}
}

func dailyChangePct(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		change := (closes[i] - closes[i-1]) / closes[i-1] * 100
		if change < 0 {
			change = -change
		}
		out[i] = change
	}
	return out
}
