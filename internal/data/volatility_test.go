package data

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnualizedVolatility(t *testing.T) {
	// Alternating +1%/-1% log returns.
	closes := []float64{100}
	for i := 0; i < 20; i++ {
		step := 0.01
		if i%2 == 1 {
			step = -0.01
		}
		closes = append(closes, closes[len(closes)-1]*math.Exp(step))
	}
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: day(2025, 1, 1).AddDate(0, 0, i), Close: c}
	}

	vol, err := AnnualizedVolatility(bars)
	require.NoError(t, err)
	// sample sd of twenty alternating ±0.01 returns
	want := math.Sqrt(20*0.0001/19) * math.Sqrt(TradingDaysPerYear)
	assert.InDelta(t, want, vol, 1e-12)
}

func TestAnnualizedVolatility_TooFewBars(t *testing.T) {
	_, err := AnnualizedVolatility([]Bar{{Close: 100}, {Close: 101}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestHistoricalVolatility_Synthetic(t *testing.T) {
	prov := NewSyntheticProvider(11)
	for _, window := range []time.Duration{60 * 24 * time.Hour, 90 * 24 * time.Hour, 365 * 24 * time.Hour} {
		vol, err := HistoricalVolatility(context.Background(), prov, "SPY", day(2025, 3, 31), window)
		require.NoError(t, err)
		// the walk is generated with 20% annualized volatility
		assert.InDelta(t, 0.2, vol, 0.15, "window %s", window)
	}

	vol, err := HistoricalVolatility(context.Background(), NewSyntheticProvider(1), "SPY", day(2025, 1, 2), 60*24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, vol, 0.05)
	assert.Less(t, vol, 0.6)
}

func TestHistoricalVolatility_FallsBackToSecondary(t *testing.T) {
	prov := &stubProvider{name: "empty", secondary: NewSyntheticProvider(11)}
	vol, err := HistoricalVolatility(context.Background(), prov, "SPY", day(2025, 3, 31), 60*24*time.Hour)
	require.NoError(t, err)
	assert.Greater(t, vol, 0.0)

	_, err = HistoricalVolatility(context.Background(), &stubProvider{name: "empty"}, "SPY", day(2025, 3, 31), 60*24*time.Hour)
	assert.ErrorIs(t, err, ErrNoData)
}
