package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// TradingDaysPerYear annualizes daily return volatility.
const TradingDaysPerYear = 252

// AnnualizedVolatility is the sample standard deviation of daily log returns
// of closes, scaled by sqrt(TradingDaysPerYear). Bars must be oldest first.
func AnnualizedVolatility(bars []Bar) (float64, error) {
	rets := make(stats.Float64Data, 0, len(bars))
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Close, bars[i].Close
		if prev <= 0 || cur <= 0 {
			continue
		}
		rets = append(rets, math.Log(cur/prev))
	}
	if len(rets) < 2 {
		return 0, fmt.Errorf("%w: need at least three closes for volatility, got %d returns", ErrNoData, len(rets))
	}
	sd, err := stats.StandardDeviationSample(rets)
	if err != nil {
		return 0, err
	}
	return sd * math.Sqrt(TradingDaysPerYear), nil
}

// HistoricalVolatility fetches lookback worth of bars ending at asOf from p,
// falling back to p.Secondary(), and annualizes their volatility.
func HistoricalVolatility(ctx context.Context, p Provider, underlying string, asOf time.Time, lookback time.Duration) (float64, error) {
	to := truncateDay(asOf)
	bars, err := p.GetDailyBars(ctx, underlying, to.Add(-lookback), to)
	if err == nil {
		var vol float64
		if vol, err = AnnualizedVolatility(bars); err == nil {
			return vol, nil
		}
	}
	if sec := p.Secondary(); sec != nil {
		return HistoricalVolatility(ctx, sec, underlying, asOf, lookback)
	}
	return 0, fmt.Errorf("%s: %w", p.Name(), err)
}
