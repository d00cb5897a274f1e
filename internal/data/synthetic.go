package data

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

// syntheticEpoch anchors every synthetic walk. The close on the epoch is Base.
var syntheticEpoch = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)

// synthDataProvider implements Provider generating synthetic data.
//
// Closes follow a driftless geometric random walk over weekdays, anchored
// at syntheticEpoch. Each day's log return is drawn from a generator keyed
// by the seed, the underlying and the date, so a bar does not depend on the
// requested window.
type synthDataProvider struct {
	Seed  int64
	Base  float64 // close on syntheticEpoch
	Sigma float64 // annualized volatility of the walk
}

func NewSyntheticProvider(seed int64) Provider {
	return &synthDataProvider{Seed: seed, Base: 100, Sigma: 0.2}
}

func (synthDataProv *synthDataProvider) Name() string { return "synthetic" }

// Secondary returns nil: synthetic data is always available.
func (synthDataProv *synthDataProvider) Secondary() Provider { return nil }

func (synthDataProv *synthDataProvider) GetDailyBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	from, to := truncateDay(fromDate), truncateDay(toDate)
	bars := []Bar{}
	if to.Before(from) {
		return bars, nil
	}

	level, err := synthDataProv.logLevel(ctx, underlying, from.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !isWeekday(d) {
			continue
		}
		rng := synthDataProv.draws(underlying, d)
		level += synthDataProv.dailyVol() * rng.NormFloat64()
		bars = append(bars, synthDataProv.bar(rng, d, level))
	}
	return bars, nil
}

func (synthDataProv *synthDataProvider) SpotPrice(ctx context.Context, underlying string, asOf time.Time) (float64, error) {
	return spotPrice(ctx, synthDataProv, underlying, asOf)
}

func (synthDataProv *synthDataProvider) dailyVol() float64 {
	return synthDataProv.Sigma / math.Sqrt(TradingDaysPerYear)
}

// draws returns the generator for one day. Its first normal draw is the
// day's close-to-close log return.
func (synthDataProv *synthDataProvider) draws(underlying string, day time.Time) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(underlying)))
	return rand.New(rand.NewPCG(uint64(synthDataProv.Seed)^h.Sum64(), uint64(day.Unix())))
}

// logLevel returns log(close/Base) at the end of day: the sum of weekday
// returns between syntheticEpoch and day.
func (synthDataProv *synthDataProvider) logLevel(ctx context.Context, underlying string, day time.Time) (float64, error) {
	lo, hi, sign := syntheticEpoch, day, 1.0
	if day.Before(syntheticEpoch) {
		lo, hi, sign = day, syntheticEpoch, -1.0
	}

	sum := 0.0
	for d := lo.AddDate(0, 0, 1); !d.After(hi); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Monday {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if isWeekday(d) {
			sum += synthDataProv.dailyVol() * synthDataProv.draws(underlying, d).NormFloat64()
		}
	}
	return sign * sum, nil
}

// bar builds the day's OHLCV from the close level and the rest of rng.
func (synthDataProv *synthDataProvider) bar(rng *rand.Rand, day time.Time, level float64) Bar {
	vol := synthDataProv.dailyVol()
	closePx := synthDataProv.Base * math.Exp(level)
	openPx := closePx * math.Exp(0.5*vol*rng.NormFloat64())
	high := math.Max(openPx, closePx) * math.Exp(0.25*vol*math.Abs(rng.NormFloat64()))
	low := math.Min(openPx, closePx) * math.Exp(-0.25*vol*math.Abs(rng.NormFloat64()))

	return Bar{
		Date:  day,
		Open:  round2(openPx),
		High:  round2(high),
		Low:   round2(low),
		Close: round2(closePx),
		Vol:   float64(100000 + rng.IntN(900000)),
	}
}

func isWeekday(d time.Time) bool {
	return d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
