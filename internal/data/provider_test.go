package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// stubProvider serves fixed bars or a fixed error.
type stubProvider struct {
	name      string
	bars      []Bar
	err       error
	secondary Provider
	calls     int
}

func (s *stubProvider) Name() string        { return s.name }
func (s *stubProvider) Secondary() Provider { return s.secondary }

func (s *stubProvider) GetDailyBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := []Bar{}
	for _, b := range s.bars {
		if !b.Date.Before(fromDate) && !b.Date.After(toDate) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubProvider) SpotPrice(ctx context.Context, underlying string, asOf time.Time) (float64, error) {
	return spotPrice(ctx, s, underlying, asOf)
}

func TestMatchBarDate(t *testing.T) {
	dates := []time.Time{day(2025, 1, 10), day(2025, 1, 2), day(2025, 1, 6)}
	target := day(2025, 1, 5)

	assert.True(t, MatchBarDate(target, dates, MatchExact).IsZero())
	assert.Equal(t, day(2025, 1, 2), MatchBarDate(target, dates, MatchLower))
	assert.Equal(t, day(2025, 1, 6), MatchBarDate(target, dates, MatchHigher))
	assert.Equal(t, day(2025, 1, 6), MatchBarDate(target, dates, MatchNearest))
	assert.Equal(t, day(2025, 1, 6), MatchBarDate(target, dates, "bogus"))
	assert.Equal(t, day(2025, 1, 10), MatchBarDate(day(2025, 1, 10), dates, MatchExact))
	assert.Equal(t, day(2025, 1, 10), MatchBarDate(day(2025, 1, 6), dates, MatchHigher))
	assert.Equal(t, day(2025, 1, 2), MatchBarDate(day(2025, 1, 4), dates, MatchNearest)) // tie goes lower
	assert.True(t, MatchBarDate(target, nil, MatchNearest).IsZero())

	// input order is untouched
	assert.Equal(t, []time.Time{day(2025, 1, 10), day(2025, 1, 2), day(2025, 1, 6)}, dates)
}

func TestClosest(t *testing.T) {
	strikes := []float64{90, 95, 100, 105}
	assert.Equal(t, 100.0, Closest(strikes, 101.2))
	assert.Equal(t, 90.0, Closest(strikes, 10))
	assert.Equal(t, 105.0, Closest(strikes, 500))
	assert.Equal(t, 42.0, Closest(nil, 42))
}

func TestOptionSymbolFromParts(t *testing.T) {
	assert.Equal(t, "O:SPY250117C00580000", OptionSymbolFromParts("spy", day(2025, 1, 17), "call", 580))
	assert.Equal(t, "O:AAPL250620P00187500", OptionSymbolFromParts("AAPL", day(2025, 6, 20), "P", 187.5))
}

func TestSpotPrice_LastBarOnOrBefore(t *testing.T) {
	prov := &stubProvider{name: "stub", bars: []Bar{
		{Date: day(2025, 1, 2), Close: 101},
		{Date: day(2025, 1, 3), Close: 102},
		{Date: day(2025, 1, 6), Close: 106},
	}}

	spot, err := prov.SpotPrice(context.Background(), "SPY", day(2025, 1, 5)) // Sunday
	require.NoError(t, err)
	assert.Equal(t, 102.0, spot)

	spot, err = prov.SpotPrice(context.Background(), "SPY", day(2025, 1, 6).Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 106.0, spot)
}

func TestSpotPrice_NoData(t *testing.T) {
	prov := &stubProvider{name: "stub", bars: []Bar{{Date: day(2024, 1, 2), Close: 50}}}

	_, err := prov.SpotPrice(context.Background(), "SPY", day(2025, 1, 5))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSpotPrice_FallsBackToSecondary(t *testing.T) {
	secondary := &stubProvider{name: "backup", bars: []Bar{{Date: day(2025, 1, 3), Close: 77}}}
	primary := &stubProvider{name: "primary", err: errors.New("boom"), secondary: secondary}

	spot, err := primary.SpotPrice(context.Background(), "SPY", day(2025, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, 77.0, spot)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}
