// Package data supplies underlying spot prices to the pricer.
//
// A Provider returns daily bars and the spot price as of a date. Providers
// can be chained: when the primary cannot answer, the request is delegated to
// its Secondary.
package data

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/contactkeval/option-lattice/internal/logger"
)

type DateMatchType string

// SpotLookback is how far back SpotPrice searches for a bar.
const SpotLookback = 10 * 24 * time.Hour

// ErrNoData is returned when a provider has no bar for the requested window.
var ErrNoData = errors.New("no market data")

// Provider supplies market data
type Provider interface {
	Name() string
	Secondary() Provider
	GetDailyBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error)
	SpotPrice(ctx context.Context, underlying string, asOf time.Time) (float64, error)
}

const (
	MatchExact   DateMatchType = "exact"   // must match exactly
	MatchHigher  DateMatchType = "higher"  // next available date after target
	MatchLower   DateMatchType = "lower"   // last available date before target
	MatchNearest DateMatchType = "nearest" // closest available date (default)
)

// Bar simplified OHLC
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
	Vol   float64
}

// spotPrice is the SpotPrice implementation shared by all providers: the
// close of the last bar on or before asOf, falling back to p.Secondary().
func spotPrice(ctx context.Context, p Provider, underlying string, asOf time.Time) (float64, error) {
	day := truncateDay(asOf)
	bars, err := p.GetDailyBars(ctx, underlying, day.Add(-SpotLookback), day)
	if err == nil {
		if bar, ok := lastBarOnOrBefore(bars, day); ok {
			logger.Debugf("spot %s as of %s = %.4f (%s bar %s)",
				underlying, day.Format("2006-01-02"), bar.Close, p.Name(), bar.Date.Format("2006-01-02"))
			return bar.Close, nil
		}
		err = fmt.Errorf("%w: %s on or before %s", ErrNoData, underlying, day.Format("2006-01-02"))
	}

	if sec := p.Secondary(); sec != nil {
		logger.Debugf("%s spot lookup failed (%v), delegating to %s", p.Name(), err, sec.Name())
		return sec.SpotPrice(ctx, underlying, asOf)
	}
	return 0, fmt.Errorf("%s: %w", p.Name(), err)
}

func lastBarOnOrBefore(bars []Bar, day time.Time) (Bar, bool) {
	if len(bars) == 0 {
		return Bar{}, false
	}
	dates := make([]time.Time, 0, len(bars))
	byDate := make(map[time.Time]Bar, len(bars))
	for _, b := range bars {
		d := truncateDay(b.Date)
		dates = append(dates, d)
		byDate[d] = b
	}

	match := MatchBarDate(day, dates, MatchExact)
	if match.IsZero() {
		match = MatchBarDate(day, dates, MatchLower)
	}
	if match.IsZero() {
		return Bar{}, false
	}
	bar := byDate[match]
	return bar, bar.Close > 0
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// --------------------------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------------------------

// OptionSymbolFromParts formats an OCC-style ticker:
// O:<ROOT><YYMMDD><C|P><strike*1000, 8 digits>.
func OptionSymbolFromParts(underlying string, expiry time.Time, optionType string, strike float64) string {
	right := "C"
	switch strings.ToLower(optionType) {
	case "put", "p":
		right = "P"
	}
	return fmt.Sprintf("O:%s%s%s%08d",
		strings.ToUpper(underlying), expiry.UTC().Format("060102"), right, int(math.Round(strike*1000)))
}

// MatchBarDate picks a date from dates relative to d according to mode.
// Unknown modes behave like MatchNearest; ties go to the earlier date.
// dates is not modified. A zero time means no match.
func MatchBarDate(d time.Time, dates []time.Time, mode DateMatchType) time.Time {
	sorted := append([]time.Time(nil), dates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	// first index not before d
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(d) })

	var exact, lower, higher time.Time
	if i > 0 {
		lower = sorted[i-1]
	}
	for i < len(sorted) && sorted[i].Equal(d) {
		exact = sorted[i]
		i++
	}
	if i < len(sorted) {
		higher = sorted[i]
	}

	switch mode {
	case MatchExact:
		return exact
	case MatchLower:
		return lower
	case MatchHigher:
		return higher
	}

	switch {
	case !exact.IsZero():
		return exact
	case lower.IsZero():
		return higher
	case higher.IsZero():
		return lower
	case d.Sub(lower) <= higher.Sub(d):
		return lower
	}
	return higher
}

// Closest returns the value of sorted nearest to target, preferring the
// higher value on a tie. An empty slice returns target.
func Closest(sorted []float64, target float64) float64 {
	n := len(sorted)
	if n == 0 {
		return target
	}
	i := sort.SearchFloat64s(sorted, target)
	switch {
	case i == 0:
		return sorted[0]
	case i == n:
		return sorted[n-1]
	case target-sorted[i-1] < sorted[i]-target:
		return sorted[i-1]
	}
	return sorted[i]
}
