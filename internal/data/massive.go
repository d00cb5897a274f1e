// This file contains a Massive-backed Provider implementation that retrieves
// daily aggregates through the Massive REST client.
//
// Logging is intentionally verbose at Debug/Trace levels for diagnostics.

package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	massive "github.com/massive-com/client-go/v2/rest"
	"github.com/massive-com/client-go/v2/rest/models"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// aggLister fetches all aggregates matching params, following pagination.
type aggLister func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error)

// massiveDataProvider implements the Provider interface using Massive APIs.
type massiveDataProvider struct {
	listAggs aggLister

	// secondary is an optional fallback provider.
	secondary Provider
}

// NewMassiveDataProvider constructs a Massive-backed data provider.
//
// Parameters:
//   - apiKey: Massive API key for authentication
//   - secondary: provider used when Massive fails or has no data (may be nil)
func NewMassiveDataProvider(apiKey string, secondary Provider) Provider {
	logger.Infof("initializing Massive data provider")

	client := massive.New(apiKey)
	return &massiveDataProvider{
		listAggs: func(ctx context.Context, params *models.ListAggsParams) ([]models.Agg, error) {
			iter := client.ListAggs(ctx, params)
			out := []models.Agg{}
			for iter.Next() {
				out = append(out, iter.Item())
			}
			if err := iter.Err(); err != nil {
				return nil, err
			}
			return out, nil
		},
		secondary: secondary,
	}
}

func (massiveDataProv *massiveDataProvider) Name() string { return "massive" }

// Secondary returns the configured secondary Provider, if any.
func (massiveDataProv *massiveDataProvider) Secondary() Provider {
	return massiveDataProv.secondary
}

// GetDailyBars retrieves adjusted daily OHLCV bars for underlying between
// fromDate and toDate inclusive, oldest first.
func (massiveDataProv *massiveDataProvider) GetDailyBars(
	ctx context.Context,
	underlying string,
	fromDate, toDate time.Time,
) ([]Bar, error) {

	logger.Debugf(
		"fetching bars: %s from=%s to=%s",
		underlying,
		fromDate.Format("2006-01-02"),
		toDate.Format("2006-01-02"),
	)

	params := models.ListAggsParams{
		Ticker:     strings.ToUpper(underlying),
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(truncateDay(fromDate)),
		To:         models.Millis(truncateDay(toDate)),
	}.WithOrder(models.Asc).WithAdjusted(true)

	aggs, err := massiveDataProv.listAggs(ctx, params)
	if err != nil {
		logger.Errorf("massive aggregates request failed: %v", err)
		return nil, fmt.Errorf("massive api request failed: %w", err)
	}

	logger.Tracef("bars received: %d records", len(aggs))

	out := make([]Bar, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, Bar{
			Date:  time.Time(a.Timestamp).UTC(),
			Open:  a.Open,
			High:  a.High,
			Low:   a.Low,
			Close: a.Close,
			Vol:   a.Volume,
		})
	}

	return out, nil
}

// SpotPrice returns the last close on or before asOf.
func (massiveDataProv *massiveDataProvider) SpotPrice(ctx context.Context, underlying string, asOf time.Time) (float64, error) {
	return spotPrice(ctx, massiveDataProv, underlying, asOf)
}
