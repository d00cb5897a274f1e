package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// csvBar is one row of <dir>/<UNDERLYING>.csv.
type csvBar struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// localCSVDataProvider implements Provider from per-underlying CSV files.
type localCSVDataProvider struct {
	dir       string
	secondary Provider
}

// NewLocalCSVProvider reads bars from dir, delegating to secondary when a
// file or date is missing. secondary may be nil.
func NewLocalCSVProvider(dir string, secondary Provider) Provider {
	return &localCSVDataProvider{dir: dir, secondary: secondary}
}

func (localCSVDataProv *localCSVDataProvider) Name() string { return "local-csv" }

func (localCSVDataProv *localCSVDataProvider) Secondary() Provider {
	return localCSVDataProv.secondary
}

func (localCSVDataProv *localCSVDataProvider) GetDailyBars(ctx context.Context, underlying string, fromDate, toDate time.Time) ([]Bar, error) {
	path := filepath.Join(localCSVDataProv.dir, strings.ToUpper(underlying)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoData, path)
		}
		return nil, err
	}
	defer f.Close()

	var rows []*csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read csv %s: %w", path, err)
	}

	from, to := truncateDay(fromDate), truncateDay(toDate)
	out := make([]Bar, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date))
		if err != nil {
			logger.Tracef("skipping row with bad date %q in %s", r.Date, path)
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, Bar{Date: d, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Vol: r.Volume})
	}
	logger.Tracef("local csv %s: %d bars in range", path, len(out))
	return out, nil
}

func (localCSVDataProv *localCSVDataProvider) SpotPrice(ctx context.Context, underlying string, asOf time.Time) (float64, error) {
	return spotPrice(ctx, localCSVDataProv, underlying, asOf)
}

// WriteBarsCSV stores bars in the layout read by the local CSV provider.
func WriteBarsCSV(dir, underlying string, bars []Bar) error {
	rows := make([]*csvBar, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, &csvBar{
			Date:   b.Date.UTC().Format("2006-01-02"),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Vol,
		})
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, strings.ToUpper(underlying)+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&rows, f)
}
