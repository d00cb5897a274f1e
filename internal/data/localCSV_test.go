package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCSVProvider_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	bars := []Bar{
		{Date: day(2025, 2, 3), Open: 10, High: 11, Low: 9, Close: 10.5, Vol: 1000},
		{Date: day(2025, 2, 4), Open: 10.5, High: 12, Low: 10, Close: 11.75, Vol: 1500},
	}
	require.NoError(t, WriteBarsCSV(dir, "xyz", bars))

	prov := NewLocalCSVProvider(dir, nil)
	got, err := prov.GetDailyBars(context.Background(), "XYZ", day(2025, 2, 1), day(2025, 2, 28))
	require.NoError(t, err)
	assert.Equal(t, bars, got)

	spot, err := prov.SpotPrice(context.Background(), "xyz", day(2025, 2, 5))
	require.NoError(t, err)
	assert.Equal(t, 11.75, spot)
}

func TestLocalCSVProvider_SkipsBadRowsAndFilters(t *testing.T) {
	dir := t.TempDir()
	body := "date,open,high,low,close,volume\n" +
		"2025-02-03,1,1,1,20,5\n" +
		"not-a-date,1,1,1,30,5\n" +
		"2025-03-03,1,1,1,40,5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ABC.csv"), []byte(body), 0o644))

	bars, err := NewLocalCSVProvider(dir, nil).GetDailyBars(context.Background(), "ABC", day(2025, 2, 1), day(2025, 2, 28))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 20.0, bars[0].Close)
}

func TestLocalCSVProvider_MissingFileUsesSecondary(t *testing.T) {
	secondary := NewSyntheticProvider(3)
	prov := NewLocalCSVProvider(t.TempDir(), secondary)

	want, err := secondary.SpotPrice(context.Background(), "SPY", day(2025, 1, 8))
	require.NoError(t, err)
	got, err := prov.SpotPrice(context.Background(), "SPY", day(2025, 1, 8))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewLocalCSVProvider(t.TempDir(), nil).SpotPrice(context.Background(), "SPY", day(2025, 1, 8))
	assert.ErrorIs(t, err, ErrNoData)
}
