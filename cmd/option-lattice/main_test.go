package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/data"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPriceCommand(t *testing.T) {
	out, err := execute(t, "price", "--type", "call", "--spot", "100", "--strike", "100",
		"--days", "365", "--rate", "0.06", "--sigma", "0.2", "--steps", "3")
	require.NoError(t, err)
	assert.Equal(t, "11.551973\n", out)

	out, err = execute(t, "price", "--type", "put", "--spot", "100", "--strike", "100",
		"--days", "365", "--rate", "0.06", "--sigma", "0.2", "--steps", "3")
	require.NoError(t, err)
	assert.Equal(t, "5.728427\n", out)
}

func TestPriceCommand_InvalidInput(t *testing.T) {
	_, err := execute(t, "price", "--type", "call", "--spot=-1", "--strike", "100",
		"--days", "365", "--sigma", "0.2", "--steps", "3")
	assert.Error(t, err)
}

func TestConvergeCommand(t *testing.T) {
	out, err := execute(t, "converge", "--spot", "100", "--strike", "100", "--days", "365",
		"--rate", "0.06", "--sigma", "0.2", "--steps", "25,50,100,200")
	require.NoError(t, err)
	assert.Contains(t, out, "fitted order")
	assert.Contains(t, out, "parity gap at 200 steps")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
id: cli
as_of: "2025-01-02"
rate: 0.06
sigma: 0.2
steps: 3
requests:
  - name: atm
    spot: 100
    strike: 100
    days: 365
`), 0o644))

	outDir := filepath.Join(dir, "reports")
	out, err := execute(t, "batch", "--config", cfg, "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "11.5520")
	assert.FileExists(t, filepath.Join(outDir, "quotes.json"))
	assert.FileExists(t, filepath.Join(outDir, "quotes.csv"))
}

func TestFetch_WritesReadableCache(t *testing.T) {
	dir := t.TempDir()
	prov := data.NewSyntheticProvider(3)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, fetch(context.Background(), prov, []string{"spy"}, from, to, dir))

	b, err := os.ReadFile(filepath.Join(dir, "SPY.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "date,open,high,low,close,volume"))

	cached := data.NewLocalCSVProvider(dir, nil)
	want, err := prov.SpotPrice(context.Background(), "SPY", to)
	require.NoError(t, err)
	got, err := cached.SpotPrice(context.Background(), "SPY", to)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
