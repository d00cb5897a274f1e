package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/data"
)

func TestResolveStrike(t *testing.T) {
	prior := []Quote{
		{Index: 1, Spot: 581.39, Strike: 580, Price: 12.14},
		{Index: 2, Spot: 581.39, Strike: 600, Error: "boom"},
	}
	grid5 := strikeGrid{interval: 5}

	tests := []struct {
		expr string
		grid strikeGrid
		want float64
	}{
		{"ATM", grid5, 580},
		{"atm", strikeGrid{}, 581.39},
		{"ATM:+10", grid5, 590},
		{"ATM:-5%", grid5, 550},
		{"ABS:123.5", grid5, 123.5},
		{"{REQ1.STRIKE}+10", grid5, 590},
		{"{REQ1.STRIKE}-{REQ1.PRICE}", strikeGrid{}, 567.86},
		{"{REQ1.SPOT}*1.1", strikeGrid{listed: []float64{600, 625, 650}}, 650},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := ResolveStrike(tc.expr, 581.39, prior, tc.grid)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestResolveStrike_Errors(t *testing.T) {
	prior := []Quote{{Strike: 100}, {Strike: 110, Error: "spot lookup failed"}}

	_, err := ResolveStrike("DELTA:0.3", 100, prior, strikeGrid{})
	assert.ErrorIs(t, err, ErrInvalidStrikeExpression)

	_, err = ResolveStrike("ATM:abc", 100, prior, strikeGrid{})
	assert.ErrorIs(t, err, ErrInvalidStrikeExpression)

	_, err = ResolveStrike("{REQ5.STRIKE}", 100, prior, strikeGrid{})
	assert.ErrorIs(t, err, ErrRequestIndexOutOfRange)

	_, err = ResolveStrike("{REQ2.STRIKE}+1", 100, prior, strikeGrid{})
	assert.ErrorIs(t, err, ErrInvalidStrikeExpression)

	_, err = ResolveStrike("{REQ1.STRIKE}+", 100, prior, strikeGrid{})
	assert.ErrorIs(t, err, ErrInvalidStrikeExpression)
}

func TestResolveExpiration(t *testing.T) {
	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	listed := []time.Time{
		time.Date(2025, 2, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		ResolveExpiration(asOf, 30, time.Time{}, nil, data.MatchNearest))
	assert.Equal(t, listed[1], ResolveExpiration(asOf, 30, time.Time{}, listed, data.MatchNearest))
	assert.Equal(t, listed[0], ResolveExpiration(asOf, 30, time.Time{}, listed, data.MatchHigher))
	assert.True(t, ResolveExpiration(asOf, 30, time.Time{}, listed, data.MatchExact).IsZero())

	// the caller's slice keeps its order
	assert.Equal(t, time.February, listed[0].Month())
}

func TestReferencedRequests(t *testing.T) {
	assert.Equal(t, []int{0, 2}, referencedRequests("{req1.strike}+{REQ3.PRICE}"))
	assert.Empty(t, referencedRequests("ATM:+5"))
}
