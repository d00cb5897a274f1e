package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Simple sanity check: ATM call should have non-zero value
func TestBlackScholesCallBasic(t *testing.T) {
	call := BlackScholesPrice(true, 100, 100, 30.0/365.0, 0.05, 0.20)
	if call <= 0 {
		t.Fatalf("expected call price > 0, got %f", call)
	}
}

func TestBlackScholesKnownValue(t *testing.T) {
	call := BlackScholesPrice(true, 100, 100, 1, 0.06, 0.2)
	put := BlackScholesPrice(false, 100, 100, 1, 0.06, 0.2)
	assert.InDelta(t, 10.9895, call, 1e-3)
	assert.InDelta(t, 5.1660, put, 1e-3)
}

// Put-call parity check
func TestBlackScholesPutCallParity(t *testing.T) {
	T := 45.0 / 365.0
	rate := 0.03

	call := BlackScholesPrice(true, 100, 100, T, rate, 0.25)
	put := BlackScholesPrice(false, 100, 100, T, rate, 0.25)

	lhs := call - put
	rhs := 100 - 100*math.Exp(-rate*T)

	if math.Abs(lhs-rhs) > 1e-9 {
		t.Fatalf("put-call parity violated: LHS=%f RHS=%f", lhs, rhs)
	}
}

func TestBlackScholesZeroVolMatchesBinomial(t *testing.T) {
	p, err := NewParams(100, 105, 200, 0.04, 0, 12)
	require.NoError(t, err)

	for _, optType := range []OptionType{Call, Put} {
		bs, err := Price(BlackScholes{}, p, optType)
		require.NoError(t, err)
		crr, err := Price(Binomial{}, p, optType)
		require.NoError(t, err)
		assert.InDelta(t, bs, crr, 1e-12, "%s", optType)
	}
}

func TestBlackScholesValidates(t *testing.T) {
	_, err := BlackScholes{}.Call(Params{Spot: 100, Strike: 100, T: 0, Sigma: 0.2, Steps: 1})
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestLookup(t *testing.T) {
	m, err := Lookup("", false)
	require.NoError(t, err)
	assert.Equal(t, "binomial", m.Name())

	m, err = Lookup("CRR", true)
	require.NoError(t, err)
	assert.Equal(t, Binomial{Strict: true}, m)

	m, err = Lookup("bs", false)
	require.NoError(t, err)
	assert.Equal(t, "black-scholes", m.Name())

	_, err = Lookup("monte-carlo", false)
	assert.ErrorIs(t, err, ErrUnknownModel)

	assert.Contains(t, ModelNames(), "binomial")
}
