package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/option-lattice/internal/pricing"
)

func TestConvergence_OrderAboutOne(t *testing.T) {
	p, err := pricing.NewParams(100, 100, 365, 0.06, 0.2, 1)
	require.NoError(t, err)

	for _, optType := range []pricing.OptionType{pricing.Call, pricing.Put} {
		study, err := Convergence(p, optType, []int{400, 25, 50, 100, 200})
		require.NoError(t, err)

		require.Len(t, study.Points, 5)
		assert.Equal(t, 25, study.Points[0].Steps) // sorted
		assert.True(t, study.Fitted)
		assert.InDelta(t, -1.0, study.Order, 0.2, "%s", optType)

		first, last := study.Points[0], study.Points[len(study.Points)-1]
		assert.Less(t, last.AbsError, first.AbsError)
		assert.Less(t, last.AbsError, 0.01)
	}
}

func TestConvergence_DefaultLadder(t *testing.T) {
	p, err := pricing.NewParams(50, 55, 90, 0.03, 0.35, 1)
	require.NoError(t, err)

	study, err := Convergence(p, pricing.Put, nil)
	require.NoError(t, err)
	assert.Len(t, study.Points, len(DefaultSteps))
	assert.Greater(t, study.Reference, 0.0)
}

func TestConvergence_ZeroVolatilityNotFitted(t *testing.T) {
	p, err := pricing.NewParams(100, 90, 365, 0.05, 0, 1)
	require.NoError(t, err)

	study, err := Convergence(p, pricing.Call, []int{10, 20})
	require.NoError(t, err)
	assert.False(t, study.Fitted)
	for _, pt := range study.Points {
		assert.InDelta(t, 0, pt.AbsError, 1e-12)
	}
}

func TestConvergence_InvalidParams(t *testing.T) {
	_, err := Convergence(pricing.Params{Spot: -5, Strike: 100, T: 1, Sigma: 0.2, Steps: 1}, pricing.Call, nil)
	assert.ErrorIs(t, err, pricing.ErrInvalidParameter)
}

func TestParity(t *testing.T) {
	p, err := pricing.NewParams(100, 100, 365, 0.06, 0.2, 3)
	require.NoError(t, err)

	for _, m := range []pricing.Model{pricing.Binomial{}, pricing.BlackScholes{}} {
		check, err := Parity(m, p)
		require.NoError(t, err)
		assert.Equal(t, m.Name(), check.Model)
		assert.Less(t, check.Gap, 1e-9)
	}

	check, err := Parity(pricing.Binomial{}, p)
	require.NoError(t, err)
	assert.InDelta(t, 11.551973176964253, check.Call, 1e-9)
	assert.InDelta(t, 5.728426535389136, check.Put, 1e-9)
}
