package pricing

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-lattice/internal/logger"
)

// Lattice holds the per-step quantities of a recombining CRR tree.
//
// The tree itself is never materialized: after N steps it has N+1 distinct
// terminal nodes, node j having moved up j times and down N-j times.
type Lattice struct {
	Dt       float64 // step size in years
	Up       float64 // u = exp(sigma*sqrt(dt))
	Down     float64 // d = 1/u
	Growth   float64 // a = exp(r*dt)
	P        float64 // risk-neutral up probability
	Q        float64 // 1 - P
	Discount float64 // exp(-r*dt)
	Steps    int
}

// NewLattice derives the lattice factors from p. It does not validate p.
func NewLattice(p Params) Lattice {
	dt := p.T / float64(p.Steps)
	u := math.Exp(p.Sigma * math.Sqrt(dt))
	d := 1.0 / u
	a := math.Exp(p.Rate * dt)
	prob := (a - d) / (u - d)

	return Lattice{
		Dt:       dt,
		Up:       u,
		Down:     d,
		Growth:   a,
		P:        prob,
		Q:        1.0 - prob,
		Discount: math.Exp(-p.Rate * dt),
		Steps:    p.Steps,
	}
}

// Deterministic reports whether the tree collapsed to a single path (u == d).
func (l Lattice) Deterministic() bool {
	return l.Up == l.Down
}

// Degenerate returns ErrDegenerateProbability when P lies outside [0,1],
// i.e. when d < a < u does not hold. A deterministic lattice is not degenerate.
func (l Lattice) Degenerate() error {
	if l.Deterministic() {
		return nil
	}
	if math.IsNaN(l.P) || l.P < 0 || l.P > 1 {
		return fmt.Errorf("%w: p=%.6f (d=%.6f a=%.6f u=%.6f)",
			ErrDegenerateProbability, l.P, l.Down, l.Growth, l.Up)
	}
	return nil
}

// TerminalPrices returns S*u^j*d^(N-j) for j = 0..N. Index 0 is the all-down
// path and index N the all-up path.
func (l Lattice) TerminalPrices(spot float64) []float64 {
	n := l.Steps
	prices := make([]float64, n+1)
	for j := 0; j <= n; j++ {
		prices[j] = spot * math.Pow(l.Up, float64(j)) * math.Pow(l.Down, float64(n-j))
	}
	return prices
}

// Binomial prices options on a Cox-Ross-Rubinstein lattice.
//
// With Strict set, a risk-neutral probability outside [0,1] is returned as
// ErrDegenerateProbability instead of only being logged. The zero value is
// the non-strict model.
type Binomial struct {
	Strict bool
}

// Name implements Model.
func (Binomial) Name() string { return "binomial" }

// Call implements Model.
func (b Binomial) Call(p Params) (float64, error) {
	return b.Price(p, Call)
}

// Put implements Model.
func (b Binomial) Put(p Params) (float64, error) {
	return b.Price(p, Put)
}

// Price values a European option of the given type by backward induction.
//
// Steps:
//  1. derive dt, u, d, a, p, q
//  2. fill the value vector with the terminal payoffs
//  3. for each time slice from N-1 down to 0, replace V[i] with the
//     discounted expectation of V[i] and V[i+1]
//
// Returns:
//
//	V[0], the present value. ErrInvalidParameter is returned before any
//	computation when p fails validation.
func (b Binomial) Price(p Params, optType OptionType) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if optType != Call && optType != Put {
		return 0, fmt.Errorf("%w: %q", ErrUnknownOptionType, optType)
	}

	l := NewLattice(p)

	// u == d leaves p undefined; the only path is the forward price.
	if l.Deterministic() {
		logger.Tracef("deterministic lattice sigma=%v, pricing forward payoff", p.Sigma)
		return forwardPayoff(p, optType), nil
	}

	if err := l.Degenerate(); err != nil {
		if b.Strict {
			return 0, err
		}
		logger.Warnf("binomial: %v", err)
	}

	v := l.TerminalPrices(p.Spot)
	for j, st := range v {
		v[j] = payoff(optType, st, p.Strike)
	}

	// V[i+1] is read before it is written within a slice, so an ascending
	// in-place sweep matches a simultaneous update.
	for step := l.Steps - 1; step >= 0; step-- {
		for i := 0; i <= step; i++ {
			v[i] = l.Discount * (l.P*v[i+1] + l.Q*v[i])
		}
	}

	logger.Tracef("binomial %s S=%.4f K=%.4f T=%.6f r=%.4f sigma=%.4f N=%d p=%.6f -> %.6f",
		optType, p.Spot, p.Strike, p.T, p.Rate, p.Sigma, p.Steps, l.P, v[0])

	return v[0], nil
}

// PriceCall values a call with time to maturity given in calendar days.
func PriceCall(spot, strike, daysToMaturity, rate, sigma float64, steps int) (float64, error) {
	p, err := NewParams(spot, strike, daysToMaturity, rate, sigma, steps)
	if err != nil {
		return 0, err
	}
	return Binomial{}.Call(p)
}

// PricePut values a put with time to maturity given in calendar days.
func PricePut(spot, strike, daysToMaturity, rate, sigma float64, steps int) (float64, error) {
	p, err := NewParams(spot, strike, daysToMaturity, rate, sigma, steps)
	if err != nil {
		return 0, err
	}
	return Binomial{}.Put(p)
}

func payoff(optType OptionType, spot, strike float64) float64 {
	if optType == Call {
		return math.Max(spot-strike, 0)
	}
	return math.Max(strike-spot, 0)
}

// forwardPayoff is the discounted payoff when the underlying grows at the
// risk-free rate with no uncertainty.
func forwardPayoff(p Params, optType OptionType) float64 {
	forward := p.Spot * math.Exp(p.Rate*p.T)
	return math.Exp(-p.Rate*p.T) * payoff(optType, forward, p.Strike)
}
