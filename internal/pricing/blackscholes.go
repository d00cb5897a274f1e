package pricing

import (
	"math"
)

// BlackScholes is the closed-form European model. It is the limit the
// binomial lattice converges to as the step count grows, which makes it the
// reference for convergence checks. Steps in Params is ignored.
type BlackScholes struct{}

// Name implements Model.
func (BlackScholes) Name() string { return "black-scholes" }

// Call implements Model.
func (BlackScholes) Call(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return BlackScholesPrice(true, p.Spot, p.Strike, p.T, p.Rate, p.Sigma), nil
}

// Put implements Model.
func (BlackScholes) Put(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return BlackScholesPrice(false, p.Spot, p.Strike, p.T, p.Rate, p.Sigma), nil
}

// BlackScholesPrice calculates the price of a European option using the Black-Scholes model.
//
// Parameters:
//   - isCall: true for call option, false for put option
//   - S: spot price of the underlying asset
//   - K: strike price of the option
//   - T: time to expiry in years
//   - r: risk-free interest rate (annual)
//   - sigma: volatility of the underlying asset (annual, as a decimal)
//
// Returns:
//
//	The theoretical price of the option. With zero volatility the discounted
//	forward payoff is returned, and with T <= 0 the intrinsic value.
func BlackScholesPrice(
	isCall bool,
	S float64, // spot
	K float64, // strike
	T float64, // time to expiry in years
	r float64, // risk-free rate
	sigma float64, // volatility
) float64 {

	optType := Put
	if isCall {
		optType = Call
	}

	if T <= 0 {
		return payoff(optType, S, K)
	}
	if sigma <= 0 {
		return forwardPayoff(Params{Spot: S, Strike: K, T: T, Rate: r}, optType)
	}

	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	d2 := d1 - sigma*math.Sqrt(T)

	if isCall {
		return S*normCDF(d1) - K*math.Exp(-r*T)*normCDF(d2)
	}
	return K*math.Exp(-r*T)*normCDF(-d2) - S*normCDF(-d1)
}

// normCDF computes the cumulative distribution function of the standard normal distribution
// for a given value x using the error function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}
