// Package pricing values vanilla call and put options.
//
// The main model is a Cox-Ross-Rubinstein binomial lattice. A closed-form
// Black-Scholes model sits next to it as a reference and both satisfy the
// Model interface, so callers can swap engines by name.
//
// All prices are European-style: payoffs are only evaluated at maturity and
// no early exercise check happens at interior lattice nodes.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DaysPerYear is the fixed day count used to turn calendar days into years.
const DaysPerYear = 365.0

// MaxSteps bounds the lattice size. Pricing is O(N^2) in time and O(N) in
// memory.
const MaxSteps = 1_000_000

var (
	// ErrInvalidParameter is returned when an input breaks a positivity or
	// step-count constraint. Nothing is priced when it is returned.
	ErrInvalidParameter = errors.New("invalid pricing parameter")

	// ErrDegenerateProbability reports a risk-neutral up probability outside
	// [0,1]. It is only returned by a strict Binomial model.
	ErrDegenerateProbability = errors.New("risk-neutral probability outside [0,1]")

	// ErrUnknownModel is returned by Lookup for an unregistered model name.
	ErrUnknownModel = errors.New("unknown pricing model")

	// ErrUnknownOptionType is returned when the option type is neither call nor put.
	ErrUnknownOptionType = errors.New("unknown option type")
)

// OptionType selects the terminal payoff.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType accepts "call"/"c" and "put"/"p" in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOptionType, s)
}

// Params holds the market inputs of a single pricing request.
type Params struct {
	Spot   float64 `json:"spot"`   // underlying spot price S
	Strike float64 `json:"strike"` // strike price K
	T      float64 `json:"t"`      // time to maturity in years
	Rate   float64 `json:"rate"`   // annualized risk-free rate, continuously compounded
	Sigma  float64 `json:"sigma"`  // annualized volatility
	Steps  int     `json:"steps"`  // lattice steps N
}

// YearFraction converts calendar days to years on a 365-day basis.
func YearFraction(days float64) float64 {
	return days / DaysPerYear
}

// NewParams builds Params from calendar days to maturity and validates them.
func NewParams(spot, strike, daysToMaturity, rate, sigma float64, steps int) (Params, error) {
	p := Params{
		Spot:   spot,
		Strike: strike,
		T:      YearFraction(daysToMaturity),
		Rate:   rate,
		Sigma:  sigma,
		Steps:  steps,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks S>0, K>0, T>0, sigma>=0 and 1<=N<=MaxSteps. Non-finite values are
// rejected as well.
func (p Params) Validate() error {
	switch {
	case !finite(p.Spot) || p.Spot <= 0:
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidParameter, p.Spot)
	case !finite(p.Strike) || p.Strike <= 0:
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidParameter, p.Strike)
	case !finite(p.T) || p.T <= 0:
		return fmt.Errorf("%w: time to maturity must be positive, got %v", ErrInvalidParameter, p.T)
	case !finite(p.Rate):
		return fmt.Errorf("%w: rate must be finite, got %v", ErrInvalidParameter, p.Rate)
	case !finite(p.Sigma) || p.Sigma < 0:
		return fmt.Errorf("%w: sigma must be non-negative, got %v", ErrInvalidParameter, p.Sigma)
	case p.Steps < 1 || p.Steps > MaxSteps:
		return fmt.Errorf("%w: steps must be between 1 and %d, got %d", ErrInvalidParameter, MaxSteps, p.Steps)
	}
	return nil
}

// Days returns the time to maturity back in calendar days.
func (p Params) Days() float64 {
	return p.T * DaysPerYear
}

// WithSpot returns a copy of p with a different spot price.
func (p Params) WithSpot(spot float64) Params {
	p.Spot = spot
	return p
}

// WithSteps returns a copy of p with a different step count.
func (p Params) WithSteps(steps int) Params {
	p.Steps = steps
	return p
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
