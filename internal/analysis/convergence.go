// Package analysis checks the binomial lattice against closed-form results.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// DefaultSteps is the step ladder used when none is given.
var DefaultSteps = []int{10, 25, 50, 100, 250, 500, 1000}

// Point is the lattice price at one step count.
type Point struct {
	Steps    int     `json:"steps"`
	Price    float64 `json:"price"`
	AbsError float64 `json:"abs_error"`
}

// Study compares lattice prices over a step ladder with Black-Scholes.
//
// Order is the fitted slope of log|error| against log N; about -1 means the
// error shrinks like 1/N. Fitted is false when fewer than two points have a
// non-zero error.
type Study struct {
	OptionType pricing.OptionType `json:"option_type"`
	Params     pricing.Params     `json:"params"`
	Reference  float64            `json:"reference"`
	Points     []Point            `json:"points"`
	Order      float64            `json:"order"`
	Fitted     bool               `json:"fitted"`
}

// Convergence prices p on the lattice for each step count (p.Steps is
// ignored) and fits the convergence order against the Black-Scholes price.
func Convergence(p pricing.Params, optType pricing.OptionType, steps []int) (Study, error) {
	if len(steps) == 0 {
		steps = DefaultSteps
	}
	steps = append([]int(nil), steps...)
	sort.Ints(steps)

	ref, err := pricing.Price(pricing.BlackScholes{}, p.WithSteps(1), optType)
	if err != nil {
		return Study{}, err
	}

	study := Study{OptionType: optType, Params: p, Reference: ref}
	var logLog stats.Series
	for _, n := range steps {
		v, err := pricing.Price(pricing.Binomial{}, p.WithSteps(n), optType)
		if err != nil {
			return Study{}, fmt.Errorf("steps=%d: %w", n, err)
		}
		absErr := math.Abs(v - ref)
		study.Points = append(study.Points, Point{Steps: n, Price: v, AbsError: absErr})
		if absErr > 0 {
			logLog = append(logLog, stats.Coordinate{X: math.Log(float64(n)), Y: math.Log(absErr)})
		}
	}

	order, err := fitSlope(logLog)
	switch {
	case err == nil:
		study.Order, study.Fitted = order, true
	case errors.Is(err, errTooFewPoints):
		logger.Debugf("convergence: %v", err)
	default:
		return Study{}, err
	}

	logger.Debugf("convergence %s reference=%.6f points=%d order=%.3f",
		optType, ref, len(study.Points), study.Order)
	return study, nil
}

var errTooFewPoints = errors.New("need at least two distinct points to fit an order")

// fitSlope returns the least-squares slope of s.
func fitSlope(s stats.Series) (float64, error) {
	if len(s) < 2 {
		return 0, errTooFewPoints
	}
	line, err := stats.LinearRegression(s)
	if err != nil {
		return 0, err
	}
	first, last := line[0], line[len(line)-1]
	if last.X == first.X {
		return 0, errTooFewPoints
	}
	return (last.Y - first.Y) / (last.X - first.X), nil
}
