package batch

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
)

//
// ==========================
// Error taxonomy
// ==========================
//

// Typed errors allow callers and tests to detect failure categories
// without string matching.
var (
	ErrInvalidStrikeExpression = errors.New("invalid strike expression")
	ErrRequestIndexOutOfRange  = errors.New("request index out of range")
)

var requestRef = regexp.MustCompile(`\{REQ(\d+)\.(STRIKE|PRICE|SPOT)\}`)

// strikeGrid rounds rule-based strikes to tradable values.
type strikeGrid struct {
	listed   []float64 // sorted listed strikes, preferred when present
	interval float64   // rounding step when no strikes are listed
}

func (g strikeGrid) round(v float64) float64 {
	if len(g.listed) > 0 {
		return data.Closest(g.listed, v)
	}
	if g.interval > 0 {
		return math.Round(v/g.interval) * g.interval
	}
	return math.Round(v*100) / 100
}

//
// ==========================
// Strike Resolution
// ==========================
//

// ResolveStrike converts a strike expression into a concrete strike price.
//
// Supported formats:
//   - ATM
//   - ATM:+10, ATM:-5%
//   - ABS:100
//   - {REQ1.STRIKE}+5, {REQ2.PRICE}*2, {REQ1.SPOT}
//
// Parameters:
//   - strikeExpr: strike expression
//   - spot: spot price at valuation
//   - prior: quotes of earlier requests, REQ1 being prior[0]
//   - grid: rounding applied to every rule except ABS
//
// Returns:
//   - float64: resolved strike
//   - error: if the expression cannot be evaluated
func ResolveStrike(strikeExpr string, spot float64, prior []Quote, grid strikeGrid) (float64, error) {

	strikeExpr = strings.TrimSpace(strings.ToUpper(strikeExpr))
	logger.Debugf("event=resolve_strike expr=%s spot=%.4f", strikeExpr, spot)

	if strikeExpr == "ATM" {
		return grid.round(spot), nil
	}

	if strings.HasPrefix(strikeExpr, "ATM:") {
		target, err := resolveATMOffset(strikeExpr[len("ATM:"):], spot)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, strikeExpr, err)
		}
		return grid.round(target), nil
	}

	if strings.HasPrefix(strikeExpr, "ABS:") {
		abs, err := strconv.ParseFloat(strings.TrimPrefix(strikeExpr, "ABS:"), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, strikeExpr, err)
		}
		return abs, nil
	}

	// Expression using previous requests
	if strings.Contains(strikeExpr, "{REQ") {
		target, err := evaluateRequestExpression(strikeExpr, prior)
		if err != nil {
			return 0, err
		}
		return grid.round(target), nil
	}

	return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, strikeExpr)
}

// ResolveExpiration picks the expiry for a request: the explicit expiry if
// given, otherwise asOf plus days. When expiries are listed the candidate
// snaps to one of them using matchType.
func ResolveExpiration(asOf time.Time, days float64, expiry time.Time, expiries []time.Time, matchType data.DateMatchType) time.Time {
	candidate := expiry
	if candidate.IsZero() {
		candidate = asOf.Add(time.Duration(days * 24 * float64(time.Hour)))
	}
	if len(expiries) == 0 {
		return candidate
	}
	return data.MatchBarDate(candidate, expiries, matchType)
}

// referencedRequests returns the zero-based indexes an expression refers to.
func referencedRequests(expr string) []int {
	matches := requestRef.FindAllStringSubmatch(strings.ToUpper(expr), -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, idx-1)
	}
	return out
}

//
// ==========================
// Helpers
// ==========================
//

// resolveATMOffset applies an absolute or percentage offset to a price.
func resolveATMOffset(offset string, asOfPrice float64) (float64, error) {

	if strings.HasSuffix(offset, "%") {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(offset, "%"), 64)
		if err != nil {
			return 0, err
		}
		return asOfPrice + asOfPrice*pct/100, nil
	}

	abs, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return 0, err
	}

	return asOfPrice + abs, nil
}

// evaluateRequestExpression evaluates expressions referencing prior requests.
func evaluateRequestExpression(expr string, prior []Quote) (float64, error) {

	matches := requestRef.FindAllStringSubmatch(expr, -1)
	if matches == nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, expr)
	}

	evalStr := expr

	for _, match := range matches {
		idx, _ := strconv.Atoi(match[1])
		idx-- // REQ1 -> index 0

		if idx < 0 || idx >= len(prior) {
			return 0, fmt.Errorf("%w: %s", ErrRequestIndexOutOfRange, match[0])
		}
		ref := prior[idx]
		if ref.Error != "" {
			return 0, fmt.Errorf("%w: %s refers to a failed request", ErrInvalidStrikeExpression, match[0])
		}

		var value float64
		switch match[2] {
		case "STRIKE":
			value = ref.Strike
		case "PRICE":
			value = ref.Price
		default:
			value = ref.Spot
		}

		evalStr = strings.Replace(evalStr, match[0], strconv.FormatFloat(value, 'f', -1, 64), 1)
	}

	evalExpr, err := govaluate.NewEvaluableExpression(evalStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, expr, err)
	}

	result, err := evalExpr.Evaluate(nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidStrikeExpression, expr, err)
	}

	f, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidStrikeExpression, expr)
	}

	return f, nil
}
