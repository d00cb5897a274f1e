package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
)

// Quote is the outcome of one request. Error is set instead of Price when
// the request failed.
type Quote struct {
	Index      int     `json:"index" csv:"index"`
	Name       string  `json:"name,omitempty" csv:"name"`
	Underlying string  `json:"underlying,omitempty" csv:"underlying"`
	Symbol     string  `json:"symbol,omitempty" csv:"symbol"`
	OptionType string  `json:"option_type" csv:"option_type"`
	Model      string  `json:"model" csv:"model"`
	Spot       float64 `json:"spot" csv:"spot"`
	Strike     float64 `json:"strike" csv:"strike"`
	Days       float64 `json:"days" csv:"days"`
	Expiry     string  `json:"expiry,omitempty" csv:"expiry"`
	Rate       float64 `json:"rate" csv:"rate"`
	Sigma      float64 `json:"sigma" csv:"sigma"`
	Steps      int     `json:"steps" csv:"steps"`
	Price      float64 `json:"price" csv:"price"`
	Error      string  `json:"error,omitempty" csv:"error"`
}

// Result is the output of a batch run.
type Result struct {
	RunID    string    `json:"run_id"`
	JobID    string    `json:"job_id,omitempty"`
	Model    string    `json:"model"`
	AsOf     string    `json:"as_of"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Quotes   []Quote   `json:"quotes"`
	Errors   int       `json:"errors"`
}

type Engine struct {
	job  *Job
	prov data.Provider
	now  func() time.Time
}

// NewEngine builds an engine for job. prov may be nil when every request
// carries its own spot price.
func NewEngine(job *Job, prov data.Provider) *Engine {
	job.ApplyDefaults()
	return &Engine{job: job, prov: prov, now: time.Now}
}

// Job returns the engine's job with defaults applied.
func (e *Engine) Job() *Job { return e.job }

// Run prices every request of the job.
//
// Per-request failures are recorded on the quote and counted in
// Result.Errors; they never abort the run. Run only returns an error for
// job-level problems (unknown model, bad dates, forward references) or when
// ctx is cancelled.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	job := e.job
	if job.Verbosity != nil {
		logger.SetVerbosity(*job.Verbosity)
	}

	model, err := pricing.Lookup(job.Model, job.Strict)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	asOf, err := job.valuationDate(e.now)
	if err != nil {
		return nil, err
	}
	expiries, err := job.listedExpiries()
	if err != nil {
		return nil, err
	}
	if job.Steps > pricing.MaxSteps {
		return nil, fmt.Errorf("%w: steps %d exceeds %d", ErrInvalidJob, job.Steps, pricing.MaxSteps)
	}
	for i, req := range job.Requests {
		if req.Steps > pricing.MaxSteps {
			return nil, fmt.Errorf("%w: request %d steps %d exceeds %d", ErrInvalidJob, i+1, req.Steps, pricing.MaxSteps)
		}
		for _, ref := range referencedRequests(req.StrikeRule) {
			if ref < 0 || ref >= i {
				return nil, fmt.Errorf("%w: request %d strike rule %q must only reference earlier requests",
					ErrInvalidJob, i+1, req.StrikeRule)
			}
		}
	}

	grid := strikeGrid{interval: job.StrikeInterval}
	if len(job.Strikes) > 0 {
		grid.listed = append([]float64(nil), job.Strikes...)
		sort.Float64s(grid.listed)
	}

	res := &Result{
		RunID:   uuid.NewString(),
		JobID:   job.ID,
		Model:   model.Name(),
		AsOf:    asOf.Format(dateLayout),
		Started: e.now().UTC(),
		Quotes:  make([]Quote, len(job.Requests)),
	}
	logger.Infof("event=batch_start run=%s model=%s requests=%d as_of=%s",
		res.RunID, res.Model, len(job.Requests), res.AsOf)

	done := make([]chan struct{}, len(job.Requests))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(job.Workers)

	for i := range job.Requests {
		i := i
		g.Go(func() error {
			defer close(done[i])
			for _, ref := range referencedRequests(job.Requests[i].StrikeRule) {
				select {
				case <-done[ref]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			res.Quotes[i] = e.safePrice(gctx, i, model, asOf, expiries, grid, res.Quotes[:i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, q := range res.Quotes {
		if q.Error != "" {
			res.Errors++
		}
	}
	res.Finished = e.now().UTC()
	logger.Infof("event=batch_done run=%s quotes=%d errors=%d elapsed=%s",
		res.RunID, len(res.Quotes), res.Errors, res.Finished.Sub(res.Started))
	return res, nil
}

// safePrice is price with a panic recorded as a failed quote.
func (e *Engine) safePrice(
	ctx context.Context,
	i int,
	model pricing.Model,
	asOf time.Time,
	expiries []time.Time,
	grid strikeGrid,
	prior []Quote,
) (q Quote) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("event=request_panic index=%d panic=%v", i+1, r)
			q = Quote{Index: i + 1, Name: e.job.Requests[i].Name, Model: model.Name(), Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return e.price(ctx, i, model, asOf, expiries, grid, prior)
}

// price resolves and prices request i. Failures end up in Quote.Error.
func (e *Engine) price(
	ctx context.Context,
	i int,
	model pricing.Model,
	asOf time.Time,
	expiries []time.Time,
	grid strikeGrid,
	prior []Quote,
) Quote {
	job := e.job
	req := job.Requests[i]

	q := Quote{
		Index:      i + 1,
		Name:       req.Name,
		Underlying: req.Underlying,
		Model:      model.Name(),
		Rate:       job.Rate,
		Sigma:      job.Sigma,
		Steps:      job.Steps,
	}
	if req.Rate != nil {
		q.Rate = *req.Rate
	}
	if req.Sigma != nil {
		q.Sigma = *req.Sigma
	}
	if req.Steps > 0 {
		q.Steps = req.Steps
	}

	fail := func(err error) Quote {
		logger.Errorf("event=request_failed index=%d name=%s err=%v", q.Index, q.Name, err)
		q.Error = err.Error()
		return q
	}

	optType := pricing.Call
	if req.OptionType != "" {
		t, err := pricing.ParseOptionType(req.OptionType)
		if err != nil {
			return fail(err)
		}
		optType = t
	}
	q.OptionType = string(optType)

	// Spot
	q.Spot = req.Spot
	if q.Spot == 0 {
		if req.Underlying == "" {
			return fail(fmt.Errorf("%w: request needs spot or underlying", pricing.ErrInvalidParameter))
		}
		if e.prov == nil {
			return fail(errors.New("no data provider configured for spot lookup"))
		}
		spot, err := e.prov.SpotPrice(ctx, req.Underlying, asOf)
		if err != nil {
			return fail(fmt.Errorf("spot lookup: %w", err))
		}
		q.Spot = spot
	}

	// Historical volatility
	if req.Sigma == nil && job.HistVolDays > 0 && req.Underlying != "" {
		if e.prov == nil {
			return fail(errors.New("no data provider configured for historical volatility"))
		}
		lookback := time.Duration(job.HistVolDays) * 24 * time.Hour
		vol, err := data.HistoricalVolatility(ctx, e.prov, req.Underlying, asOf, lookback)
		if err != nil {
			return fail(fmt.Errorf("historical volatility: %w", err))
		}
		q.Sigma = vol
	}

	// Maturity
	var explicit time.Time
	if req.Expiry != "" {
		d, err := time.Parse(dateLayout, req.Expiry)
		if err != nil {
			return fail(fmt.Errorf("%w: expiry %q", pricing.ErrInvalidParameter, req.Expiry))
		}
		explicit = d
	}
	expiry := ResolveExpiration(asOf, req.Days, explicit, expiries, job.DateMatchType)
	q.Days = req.Days
	if !explicit.IsZero() || len(expiries) > 0 {
		if expiry.IsZero() {
			return fail(fmt.Errorf("%w: no listed expiry matches request", pricing.ErrInvalidParameter))
		}
		q.Days = expiry.Sub(asOf).Hours() / 24
	}
	q.Expiry = expiry.Format(dateLayout)

	// Strike
	q.Strike = req.Strike
	if req.StrikeRule != "" {
		strike, err := ResolveStrike(req.StrikeRule, q.Spot, prior, grid)
		if err != nil {
			return fail(err)
		}
		q.Strike = strike
	}
	if req.Underlying != "" {
		q.Symbol = data.OptionSymbolFromParts(req.Underlying, expiry, q.OptionType, q.Strike)
	}

	params, err := pricing.NewParams(q.Spot, q.Strike, q.Days, q.Rate, q.Sigma, q.Steps)
	if err != nil {
		return fail(err)
	}
	price, err := pricing.Price(model, params, optType)
	if err != nil {
		return fail(err)
	}
	q.Price = price

	logger.Debugf("event=request_priced index=%d type=%s S=%.4f K=%.4f days=%.2f price=%.6f",
		q.Index, q.OptionType, q.Spot, q.Strike, q.Days, q.Price)
	return q
}
