// Package batch prices a list of option requests as one job.
//
// A Job carries defaults (model, steps, rate, volatility, valuation date)
// and a list of Requests that may override them. Requests without a spot
// price get one from a data.Provider; strikes can be given directly or as a
// rule relative to the spot or to earlier requests.
package batch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
)

const dateLayout = "2006-01-02"

// ErrInvalidJob is returned for job-level problems that stop a run before
// any request is priced.
var ErrInvalidJob = errors.New("invalid job")

// Job is the batch configuration, loaded from YAML or JSON.
type Job struct {
	ID             string             `json:"id,omitempty" yaml:"id,omitempty"`
	Model          string             `json:"model,omitempty" yaml:"model,omitempty"`                     // "binomial" (default) or "black-scholes"
	Steps          int                `json:"steps,omitempty" yaml:"steps,omitempty"`                     // default lattice steps
	Rate           float64            `json:"rate,omitempty" yaml:"rate,omitempty"`                       // default risk-free rate
	Sigma          float64            `json:"sigma,omitempty" yaml:"sigma,omitempty"`                     // default volatility
	AsOf           string             `json:"as_of,omitempty" yaml:"as_of,omitempty"`                     // valuation date YYYY-MM-DD, default today
	StrikeInterval float64            `json:"strike_interval,omitempty" yaml:"strike_interval,omitempty"` // rounding grid for rule-based strikes
	Strikes        []float64          `json:"strikes,omitempty" yaml:"strikes,omitempty"`                 // listed strikes; rule-based strikes snap to these
	Expiries       []string           `json:"expiries,omitempty" yaml:"expiries,omitempty"`               // listed expiries YYYY-MM-DD
	DateMatchType  data.DateMatchType `json:"date_match_type,omitempty" yaml:"date_match_type,omitempty"` // how targets snap to listed expiries
	Strict         bool               `json:"strict,omitempty" yaml:"strict,omitempty"`                   // fail requests with a degenerate lattice
	HistVolDays    int                `json:"hist_vol_days,omitempty" yaml:"hist_vol_days,omitempty"`     // when set, requests without sigma use historical volatility over this many days
	Workers        int                `json:"workers,omitempty" yaml:"workers,omitempty"`                 // concurrent requests, default 4
	OutputDir      string             `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	Verbosity      *int               `json:"verbosity,omitempty" yaml:"verbosity,omitempty"` // 0=errors,1=info,2=debug,3=trace; unset keeps the current level
	Requests       []Request          `json:"requests" yaml:"requests"`
}

// Request is a single option to price.
type Request struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Underlying string   `json:"underlying,omitempty" yaml:"underlying,omitempty"`   // used for spot lookup and the option symbol
	Spot       float64  `json:"spot,omitempty" yaml:"spot,omitempty"`               // 0 means look it up
	Strike     float64  `json:"strike,omitempty" yaml:"strike,omitempty"`           // absolute strike
	StrikeRule string   `json:"strike_rule,omitempty" yaml:"strike_rule,omitempty"` // ATM, ATM:+10, ATM:-5%, ABS:100, {REQ1.STRIKE}+5
	Days       float64  `json:"days,omitempty" yaml:"days,omitempty"`               // calendar days to maturity
	Expiry     string   `json:"expiry,omitempty" yaml:"expiry,omitempty"`           // alternative to Days, YYYY-MM-DD
	OptionType string   `json:"option_type,omitempty" yaml:"option_type,omitempty"` // call or put (default: call)
	Rate       *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Sigma      *float64 `json:"sigma,omitempty" yaml:"sigma,omitempty"`
	Steps      int      `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// LoadJob reads a job file and applies defaults.
func LoadJob(path string) (*Job, error) {
	var job Job
	if err := config.LoadFile(path, &job); err != nil {
		return nil, err
	}
	job.ApplyDefaults()
	return &job, nil
}

// ApplyDefaults fills zero-valued job settings.
func (j *Job) ApplyDefaults() {
	if j.Model == "" {
		j.Model = config.DefaultModel
	}
	if j.Steps <= 0 {
		j.Steps = config.DefaultSteps
	}
	if j.Workers <= 0 {
		j.Workers = 4
	}
	if j.OutputDir == "" {
		j.OutputDir = config.DefaultOutputDir
	}
	if j.DateMatchType == "" {
		j.DateMatchType = data.MatchNearest
	}
	if j.Verbosity != nil && (*j.Verbosity < int(logger.Error) || *j.Verbosity > int(logger.Trace)) {
		v := config.DefaultVerbosity
		j.Verbosity = &v
	}
}

// valuationDate parses AsOf, defaulting to today (UTC) via now.
func (j *Job) valuationDate(now func() time.Time) (time.Time, error) {
	if strings.TrimSpace(j.AsOf) == "" {
		n := now().UTC()
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(j.AsOf))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: as_of %q: %v", ErrInvalidJob, j.AsOf, err)
	}
	return d, nil
}

// listedExpiries parses Expiries.
func (j *Job) listedExpiries() ([]time.Time, error) {
	out := make([]time.Time, 0, len(j.Expiries))
	for _, s := range j.Expiries {
		d, err := time.Parse(dateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("%w: expiry %q: %v", ErrInvalidJob, s, err)
		}
		out = append(out, d)
	}
	return out, nil
}
