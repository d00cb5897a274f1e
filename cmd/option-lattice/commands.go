package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/contactkeval/option-lattice/internal/analysis"
	"github.com/contactkeval/option-lattice/internal/batch"
	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
	"github.com/contactkeval/option-lattice/internal/pricing"
	"github.com/contactkeval/option-lattice/internal/report"
	"github.com/contactkeval/option-lattice/internal/server"
)

const dateLayout = "2006-01-02"

// optionFlags are the contract inputs shared by price and converge.
type optionFlags struct {
	optType string
	spot    float64
	strike  float64
	days    float64
	rate    float64
	sigma   float64
}

func (f *optionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.optType, "type", "call", "call or put")
	cmd.Flags().Float64Var(&f.spot, "spot", 0, "spot price of the underlying")
	cmd.Flags().Float64Var(&f.strike, "strike", 0, "strike price")
	cmd.Flags().Float64Var(&f.days, "days", 0, "calendar days to maturity")
	cmd.Flags().Float64Var(&f.rate, "rate", 0, "continuously compounded risk-free rate")
	cmd.Flags().Float64Var(&f.sigma, "sigma", 0, "annualized volatility")
	for _, name := range []string{"spot", "strike", "days", "sigma"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *optionFlags) params(steps int) (pricing.Params, pricing.OptionType, error) {
	optType, err := pricing.ParseOptionType(f.optType)
	if err != nil {
		return pricing.Params{}, "", err
	}
	p, err := pricing.NewParams(f.spot, f.strike, f.days, f.rate, f.sigma, steps)
	return p, optType, err
}

func priceCmd() *cobra.Command {
	var (
		opt    optionFlags
		steps  int
		model  string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a single European option",
		Example: "  option-lattice price --type call --spot 100 --strike 100 --days 365 --rate 0.06 --sigma 0.2 --steps 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, optType, err := opt.params(steps)
			if err != nil {
				return err
			}
			m, err := pricing.Lookup(model, strict)
			if err != nil {
				return err
			}
			v, err := pricing.Price(m, p, optType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.6f\n", v)
			return nil
		},
	}
	opt.register(cmd)
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "lattice steps")
	cmd.Flags().StringVar(&model, "model", config.DefaultModel, "pricing model: "+strings.Join(pricing.ModelNames(), ", "))
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the risk-neutral probability leaves [0,1]")
	return cmd
}

func batchCmd() *cobra.Command {
	var (
		cfgPath string
		outDir  string
		prov    providerFlags
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a pricing job and write JSON and CSV reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := batch.LoadJob(cfgPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				job.OutputDir = outDir
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			res, err := batch.NewEngine(job, prov.provider()).Run(ctx)
			if err != nil {
				return fmt.Errorf("batch failed: %w", err)
			}

			report.WriteTable(cmd.OutOrStdout(), res.Quotes)
			if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
				return fmt.Errorf("could not create output dir %s: %w", job.OutputDir, err)
			}
			jsonPath, err := report.WriteJSON(res, job.OutputDir)
			if err != nil {
				return err
			}
			csvPath, err := report.WriteCSV(res.Quotes, job.OutputDir)
			if err != nil {
				return err
			}
			logger.Infof("finished in %v, wrote %d quotes (%d errors) to %s and %s",
				time.Since(start), len(res.Quotes), res.Errors, jsonPath, csvPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "job.yaml", "job file (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&outDir, "out", "", "report directory, overrides output_dir from the job")
	prov.register(cmd)
	return cmd
}

func convergeCmd() *cobra.Command {
	var (
		opt    optionFlags
		steps  []int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Compare lattice prices with Black-Scholes over increasing step counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, optType, err := opt.params(1)
			if err != nil {
				return err
			}
			study, err := analysis.Convergence(p, optType, steps)
			if err != nil {
				return err
			}
			parity, err := analysis.Parity(pricing.Binomial{}, p.WithSteps(study.Points[len(study.Points)-1].Steps))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Study  analysis.Study       `json:"study"`
					Parity analysis.ParityCheck `json:"parity"`
				}{study, parity})
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Steps", "Lattice", "Black-Scholes", "Abs Error"})
			table.SetAlignment(tablewriter.ALIGN_RIGHT)
			for _, pt := range study.Points {
				table.Append([]string{
					fmt.Sprintf("%d", pt.Steps),
					fmt.Sprintf("%.6f", pt.Price),
					fmt.Sprintf("%.6f", study.Reference),
					fmt.Sprintf("%.2e", pt.AbsError),
				})
			}
			table.Render()
			if study.Fitted {
				fmt.Fprintf(out, "fitted order: %.3f\n", study.Order)
			}
			fmt.Fprintf(out, "parity gap at %d steps: %.2e\n", study.Points[len(study.Points)-1].Steps, parity.Gap)
			return nil
		},
	}
	opt.register(cmd)
	cmd.Flags().IntSliceVar(&steps, "steps", analysis.DefaultSteps, "comma separated lattice step counts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the study as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		addr    string
		cfgPath string
		prov    providerFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pricer over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			var job *batch.Job
			if cfgPath != "" {
				j, err := batch.LoadJob(cfgPath)
				if err != nil {
					return err
				}
				job = j
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(job, prov.provider()).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "job file run by POST /run")
	prov.register(cmd)
	return cmd
}

func fetchCmd() *cobra.Command {
	var (
		from, to string
		dir      string
		prov     providerFlags
	)
	cmd := &cobra.Command{
		Use:   "fetch UNDERLYING...",
		Short: "Download daily bars into the local CSV cache used by --data-dir",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toDate := time.Now().UTC()
			if to != "" {
				d, err := time.Parse(dateLayout, to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				toDate = d
			}
			fromDate := toDate.AddDate(-1, 0, 0)
			if from != "" {
				d, err := time.Parse(dateLayout, from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				fromDate = d
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return fetch(ctx, prov.remote(), args, fromDate, toDate, dir)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day YYYY-MM-DD (default one year before --to)")
	cmd.Flags().StringVar(&to, "to", "", "last day YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&dir, "dir", "data", "output directory")
	prov.register(cmd)
	return cmd
}

func fetch(ctx context.Context, prov data.Provider, underlyings []string, from, to time.Time, dir string) error {
	for _, u := range underlyings {
		bars, err := prov.GetDailyBars(ctx, u, from, to)
		if err != nil {
			return fmt.Errorf("%s: %w", u, err)
		}
		if err := data.WriteBarsCSV(dir, u, bars); err != nil {
			return err
		}
		logger.Infof("wrote %d %s bars from %s to %s", len(bars), strings.ToUpper(u), prov.Name(), dir)
	}
	return nil
}
