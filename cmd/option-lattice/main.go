package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/contactkeval/option-lattice/internal/config"
	"github.com/contactkeval/option-lattice/internal/data"
	"github.com/contactkeval/option-lattice/internal/logger"
)

var (
	verbosity int
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:           "option-lattice",
	Short:         "Price European options on a Cox-Ross-Rubinstein binomial lattice",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbosity(verbosity)
		return config.LoadEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", config.DefaultVerbosity, "log level: 0=errors, 1=info, 2=debug, 3=trace")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "dotenv file with MASSIVE_API_KEY")

	rootCmd.AddCommand(priceCmd(), batchCmd(), convergeCmd(), serveCmd(), fetchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// providerFlags selects where spot prices come from.
type providerFlags struct {
	dataDir string
	seed    int64
}

func (f *providerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dataDir, "data-dir", "", "directory of <UNDERLYING>.csv daily bars, tried first")
	cmd.Flags().Int64Var(&f.seed, "seed", 1, "seed for the synthetic provider")
}

// remote returns the Massive provider when an API key is configured and the
// synthetic provider otherwise.
func (f *providerFlags) remote() data.Provider {
	if key := config.APIKey(); key != "" {
		logger.Infof("massive provider enabled")
		return data.NewMassiveDataProvider(key, nil)
	}
	logger.Infof("synthetic provider enabled (seed=%d)", f.seed)
	return data.NewSyntheticProvider(f.seed)
}

// provider layers the local CSV cache, when configured, over remote().
func (f *providerFlags) provider() data.Provider {
	prov := f.remote()
	if f.dataDir != "" {
		logger.Infof("local csv provider enabled (%s)", f.dataDir)
		prov = data.NewLocalCSVProvider(f.dataDir, prov)
	}
	return prov
}
