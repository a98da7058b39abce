// Package cli implements the fundflow command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/config"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// Global flags
var (
	configPath string
	dataFile   string
	cacheFile  string
	verbose    bool
	quiet      bool
)

var (
	cfg *config.Config
	app *App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "fundflow",
	Short:   "Fund flow ARIMA workbench",
	Long:    `Grid-search ARIMA parameters for daily purchase and redeem totals, forecast them and export the results.`,
	Version: Version,

	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logging.IsTerminal(os.Stdin) {
			return NewMenuUI(app, os.Stdin, cmd.OutOrStdout()).Run()
		}
		return cmd.Help()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $FUNDFLOW_CONFIG, fundflow.yaml, config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "Override data.file")
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache", "", "Override cache.file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Only log warnings and errors")
}

// setup loads configuration, initialises logging and builds the App.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dataFile != "" {
		cfg.Data.File = dataFile
	}
	if cacheFile != "" {
		cfg.Cache.File = cacheFile
	}

	lc := logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Caller:     cfg.Logging.Caller,
		Timestamp:  true,
		Output:     cmd.ErrOrStderr(),
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}
	switch {
	case verbose:
		lc.Level = "debug"
	case quiet:
		lc.Level = "warn"
	}
	logging.Init(lc)

	app = NewApp(cfg, logging.Logger(), cmd.OutOrStdout())
	return nil
}
