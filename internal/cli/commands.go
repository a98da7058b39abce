package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/cache"
	"github.com/zhengshaocong/Time-Series-Analysis-Project/internal/metrics"
)

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(stationarityCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(menuCmd)

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSummaryCmd)

	// Search command flags
	searchCmd.Flags().StringP("series", "s", string(cache.Purchase), "Series to search (purchase/redeem)")
	searchCmd.Flags().Bool("force", false, "Search even when a cached result exists")
	searchCmd.Flags().Bool("metrics", false, "Print search and cache counters afterwards")

	// Stationarity command flags
	stationarityCmd.Flags().StringP("series", "s", string(cache.Purchase), "Series to test (purchase/redeem)")
	stationarityCmd.Flags().Int("max-d", 2, "Maximum differencing order to validate")

	cacheClearCmd.Flags().Bool("all", false, "Clear every record, not just the current data file")

	configCmd.Flags().Bool("json", false, "Print the full configuration as JSON")
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find the best ARIMA order for a series",
	RunE:  handleSearch,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Forecast purchase and redeem over the prediction window",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.Predict()
		return err
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Forecast and write the prediction CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.Export()
		return err
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Summarise both series and write a 7-day moving average",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.Trend()
		return err
	},
}

var stationarityCmd = &cobra.Command{
	Use:   "stationarity",
	Short: "Run ADF, KPSS and Phillips-Perron and validate differencing",
	RunE:  handleStationarity,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the parameter cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every cache record",
	RunE: func(cmd *cobra.Command, args []string) error {
		app.Store().Refresh()
		return app.Store().Render(cmd.OutOrStdout())
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the record for the current data file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.ShowRecord()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the record for the current data file",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		return app.ClearCache(all)
	},
}

var cacheSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "One-line summary of cached parameters",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaries := app.CacheSummaries()
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cached parameters for", cfg.Data.File)
			return nil
		}
		for _, disc := range []cache.Discriminator{cache.Purchase, cache.Redeem} {
			if s, ok := summaries[disc]; ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s\n", disc, s)
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE:  handleConfig,
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Start the interactive menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		return NewMenuUI(app, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
	},
}

func parseSeries(s string) (cache.Discriminator, error) {
	disc := cache.Discriminator(strings.ToLower(strings.TrimSpace(s)))
	if !disc.Valid() {
		return "", fmt.Errorf("unknown series %q (want purchase or redeem)", s)
	}
	return disc, nil
}

func handleSearch(cmd *cobra.Command, args []string) error {
	series, _ := cmd.Flags().GetString("series")
	force, _ := cmd.Flags().GetBool("force")
	showMetrics, _ := cmd.Flags().GetBool("metrics")

	disc, err := parseSeries(series)
	if err != nil {
		return err
	}
	if _, err := app.Search(disc, force); err != nil {
		return err
	}
	if showMetrics {
		return printMetrics(cmd, prometheus.DefaultGatherer)
	}
	return nil
}

func printMetrics(cmd *cobra.Command, g prometheus.Gatherer) error {
	samples, err := metrics.Snapshot(g)
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Metrics:")
	for _, s := range samples {
		fmt.Fprintf(out, "  %s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
	return nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func handleStationarity(cmd *cobra.Command, args []string) error {
	series, _ := cmd.Flags().GetString("series")
	maxD, _ := cmd.Flags().GetInt("max-d")

	disc, err := parseSeries(series)
	if err != nil {
		return err
	}
	_, err = app.Stationarity(disc, maxD)
	return err
}

func handleConfig(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()

	if asJSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	a := cfg.ARIMA
	fmt.Fprintf(out, "data file:     %s (from %s)\n", cfg.Data.File, cfg.Data.StartDate)
	fmt.Fprintf(out, "cache file:    %s (enabled: %t)\n", cfg.Cache.File, cfg.Cache.Enabled)
	fmt.Fprintf(out, "grid:          p [%d,%d) d [%d,%d) q [%d,%d)\n", a.P.From, a.P.To, a.D.From, a.D.To, a.Q.From, a.Q.To)
	fmt.Fprintf(out, "budget:        min(%d, %.0f%% of observations)\n", a.MaxParams, a.ParamRatio*100)
	fmt.Fprintf(out, "train window:  %s to %s\n", a.TrainStart, a.TrainEnd)
	fmt.Fprintf(out, "predict:       %s to %s\n", a.PredictStart, a.PredictEnd)
	fmt.Fprintf(out, "fallback:      ARIMA(%d,%d,%d)\n", a.FallbackP, a.FallbackD, a.FallbackQ)
	fmt.Fprintf(out, "gate:          enabled=%t steps=%d min_cv=%g min_range=%g\n",
		cfg.Gate.Enabled, cfg.Gate.Steps, cfg.Gate.MinCV, cfg.Gate.MinRange)
	fmt.Fprintf(out, "output:        %s (csv: %s, %d decimals)\n", cfg.Output.Dir, cfg.Output.CSVDir, cfg.Output.Decimals)
	return nil
}
