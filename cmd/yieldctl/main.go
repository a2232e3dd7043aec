// Command yieldctl queries the yield reporting API and prints the rollups the
// dashboards are built from.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"yieldboard/aggregate"
	"yieldboard/cache"
	"yieldboard/client"
	"yieldboard/config"
	"yieldboard/utils"
)

var (
	// Persistent flags
	apiBase      string
	aliasesPath  string
	startFlag    string
	endFlag      string
	outputFormat string
	verbose      bool

	// Set up by PersistentPreRunE
	cfg        config.Client
	logger     *logrus.Logger
	api        *client.Client
	resolver   *aggregate.Resolver
	rangeStart time.Time
	rangeEnd   time.Time
)

var rootCmd = &cobra.Command{
	Use:   "yieldctl",
	Short: "Manufacturing yield reports from the command line",
	Long: `yieldctl fetches testboard, TPY and packing data from the reporting API
and prints the same rollups the dashboards chart.

Configuration comes from the environment (YIELD_API_BASE, YIELD_ALIASES,
YIELD_CACHE_TTL, YIELD_CHUNK_SIZE, YIELD_POLL_INTERVAL, YIELD_SETTINGS_DB,
YIELD_API_KEY) and an optional .env file; flags override it.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api-base", "", "API base URL (default $YIELD_API_BASE)")
	rootCmd.PersistentFlags().StringVar(&aliasesPath, "aliases", "", "YAML model alias table (default $YIELD_ALIASES)")
	rootCmd.PersistentFlags().StringVar(&startFlag, "start", "", "First day, YYYY-MM-DD (default: six days before --end)")
	rootCmd.PersistentFlags().StringVar(&endFlag, "end", "", "Last day, YYYY-MM-DD (default: today)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(dailyCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(packingCmd)
	rootCmd.AddCommand(snfnCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(portalCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(xbarCmd)
	rootCmd.AddCommand(testYieldsCmd)
	rootCmd.AddCommand(filteredYieldsCmd)
	rootCmd.AddCommand(uploadCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	_ = config.LoadDotEnv()

	var err error
	cfg, err = config.LoadClient()
	if err != nil {
		return err
	}
	if apiBase != "" {
		cfg.APIBase = apiBase
	}
	if aliasesPath != "" {
		cfg.AliasesPath = aliasesPath
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err = config.NewLogger(level, "text")
	if err != nil {
		return err
	}
	logger.SetOutput(os.Stderr)

	if outputFormat != "table" && outputFormat != "json" {
		return fmt.Errorf("unknown output format %q (want table or json)", outputFormat)
	}

	resolver, err = config.LoadAliases(cfg.AliasesPath)
	if err != nil {
		return err
	}

	rangeStart, rangeEnd, err = dayRange(startFlag, endFlag, time.Now())
	if err != nil {
		return err
	}

	api = client.New(cfg.APIBase,
		client.WithCache(cache.New(cfg.CacheTTL)),
		client.WithLogger(logger),
		client.WithChunkSize(cfg.ChunkSize),
		client.WithAPIKey(cfg.APIKey),
	)
	logger.WithFields(logrus.Fields{
		"api":   cfg.APIBase,
		"start": rangeStart.Format("2006-01-02"),
		"end":   rangeEnd.Format("2006-01-02"),
	}).Debug("yieldctl configured")
	return nil
}

// dayRange resolves --start/--end into calendar days. Missing bounds give
// the seven days ending today.
func dayRange(start, end string, now time.Time) (time.Time, time.Time, error) {
	e := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if end != "" {
		t, _, err := utils.ParseDate(end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
		e = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	s := e.AddDate(0, 0, -6)
	if start != "" {
		t, _, err := utils.ParseDate(start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
		s = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s", e.Format("2006-01-02"), s.Format("2006-01-02"))
	}
	return s, e, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
