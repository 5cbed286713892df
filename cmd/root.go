package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/models"
)

var (
	flagProfile  string
	flagLogLevel string
	flagLogJSON  bool
	flagCacheDir string
	flagNoCache  bool
	flagTimeout  int
)

// errKEVFound makes Execute exit with code 1 instead of 2
var errKEVFound = errors.New("known exploited vulnerabilities ranked")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sap-compass",
	Short: "Rank SAP security notes by exploitation likelihood and impact",
	Long: `sap-compass merges SAP security note tables, exploit scanner output and
external prioritizer results into one record per CVE, then ranks the
high-priority subset with the Rethink Priority Score:

  KEV presence + weighted CVSS + EPSS trend + CWE Top 25 + priority

Inputs may be CSV, JSON (including SploitScan exports) or XLSX. EPSS history
comes from an epss_l_30 column, a history file, or the FIRST EPSS API.

Examples:
  # Rank a notes export, enriched by a scanner run
  sap-compass rank --notes notes.csv --scanner sploitscan.json

  # Offline ranking with a history file, top 10 as JSON
  sap-compass rank --notes notes.csv --history history.json --offline --top 10 --format json

  # Serve the ranking as a JSON API
  sap-compass serve --notes notes.csv --addr :3000

  # Check how a table will be read
  sap-compass inspect notes.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := log.Init(flagLogLevel, flagLogJSON); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if errors.Is(err, errKEVFound) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagProfile, "profile", "", "Scoring profile file (TOML or YAML)")
	pf.StringVar(&flagLogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	pf.BoolVar(&flagLogJSON, "log-json", false, "Write logs as JSON")
	pf.StringVar(&flagCacheDir, "cache-dir", "", "Fetch cache directory (default: user cache dir)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Disable the fetch cache")
	pf.IntVar(&flagTimeout, "timeout", 60, "HTTP request timeout in seconds")

	rootCmd.AddCommand(rankCmd, serveCmd, inspectCmd, profileCmd, cacheCmd)
}

// baseConfig applies the persistent flags to a default config
func baseConfig() *models.Config {
	config := models.DefaultConfig()
	config.ProfileFile = flagProfile
	config.CacheDir = flagCacheDir
	config.NoCache = flagNoCache
	config.Timeout = time.Duration(flagTimeout) * time.Second
	return config
}
