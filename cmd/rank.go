package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
	"github.com/ethanolivertroy/sap-compass/internal/reporter"
)

var (
	rankFlags     runFlags
	flagOutput    string
	flagFormat    string
	flagTop       int
	flagFailOnKEV bool
	flagProgress  bool
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Merge the sources and print the ranked CVEs",
	Long: `rank merges every source into one record per CVE, selects the candidates
(scanner grade A+, external "Priority 1" or higher, or CVSS above 7.5) and
orders them by Rethink Priority Score, highest first.

Examples:
  sap-compass rank --notes notes.csv --scanner sploitscan.json --prioritizer vulnrichment.csv

  # Output SARIF for GitHub Code Scanning
  sap-compass rank --notes notes.csv --format sarif --output results.sarif

  # Fail the build when a ranked CVE is known exploited
  sap-compass rank --notes notes.csv --kev --fail-on-kev`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

func init() {
	rankFlags.register(rankCmd.Flags())
	rankCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file path (default: stdout)")
	rankCmd.Flags().StringVarP(&flagFormat, "format", "f", "terminal", "Output format: "+strings.Join(reporter.Formats, ", "))
	rankCmd.Flags().IntVar(&flagTop, "top", 0, "Only report the N highest ranked CVEs (0 = all)")
	rankCmd.Flags().BoolVar(&flagFailOnKEV, "fail-on-kev", false, "Exit with code 1 if a ranked CVE is on the KEV list")
	rankCmd.Flags().BoolVar(&flagProgress, "progress", false, "Show progress while fetching EPSS history")
}

func runRank(cmd *cobra.Command, args []string) error {
	if !slices.Contains(reporter.Formats, flagFormat) {
		return fmt.Errorf("unsupported output format %q", flagFormat)
	}
	if flagTop < 0 {
		return fmt.Errorf("--top must not be negative")
	}

	config, err := rankFlags.config()
	if err != nil {
		return err
	}
	config.OutputFormat = flagFormat
	config.OutputFile = flagOutput
	config.Top = flagTop
	config.FailOnKEV = flagFailOnKEV
	config.Progress = flagProgress

	// Create pipeline
	r, err := pipeline.New(config, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Run ranking
	var spin *spinner.Spinner
	if config.OutputFormat == "terminal" && !config.Progress {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		spin.Suffix = " Ranking SAP security notes..."
		spin.Start()
	}
	result, err := r.Run(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	// Generate report
	rep, err := reporter.Get(config.OutputFormat, config.Top)
	if err != nil {
		return err
	}
	output, err := rep.Report(result)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	// Write output
	if config.OutputFile != "" {
		if err := os.WriteFile(config.OutputFile, output, 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", config.OutputFile)
	} else {
		fmt.Print(string(output))
	}

	// Exit with code 1 if a ranked CVE is known exploited
	if config.FailOnKEV && lo.ContainsBy(result.Ranked, func(r models.ScoredRecord) bool { return r.KEV }) {
		return errKEVFound
	}
	return nil
}
