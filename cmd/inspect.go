package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/sap-compass/internal/normalizer"
	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

var flagInspectJSON bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>...",
	Short: "Show how source tables will be read",
	Long: `inspect reports, for each table, its row and column counts, which column
holds the CVE ids and how it was found, CVEs per year, the share of non-empty
cells per column, and the number of malformed and duplicate CVE rows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&flagInspectJSON, "json", false, "Output as JSON")
}

func runInspect(cmd *cobra.Command, args []string) error {
	inspections := make([]normalizer.Inspection, 0, len(args))
	for _, path := range args {
		t, err := parsers.ParseFile(path)
		if err != nil {
			return err
		}
		inspections = append(inspections, normalizer.Inspect(t))
	}

	out := cmd.OutOrStdout()
	if flagInspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(inspections)
	}
	for _, in := range inspections {
		writeInspection(out, in)
	}
	return nil
}

func writeInspection(w io.Writer, in normalizer.Inspection) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "\n%s\n", in.Path)
	fmt.Fprintf(w, "  Rows: %d  Columns: %d\n", in.Rows, in.Columns)

	if !in.Detection.Found() {
		color.New(color.FgRed).Fprintln(w, "  CVE column: not found")
	} else {
		fmt.Fprintf(w, "  CVE column: %q (%s)\n", in.Detection.Column, in.Detection.Strategy)
		fmt.Fprintf(w, "  Unique CVEs: %d  Malformed rows: %d  Duplicate rows: %d\n",
			in.UniqueCVEs, in.Malformed, in.Duplicates)

		years := make([]int, 0, len(in.ByYear))
		for y := range in.ByYear {
			years = append(years, y)
		}
		sort.Ints(years)
		fmt.Fprintln(w, "  CVEs per year:")
		for _, y := range years {
			fmt.Fprintf(w, "    %d  %d\n", y, in.ByYear[y])
		}
	}

	fmt.Fprintln(w, "  Completeness:")
	for _, c := range in.Completeness {
		fmt.Fprintf(w, "    %-24s %5d  %3.0f%%\n", c.Column, c.Filled, c.Ratio*100)
	}
}
