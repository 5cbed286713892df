package reporter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// TerminalReporter outputs the ranking in a human-readable table
type TerminalReporter struct {
	Top int
}

var (
	headerColor = color.New(color.Bold)
	kevColor    = color.New(color.FgRed, color.Bold)
	upColor     = color.New(color.FgRed)
	downColor   = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

// Report generates terminal output for the given ranking run
func (r *TerminalReporter) Report(result *pipeline.Result) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(headerColor.Sprint("SAP RETHINK PRIORITY RANKING") + "\n")
	sb.WriteString(strings.Repeat("=", 78) + "\n\n")

	s := result.Summary
	sb.WriteString(fmt.Sprintf("Ranked %d of %d CVEs (%d on KEV, %d in CWE Top 25)\n",
		s.Ranked, len(result.Records), s.KEVCount, s.CWETop25Count))
	sb.WriteString("By SAP priority: " + priorityLine(result.ByPriority) + "\n")
	if len(result.Unscorable) > 0 {
		sb.WriteString(fmt.Sprintf("%d candidates had no CVSS score and were not ranked: %s\n",
			len(result.Unscorable), strings.Join(result.Unscorable, ", ")))
	}
	if result.HistoryErrors > 0 {
		sb.WriteString(fmt.Sprintf("EPSS history unavailable for %d CVEs\n", result.HistoryErrors))
	}
	if s.SeverityMismatch > 0 {
		sb.WriteString(fmt.Sprintf("%d CVEs report a severity that disagrees with their CVSS score\n", s.SeverityMismatch))
	}
	sb.WriteString("\n")

	if len(result.Ranked) == 0 {
		sb.WriteString("No candidate CVEs met the ranking criteria.\n")
		return []byte(sb.String()), nil
	}

	sb.WriteString(headerColor.Sprintf("%4s  %-16s %7s  %-4s %5s  %-7s %8s  %-9s %s",
		"#", "CVE", "SCORE", "KEV", "CVSS", "TREND", "EPSS AVG", "CWE", "PRIORITY") + "\n")
	sb.WriteString(strings.Repeat("-", 78) + "\n")

	for i, rec := range limit(result.Ranked, r.Top) {
		kev := fmt.Sprintf("%-4s", "no")
		if rec.KEV {
			kev = kevColor.Sprintf("%-4s", "yes")
		}
		cwe := rec.CWEID
		if rec.CWETop25 {
			cwe += "*"
		}
		sb.WriteString(fmt.Sprintf("%4d  %-16s %7.2f  %s %5.1f  %s %8.2f  %-9s %s\n",
			i+1, rec.CVEID, rec.CompositeScore, kev, *rec.CVSSScore,
			trendCell(rec.Trend), rec.TrendAvg, cwe, priorityCell(rec)))
	}

	if r.Top > 0 && r.Top < len(result.Ranked) {
		sb.WriteString(dimColor.Sprintf("... %d more not shown", len(result.Ranked)-r.Top) + "\n")
	}
	sb.WriteString("\n" + dimColor.Sprint("* CWE Top 25 weakness") + "\n")

	return []byte(sb.String()), nil
}

func trendCell(t models.Trend) string {
	cell := fmt.Sprintf("%-7s", t)
	switch t {
	case models.TrendUp:
		return upColor.Sprint(cell)
	case models.TrendDown:
		return downColor.Sprint(cell)
	}
	return cell
}

func priorityCell(rec models.ScoredRecord) string {
	var parts []string
	if rec.SAPPriority != "" {
		parts = append(parts, string(rec.SAPPriority))
	}
	if rec.ScannerGrade != models.GradeUnknown {
		parts = append(parts, "grade "+string(rec.ScannerGrade))
	}
	if rec.ExternalPriority != "" {
		parts = append(parts, rec.ExternalPriority)
	}
	return strings.Join(parts, ", ")
}

func priorityLine(counts map[models.SAPPriority]int) string {
	parts := make([]string, 0, len(models.SAPPriorities)+1)
	for _, p := range models.SAPPriorities {
		parts = append(parts, fmt.Sprintf("%s %d", p, counts[p]))
	}
	parts = append(parts, fmt.Sprintf("Unrated %d", counts[""]))
	return strings.Join(parts, " | ")
}
