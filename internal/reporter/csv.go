package reporter

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// CSVReporter writes one row per ranked CVE
type CSVReporter struct {
	Top int
}

var csvHeader = []string{
	"rank", "cve_id", "composite_score",
	"kev_score", "cvss_score_weighted", "epss_score", "cwe_score", "priority_score",
	"kev", "cvss_score", "cvss_vector", "trend", "trend_avg", "epss_current",
	"cwe_id", "cwe_top25", "sap_priority", "scanner_grade", "external_priority",
	"note_reference", "product", "sources",
}

// Report generates CSV output for the given ranking run
func (r *CSVReporter) Report(result *pipeline.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, oops.In("reporter").Wrapf(err, "failed to write csv header")
	}
	for i, rec := range limit(result.Ranked, r.Top) {
		epss := ""
		if rec.EPSSCurrent != nil {
			epss = formatFloat(*rec.EPSSCurrent)
		}
		row := []string{
			strconv.Itoa(i + 1), rec.CVEID, formatFloat(rec.CompositeScore),
			formatFloat(rec.KEVScore), formatFloat(rec.CVSSScoreWeighted), formatFloat(rec.EPSSScore),
			formatFloat(rec.CWEScore), formatFloat(rec.PriorityScore),
			strconv.FormatBool(rec.KEV), formatFloat(*rec.CVSSScore), rec.CVSSVector,
			string(rec.Trend), formatFloat(rec.TrendAvg), epss,
			rec.CWEID, strconv.FormatBool(rec.CWETop25), string(rec.SAPPriority),
			string(rec.ScannerGrade), rec.ExternalPriority,
			rec.NoteReference, rec.Product, strings.Join(rec.Sources, ";"),
		}
		if err := w.Write(row); err != nil {
			return nil, oops.In("reporter").With("cve", rec.CVEID).Wrapf(err, "failed to write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, oops.In("reporter").Wrapf(err, "failed to flush csv")
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
