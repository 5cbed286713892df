package parsers

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SploitScanColumns is the header of a flattened SploitScan export
var SploitScanColumns = []string{
	"cve_id", "datePublished", "dateUpdated", "descriptions", "product_l",
	"epss_l", "percentile", "priority_l", "cweId", "note_id",
	"cvss", "cvss_vector", "cvss_severity", "kev",
}

// notePattern matches SAP note numbers inside reference URLs
var notePattern = regexp.MustCompile(`[23][0-9]{6}`)

type sploitScanEntry struct {
	CVEData struct {
		CVEMetadata struct {
			CVEID         string `json:"cveId"`
			DatePublished string `json:"datePublished"`
			DateUpdated   string `json:"dateUpdated"`
		} `json:"cveMetadata"`
		Containers struct {
			CNA struct {
				ProblemTypes []struct {
					Descriptions []struct {
						CWEID       string `json:"cweId"`
						Description string `json:"description"`
					} `json:"descriptions"`
				} `json:"problemTypes"`
				Descriptions []struct {
					Value string `json:"value"`
				} `json:"descriptions"`
				Affected []struct {
					Product string `json:"product"`
				} `json:"affected"`
				References []struct {
					URL string `json:"url"`
				} `json:"references"`
				Metrics []map[string]cvssMetric `json:"metrics"`
			} `json:"cna"`
		} `json:"containers"`
	} `json:"CVE Data"`
	EPSSData struct {
		Data []struct {
			EPSS       json.Number `json:"epss"`
			Percentile json.Number `json:"percentile"`
		} `json:"data"`
	} `json:"EPSS Data"`
	Priority struct {
		Priority string `json:"Priority"`
	} `json:"Priority"`
	CISAData struct {
		Status string `json:"cisa_status"`
	} `json:"CISA Data"`
}

type cvssMetric struct {
	BaseScore    float64 `json:"baseScore"`
	VectorString string  `json:"vectorString"`
	BaseSeverity string  `json:"baseSeverity"`
}

func isSploitScan(raw json.RawMessage) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return false
	}
	_, ok := top["CVE Data"]
	return ok
}

func flattenSploitScan(path string, items []json.RawMessage) (*Table, error) {
	t := &Table{Path: path, Header: SploitScanColumns}
	for i, raw := range items {
		var e sploitScanEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("failed to decode sploitscan entry %d: %w", i, err)
		}
		t.Rows = append(t.Rows, e.row())
	}
	return t, nil
}

func (e sploitScanEntry) row() []string {
	cna := e.CVEData.Containers.CNA

	var cwe string
	if len(cna.ProblemTypes) > 0 && len(cna.ProblemTypes[0].Descriptions) > 0 {
		d := cna.ProblemTypes[0].Descriptions[0]
		cwe = d.CWEID
		if cwe == "" {
			cwe = d.Description
		}
	}

	var epss, percentile string
	if len(e.EPSSData.Data) == 1 {
		epss = e.EPSSData.Data[0].EPSS.String()
		percentile = e.EPSSData.Data[0].Percentile.String()
	}

	var description, product, note string
	if len(cna.Descriptions) > 0 {
		description = cna.Descriptions[0].Value
	}
	if len(cna.Affected) > 0 {
		product = cna.Affected[0].Product
	}
	if len(cna.References) > 0 {
		note = notePattern.FindString(cna.References[0].URL)
	}

	var cvss, vector, severity string
	if m, ok := preferredMetric(cna.Metrics); ok {
		cvss = strconv.FormatFloat(m.BaseScore, 'f', -1, 64)
		vector = m.VectorString
		severity = m.BaseSeverity
	}

	var kev string
	if e.CISAData.Status != "" {
		kev = strconv.FormatBool(strings.EqualFold(e.CISAData.Status, "Listed"))
	}

	return []string{
		e.CVEData.CVEMetadata.CVEID,
		e.CVEData.CVEMetadata.DatePublished,
		e.CVEData.CVEMetadata.DateUpdated,
		description,
		product,
		epss,
		percentile,
		e.Priority.Priority,
		cwe,
		note,
		cvss,
		vector,
		severity,
		kev,
	}
}

// preferredMetric picks the newest CVSS version present in the CNA metrics
func preferredMetric(metrics []map[string]cvssMetric) (cvssMetric, bool) {
	for _, key := range []string{"cvssV4_0", "cvssV3_1", "cvssV3_0"} {
		for _, m := range metrics {
			if v, ok := m[key]; ok && v.VectorString != "" {
				return v, true
			}
		}
	}
	return cvssMetric{}, false
}
