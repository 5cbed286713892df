package reporter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// SARIFReporter outputs ranked CVEs in SARIF format for GitHub Code Scanning
type SARIFReporter struct {
	Top int
}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool          `json:"tool"`
	Results    []sarifResult      `json:"results"`
	Properties sarifRunProperties `json:"properties"`
}

type sarifRunProperties struct {
	RunID          string `json:"runId"`
	ProfileVersion string `json:"profileVersion"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	FullDescription  sarifText       `json:"fullDescription"`
	Help             sarifText       `json:"help"`
	HelpURI          string          `json:"helpUri"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags             []string `json:"tags"`
	SecuritySeverity string   `json:"security-severity,omitempty"`
}

type sarifResult struct {
	RuleID              string             `json:"ruleId"`
	RuleIndex           int                `json:"ruleIndex"`
	Level               string             `json:"level"`
	Message             sarifText          `json:"message"`
	Locations           []sarifLocation    `json:"locations"`
	PartialFingerprints map[string]string  `json:"partialFingerprints"`
	Properties          sarifResultDetails `json:"properties"`
}

type sarifResultDetails struct {
	Rank           int     `json:"rank"`
	CompositeScore float64 `json:"compositeScore"`
	Trend          string  `json:"trend"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// Report generates SARIF output for the given ranking run
func (r *SARIFReporter) Report(result *pipeline.Result) ([]byte, error) {
	ranked := limit(result.Ranked, r.Top)

	report := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "sap-compass",
					Version:        "1.0.0",
					InformationURI: "https://github.com/ethanolivertroy/sap-compass",
					Rules:          r.buildRules(ranked),
				},
			},
			Results: r.buildResults(ranked, sourcePaths(result.Sources)),
			Properties: sarifRunProperties{
				RunID:          result.RunID,
				ProfileVersion: result.ProfileVersion,
			},
		}},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildRules emits one rule per ranked CVE, in rank order, so a result's
// rule index equals its position
func (r *SARIFReporter) buildRules(ranked []models.ScoredRecord) []sarifRule {
	rules := make([]sarifRule, 0, len(ranked))
	for _, rec := range ranked {
		tags := []string{"security", "vulnerability", "sap"}
		if rec.KEV {
			tags = append(tags, "kev")
		}
		if rec.CWEID != "" {
			tags = append(tags, rec.CWEID)
		}
		if rec.CWETop25 {
			tags = append(tags, "cwe-top25")
		}

		name := rec.CVEID
		if rec.NoteReference != "" {
			name = fmt.Sprintf("SAP Note %s", rec.NoteReference)
		}
		desc := rec.Description
		if desc == "" {
			desc = fmt.Sprintf("%s affects %s", rec.CVEID, productOrDefault(rec.Product))
		}

		rules = append(rules, sarifRule{
			ID:   rec.CVEID,
			Name: name,
			ShortDescription: sarifText{
				Text: fmt.Sprintf("%s: %s", rec.CVEID, name),
			},
			FullDescription: sarifText{Text: desc},
			Help: sarifText{
				Text: fmt.Sprintf("Rethink Priority Score %.2f.\n\n%s", rec.CompositeScore, scoreBreakdown(rec)),
			},
			HelpURI:       fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", rec.CVEID),
			DefaultConfig: sarifRuleConfig{Level: level(rec)},
			Properties: sarifProperties{
				Tags:             tags,
				SecuritySeverity: fmt.Sprintf("%.1f", *rec.CVSSScore),
			},
		})
	}
	return rules
}

func (r *SARIFReporter) buildResults(ranked []models.ScoredRecord, paths map[string]string) []sarifResult {
	results := make([]sarifResult, 0, len(ranked))
	for i, rec := range ranked {
		msg := fmt.Sprintf("%s ranked #%d with Rethink Priority Score %.2f (CVSS %.1f, EPSS trend %s)",
			rec.CVEID, i+1, rec.CompositeScore, *rec.CVSSScore, rec.Trend)
		if rec.KEV {
			msg += " [Known exploited]"
		}

		var locations []sarifLocation
		for _, name := range rec.Sources {
			uri, ok := paths[name]
			if !ok {
				continue
			}
			locations = append(locations, sarifLocation{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifact{URI: uri},
				},
			})
		}

		results = append(results, sarifResult{
			RuleID:    rec.CVEID,
			RuleIndex: i,
			Level:     level(rec),
			Message:   sarifText{Text: msg},
			Locations: locations,
			PartialFingerprints: map[string]string{
				"cveId": rec.CVEID,
			},
			Properties: sarifResultDetails{
				Rank:           i + 1,
				CompositeScore: rec.CompositeScore,
				Trend:          string(rec.Trend),
			},
		})
	}
	return results
}

func level(rec models.ScoredRecord) string {
	switch {
	case rec.KEV, rec.SAPPriority == models.PriorityHotNews:
		return "error"
	case *rec.CVSSScore >= 7.0:
		return "warning"
	default:
		return "note"
	}
}

func scoreBreakdown(rec models.ScoredRecord) string {
	lines := []string{
		fmt.Sprintf("KEV: %.2f", rec.KEVScore),
		fmt.Sprintf("CVSS: %.2f", rec.CVSSScoreWeighted),
		fmt.Sprintf("EPSS (%s, avg %.2f): %.2f", rec.Trend, rec.TrendAvg, rec.EPSSScore),
		fmt.Sprintf("CWE Top 25: %.2f", rec.CWEScore),
		fmt.Sprintf("Priority: %.2f", rec.PriorityScore),
	}
	return strings.Join(lines, "\n")
}

func sourcePaths(sources []models.Source) map[string]string {
	paths := make(map[string]string, len(sources))
	for _, s := range sources {
		paths[s.Name] = s.Path
	}
	return paths
}

func productOrDefault(product string) string {
	if product == "" {
		return "an SAP product"
	}
	return product
}
