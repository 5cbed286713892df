package reporter_test

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
	"github.com/ethanolivertroy/sap-compass/internal/reporter"
)

func testResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:          "run-1",
		ProfileVersion: "v1.0.0",
		Sources: []models.Source{
			{Name: "notes", Path: "notes.csv", Role: models.RoleNotes},
		},
		Records: make([]models.VulnerabilityRecord, 3),
		Ranked: []models.ScoredRecord{
			{
				VulnerabilityRecord: models.VulnerabilityRecord{
					CVEID:       "CVE-2024-0002",
					SAPPriority: models.PriorityHigh,
					CVSSScore:   models.Float(7.6),
					CWEID:       "CWE-1236",
					Sources:     []string{"notes"},
				},
				Trend:             models.TrendUp,
				TrendAvg:          7.5,
				CVSSScoreWeighted: 15.2,
				EPSSScore:         22.5,
				PriorityScore:     1,
				CompositeScore:    38.7,
			},
			{
				VulnerabilityRecord: models.VulnerabilityRecord{
					CVEID:         "CVE-2024-0001",
					SAPPriority:   models.PriorityHotNews,
					CVSSScore:     models.Float(9.8),
					KEV:           true,
					CWEID:         "CWE-79",
					CWETop25:      true,
					NoteReference: "3456789",
					Sources:       []string{"notes", "scanner"},
				},
				Trend:             models.TrendStable,
				TrendAvg:          1,
				KEVScore:          3,
				CVSSScoreWeighted: 19.6,
				EPSSScore:         2,
				CWEScore:          1.5,
				PriorityScore:     1,
				CompositeScore:    27.1,
			},
		},
		Summary: models.Summary{Ranked: 2, UniqueCVEs: 2, KEVCount: 1, CWETop25Count: 1},
		ByPriority: map[models.SAPPriority]int{
			models.PriorityHotNews: 1,
			models.PriorityHigh:    1,
			"":                     1,
		},
		Unscorable: []string{"CVE-2024-0004"},
	}
}

func TestGet(t *testing.T) {
	for _, format := range reporter.Formats {
		r, err := reporter.Get(format, 0)
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := reporter.Get("xml", 0)
	assert.ErrorContains(t, err, `unsupported output format "xml"`)
}

func TestTerminalReporter(t *testing.T) {
	color.NoColor = true

	out, err := (&reporter.TerminalReporter{Top: 1}).Report(testResult())
	require.NoError(t, err)
	text := string(out)

	assert.Contains(t, text, "Ranked 2 of 3 CVEs (1 on KEV, 1 in CWE Top 25)")
	assert.Contains(t, text, "Hot News 1 | High 1 | Medium 0 | Low 0 | Unrated 1")
	assert.Contains(t, text, "not ranked: CVE-2024-0004")
	assert.Contains(t, text, "CVE-2024-0002")
	assert.Contains(t, text, "38.70")
	assert.NotContains(t, text, "CVE-2024-0001", "limited to the top row")
	assert.Contains(t, text, "... 1 more not shown")

	empty := testResult()
	empty.Ranked = nil
	out, err = (&reporter.TerminalReporter{}).Report(empty)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No candidate CVEs met the ranking criteria.")
}

func TestJSONReporter(t *testing.T) {
	out, err := (&reporter.JSONReporter{Top: 1}).Report(testResult())
	require.NoError(t, err)

	var got struct {
		RunID      string           `json:"run_id"`
		Top        int              `json:"top"`
		Ranked     []map[string]any `json:"ranked"`
		Summary    models.Summary   `json:"summary"`
		Unscorable []string         `json:"unscorable"`
		Records    any              `json:"records"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 1, got.Top)
	require.Len(t, got.Ranked, 1)
	assert.Equal(t, "CVE-2024-0002", got.Ranked[0]["cve_id"])
	assert.InDelta(t, 38.7, got.Ranked[0]["composite_score"], 1e-9)
	assert.Equal(t, "up", got.Ranked[0]["trend"])
	assert.Equal(t, 2, got.Summary.Ranked)
	assert.Equal(t, []string{"CVE-2024-0004"}, got.Unscorable)
	assert.Nil(t, got.Records)
}

func TestSARIFReporter(t *testing.T) {
	out, err := (&reporter.SARIFReporter{}).Report(testResult())
	require.NoError(t, err)

	var got struct {
		Version string `json:"version"`
		Runs    []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID         string `json:"id"`
						Name       string `json:"name"`
						Properties struct {
							Tags             []string `json:"tags"`
							SecuritySeverity string   `json:"security-severity"`
						} `json:"properties"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				RuleIndex int    `json:"ruleIndex"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "2.1.0", got.Version)
	require.Len(t, got.Runs, 1)
	run := got.Runs[0]

	require.Len(t, run.Tool.Driver.Rules, 2)
	rule := run.Tool.Driver.Rules[1]
	assert.Equal(t, "CVE-2024-0001", rule.ID)
	assert.Equal(t, "SAP Note 3456789", rule.Name)
	assert.Equal(t, "9.8", rule.Properties.SecuritySeverity)
	assert.Contains(t, rule.Properties.Tags, "kev")
	assert.Contains(t, rule.Properties.Tags, "cwe-top25")

	require.Len(t, run.Results, 2)
	assert.Equal(t, "warning", run.Results[0].Level)
	assert.Equal(t, "error", run.Results[1].Level)
	assert.Equal(t, 1, run.Results[1].RuleIndex)
	require.Len(t, run.Results[1].Locations, 1, "scanner has no known path")
	assert.Equal(t, "notes.csv", run.Results[1].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestCSVReporter(t *testing.T) {
	out, err := (&reporter.CSVReporter{}).Report(testResult())
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "rank", rows[0][0])
	assert.Equal(t, []string{"1", "CVE-2024-0002", "38.7"}, rows[1][:3])
	assert.Equal(t, []string{"2", "CVE-2024-0001", "27.1"}, rows[2][:3])
	assert.Equal(t, "notes;scanner", rows[2][len(rows[2])-1])
}
