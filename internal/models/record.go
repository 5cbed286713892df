package models

import "time"

// VulnerabilityRecord is the merged view of one CVE across all sources
type VulnerabilityRecord struct {
	CVEID            string       `json:"cve_id"`
	SAPPriority      SAPPriority  `json:"sap_priority,omitempty"`
	ExternalPriority string       `json:"external_priority,omitempty"`
	ScannerGrade     ScannerGrade `json:"scanner_grade,omitempty"`
	CVSSScore        *float64     `json:"cvss_score"`
	CVSSVector       string       `json:"cvss_vector,omitempty"`
	CVSSSeverity     Severity     `json:"cvss_severity,omitempty"`
	EPSSCurrent      *float64     `json:"epss_current"`
	EPSSPercentile   *float64     `json:"epss_percentile,omitempty"`
	EPSSHistory      []float64    `json:"epss_history,omitempty"`
	KEV              bool         `json:"kev"`
	CWEID            string       `json:"cwe_id,omitempty"`
	CWETop25         bool         `json:"cwe_top25"`
	NoteReference    string       `json:"note_reference,omitempty"`
	PublishedAt      time.Time    `json:"published_at,omitzero"`
	UpdatedAt        time.Time    `json:"updated_at,omitzero"`
	Product          string       `json:"product,omitempty"`
	Description      string       `json:"description,omitempty"`

	// Sources lists the inputs that contained the CVE, in precedence order
	Sources []string `json:"sources,omitempty"`
}

// HasCVSS reports whether a numeric CVSS base score is present
func (r VulnerabilityRecord) HasCVSS() bool {
	return r.CVSSScore != nil
}

// Year returns the CVE year, or 0 for a malformed id
func (r VulnerabilityRecord) Year() int {
	if len(r.CVEID) < 8 {
		return 0
	}
	year := 0
	for _, c := range r.CVEID[4:8] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}
	return year
}

// ScoredRecord is a candidate record with its Rethink Priority Score components
type ScoredRecord struct {
	VulnerabilityRecord

	Trend             Trend   `json:"trend"`
	TrendAvg          float64 `json:"trend_avg"`
	KEVScore          float64 `json:"kev_score"`
	CVSSScoreWeighted float64 `json:"cvss_score_weighted"`
	EPSSScore         float64 `json:"epss_score"`
	CWEScore          float64 `json:"cwe_score"`
	PriorityScore     float64 `json:"priority_score"`
	CompositeScore    float64 `json:"composite_score"`

	// SeverityMismatch is set when the reported severity disagrees with the score band
	SeverityMismatch bool `json:"severity_mismatch,omitempty"`
}

// Summary holds aggregate counts over a ranked set
type Summary struct {
	Ranked           int `json:"ranked"`
	UniqueCVEs       int `json:"unique_cves"`
	KEVCount         int `json:"kev_count"`
	CWETop25Count    int `json:"cwe_top25_count"`
	SeverityMismatch int `json:"severity_mismatch"`
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
