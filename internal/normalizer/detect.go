package normalizer

import (
	"regexp"
	"strings"

	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

// Strategy records how the CVE column of a table was found
type Strategy string

const (
	StrategyByName    Strategy = "by-name"
	StrategyByPattern Strategy = "by-pattern"
	StrategyNotFound  Strategy = "not-found"
)

// CVEPattern matches a CVE identifier anywhere in a cell
var CVEPattern = regexp.MustCompile(`(?i)CVE-\d{4}-\d{4,7}`)

// cveColumnCandidates are tried in order; matching is case-insensitive
var cveColumnCandidates = []string{"cve_id", "CVE_ID", "CVE ID", "CVE-ID", "cve", "CVE", "id", "ID"}

// Detection is the outcome of CVE column detection for one table
type Detection struct {
	// Column is the matched header for by-name, or the header holding the
	// first pattern hit for by-pattern
	Column   string   `json:"column,omitempty"`
	Strategy Strategy `json:"strategy"`

	index int
}

// DetectCVEColumn finds the column holding CVE ids. A named candidate only
// counts when at least one of its cells carries a CVE id; otherwise every
// cell is searched for the pattern.
func DetectCVEColumn(t *parsers.Table) Detection {
	for _, name := range cveColumnCandidates {
		idx := t.Index(name)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			if CVEPattern.MatchString(t.Cell(row, idx)) {
				return Detection{Column: t.Header[idx], Strategy: StrategyByName, index: idx}
			}
		}
	}

	for _, row := range t.Rows {
		for idx := range t.Header {
			if CVEPattern.MatchString(t.Cell(row, idx)) {
				return Detection{Column: t.Header[idx], Strategy: StrategyByPattern, index: -1}
			}
		}
	}
	return Detection{Strategy: StrategyNotFound, index: -1}
}

// Found reports whether a CVE column could be detected
func (d Detection) Found() bool {
	return d.Strategy != StrategyNotFound
}

// CVE returns the upper-cased CVE id of a row, or false when the row has none
func (d Detection) CVE(t *parsers.Table, row []string) (string, bool) {
	switch d.Strategy {
	case StrategyByName:
		return matchCVE(t.Cell(row, d.index))
	case StrategyByPattern:
		for idx := range t.Header {
			if id, ok := matchCVE(t.Cell(row, idx)); ok {
				return id, true
			}
		}
	}
	return "", false
}

func matchCVE(s string) (string, bool) {
	id := CVEPattern.FindString(s)
	if id == "" {
		return "", false
	}
	return strings.ToUpper(id), true
}
