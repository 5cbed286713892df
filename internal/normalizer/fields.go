package normalizer

import (
	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

type field int

const (
	fieldSAPPriority field = iota
	fieldExternalPriority
	fieldGrade
	fieldCVSS
	fieldCVSSVector
	fieldSeverity
	fieldEPSS
	fieldPercentile
	fieldHistory
	fieldKEV
	fieldCWE
	fieldNote
	fieldProduct
	fieldDescription
	fieldPublished
	fieldUpdated
)

// commonColumns apply to every role. Candidates are tried in order and
// matched case-insensitively.
var commonColumns = map[field][]string{
	fieldCVSS:        {"cvss", "cvss_score", "cvss_base_score", "base_score"},
	fieldCVSSVector:  {"cvss_vector", "vector", "vectorString", "cvss_vector_string"},
	fieldSeverity:    {"cvss_severity", "severity", "base_severity"},
	fieldEPSS:        {"epss", "epss_l", "epss_score"},
	fieldPercentile:  {"percentile", "epss_percentile"},
	fieldHistory:     {"epss_l_30", "epss_history"},
	fieldKEV:         {"kev", "cisa_kev", "in_kev"},
	fieldCWE:         {"cweId", "cwe_id", "cwe"},
	fieldNote:        {"note_id", "Note#", "Note", "note_number", "sap_note"},
	fieldProduct:     {"product_l", "product", "component"},
	fieldDescription: {"descriptions", "description", "title"},
	fieldPublished:   {"datePublished", "published", "published_date", "release_date"},
	fieldUpdated:     {"dateUpdated", "updated", "last_modified"},
}

// roleColumns hold the fields whose meaning depends on the producing tool.
// "priority" is the SAP rating in a notes table but the prioritizer's own
// label in its output.
var roleColumns = map[models.SourceRole]map[field][]string{
	models.RoleNotes: {
		fieldSAPPriority: {"Priority", "sap_priority", "SAP Priority"},
	},
	models.RoleScanner: {
		fieldGrade: {"priority_l", "grade", "scanner_grade", "Priority l"},
	},
	models.RolePrioritizer: {
		fieldExternalPriority: {"priority", "external_priority", "priority_label"},
	},
}

// columnIndex resolves each field to a header position, -1 when absent
type columnIndex map[field]int

func resolveColumns(t *parsers.Table, role models.SourceRole) columnIndex {
	idx := make(columnIndex)
	resolve := func(candidates map[field][]string) {
		for f, names := range candidates {
			idx[f] = -1
			for _, name := range names {
				if i := t.Index(name); i >= 0 {
					idx[f] = i
					break
				}
			}
		}
	}
	resolve(commonColumns)
	resolve(roleColumns[role])
	return idx
}

func (c columnIndex) cell(t *parsers.Table, row []string, f field) string {
	i, ok := c[f]
	if !ok {
		return ""
	}
	return t.Cell(row, i)
}
