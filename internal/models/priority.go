package models

import "strings"

// SAPPriority is the vendor-assigned urgency of a security note
type SAPPriority string

const (
	PriorityHotNews SAPPriority = "Hot News"
	PriorityHigh    SAPPriority = "High"
	PriorityMedium  SAPPriority = "Medium"
	PriorityLow     SAPPriority = "Low"
)

// SAPPriorities lists the canonical priorities from most to least urgent
var SAPPriorities = []SAPPriority{PriorityHotNews, PriorityHigh, PriorityMedium, PriorityLow}

// ScannerGrade is the letter grade assigned by the exploit scanner
type ScannerGrade string

const (
	GradeAPlus   ScannerGrade = "A+"
	GradeA       ScannerGrade = "A"
	GradeB       ScannerGrade = "B"
	GradeC       ScannerGrade = "C"
	GradeD       ScannerGrade = "D"
	GradeE       ScannerGrade = "E"
	GradeUnknown ScannerGrade = ""
)

var gradeRank = map[ScannerGrade]int{
	GradeAPlus: 6,
	GradeA:     5,
	GradeB:     4,
	GradeC:     3,
	GradeD:     2,
	GradeE:     1,
}

// ParseScannerGrade returns the canonical grade for a raw label, or GradeUnknown
func ParseScannerGrade(s string) ScannerGrade {
	g := ScannerGrade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := gradeRank[g]; ok {
		return g
	}
	return GradeUnknown
}

// Rank orders grades: A+ is highest, unknown is 0
func (g ScannerGrade) Rank() int {
	return gradeRank[g]
}

// Severity is the CVSS qualitative rating
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityNone     Severity = "NONE"
	SeverityUnknown  Severity = ""
)

// ParseSeverity normalizes a reported severity label
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM", "MODERATE":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	case "NONE":
		return SeverityNone
	}
	return SeverityUnknown
}

// SeverityForScore returns the CVSS v3 rating band for a base score
func SeverityForScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// Trend is the short-term direction of an EPSS series
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)
