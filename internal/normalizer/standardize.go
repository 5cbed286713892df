package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ethanolivertroy/sap-compass/internal/models"
)

var sapPriorities = map[string]models.SAPPriority{
	"hot news":  models.PriorityHotNews,
	"hotnews":   models.PriorityHotNews,
	"hot":       models.PriorityHotNews,
	"very high": models.PriorityHotNews,
	"critical":  models.PriorityHotNews,
	"high":      models.PriorityHigh,
	"medium":    models.PriorityMedium,
	"low":       models.PriorityLow,
}

// StandardizePriority maps vendor priority spellings onto the four canonical values
func StandardizePriority(s string) models.SAPPriority {
	return sapPriorities[strings.ToLower(collapseSpaces(s))]
}

var externalPriorityPattern = regexp.MustCompile(`(?i)^(?:priority|p)?\s*([1-4]\+?)$`)

// StandardizeExternalPriority returns "Priority N" labels; unknown labels are kept trimmed
func StandardizeExternalPriority(s string) string {
	s = collapseSpaces(s)
	if m := externalPriorityPattern.FindStringSubmatch(s); m != nil {
		return "Priority " + m[1]
	}
	return s
}

var cweSynonyms = map[string]string{
	"cross-site scripting":                "CWE-79",
	"cross site scripting":                "CWE-79",
	"cross-site scripting (xss)":          "CWE-79",
	"cross site scripting (xss)":          "CWE-79",
	"xss":                                 "CWE-79",
	"missing authorization check":         "CWE-862",
	"missing authorization":               "CWE-862",
	"missing authorisation check":         "CWE-862",
	"incorrect authorization":             "CWE-863",
	"missing authentication check":        "CWE-306",
	"missing authentication":              "CWE-306",
	"improper authentication":             "CWE-287",
	"sql injection":                       "CWE-89",
	"code injection":                      "CWE-94",
	"os command injection":                "CWE-78",
	"directory traversal":                 "CWE-22",
	"path traversal":                      "CWE-22",
	"server-side request forgery":         "CWE-918",
	"server side request forgery":         "CWE-918",
	"ssrf":                                "CWE-918",
	"cross-site request forgery":          "CWE-352",
	"cross-site request forgery (csrf)":   "CWE-352",
	"csrf":                                "CWE-352",
	"information disclosure":              "CWE-200",
	"open redirect":                       "CWE-601",
	"url redirection to untrusted site":   "CWE-601",
	"denial of service":                   "CWE-400",
	"deserialization of untrusted data":   "CWE-502",
	"insecure deserialization":            "CWE-502",
	"memory corruption":                   "CWE-119",
	"xml external entity":                 "CWE-611",
	"improper input validation":           "CWE-20",
	"buffer overflow":                     "CWE-120",
	"unrestricted file upload":            "CWE-434",
	"use of hard-coded credentials":       "CWE-798",
	"null pointer dereference":            "CWE-476",
	"http request smuggling":              "CWE-444",
	"clickjacking":                        "CWE-1021",
	"prototype pollution":                 "CWE-1321",
	"cleartext storage of sensitive data": "CWE-312",
}

// cweByCVE covers published notes whose CVE record carries no usable CWE;
// some exports put the CVE id itself in the CWE column for these.
var cweByCVE = map[string]string{
	"CVE-2021-21484": "CWE-863",
	"CVE-2023-30533": "CWE-1321",
	"CVE-2022-35737": "CWE-129",
	"CVE-2023-44487": "CWE-400",
	"CVE-2020-6308":  "CWE-918",
	"CVE-2020-6207":  "CWE-306",
	"CVE-2021-33690": "CWE-918",
	"CVE-2021-38163": "CWE-78",
	"CVE-2021-44235": "CWE-78",
	"CVE-2021-37531": "CWE-78",
	"CVE-2021-33663": "CWE-74",
	"CVE-2024-33007": "CWE-79",
	"CVE-2021-27608": "CWE-428",
	"CVE-2021-27635": "CWE-112",
	"CVE-2021-27617": "CWE-112",
	"CVE-2021-40499": "CWE-94",
	"CVE-2021-27611": "CWE-94",
	"CVE-2021-21466": "CWE-94",
	"CVE-2021-27602": "CWE-94",
	"CVE-2021-44231": "CWE-94",
	"CVE-2021-21480": "CWE-94",
	"CVE-2020-10683": "CWE-611",
	"CVE-2021-21444": "CWE-1021",
	"CVE-2019-17495": "CWE-352",
	"CVE-2021-44151": "CWE-330",
	"CVE-2013-3587":  "CWE-200",
	"CVE-2019-0388":  "CWE-290",
	"CVE-2020-26816": "CWE-312",
	"CVE-2020-6215":  "CWE-601",
	"CVE-2020-6224":  "CWE-532",
	"CVE-2021-21445": "CWE-444",
	"CVE-2021-21449": "CWE-119",
	"CVE-2021-21465": "CWE-89",
	"CVE-2021-21469": "CWE-200",
	"CVE-2021-21470": "CWE-611",
	"CVE-2021-21472": "CWE-306",
	"CVE-2021-21474": "CWE-326",
	"CVE-2021-21475": "CWE-22",
	"CVE-2021-21476": "CWE-601",
	"CVE-2021-21477": "CWE-94",
	"CVE-2021-21478": "CWE-601",
	"CVE-2021-21488": "CWE-502",
	"CVE-2021-21491": "CWE-601",
	"CVE-2021-27610": "CWE-287",
	"CVE-2021-27612": "CWE-601",
	"CVE-2021-27638": "CWE-20",
	"CVE-2021-33672": "CWE-116",
	"CVE-2021-33676": "CWE-862",
	"CVE-2021-33685": "CWE-22",
	"CVE-2021-33687": "CWE-200",
	"CVE-2021-33688": "CWE-89",
	"CVE-2021-38150": "CWE-312",
	"CVE-2021-38176": "CWE-89",
	"CVE-2021-38177": "CWE-476",
	"CVE-2021-40497": "CWE-668",
	"CVE-2021-42064": "CWE-89",
	"CVE-2021-42068": "CWE-20",
	"CVE-2021-44232": "CWE-22",
	"CVE-2023-0215":  "CWE-416",
	"CVE-2020-6369":  "CWE-798",
	"CVE-2020-13936": "CWE-94",
	"CVE-2021-21446": "CWE-400",
	"CVE-2021-21482": "CWE-200",
	"CVE-2021-21483": "CWE-200",
	"CVE-2021-21485": "CWE-200",
	"CVE-2024-47593": "CWE-524",
	"CVE-2022-26104": "CWE-862",
}

var (
	cweCodePattern = regexp.MustCompile(`(?i)^cwe[\s_\-:]*(\d{1,4})\b`)
	cweBarePattern = regexp.MustCompile(`^(\d{1,4})$`)
)

// StandardizeCWE returns a CWE-N code. Weakness names and odd spellings are
// mapped; unknown text is returned as given and placeholders become "".
func StandardizeCWE(s string) string {
	s = collapseSpaces(s)
	if s == "" || strings.HasPrefix(strings.ToUpper(s), "NVD-CWE-") {
		return ""
	}
	if id, ok := matchCVE(s); ok {
		return cweByCVE[id]
	}
	if cwe, ok := cweSynonyms[strings.ToLower(s)]; ok {
		return cwe
	}
	m := cweCodePattern.FindStringSubmatch(s)
	if m == nil {
		m = cweBarePattern.FindStringSubmatch(s)
	}
	if m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return "CWE-" + strconv.Itoa(n)
		}
	}
	return s
}

// ParseBool reads KEV style flags; ok is false when the cell carries no answer
func ParseBool(s string) (v, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "x", "listed":
		return true, true
	case "false", "no", "n", "0", "not listed":
		return false, true
	}
	return false, false
}

// ParseScore parses a plain number, accepting a decimal comma
func ParseScore(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// ParsePercentage converts an EPSS probability to a 0-100 percentage rounded
// to 2 decimals. Values above 1 are taken as percentages already.
func ParsePercentage(s string) *float64 {
	v := ParseScore(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if v == nil {
		return nil
	}
	p := *v
	if p <= 1 && !strings.HasSuffix(strings.TrimSpace(s), "%") {
		p *= 100
	}
	return models.Float(Round2(p))
}

// Round2 rounds to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseHistory reads a series such as "[1.2, 1.4, 2.0]" or "1.2;1.4;2.0".
// Values are percentages, oldest first. Unparseable entries are skipped.
// When entries are separated by ";" or "|", a comma is a decimal comma.
func ParseHistory(s string) []float64 {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	sep := func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}
	if strings.ContainsAny(s, ";|") {
		sep = func(r rune) bool {
			return r == ';' || r == '|'
		}
	}
	var series []float64
	for _, p := range strings.FieldsFunc(s, sep) {
		if v := ParseScore(strings.Trim(strings.TrimSpace(p), `"'`)); v != nil {
			series = append(series, *v)
		}
	}
	return series
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	"January 2, 2006",
}

// ParseTime tries the date layouts seen in vendor and scanner exports and
// returns the instant in UTC, or the zero time
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

var notePattern = regexp.MustCompile(`\b[23]\d{6}\b`)

// ExtractNoteID finds a seven digit SAP note number in a cell or URL
func ExtractNoteID(s string) string {
	return notePattern.FindString(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
