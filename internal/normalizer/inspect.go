package normalizer

import (
	"strings"

	"github.com/samber/lo"

	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

// ColumnFill is the number of non-empty cells in one column
type ColumnFill struct {
	Column string  `json:"column"`
	Filled int     `json:"filled"`
	Ratio  float64 `json:"ratio"`
}

// Inspection describes the shape and quality of a single source table
type Inspection struct {
	Path         string       `json:"path"`
	Rows         int          `json:"rows"`
	Columns      int          `json:"columns"`
	Detection    Detection    `json:"detection"`
	UniqueCVEs   int          `json:"unique_cves"`
	Malformed    int          `json:"malformed"`
	Duplicates   int          `json:"duplicates"`
	ByYear       map[int]int  `json:"by_year"`
	Completeness []ColumnFill `json:"completeness"`
}

// Inspect reports what normalization would see in t without merging it
func Inspect(t *parsers.Table) Inspection {
	in := Inspection{
		Path:      t.Path,
		Rows:      len(t.Rows),
		Columns:   len(t.Header),
		Detection: DetectCVEColumn(t),
		ByYear:    make(map[int]int),
	}

	if in.Detection.Found() {
		var ids []string
		for _, row := range t.Rows {
			id, ok := in.Detection.CVE(t, row)
			if !ok {
				in.Malformed++
				continue
			}
			ids = append(ids, id)
		}
		unique := lo.Uniq(ids)
		in.UniqueCVEs = len(unique)
		in.Duplicates = len(ids) - len(unique)
		for _, id := range unique {
			in.ByYear[cveYear(id)]++
		}
	}

	for idx, name := range t.Header {
		filled := lo.CountBy(t.Column(idx), func(v string) bool {
			return strings.TrimSpace(v) != ""
		})
		fill := ColumnFill{Column: name, Filled: filled}
		if in.Rows > 0 {
			fill.Ratio = Round2(float64(filled) / float64(in.Rows))
		}
		in.Completeness = append(in.Completeness, fill)
	}
	return in
}

func cveYear(id string) int {
	year := 0
	for _, c := range id[4:8] {
		year = year*10 + int(c-'0')
	}
	return year
}
