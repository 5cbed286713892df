package normalizer

import (
	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

// CWESet is a set of CWE-N codes
type CWESet map[string]struct{}

// cweTop25 is the 2024 CWE Top 25 Most Dangerous Software Weaknesses
var cweTop25 = []string{
	"CWE-79", "CWE-787", "CWE-89", "CWE-352", "CWE-22",
	"CWE-125", "CWE-78", "CWE-416", "CWE-862", "CWE-434",
	"CWE-94", "CWE-20", "CWE-77", "CWE-287", "CWE-269",
	"CWE-502", "CWE-200", "CWE-863", "CWE-918", "CWE-119",
	"CWE-476", "CWE-798", "CWE-190", "CWE-400", "CWE-306",
}

// DefaultCWETop25 returns the built-in 2024 list
func DefaultCWETop25() CWESet {
	return NewCWESet(cweTop25...)
}

// NewCWESet standardizes ids before adding them
func NewCWESet(ids ...string) CWESet {
	s := make(CWESet, len(ids))
	for _, id := range ids {
		if cwe := StandardizeCWE(id); cwe != "" {
			s[cwe] = struct{}{}
		}
	}
	return s
}

func (s CWESet) Contains(cwe string) bool {
	_, ok := s[cwe]
	return ok
}

// LoadCWETop25 reads a table with an ID column, as published by MITRE
func LoadCWETop25(path string) (CWESet, error) {
	eb := oops.In("normalizer").With("file_path", path)

	t, err := parsers.ParseFile(path)
	if err != nil {
		return nil, eb.Wrapf(err, "failed to load cwe top 25")
	}
	idx := t.Index("ID")
	if idx < 0 {
		idx = t.Index("cwe_id")
	}
	if idx < 0 {
		return nil, eb.Errorf("cwe top 25 table has no ID column")
	}

	set := NewCWESet(t.Column(idx)...)
	if len(set) == 0 {
		return nil, eb.Errorf("cwe top 25 table is empty")
	}
	return set, nil
}
