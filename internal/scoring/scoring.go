// Package scoring computes the Rethink Priority Score and ranks candidate records.
package scoring

import (
	"errors"
	"sort"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/trend"
)

const (
	// PriorityScore is applied to every record. It is a placeholder dimension.
	PriorityScore = 1.0

	// DownMultiplier scales the EPSS average of a falling series
	DownMultiplier = 1.0

	candidateGrade    = models.GradeAPlus
	candidatePriority = "Priority 1+"
	candidateCVSS     = 7.5
)

// ErrMissingCVSS is returned when a record without a numeric CVSS score is scored
var ErrMissingCVSS = errors.New("cvss score is missing")

// Scorer applies one Profile to records. It holds no mutable state.
type Scorer struct {
	profile Profile
}

// New returns a Scorer for the given profile
func New(p Profile) *Scorer {
	return &Scorer{profile: p}
}

// Profile returns the weights in use
func (s *Scorer) Profile() Profile {
	return s.profile
}

// IsCandidate reports whether a record belongs to the top-priority subset
func IsCandidate(r models.VulnerabilityRecord) bool {
	if r.ScannerGrade == candidateGrade {
		return true
	}
	if r.ExternalPriority == candidatePriority {
		return true
	}
	return r.CVSSScore != nil && *r.CVSSScore > candidateCVSS
}

// Candidates keeps the top-priority subset, preserving input order
func Candidates(records []models.VulnerabilityRecord) []models.VulnerabilityRecord {
	return lo.Filter(records, func(r models.VulnerabilityRecord, _ int) bool {
		return IsCandidate(r)
	})
}

// Score computes all score components for a single record
func (s *Scorer) Score(r models.VulnerabilityRecord) (models.ScoredRecord, error) {
	if r.CVSSScore == nil {
		return models.ScoredRecord{}, oops.In("scoring").With("cve_id", r.CVEID).Wrapf(ErrMissingCVSS, "cannot score record")
	}
	p := s.profile

	sr := models.ScoredRecord{VulnerabilityRecord: r}
	if r.KEV {
		sr.KEVScore = p.KEVWeight
	}
	sr.CVSSScoreWeighted = *r.CVSSScore * p.CVSSMultiplier
	sr.Trend = trend.Classify(r.EPSSHistory, p.UpThreshold, p.DownThreshold)
	sr.TrendAvg = trend.Mean(r.EPSSHistory)
	sr.EPSSScore = sr.TrendAvg * s.multiplierFor(sr.Trend)
	if r.CWETop25 {
		sr.CWEScore = p.CWEWeight
	}
	sr.PriorityScore = PriorityScore
	sr.CompositeScore = sr.KEVScore + sr.CVSSScoreWeighted + sr.EPSSScore + sr.CWEScore + sr.PriorityScore
	sr.SeverityMismatch = severityMismatch(r)

	return sr, nil
}

func (s *Scorer) multiplierFor(t models.Trend) float64 {
	switch t {
	case models.TrendUp:
		return s.profile.EPSSUpMultiplier
	case models.TrendStable:
		return s.profile.EPSSStableMultiplier
	default:
		return DownMultiplier
	}
}

// severityMismatch flags records whose reported severity does not match the band
// implied by their score. Neither field is trusted over the other.
func severityMismatch(r models.VulnerabilityRecord) bool {
	if r.CVSSSeverity == models.SeverityUnknown || r.CVSSScore == nil {
		return false
	}
	return models.SeverityForScore(*r.CVSSScore) != r.CVSSSeverity
}

// Rank scores the candidate subset of records and orders it by composite
// score, highest first. Non-candidates are left out. Ties keep their input order.
func (s *Scorer) Rank(records []models.VulnerabilityRecord) ([]models.ScoredRecord, error) {
	candidates := Candidates(records)
	scored := make([]models.ScoredRecord, 0, len(candidates))
	for _, r := range candidates {
		sr, err := s.Score(r)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sr)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CompositeScore > scored[j].CompositeScore
	})
	return scored, nil
}

// Summarize derives the aggregate counts shown above a ranked table
func Summarize(ranked []models.ScoredRecord) models.Summary {
	unique := lo.UniqBy(ranked, func(r models.ScoredRecord) string {
		return r.CVEID
	})
	return models.Summary{
		Ranked:     len(ranked),
		UniqueCVEs: len(unique),
		KEVCount: lo.CountBy(unique, func(r models.ScoredRecord) bool {
			return r.KEV
		}),
		CWETop25Count: lo.CountBy(unique, func(r models.ScoredRecord) bool {
			return r.CWETop25
		}),
		SeverityMismatch: lo.CountBy(unique, func(r models.ScoredRecord) bool {
			return r.SeverityMismatch
		}),
	}
}

// CountByPriority tallies the full record set per SAP priority
func CountByPriority(records []models.VulnerabilityRecord) map[models.SAPPriority]int {
	return lo.CountValuesBy(records, func(r models.VulnerabilityRecord) models.SAPPriority {
		return r.SAPPriority
	})
}
