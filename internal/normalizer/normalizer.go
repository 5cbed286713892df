package normalizer

import (
	"errors"
	"io/fs"
	"os"
	"slices"

	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/cache"
	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/parsers"
)

// Stats counts what happened to the input rows of one run
type Stats struct {
	RowsRead       int                  `json:"rows_read"`
	RowsDropped    int                  `json:"rows_dropped"`
	Duplicates     int                  `json:"duplicates"`
	SourcesSkipped []string             `json:"sources_skipped,omitempty"`
	Detections     map[string]Detection `json:"detections"`
}

// Result is the merged record set, in first-appearance order
type Result struct {
	Records []models.VulnerabilityRecord
	Stats   Stats
}

type Normalizer struct {
	top25 CWESet
	memo  *cache.FileMemo[*parsers.Table]
}

type Option func(*Normalizer)

// WithCWETop25 replaces the built-in Top 25 set
func WithCWETop25(set CWESet) Option {
	return func(n *Normalizer) {
		n.top25 = set
	}
}

// WithTableMemo reuses parsed tables of unchanged files across runs
func WithTableMemo(memo *cache.FileMemo[*parsers.Table]) Option {
	return func(n *Normalizer) {
		n.memo = memo
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{top25: DefaultCWETop25()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize merges the sources into one record per CVE. Sources are given in
// precedence order: a field is taken from the first source that has it.
func (n *Normalizer) Normalize(sources []models.Source) (Result, error) {
	logger := log.WithPrefix("normalizer")

	var (
		order   []string
		records = make(map[string]*models.VulnerabilityRecord)
		stats   = Stats{Detections: make(map[string]Detection)}
	)

	for _, src := range sources {
		eb := oops.In("normalizer").With("source", src.Name).With("file_path", src.Path)

		t, err := n.load(src.Path)
		if errors.Is(err, fs.ErrNotExist) && !src.Required {
			logger.Warn("Optional source not found, skipping", log.String("source", src.Name), log.FilePath(src.Path))
			stats.SourcesSkipped = append(stats.SourcesSkipped, src.Name)
			continue
		} else if err != nil {
			return Result{}, eb.Wrapf(err, "failed to load source")
		}

		detection := DetectCVEColumn(t)
		stats.Detections[src.Name] = detection
		if !detection.Found() {
			if src.Required {
				return Result{}, eb.Errorf("no CVE column found in required source")
			}
			logger.Warn("No CVE column found, skipping source", log.String("source", src.Name), log.FilePath(src.Path))
			stats.SourcesSkipped = append(stats.SourcesSkipped, src.Name)
			continue
		}
		logger.Debug("Detected CVE column",
			log.String("source", src.Name),
			log.String("column", detection.Column),
			log.String("strategy", string(detection.Strategy)))

		columns := resolveColumns(t, src.Role)
		seen := make(map[string]bool)
		for _, row := range t.Rows {
			stats.RowsRead++
			id, ok := detection.CVE(t, row)
			if !ok {
				stats.RowsDropped++
				continue
			}
			if seen[id] {
				stats.Duplicates++
				continue
			}
			seen[id] = true

			rec, ok := records[id]
			if !ok {
				rec = &models.VulnerabilityRecord{CVEID: id}
				records[id] = rec
				order = append(order, id)
			}
			fill(rec, rowRecord(t, row, columns))
			rec.Sources = append(rec.Sources, src.Name)
		}
	}

	result := Result{Stats: stats, Records: make([]models.VulnerabilityRecord, 0, len(order))}
	for _, id := range order {
		rec := records[id]
		n.finish(rec)
		result.Records = append(result.Records, *rec)
	}

	logger.Info("Normalized sources",
		log.Int("records", len(result.Records)),
		log.Int("rows_read", stats.RowsRead),
		log.Int("rows_dropped", stats.RowsDropped),
		log.Int("duplicates", stats.Duplicates),
		log.Strings("sources_skipped", stats.SourcesSkipped))
	return result, nil
}

func (n *Normalizer) load(path string) (*parsers.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if n.memo != nil {
		return n.memo.Get(path, parsers.ParseFile)
	}
	return parsers.ParseFile(path)
}

// finish derives the fields that depend on the merged record
func (n *Normalizer) finish(rec *models.VulnerabilityRecord) {
	if rec.CVSSScore == nil && rec.CVSSVector != "" {
		if score, ok := ScoreFromVector(rec.CVSSVector); ok {
			rec.CVSSScore = models.Float(score)
		}
	}
	if rec.CWEID == "" {
		if cwe, ok := cweByCVE[rec.CVEID]; ok {
			rec.CWEID = cwe
		}
	}
	rec.CWETop25 = rec.CWEID != "" && n.top25.Contains(rec.CWEID)
}

// rowRecord reads one row into a partial record. Unset fields stay null.
func rowRecord(t *parsers.Table, row []string, c columnIndex) models.VulnerabilityRecord {
	var r models.VulnerabilityRecord

	r.SAPPriority = StandardizePriority(c.cell(t, row, fieldSAPPriority))
	r.ExternalPriority = StandardizeExternalPriority(c.cell(t, row, fieldExternalPriority))
	r.ScannerGrade = models.ParseScannerGrade(c.cell(t, row, fieldGrade))
	r.CVSSScore = ParseScore(c.cell(t, row, fieldCVSS))
	r.CVSSVector = c.cell(t, row, fieldCVSSVector)
	r.CVSSSeverity = models.ParseSeverity(c.cell(t, row, fieldSeverity))
	r.EPSSCurrent = ParsePercentage(c.cell(t, row, fieldEPSS))
	r.EPSSPercentile = ParsePercentage(c.cell(t, row, fieldPercentile))
	r.EPSSHistory = ParseHistory(c.cell(t, row, fieldHistory))
	r.KEV, _ = ParseBool(c.cell(t, row, fieldKEV))
	r.CWEID = StandardizeCWE(c.cell(t, row, fieldCWE))
	r.NoteReference = ExtractNoteID(c.cell(t, row, fieldNote))
	r.Product = c.cell(t, row, fieldProduct)
	r.Description = c.cell(t, row, fieldDescription)
	r.PublishedAt = ParseTime(c.cell(t, row, fieldPublished))
	r.UpdatedAt = ParseTime(c.cell(t, row, fieldUpdated))
	return r
}

// fill copies fields of src into dst where dst is still null. A false KEV
// flag counts as null.
func fill(dst *models.VulnerabilityRecord, src models.VulnerabilityRecord) {
	if dst.SAPPriority == "" {
		dst.SAPPriority = src.SAPPriority
	}
	if dst.ExternalPriority == "" {
		dst.ExternalPriority = src.ExternalPriority
	}
	if dst.ScannerGrade == models.GradeUnknown {
		dst.ScannerGrade = src.ScannerGrade
	}
	if dst.CVSSScore == nil {
		dst.CVSSScore = src.CVSSScore
	}
	if dst.CVSSVector == "" {
		dst.CVSSVector = src.CVSSVector
	}
	if dst.CVSSSeverity == models.SeverityUnknown {
		dst.CVSSSeverity = src.CVSSSeverity
	}
	if dst.EPSSCurrent == nil {
		dst.EPSSCurrent = src.EPSSCurrent
	}
	if dst.EPSSPercentile == nil {
		dst.EPSSPercentile = src.EPSSPercentile
	}
	if len(dst.EPSSHistory) == 0 {
		dst.EPSSHistory = slices.Clone(src.EPSSHistory)
	}
	if !dst.KEV {
		dst.KEV = src.KEV
	}
	if dst.CWEID == "" {
		dst.CWEID = src.CWEID
	}
	if dst.NoteReference == "" {
		dst.NoteReference = src.NoteReference
	}
	if dst.Product == "" {
		dst.Product = src.Product
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.PublishedAt.IsZero() {
		dst.PublishedAt = src.PublishedAt
	}
	if dst.UpdatedAt.IsZero() {
		dst.UpdatedAt = src.UpdatedAt
	}
}
