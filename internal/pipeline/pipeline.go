package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/oops"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/ethanolivertroy/sap-compass/internal/clients"
	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/normalizer"
	"github.com/ethanolivertroy/sap-compass/internal/scoring"
)

// HistoryProvider supplies the EPSS series of a CVE, oldest first
type HistoryProvider interface {
	FetchHistory(ctx context.Context, cveID string) ([]float64, error)
}

// KEVSource supplies the set of known exploited CVEs
type KEVSource interface {
	FetchKEVCatalog(ctx context.Context) (map[string]clients.KEVEntry, error)
}

// CVSSSource supplies a CVSS vector for a CVE
type CVSSSource interface {
	FetchCVSSVector(ctx context.Context, cveID string) (string, error)
}

// ScoreSource supplies current EPSS scores
type ScoreSource interface {
	FetchScores(ctx context.Context, cveIDs []string) (map[string]clients.EPSSScore, error)
}

// Result is the outcome of one ranking run
type Result struct {
	RunID          string                       `json:"run_id"`
	ProfileVersion string                       `json:"profile_version"`
	GeneratedAt    time.Time                    `json:"generated_at"`
	Sources        []models.Source              `json:"-"`
	Records        []models.VulnerabilityRecord `json:"-"`
	Ranked         []models.ScoredRecord        `json:"ranked"`
	Summary        models.Summary               `json:"summary"`
	ByPriority     map[models.SAPPriority]int   `json:"by_priority"`
	Stats          normalizer.Stats             `json:"stats"`

	// Unscorable lists candidates dropped because no CVSS score could be found
	Unscorable    []string `json:"unscorable,omitempty"`
	HistoryErrors int      `json:"history_errors,omitempty"`
}

// Pipeline orchestrates normalization, enrichment and ranking
type Pipeline struct {
	config     *models.Config
	normalizer *normalizer.Normalizer
	scorer     *scoring.Scorer
	history    HistoryProvider
	kev        KEVSource
	cvss       CVSSSource
	scores     ScoreSource
	progress   io.Writer
	now        func() time.Time
}

type Option func(*Pipeline)

func WithHistory(h HistoryProvider) Option {
	return func(p *Pipeline) {
		p.history = h
	}
}

func WithKEVSource(k KEVSource) Option {
	return func(p *Pipeline) {
		p.kev = k
	}
}

func WithCVSSSource(c CVSSSource) Option {
	return func(p *Pipeline) {
		p.cvss = c
	}
}

func WithScoreSource(s ScoreSource) Option {
	return func(p *Pipeline) {
		p.scores = s
	}
}

// WithProgress draws a progress bar for history fetches on w
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) {
		p.progress = w
	}
}

// NewPipeline assembles a pipeline from explicit collaborators
func NewPipeline(config *models.Config, n *normalizer.Normalizer, s *scoring.Scorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		config:     config,
		normalizer: n,
		scorer:     s,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs the full ranking
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := log.WithPrefix("pipeline")
	runID := uuid.NewString()
	logger = logger.With(log.String("run_id", runID))

	// Step 1: Merge the sources into one record per CVE
	normalized, err := p.normalizer.Normalize(p.config.Sources)
	if err != nil {
		return nil, oops.In("pipeline").Wrapf(err, "failed to normalize sources")
	}
	records := normalized.Records
	if normalized.Stats.RowsDropped > 0 || normalized.Stats.Duplicates > 0 {
		logger.Warn("Rows dropped during normalization",
			log.Int("malformed", normalized.Stats.RowsDropped),
			log.Int("duplicates", normalized.Stats.Duplicates))
	}

	// Step 2: Fill KEV flags from the catalog
	if p.kev != nil {
		if err := p.fillKEV(ctx, records); err != nil {
			return nil, err
		}
	}

	// Step 3: Fill missing CVSS from OSV
	if p.cvss != nil {
		if err := p.fillCVSS(ctx, records); err != nil {
			return nil, err
		}
	}

	// Step 4: Candidate subset, minus records that cannot be scored
	candidates := scoring.Candidates(records)
	var unscorable []string
	candidates = lo.Filter(candidates, func(r models.VulnerabilityRecord, _ int) bool {
		if !r.HasCVSS() {
			unscorable = append(unscorable, r.CVEID)
			return false
		}
		return true
	})
	if len(unscorable) > 0 {
		logger.Warn("Candidates without CVSS score dropped", log.Int("count", len(unscorable)), log.Strings("cves", unscorable))
	}

	// Step 5: Current EPSS for candidates that have none
	if p.scores != nil {
		if err := p.fillEPSS(ctx, candidates); err != nil {
			return nil, err
		}
	}

	// Step 6: EPSS history
	historyErrors, err := p.fillHistory(ctx, candidates)
	if err != nil {
		return nil, err
	}

	// Step 7: Score and rank
	ranked, err := p.scorer.Rank(candidates)
	if err != nil {
		return nil, oops.In("pipeline").Wrapf(err, "failed to rank candidates")
	}

	result := &Result{
		RunID:          runID,
		ProfileVersion: p.scorer.Profile().Version,
		GeneratedAt:    p.now().UTC(),
		Sources:        p.config.Sources,
		Records:        records,
		Ranked:         ranked,
		Summary:        scoring.Summarize(ranked),
		ByPriority:     scoring.CountByPriority(records),
		Stats:          normalized.Stats,
		Unscorable:     unscorable,
		HistoryErrors:  historyErrors,
	}
	if result.Summary.SeverityMismatch > 0 {
		logger.Warn("Reported severity disagrees with CVSS score", log.Int("count", result.Summary.SeverityMismatch))
	}
	fields := []zap.Field{
		log.Int("records", len(records)),
		log.Int("ranked", len(ranked)),
		log.Int("kev", result.Summary.KEVCount),
	}
	if len(ranked) > 0 {
		fields = append(fields, log.Float64("top_score", ranked[0].CompositeScore), log.CVE(ranked[0].CVEID))
	}
	logger.Info("Ranking complete", fields...)
	return result, nil
}

func (p *Pipeline) fillKEV(ctx context.Context, records []models.VulnerabilityRecord) error {
	catalog, err := p.kev.FetchKEVCatalog(ctx)
	if err != nil {
		return oops.In("pipeline").Wrapf(err, "failed to fetch KEV catalog")
	}
	filled := 0
	for i := range records {
		if _, ok := catalog[records[i].CVEID]; ok && !records[i].KEV {
			records[i].KEV = true
			filled++
		}
	}
	log.WithPrefix("pipeline").Debug("Filled KEV flags", log.Int("count", filled))
	return nil
}

func (p *Pipeline) fillCVSS(ctx context.Context, records []models.VulnerabilityRecord) error {
	logger := log.WithPrefix("pipeline")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for i := range records {
		if records[i].HasCVSS() {
			continue
		}
		rec := &records[i]
		g.Go(func() error {
			vector, err := p.cvss.FetchCVSSVector(ctx, rec.CVEID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("CVSS lookup failed", log.CVE(rec.CVEID), log.Err(err))
				return nil
			}
			if score, ok := normalizer.ScoreFromVector(vector); ok {
				rec.CVSSScore = models.Float(score)
				if rec.CVSSVector == "" {
					rec.CVSSVector = vector
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return oops.In("pipeline").Wrapf(err, "cvss lookup cancelled")
	}
	return nil
}

func (p *Pipeline) fillEPSS(ctx context.Context, candidates []models.VulnerabilityRecord) error {
	var missing []string
	for _, r := range candidates {
		if r.EPSSCurrent == nil {
			missing = append(missing, r.CVEID)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	scores, err := p.scores.FetchScores(ctx, missing)
	if err != nil {
		return oops.In("pipeline").Wrapf(err, "failed to fetch EPSS scores")
	}
	for i := range candidates {
		if s, ok := scores[candidates[i].CVEID]; ok && candidates[i].EPSSCurrent == nil {
			candidates[i].EPSSCurrent = models.Float(s.Score)
			candidates[i].EPSSPercentile = models.Float(s.Percentile)
		}
	}
	return nil
}

// fillHistory fetches series for candidates without one. A failed fetch
// leaves the series empty; only cancellation aborts the run.
func (p *Pipeline) fillHistory(ctx context.Context, candidates []models.VulnerabilityRecord) (int, error) {
	if p.history == nil {
		return 0, nil
	}
	logger := log.WithPrefix("pipeline")

	var pending []int
	for i, r := range candidates {
		if len(r.EPSSHistory) == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	var bar *pb.ProgressBar
	if p.progress != nil {
		bar = pb.New(len(pending))
		bar.Output = p.progress
		bar.SetMaxWidth(80)
		bar.Start()
		defer bar.Finish()
	}

	var (
		mu       sync.Mutex
		failures int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency())
	for _, i := range pending {
		rec := &candidates[i]
		g.Go(func() error {
			if bar != nil {
				defer bar.Increment()
			}
			series, err := p.history.FetchHistory(ctx, rec.CVEID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("EPSS history unavailable", log.CVE(rec.CVEID), log.Err(err))
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}
			rec.EPSSHistory = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return failures, oops.In("pipeline").Wrapf(err, "history fetch cancelled")
	}
	return failures, nil
}

func (p *Pipeline) concurrency() int {
	if p.config.MaxConcurrent > 0 {
		return p.config.MaxConcurrent
	}
	return 1
}
