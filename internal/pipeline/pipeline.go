package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dbdb168/fs-account-scorer/internal/config"
	"github.com/dbdb168/fs-account-scorer/internal/model"
	"github.com/dbdb168/fs-account-scorer/internal/store"
)

// FilingSource fetches regulatory filings and their documents.
type FilingSource interface {
	FetchFilings(ctx context.Context, company model.CompanyConfig) ([]model.FilingRecord, error)
	FetchDocument(ctx context.Context, filing model.FilingRecord) (string, error)
}

// NewsSource fetches earnings transcripts and press releases.
type NewsSource interface {
	Enabled() bool
	FetchTranscripts(ctx context.Context, company model.CompanyConfig) ([]model.Transcript, error)
	FetchPressReleases(ctx context.Context, company model.CompanyConfig) ([]model.PressRelease, error)
}

// ReviewSource fetches app store ratings and reviews.
type ReviewSource interface {
	FetchReviews(ctx context.Context, company model.CompanyConfig) (*model.AppRatingData, error)
}

// Extractor turns an evidence digest into scored signals.
type Extractor interface {
	ExtractSignals(ctx context.Context, companyName, ticker, digest string, ev model.EvidenceSet) model.Signals
}

// pacer spaces out per-company runs. Satisfied by *rate.Limiter.
type pacer interface {
	Wait(ctx context.Context) error
}

// Options configures a Pipeline.
type Options struct {
	Policy       ScoringPolicy
	OutputPath   string
	PaceInterval time.Duration
	FetchTimeout time.Duration
}

// OptionsFromConfig derives pipeline options from application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Policy:       ScoringPolicy(cfg.Scoring.Policy),
		OutputPath:   cfg.Pipeline.OutputPath,
		PaceInterval: time.Duration(cfg.Pipeline.PaceIntervalMS) * time.Millisecond,
		FetchTimeout: time.Duration(cfg.Pipeline.FetchTimeoutSecs) * time.Second,
	}
}

// Pipeline orchestrates one scoring run: fetch evidence for every
// registry company, extract signals, score, and write the artifact.
type Pipeline struct {
	filings   FilingSource
	news      NewsSource
	reviews   ReviewSource
	extractor Extractor
	sections  *SectionExtractor
	store     store.Store
	opts      Options
	pace      pacer
	now       func() time.Time
}

// New creates a Pipeline. The store may be nil, in which case run
// history is not recorded.
func New(filings FilingSource, news NewsSource, reviews ReviewSource, extractor Extractor, st store.Store, opts Options) *Pipeline {
	var p pacer
	if opts.PaceInterval > 0 {
		p = rate.NewLimiter(rate.Every(opts.PaceInterval), 1)
	}
	return &Pipeline{
		filings:   filings,
		news:      news,
		reviews:   reviews,
		extractor: extractor,
		sections:  NewSectionExtractor(DefaultSectionPatterns(), DefaultSectionLimits()),
		store:     st,
		opts:      opts,
		pace:      p,
		now:       time.Now,
	}
}

// Result summarizes one completed run.
type Result struct {
	RunID        string
	ArtifactPath string
	Companies    []model.Company
	Failed       int
}

// Run scores every company in the given registry slice and writes the
// ranked artifact. Companies are processed one at a time, with the
// pacing delay between them, so equal scores keep registry order through
// the stable sort. Individual company failures are logged and omitted;
// the run fails only when no artifact can be produced at all.
func (p *Pipeline) Run(ctx context.Context, companies []model.CompanyConfig) (*Result, error) {
	if len(companies) == 0 {
		return nil, eris.New("pipeline: no companies to score")
	}

	runID := p.recordRunStart(ctx)

	zap.L().Info("pipeline: starting run",
		zap.String("run_id", runID),
		zap.Int("companies", len(companies)),
		zap.String("policy", string(p.opts.Policy)),
	)

	var scored []model.Company
	failed := 0

	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			p.recordRunFailure(ctx, runID)
			return nil, eris.Wrap(err, "pipeline: batch")
		}
		if p.pace != nil {
			if err := p.pace.Wait(ctx); err != nil {
				p.recordRunFailure(ctx, runID)
				return nil, eris.Wrap(err, "pipeline: pacing wait")
			}
		}
		record, err := p.scoreCompany(ctx, company)
		if err != nil {
			failed++
			zap.L().Error("pipeline: company failed",
				zap.String("company", company.ID),
				zap.Error(err),
			)
			continue // one bad company never aborts the batch
		}
		scored = append(scored, *record)
	}

	if len(scored) == 0 {
		p.recordRunFailure(ctx, runID)
		return nil, eris.New("pipeline: all companies failed")
	}

	SortByScore(scored)

	if err := WriteArtifact(p.opts.OutputPath, scored); err != nil {
		p.recordRunFailure(ctx, runID)
		return nil, err
	}

	p.recordRunComplete(ctx, runID, scored)

	zap.L().Info("pipeline: run complete",
		zap.String("run_id", runID),
		zap.Int("scored", len(scored)),
		zap.Int("failed", failed),
		zap.String("artifact", p.opts.OutputPath),
	)

	return &Result{
		RunID:        runID,
		ArtifactPath: p.opts.OutputPath,
		Companies:    scored,
		Failed:       failed,
	}, nil
}

// scoreCompany runs the full per-company flow: gather evidence, build
// the digest, extract signals, apply the scoring policy.
func (p *Pipeline) scoreCompany(ctx context.Context, company model.CompanyConfig) (*model.Company, error) {
	log := zap.L().With(zap.String("company", company.ID))
	log.Info("pipeline: scoring company")

	ev, err := p.gatherEvidence(ctx, company)
	if err != nil {
		return nil, err
	}

	var rating *float64
	if ev.AppData != nil {
		r := ev.AppData.AverageRating
		rating = &r
	}

	var signals model.Signals
	if p.opts.Policy == PolicyAppRating && rating == nil {
		// No app data means no score under this policy; skip the
		// reasoning call entirely.
		signals = PlaceholderSignals()
		log.Info("pipeline: no app data, skipping signal extraction")
	} else {
		digest := BuildDigest(ev)
		signals = p.extractor.ExtractSignals(ctx, company.Name, company.Ticker, digest, ev)
	}

	score, tier := Score(p.opts.Policy, signals, rating)

	return &model.Company{
		ID:          company.ID,
		Name:        company.Name,
		Ticker:      company.Ticker,
		Sector:      company.Sector,
		Country:     company.Country,
		Score:       score,
		Tier:        tier,
		AppRating:   rating,
		Signals:     signals,
		Executives:  []model.Executive{},
		LastUpdated: p.now().UTC().Format("2006-01-02"),
	}, nil
}

// gatherEvidence fetches all four evidence categories concurrently.
// Source failures degrade to empty categories rather than failing the
// company; only context cancellation aborts.
func (p *Pipeline) gatherEvidence(ctx context.Context, company model.CompanyConfig) (model.EvidenceSet, error) {
	if p.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.FetchTimeout)
		defer cancel()
	}

	log := zap.L().With(zap.String("company", company.ID))
	var ev model.EvidenceSet

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		filings, err := p.filings.FetchFilings(gctx, company)
		if err != nil {
			log.Warn("pipeline: filings unavailable", zap.Error(err))
			return nil
		}
		for i := range filings {
			doc, err := p.filings.FetchDocument(gctx, filings[i])
			if err != nil {
				log.Warn("pipeline: filing document unavailable",
					zap.String("url", filings[i].URL),
					zap.Error(err),
				)
				continue
			}
			filings[i].Content = p.sections.Extract(CleanFilingText(doc), filings[i].FilingType)
		}
		ev.Filings = filings
		return nil
	})

	g.Go(func() error {
		if !p.news.Enabled() {
			return nil
		}
		transcripts, err := p.news.FetchTranscripts(gctx, company)
		if err != nil {
			log.Warn("pipeline: transcripts unavailable", zap.Error(err))
			return nil
		}
		ev.Transcripts = transcripts
		return nil
	})

	g.Go(func() error {
		if !p.news.Enabled() {
			return nil
		}
		releases, err := p.news.FetchPressReleases(gctx, company)
		if err != nil {
			log.Warn("pipeline: press releases unavailable", zap.Error(err))
			return nil
		}
		ev.PressReleases = releases
		return nil
	})

	g.Go(func() error {
		appData, err := p.reviews.FetchReviews(gctx, company)
		if err != nil {
			log.Warn("pipeline: app reviews unavailable", zap.Error(err))
			return nil
		}
		ev.AppData = appData
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.EvidenceSet{}, eris.Wrapf(err, "pipeline: gather evidence for %s", company.ID)
	}
	if err := ctx.Err(); err != nil {
		return model.EvidenceSet{}, eris.Wrapf(err, "pipeline: gather evidence for %s", company.ID)
	}
	return ev, nil
}

func (p *Pipeline) recordRunStart(ctx context.Context) string {
	if p.store == nil {
		return ""
	}
	run, err := p.store.CreateRun(ctx)
	if err != nil {
		zap.L().Warn("pipeline: create run record failed", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *Pipeline) recordRunComplete(ctx context.Context, runID string, scored []model.Company) {
	if p.store == nil || runID == "" {
		return
	}
	summaries := make([]model.RunSummary, 0, len(scored))
	for _, c := range scored {
		summaries = append(summaries, model.RunSummary{
			ID:     c.ID,
			Ticker: c.Ticker,
			Score:  c.Score,
			Tier:   c.Tier,
		})
	}
	if err := p.store.CompleteRun(ctx, runID, p.opts.OutputPath, summaries); err != nil {
		zap.L().Warn("pipeline: complete run record failed", zap.Error(err))
	}
}

func (p *Pipeline) recordRunFailure(ctx context.Context, runID string) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.FailRun(ctx, runID); err != nil {
		zap.L().Warn("pipeline: fail run record failed", zap.Error(err))
	}
}
