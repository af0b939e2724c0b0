package pipeline

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

type fakeFilings struct {
	filings []model.FilingRecord
	doc     string
	err     error
}

func (f *fakeFilings) FetchFilings(_ context.Context, _ model.CompanyConfig) ([]model.FilingRecord, error) {
	return f.filings, f.err
}

func (f *fakeFilings) FetchDocument(_ context.Context, _ model.FilingRecord) (string, error) {
	return f.doc, nil
}

type fakeNews struct {
	transcripts []model.Transcript
	releases    []model.PressRelease
	enabled     bool
}

func (f *fakeNews) Enabled() bool { return f.enabled }

func (f *fakeNews) FetchTranscripts(_ context.Context, _ model.CompanyConfig) ([]model.Transcript, error) {
	return f.transcripts, nil
}

func (f *fakeNews) FetchPressReleases(_ context.Context, _ model.CompanyConfig) ([]model.PressRelease, error) {
	return f.releases, nil
}

type fakeReviews struct {
	byID map[string]*model.AppRatingData
}

func (f *fakeReviews) FetchReviews(_ context.Context, c model.CompanyConfig) (*model.AppRatingData, error) {
	return f.byID[c.ID], nil
}

// scriptedExtractor returns a fixed uniform score per company ID and
// fails companies listed in failFor.
type scriptedExtractor struct {
	scores  map[string]int
	failFor map[string]bool
}

func (s *scriptedExtractor) ExtractSignals(_ context.Context, companyName, _, _ string, _ model.EvidenceSet) model.Signals {
	if s.failFor[companyName] {
		panic("extractor must not be called for " + companyName)
	}
	return uniformSignals(s.scores[companyName])
}

func testCompanies() []model.CompanyConfig {
	return []model.CompanyConfig{
		{ID: "acme-bank", Name: "acme-bank", Ticker: "ACME", Sector: model.SectorBank, Country: "US", CIK: "0000019617", AppStoreID: "12345"},
		{ID: "acme-insurance", Name: "acme-insurance", Ticker: "ACIN", Sector: model.SectorInsurance, Country: "US"},
	}
}

func newTestPipeline(t *testing.T, extractor Extractor, policy ScoringPolicy) *Pipeline {
	t.Helper()
	reviews := &fakeReviews{byID: map[string]*model.AppRatingData{
		"acme-bank": {AppName: "Acme Mobile", AverageRating: 2.0, ReviewCount: 10},
	}}
	p := New(
		&fakeFilings{},
		&fakeNews{enabled: true},
		reviews,
		extractor,
		nil,
		Options{
			Policy:     policy,
			OutputPath: filepath.Join(t.TempDir(), "companies.json"),
		},
	)
	return p
}

func TestPipelineRun_WeightedPolicy(t *testing.T) {
	extractor := &scriptedExtractor{scores: map[string]int{
		"acme-bank":      40,
		"acme-insurance": 80,
	}}
	p := newTestPipeline(t, extractor, PolicyWeighted)

	result, err := p.Run(context.Background(), testCompanies())
	require.NoError(t, err)
	require.Len(t, result.Companies, 2)

	// Ranked by descending score.
	assert.Equal(t, "acme-insurance", result.Companies[0].ID)
	assert.Equal(t, 80, result.Companies[0].Score)
	assert.Equal(t, model.TierHigh, result.Companies[0].Tier)
	assert.Equal(t, "acme-bank", result.Companies[1].ID)
	assert.Equal(t, model.TierLower, result.Companies[1].Tier)

	// App rating carried through for the company that has app data.
	require.NotNil(t, result.Companies[1].AppRating)
	assert.Equal(t, 2.0, *result.Companies[1].AppRating)
	assert.Nil(t, result.Companies[0].AppRating)

	// Output contract: every company has all five weighted categories.
	for _, c := range result.Companies {
		total := 0.0
		for _, sig := range c.Signals.Categories() {
			total += sig.Weight
		}
		assert.InDelta(t, 1.0, total, 1e-9)
		assert.NotEmpty(t, c.LastUpdated)
		assert.NotNil(t, c.Executives)
	}

	written, err := ReadArtifact(result.ArtifactPath)
	require.NoError(t, err)
	assert.Len(t, written, 2)
}

func TestPipelineRun_AppRatingPolicySkipsExtractionForNoData(t *testing.T) {
	extractor := &scriptedExtractor{
		scores:  map[string]int{"acme-bank": 40},
		failFor: map[string]bool{"acme-insurance": true},
	}
	p := newTestPipeline(t, extractor, PolicyAppRating)

	result, err := p.Run(context.Background(), testCompanies())
	require.NoError(t, err)
	require.Len(t, result.Companies, 2)

	// acme-bank has a 2.0 rating: score round(100-36) = 64, medium.
	assert.Equal(t, "acme-bank", result.Companies[0].ID)
	assert.Equal(t, 64, result.Companies[0].Score)
	assert.Equal(t, model.TierMedium, result.Companies[0].Tier)

	// acme-insurance has no app data: sentinel score, no-data tier,
	// placeholder signals with weights intact.
	noData := result.Companies[1]
	assert.Equal(t, "acme-insurance", noData.ID)
	assert.Equal(t, NoDataScore, noData.Score)
	assert.Equal(t, model.TierNoData, noData.Tier)
	for _, sig := range noData.Signals.Categories() {
		assert.Equal(t, 0, sig.Score)
		assert.Empty(t, sig.Evidence)
	}
}

// overlapExtractor records how many extractions are in flight at once.
type overlapExtractor struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (o *overlapExtractor) ExtractSignals(_ context.Context, _, _, _ string, _ model.EvidenceSet) model.Signals {
	n := o.inFlight.Add(1)
	for {
		prev := o.maxSeen.Load()
		if n <= prev || o.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	o.inFlight.Add(-1)
	return uniformSignals(60)
}

func TestPipelineRun_OneCompanyAtATime(t *testing.T) {
	extractor := &overlapExtractor{}
	p := newTestPipeline(t, extractor, PolicyWeighted)

	companies := []model.CompanyConfig{
		{ID: "bank-a", Name: "bank-a", Ticker: "BKA", Sector: model.SectorBank, Country: "US"},
		{ID: "bank-b", Name: "bank-b", Ticker: "BKB", Sector: model.SectorBank, Country: "US"},
		{ID: "bank-c", Name: "bank-c", Ticker: "BKC", Sector: model.SectorBank, Country: "US"},
	}

	result, err := p.Run(context.Background(), companies)
	require.NoError(t, err)
	require.Len(t, result.Companies, 3)

	assert.Equal(t, int32(1), extractor.maxSeen.Load())
}

func TestPipelineRun_StableTieOrder(t *testing.T) {
	extractor := &scriptedExtractor{scores: map[string]int{
		"bank-a": 60,
		"bank-b": 60,
		"bank-c": 60,
	}}
	p := newTestPipeline(t, extractor, PolicyWeighted)

	companies := []model.CompanyConfig{
		{ID: "bank-a", Name: "bank-a", Ticker: "BKA", Sector: model.SectorBank, Country: "US"},
		{ID: "bank-b", Name: "bank-b", Ticker: "BKB", Sector: model.SectorBank, Country: "US"},
		{ID: "bank-c", Name: "bank-c", Ticker: "BKC", Sector: model.SectorBank, Country: "US"},
	}

	result, err := p.Run(context.Background(), companies)
	require.NoError(t, err)
	require.Len(t, result.Companies, 3)

	// Equal scores keep processing order.
	assert.Equal(t, "bank-a", result.Companies[0].ID)
	assert.Equal(t, "bank-b", result.Companies[1].ID)
	assert.Equal(t, "bank-c", result.Companies[2].ID)

	written, err := ReadArtifact(result.ArtifactPath)
	require.NoError(t, err)
	require.Len(t, written, 3)
	assert.Equal(t, "bank-a", written[0].ID)
}

func TestPipelineRun_SourceFailureDegrades(t *testing.T) {
	extractor := &scriptedExtractor{scores: map[string]int{
		"acme-bank":      60,
		"acme-insurance": 60,
	}}
	p := newTestPipeline(t, extractor, PolicyWeighted)
	p.filings = &fakeFilings{err: eris.New("edgar unavailable")}

	result, err := p.Run(context.Background(), testCompanies())
	require.NoError(t, err)
	assert.Len(t, result.Companies, 2)
	assert.Equal(t, 0, result.Failed)
}

func TestPipelineRun_NoCompanies(t *testing.T) {
	p := newTestPipeline(t, &scriptedExtractor{}, PolicyWeighted)

	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestPipelineRun_CancelledContext(t *testing.T) {
	p := newTestPipeline(t, &scriptedExtractor{scores: map[string]int{
		"acme-bank":      60,
		"acme-insurance": 60,
	}}, PolicyWeighted)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, testCompanies())
	require.Error(t, err)
}

func TestPipelineRun_FilingSectionsFoldedIntoDigest(t *testing.T) {
	var gotDigest string
	extractor := &digestCapture{inner: uniformSignals(50), captured: &gotDigest}

	p := newTestPipeline(t, extractor, PolicyWeighted)
	p.filings = &fakeFilings{
		filings: []model.FilingRecord{
			{FilingType: "10-K", FilingDate: "2025-02-28", URL: "https://www.sec.gov/x.htm"},
		},
		doc: "<html><body>Management's Discussion and Analysis deposits grew briskly across all segments</body></html>",
	}

	_, err := p.Run(context.Background(), testCompanies()[:1])
	require.NoError(t, err)

	assert.Contains(t, gotDigest, "## REGULATORY FILINGS")
	assert.Contains(t, gotDigest, "[Management Discussion & Analysis]")
	assert.Contains(t, gotDigest, "deposits grew briskly")
	assert.NotContains(t, gotDigest, "<html>")
}

type digestCapture struct {
	inner    model.Signals
	captured *string
}

func (d *digestCapture) ExtractSignals(_ context.Context, _, _, digest string, _ model.EvidenceSet) model.Signals {
	*d.captured = digest
	return d.inner
}
