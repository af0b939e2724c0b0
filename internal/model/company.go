package model

import "time"

// Sector classifies a target company.
type Sector string

const (
	SectorBank      Sector = "bank"
	SectorInsurance Sector = "insurance"
)

// Tier is the discrete priority bucket derived from the overall score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLower  Tier = "lower"
	TierNoData Tier = "no-data"
)

// CompanyConfig is an immutable reference record for one target company.
// CIK is set only for US SEC filers; AppStoreID is empty when no mobile
// app is tracked, in which case no app-review evidence is obtainable.
type CompanyConfig struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Ticker     string `json:"ticker" yaml:"ticker"`
	Sector     Sector `json:"sector" yaml:"sector"`
	Country    string `json:"country" yaml:"country"` // "US" or "CA"
	CIK        string `json:"cik,omitempty" yaml:"cik,omitempty"`
	AppStoreID string `json:"app_store_id,omitempty" yaml:"app_store_id,omitempty"`
	Domain     string `json:"domain" yaml:"domain"`
}

// Evidence is one quoted, sourced datum backing a signal score.
type Evidence struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	SourceURL string `json:"sourceUrl"`
	Date      string `json:"date"` // ISO date; stamped with the run date when the source had none
}

// Signal is one scored category with its fixed weight and supporting evidence.
type Signal struct {
	Score    int        `json:"score"`
	Weight   float64    `json:"weight"`
	Evidence []Evidence `json:"evidence"`
}

// Signals holds the five fixed categories. All five are always present;
// a missing category is not a valid state.
type Signals struct {
	AICxInvestment    Signal `json:"aiCxInvestment"`
	NewMarkets        Signal `json:"newMarkets"`
	NewProducts       Signal `json:"newProducts"`
	LeadershipChanges Signal `json:"leadershipChanges"`
	CxIndicators      Signal `json:"cxIndicators"`
}

// Categories returns the five signals in fixed rubric order.
func (s *Signals) Categories() []*Signal {
	return []*Signal{
		&s.AICxInvestment,
		&s.NewMarkets,
		&s.NewProducts,
		&s.LeadershipChanges,
		&s.CxIndicators,
	}
}

// Executive is a leadership contact attached to a scored company.
type Executive struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	LinkedIn     string `json:"linkedIn"`
	TenureMonths int    `json:"tenureMonths,omitempty"`
	IsNewHire    bool   `json:"isNewHire,omitempty"`
}

// Company is the output record for one scored company. Constructed once
// per pipeline run and immutable thereafter.
type Company struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Ticker      string      `json:"ticker"`
	Sector      Sector      `json:"sector"`
	Country     string      `json:"country"`
	Score       int         `json:"score"`
	Tier        Tier        `json:"tier"`
	AppRating   *float64    `json:"appRating"`
	Signals     Signals     `json:"signals"`
	Executives  []Executive `json:"executives"`
	LastUpdated string      `json:"lastUpdated"`
}

// FilingRecord is one regulatory filing reference. Content, when present,
// holds the bounded section digest extracted from the filing document,
// never the raw document body.
type FilingRecord struct {
	Company    string `json:"company"`
	Ticker     string `json:"ticker"`
	FilingType string `json:"filing_type"` // "10-K", "10-Q", "8-K"
	FilingDate string `json:"filing_date"`
	URL        string `json:"url"`
	Content    string `json:"content,omitempty"`
}

// Transcript is one earnings call transcript.
type Transcript struct {
	Symbol  string `json:"symbol"`
	Quarter int    `json:"quarter"`
	Year    int    `json:"year"`
	Date    string `json:"date"`
	Content string `json:"content"`
}

// PressRelease is one press release within the lookback window.
type PressRelease struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	URL    string `json:"url,omitempty"`
}

// AppReview is one customer review from the app store feed.
type AppReview struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Rating  int    `json:"rating"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Version string `json:"version"`
}

// AppRatingData summarizes the app store feed for one company's app.
// Nil means no app-store identifier was configured or the feed was empty.
type AppRatingData struct {
	Company       string      `json:"company"`
	Ticker        string      `json:"ticker"`
	AppName       string      `json:"app_name"`
	AverageRating float64     `json:"average_rating"`
	ReviewCount   int         `json:"review_count"`
	Reviews       []AppReview `json:"reviews"`
}

// EvidenceSet bundles all raw evidence collected for one company before
// digest assembly.
type EvidenceSet struct {
	Transcripts   []Transcript
	PressReleases []PressRelease
	Filings       []FilingRecord
	AppData       *AppRatingData
}

// RunStatus represents the state of a persisted pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run records one pipeline execution in the store.
type Run struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	ArtifactPath string     `json:"artifact_path,omitempty"`
	Companies    int        `json:"companies"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// RunSummary is the per-company outcome stored with a run.
type RunSummary struct {
	ID     string `json:"id"`
	Ticker string `json:"ticker"`
	Score  int    `json:"score"`
	Tier   Tier   `json:"tier"`
}
