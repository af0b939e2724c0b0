package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/config"
	"github.com/dbdb168/fs-account-scorer/internal/fetcher"
	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// FMP fetches earnings call transcripts and press releases from
// Financial Modeling Prep. The free tier allows 250 calls/day, so the
// pipeline keeps per-company call counts low.
type FMP struct {
	http *fetcher.Client
	cfg  config.FMPConfig
	now  func() time.Time
}

// NewFMP creates a Financial Modeling Prep source adapter.
func NewFMP(http *fetcher.Client, cfg config.FMPConfig) *FMP {
	return &FMP{http: http, cfg: cfg, now: time.Now}
}

// Enabled reports whether an API key is configured. Without one the
// adapter yields no evidence and the caller emits a warning.
func (f *FMP) Enabled() bool {
	return f.cfg.Key != ""
}

type transcriptResponse []struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

// FetchTranscripts walks back from the current quarter and returns up to
// cfg.TranscriptQuarters transcripts. Quarters with no transcript are
// skipped silently; FMP often lags a quarter behind.
func (f *FMP) FetchTranscripts(ctx context.Context, company model.CompanyConfig) ([]model.Transcript, error) {
	if !f.Enabled() {
		return nil, nil
	}

	now := f.now()
	year := now.Year()
	quarter := int(now.Month()-1)/3 + 1

	var transcripts []model.Transcript
	for i := 0; i < f.cfg.TranscriptQuarters; i++ {
		q := quarter - i
		y := year
		if q <= 0 {
			q += 4
			y--
		}

		url := fmt.Sprintf("%s/earning_call_transcript/%s?quarter=%d&year=%d&apikey=%s",
			f.cfg.BaseURL, company.Ticker, q, y, f.cfg.Key)

		var resp transcriptResponse
		if err := f.http.GetJSON(ctx, url, &resp); err != nil {
			zap.L().Debug("fmp: no transcript",
				zap.String("ticker", company.Ticker),
				zap.Int("quarter", q),
				zap.Int("year", y),
				zap.Error(err),
			)
			continue
		}
		if len(resp) == 0 {
			continue
		}

		date := resp[0].Date
		if date == "" {
			date = fmt.Sprintf("%d-Q%d", y, q)
		}
		transcripts = append(transcripts, model.Transcript{
			Symbol:  company.Ticker,
			Quarter: q,
			Year:    y,
			Date:    date,
			Content: resp[0].Content,
		})
	}

	zap.L().Info("fmp: transcripts fetched",
		zap.String("ticker", company.Ticker),
		zap.Int("count", len(transcripts)),
	)
	return transcripts, nil
}

type pressReleaseResponse []struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// FetchPressReleases returns press releases from the trailing 12 months,
// most recent first, up to cfg.PressReleaseLimit from the API.
func (f *FMP) FetchPressReleases(ctx context.Context, company model.CompanyConfig) ([]model.PressRelease, error) {
	if !f.Enabled() {
		return nil, nil
	}

	url := fmt.Sprintf("%s/press-releases/%s?limit=%d&apikey=%s",
		f.cfg.BaseURL, company.Ticker, f.cfg.PressReleaseLimit, f.cfg.Key)

	var resp pressReleaseResponse
	if err := f.http.GetJSON(ctx, url, &resp); err != nil {
		return nil, eris.Wrapf(err, "fmp: fetch press releases for %s", company.Ticker)
	}

	cutoff := f.now().AddDate(-1, 0, 0)
	var releases []model.PressRelease
	for _, item := range resp {
		t, err := parseReleaseDate(item.Date)
		if err != nil || t.Before(cutoff) {
			continue
		}
		releases = append(releases, model.PressRelease{
			Symbol: company.Ticker,
			Date:   item.Date,
			Title:  item.Title,
			Text:   item.Text,
			URL:    item.URL,
		})
	}

	zap.L().Info("fmp: press releases fetched",
		zap.String("ticker", company.Ticker),
		zap.Int("count", len(releases)),
	)
	return releases, nil
}

// parseReleaseDate accepts the two timestamp shapes FMP returns.
func parseReleaseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, eris.Errorf("fmp: unparseable date %q", s)
}
