package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/config"
	"github.com/dbdb168/fs-account-scorer/internal/fetcher"
	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// maxRetainedReviews bounds how many recent reviews travel downstream.
const maxRetainedReviews = 50

// AppStore fetches customer reviews from Apple's public RSS feed.
// No authentication is required.
type AppStore struct {
	http *fetcher.Client
	cfg  config.AppStoreConfig
}

// NewAppStore creates an App Store review source adapter.
func NewAppStore(http *fetcher.Client, cfg config.AppStoreConfig) *AppStore {
	return &AppStore{http: http, cfg: cfg}
}

// label is the {"label": "..."} wrapper the iTunes RSS feed nests
// every value in.
type label struct {
	Label string `json:"label"`
}

type feedEntry struct {
	ID      label `json:"id"`
	Title   label `json:"title"`
	Content label `json:"content"`
	Rating  label `json:"im:rating"`
	Name    label `json:"im:name"`
	Version label `json:"im:version"`
	Updated label `json:"updated"`
	Author  struct {
		Name label `json:"name"`
	} `json:"author"`
}

type reviewFeed struct {
	Feed struct {
		Entry json.RawMessage `json:"entry"`
	} `json:"feed"`
}

// FetchReviews returns app review data for a company, or nil if the
// company has no app-store identifier or the feed is empty. Canadian
// companies read the Canadian storefront.
func (a *AppStore) FetchReviews(ctx context.Context, company model.CompanyConfig) (*model.AppRatingData, error) {
	if company.AppStoreID == "" {
		zap.L().Debug("appstore: skipping company without app id",
			zap.String("company", company.ID),
		)
		return nil, nil
	}

	country := "us"
	if company.Country == "CA" {
		country = "ca"
	}

	url := fmt.Sprintf("%s/%s/rss/customerreviews/id=%s/sortBy=mostRecent/json",
		a.cfg.BaseURL, country, company.AppStoreID)

	var feed reviewFeed
	if err := a.http.GetJSON(ctx, url, &feed); err != nil {
		return nil, eris.Wrapf(err, "appstore: fetch reviews for %s", company.Ticker)
	}

	entries, err := decodeEntries(feed.Feed.Entry)
	if err != nil {
		return nil, eris.Wrapf(err, "appstore: decode feed for %s", company.Ticker)
	}
	if len(entries) == 0 {
		zap.L().Info("appstore: no reviews in feed", zap.String("company", company.ID))
		return nil, nil
	}

	// The first entry is app metadata; the rest are reviews.
	appEntry := entries[0]
	reviewEntries := entries[1:]

	reviews := make([]model.AppReview, 0, len(reviewEntries))
	total := 0
	for _, e := range reviewEntries {
		rating, _ := strconv.Atoi(e.Rating.Label)
		total += rating
		reviews = append(reviews, model.AppReview{
			ID:      e.ID.Label,
			Title:   e.Title.Label,
			Content: e.Content.Label,
			Rating:  rating,
			Author:  firstNonEmpty(e.Author.Name.Label, "Anonymous"),
			Date:    e.Updated.Label,
			Version: e.Version.Label,
		})
	}
	if len(reviews) == 0 {
		return nil, nil
	}

	avg := math.Round(float64(total)/float64(len(reviews))*10) / 10

	data := &model.AppRatingData{
		Company:       company.Name,
		Ticker:        company.Ticker,
		AppName:       firstNonEmpty(appEntry.Name.Label, company.Name),
		AverageRating: avg,
		ReviewCount:   len(reviews),
		Reviews:       reviews[:min(len(reviews), maxRetainedReviews)],
	}

	zap.L().Info("appstore: reviews fetched",
		zap.String("company", company.ID),
		zap.Int("count", data.ReviewCount),
		zap.Float64("avg_rating", data.AverageRating),
	)
	return data, nil
}

// decodeEntries handles the feed quirk where a single entry is an object
// instead of an array.
func decodeEntries(raw json.RawMessage) ([]feedEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var entries []feedEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var entry feedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return []feedEntry{entry}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
