package pipeline

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

func TestBuildDigest_Empty(t *testing.T) {
	assert.Equal(t, "", BuildDigest(model.EvidenceSet{}))
}

func TestBuildDigest_OmitsEmptyCategories(t *testing.T) {
	ev := model.EvidenceSet{
		Transcripts: []model.Transcript{
			{Quarter: 2, Year: 2025, Date: "2025-04-15", Content: "We invested heavily in our mobile app."},
		},
	}
	got := BuildDigest(ev)

	assert.Contains(t, got, "## EARNINGS CALL TRANSCRIPTS")
	assert.NotContains(t, got, "## PRESS RELEASES")
	assert.NotContains(t, got, "## REGULATORY FILINGS")
	assert.NotContains(t, got, "## APP STORE DATA")
}

func TestBuildDigest_AllCategories(t *testing.T) {
	ev := model.EvidenceSet{
		Transcripts: []model.Transcript{
			{Quarter: 1, Year: 2025, Date: "2025-01-20", Content: "Digital adoption accelerated."},
		},
		PressReleases: []model.PressRelease{
			{Date: "2025-03-01", Title: "New CTO Appointed", Text: "The board appointed a new CTO."},
		},
		Filings: []model.FilingRecord{
			{FilingType: "10-K", FilingDate: "2025-02-28", URL: "https://www.sec.gov/Archives/x.htm",
				Content: "[Risk Factors]\nCompetition is intensifying."},
		},
		AppData: &model.AppRatingData{
			AppName:       "Acme Mobile",
			AverageRating: 3.4,
			ReviewCount:   2,
			Reviews: []model.AppReview{
				{Rating: 2, Title: "Slow", Content: "App crashes on login."},
			},
		},
	}
	got := BuildDigest(ev)

	assert.Contains(t, got, "### Q1 2025 (2025-01-20)\nDigital adoption accelerated.")
	assert.Contains(t, got, "### 2025-03-01: New CTO Appointed")
	assert.Contains(t, got, "- 10-K filed 2025-02-28: https://www.sec.gov/Archives/x.htm")
	assert.Contains(t, got, "[Risk Factors]\nCompetition is intensifying.")
	assert.Contains(t, got, "Average Rating: 3.4/5 (2 recent reviews)")
	assert.Contains(t, got, `- [2/5] "Slow": App crashes on login.`)
}

func TestBuildDigest_TranscriptCap(t *testing.T) {
	ev := model.EvidenceSet{
		Transcripts: []model.Transcript{
			{Quarter: 3, Year: 2024, Content: strings.Repeat("a", transcriptCap+1)},
		},
	}
	got := BuildDigest(ev)

	assert.Contains(t, got, truncationMarker)
	assert.Less(t, len(got), transcriptCap+200)
}

func TestBuildDigest_PressReleaseLimits(t *testing.T) {
	var releases []model.PressRelease
	for i := 0; i < pressReleaseMax+5; i++ {
		releases = append(releases, model.PressRelease{
			Date:  "2025-01-01",
			Title: fmt.Sprintf("Release %d", i),
			Text:  strings.Repeat("b", pressReleaseCap+100),
		})
	}
	got := BuildDigest(model.EvidenceSet{PressReleases: releases})

	assert.Contains(t, got, "Release 0")
	assert.Contains(t, got, fmt.Sprintf("Release %d", pressReleaseMax-1))
	assert.NotContains(t, got, fmt.Sprintf("Release %d", pressReleaseMax))
	assert.Contains(t, got, truncationMarker)
}

func TestBuildDigest_ReviewLimits(t *testing.T) {
	var reviews []model.AppReview
	for i := 0; i < reviewMax+3; i++ {
		reviews = append(reviews, model.AppReview{
			Rating:  4,
			Title:   fmt.Sprintf("Review %d", i),
			Content: strings.Repeat("c", reviewCap+50),
		})
	}
	got := BuildDigest(model.EvidenceSet{AppData: &model.AppRatingData{
		AppName:       "Acme Mobile",
		AverageRating: 4.0,
		ReviewCount:   len(reviews),
		Reviews:       reviews,
	}})

	assert.Contains(t, got, fmt.Sprintf("Review %d", reviewMax-1))
	assert.NotContains(t, got, fmt.Sprintf("Review %d", reviewMax))
	assert.Contains(t, got, truncationMarker)
}

func TestBuildDigest_FilingWithoutContent(t *testing.T) {
	got := BuildDigest(model.EvidenceSet{
		Filings: []model.FilingRecord{
			{FilingType: "8-K", FilingDate: "2025-05-01", URL: "https://www.sec.gov/Archives/y.htm"},
		},
	})
	require.Contains(t, got, "- 8-K filed 2025-05-01")

	// Metadata line only: no body follows the bullet.
	lines := strings.Split(strings.TrimSpace(got), "\n")
	assert.Equal(t, "- 8-K filed 2025-05-01: https://www.sec.gov/Archives/y.htm", lines[len(lines)-1])
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "é" is two bytes; a 5-byte cap would split the third rune.
	s := strings.Repeat("é", 10)

	got := truncate(s, 5)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "éé"+truncationMarker, got)

	assert.Equal(t, "abc", truncate("abc", 5))
}
