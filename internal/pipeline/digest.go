package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// Digest caps keep the combined evidence blob inside the reasoning
// service's context budget regardless of how much each source returned.
const (
	transcriptCap    = 15000
	pressReleaseMax  = 20
	pressReleaseCap  = 2000
	reviewMax        = 20
	reviewCap        = 300
	truncationMarker = "...[truncated]"
)

// BuildDigest assembles one bounded text blob from all evidence for a
// company. Empty categories are omitted entirely rather than rendered as
// empty sections. Filings contribute metadata and, when present, the
// bounded section digest from the filing-section extractor, never a raw
// document body.
func BuildDigest(ev model.EvidenceSet) string {
	var sections []string

	if len(ev.Transcripts) > 0 {
		var b strings.Builder
		b.WriteString("## EARNINGS CALL TRANSCRIPTS\n")
		for _, t := range ev.Transcripts {
			content := truncate(t.Content, transcriptCap)
			fmt.Fprintf(&b, "\n### Q%d %d (%s)\n%s\n", t.Quarter, t.Year, t.Date, content)
		}
		sections = append(sections, b.String())
	}

	if len(ev.PressReleases) > 0 {
		var b strings.Builder
		b.WriteString("## PRESS RELEASES (Last 12 months)\n")
		releases := ev.PressReleases
		if len(releases) > pressReleaseMax {
			releases = releases[:pressReleaseMax]
		}
		for _, pr := range releases {
			fmt.Fprintf(&b, "\n### %s: %s\n%s\n", pr.Date, pr.Title, truncate(pr.Text, pressReleaseCap))
		}
		sections = append(sections, b.String())
	}

	if len(ev.Filings) > 0 {
		var b strings.Builder
		b.WriteString("## REGULATORY FILINGS\n")
		for _, f := range ev.Filings {
			fmt.Fprintf(&b, "\n- %s filed %s: %s\n", f.FilingType, f.FilingDate, f.URL)
			if f.Content != "" {
				fmt.Fprintf(&b, "\n%s\n", f.Content)
			}
		}
		sections = append(sections, b.String())
	}

	if ev.AppData != nil {
		app := ev.AppData
		var b strings.Builder
		b.WriteString("## APP STORE DATA\n")
		fmt.Fprintf(&b, "App: %s\n", app.AppName)
		fmt.Fprintf(&b, "Average Rating: %.1f/5 (%d recent reviews)\n", app.AverageRating, app.ReviewCount)
		b.WriteString("\nRecent Reviews:\n")
		reviews := app.Reviews
		if len(reviews) > reviewMax {
			reviews = reviews[:reviewMax]
		}
		for _, r := range reviews {
			fmt.Fprintf(&b, "- [%d/5] %q: %s\n", r.Rating, r.Title, truncate(r.Content, reviewCap))
		}
		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n")
}

// truncate caps s at n bytes, backing the cut off to a rune boundary so
// multi-byte text never splits, and appends a marker when content was
// dropped.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + truncationMarker
}
