package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanFilingText_StripsMarkup(t *testing.T) {
	raw := `<html><head><style>body { color: red; }</style>
<script>var x = 1 < 2;</script></head>
<body><p>Revenue &amp; deposits grew.</p>
<div>Net income was &quot;strong&quot; &#39;again&#39; &lt;unaudited&gt;.</div></body></html>`

	got := CleanFilingText(raw)

	assert.Equal(t, `Revenue & deposits grew. Net income was "strong" 'again' <unaudited>.`, got)
	assert.NotContains(t, got, "color: red")
	assert.NotContains(t, got, "var x")
}

func TestCleanFilingText_IdempotentOnCleanText(t *testing.T) {
	clean := CleanFilingText(`<p>Management  expects   continued
	growth in digital channels.</p>`)
	assert.Equal(t, clean, CleanFilingText(clean))
}

func TestCleanFilingText_Empty(t *testing.T) {
	assert.Equal(t, "", CleanFilingText(""))
	assert.Equal(t, "", CleanFilingText("  <br/>  "))
}

func testLimits() SectionLimits {
	return SectionLimits{
		MDACap:        300,
		RiskCap:       300,
		TopicBudget:   500,
		FallbackCap:   20,
		GuardWindow:   50,
		ContextBefore: 20,
		ContextAfter:  30,
		DedupCore:     10,
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())
	assert.Equal(t, "", e.Extract("", "10-K"))
	assert.Equal(t, "", e.Extract("<div></div>", "10-K"))
}

func TestExtract_FallbackExcerpt(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	got := e.Extract("plain prose with nothing notable whatsoever", "10-Q")

	require.True(t, strings.HasPrefix(got, "[10-Q excerpt]\n"))
	body := strings.TrimPrefix(got, "[10-Q excerpt]\n")
	assert.LessOrEqual(t, len(body), testLimits().FallbackCap)
	assert.Equal(t, "plain prose with nothing notable whatsoeve"[:20], body)
}

func TestExtract_NamedSectionGuardWindow(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	// "Item 1." sits inside the guard window (a table-of-contents echo)
	// and must not end the capture; "Signatures" past the guard must.
	text := "Management's Discussion and Analysis Item 1. Overview " +
		strings.Repeat("deposit growth ", 10) +
		"Signatures follow here"

	got := e.Extract(text, "10-K")

	require.True(t, strings.HasPrefix(got, "[Management Discussion & Analysis]\n"))
	assert.Contains(t, got, "Item 1. Overview")
	assert.Contains(t, got, "deposit growth")
	assert.NotContains(t, got, "Signatures")
}

func TestExtract_NamedSectionCap(t *testing.T) {
	limits := testLimits()
	limits.MDACap = 80
	e := NewSectionExtractor(DefaultSectionPatterns(), limits)

	text := "Management's Discussion and Analysis " + strings.Repeat("x", 500)
	got := e.Extract(text, "10-K")

	body := strings.TrimPrefix(got, "[Management Discussion & Analysis]\n")
	assert.LessOrEqual(t, len(body), 80)
}

func TestExtract_RiskFactors(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	text := "Risk Factors We face intense competition for deposits " +
		strings.Repeat("and evolving threats ", 5)
	got := e.Extract(text, "10-K")

	require.True(t, strings.HasPrefix(got, "[Risk Factors]\n"))
	assert.Contains(t, got, "intense competition")
}

func TestExtract_SectionOrderAndSeparator(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	text := "Management's Discussion and Analysis results were solid this quarter " +
		strings.Repeat("loan balances rose ", 5) +
		" Risk Factors funding costs may increase " +
		strings.Repeat("rates remain volatile ", 5)
	got := e.Extract(text, "10-K")

	parts := strings.Split(got, sectionSeparator)
	require.Len(t, parts, 2)
	assert.True(t, strings.HasPrefix(parts[0], "[Management Discussion & Analysis]\n"))
	assert.True(t, strings.HasPrefix(parts[1], "[Risk Factors]\n"))
}

func TestExtract_TopicMentions(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	text := "the bank continued its digital transformation across retail channels during the period"
	got := e.Extract(text, "10-Q")

	require.True(t, strings.HasPrefix(got, "[Digital & Technology]\n"))
	assert.Contains(t, got, "digital transformation across retail channels")
}

func TestExtract_TopicDedupCollapsesOverlaps(t *testing.T) {
	e := NewSectionExtractor(DefaultSectionPatterns(), testLimits())

	// Adjacent matches share their context windows; the second capture's
	// core is contained in the first and must be dropped.
	text := "aaaa digital transformation bbbb digital transformation cccc"
	got := e.Extract(text, "10-Q")

	require.True(t, strings.HasPrefix(got, "[Digital & Technology]\n"))
	assert.NotContains(t, got, "\n…\n")
}

func TestExtract_TopicKeepsDistantMentions(t *testing.T) {
	limits := testLimits()
	// The dedup core must span each mention's surrounding context, not
	// just the pattern text every window shares.
	limits.DedupCore = 40
	e := NewSectionExtractor(DefaultSectionPatterns(), limits)

	text := "digital transformation program " +
		strings.Repeat("filler words here ", 20) +
		"another digital transformation initiative"
	got := e.Extract(text, "10-Q")

	assert.Contains(t, got, "\n…\n")
	assert.Contains(t, got, "initiative")
}

func TestMiddleSlice_RuneBoundary(t *testing.T) {
	// An odd slice position inside multi-byte text must widen to whole
	// runes instead of splitting one.
	s := "ab" + strings.Repeat("é", 10)

	got := middleSlice(s, 5)

	assert.True(t, utf8.ValidString(got))
	assert.NotEmpty(t, got)

	assert.Equal(t, "short", middleSlice("short", 10))
}

func TestExtract_TopicBudget(t *testing.T) {
	limits := testLimits()
	limits.TopicBudget = 60
	e := NewSectionExtractor(DefaultSectionPatterns(), limits)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("digital transformation ")
		sb.WriteString(strings.Repeat("unique padding segment ", 10))
	}
	got := e.Extract(sb.String(), "10-K")

	body := strings.TrimPrefix(got, "[Digital & Technology]\n")
	// One capture exceeds the remaining budget, so at most two windows
	// (the budget check runs before each capture).
	assert.LessOrEqual(t, strings.Count(body, "digital transformation"), 2)
}
