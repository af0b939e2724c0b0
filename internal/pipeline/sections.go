package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SectionLimits bounds every stage of filing-section extraction. All
// values are configuration inputs so tests can run on small fixtures.
type SectionLimits struct {
	MDACap        int // chars kept from the MD&A section
	RiskCap       int // chars kept from the Risk Factors section
	TopicBudget   int // cumulative chars kept per topical category
	FallbackCap   int // chars of cleaned text when nothing matches
	GuardWindow   int // chars after a section start where end markers are ignored
	ContextBefore int // chars captured before a topical match
	ContextAfter  int // chars captured after a topical match
	DedupCore     int // length of the middle slice used for dedup
}

// DefaultSectionLimits returns the production extraction caps.
func DefaultSectionLimits() SectionLimits {
	return SectionLimits{
		MDACap:        15000,
		RiskCap:       10000,
		TopicBudget:   3000,
		FallbackCap:   10000,
		GuardWindow:   500,
		ContextBefore: 200,
		ContextAfter:  300,
		DedupCore:     100,
	}
}

// TopicPatterns is one topical mention category: a display label and
// the case-insensitive patterns that mark a relevant mention.
type TopicPatterns struct {
	Label    string
	Patterns []string
}

// SectionPatterns holds the pattern sets driving extraction. They are
// inputs, not package state, so fixtures can substitute small sets.
type SectionPatterns struct {
	MDA         []string
	RiskFactors []string
	NextSection []string
	Topics      []TopicPatterns
}

// DefaultSectionPatterns returns the production pattern sets tuned for
// 10-K/10-Q prose.
func DefaultSectionPatterns() SectionPatterns {
	return SectionPatterns{
		MDA: []string{
			`management'?s discussion and analysis`,
			`item\s+7\b[^a-z]*management`,
			`item\s+2\b[^a-z]*management`,
		},
		RiskFactors: []string{
			`risk factors`,
			`item\s+1a\b`,
		},
		NextSection: []string{
			`item\s+\d+[a-z]?\.`,
			`part\s+(i|ii|iii|iv)\b`,
			`signatures`,
		},
		Topics: []TopicPatterns{
			{Label: "Digital & Technology", Patterns: []string{
				`digital transformation`, `digital investment`, `technology modernization`, `mobile bank`,
			}},
			{Label: "AI Initiatives", Patterns: []string{
				`artificial intelligence`, `machine learning`, `generative ai`, `\bai\b`,
			}},
			{Label: "Market Expansion", Patterns: []string{
				`new market`, `market expansion`, `geographic expansion`, `new segment`,
			}},
			{Label: "New Products", Patterns: []string{
				`new product`, `product launch`, `launched`, `new offering`,
			}},
			{Label: "Leadership Changes", Patterns: []string{
				`chief technology officer`, `chief digital officer`, `chief information officer`, `appointed`, `named as`,
			}},
			{Label: "Customer Experience", Patterns: []string{
				`customer experience`, `customer satisfaction`, `customer complaint`, `net promoter`,
			}},
		},
	}
}

// sectionSeparator joins the labeled sections in the output digest.
const sectionSeparator = "\n\n---\n\n"

// SectionExtractor isolates the decision-relevant subsections of raw
// filing text. It is lossy: the contract is a bounded, labeled
// best-effort digest, never full-text fidelity.
type SectionExtractor struct {
	limits SectionLimits

	mda    []*regexp.Regexp
	risk   []*regexp.Regexp
	next   []*regexp.Regexp
	topics []compiledTopic
}

type compiledTopic struct {
	label    string
	patterns []*regexp.Regexp
}

// NewSectionExtractor compiles the pattern sets. All patterns match
// case-insensitively.
func NewSectionExtractor(patterns SectionPatterns, limits SectionLimits) *SectionExtractor {
	e := &SectionExtractor{limits: limits}
	e.mda = compileAll(patterns.MDA)
	e.risk = compileAll(patterns.RiskFactors)
	e.next = compileAll(patterns.NextSection)
	for _, t := range patterns.Topics {
		e.topics = append(e.topics, compiledTopic{
			label:    t.Label,
			patterns: compileAll(t.Patterns),
		})
	}
	return e
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Extract returns a bounded plain-text digest of the filing, or "" when
// the input has no usable text. filingType is carried into the digest
// header so downstream evidence stays attributable.
func (e *SectionExtractor) Extract(raw, filingType string) string {
	text := CleanFilingText(raw)
	if text == "" {
		return ""
	}

	var sections []string

	if s := e.namedSection(text, e.mda, e.limits.MDACap); s != "" {
		sections = append(sections, "[Management Discussion & Analysis]\n"+s)
	}
	if s := e.namedSection(text, e.risk, e.limits.RiskCap); s != "" {
		sections = append(sections, "[Risk Factors]\n"+s)
	}

	for _, topic := range e.topics {
		if s := e.topicMentions(text, topic); s != "" {
			sections = append(sections, "["+topic.label+"]\n"+s)
		}
	}

	if len(sections) == 0 {
		// Nothing matched: fall back to the head of the cleaned text.
		head := text
		if len(head) > e.limits.FallbackCap {
			head = head[:e.limits.FallbackCap]
		}
		return "[" + filingType + " excerpt]\n" + head
	}

	return strings.Join(sections, sectionSeparator)
}

// namedSection locates the first match of any pattern and captures up to
// cap characters from there. A next-section marker ends the capture
// early, but only after an initial guard window; a marker inside the
// guard is usually the table of contents repeating the heading.
func (e *SectionExtractor) namedSection(text string, patterns []*regexp.Regexp, maxChars int) string {
	start := -1
	for _, re := range patterns {
		if loc := re.FindStringIndex(text); loc != nil {
			start = loc[0]
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := start + maxChars
	if end > len(text) {
		end = len(text)
	}

	guard := start + e.limits.GuardWindow
	if guard < end {
		window := text[guard:end]
		cut := -1
		for _, re := range e.next {
			if loc := re.FindStringIndex(window); loc != nil {
				if cut < 0 || loc[0] < cut {
					cut = loc[0]
				}
			}
		}
		if cut >= 0 {
			end = guard + cut
		}
	}

	return strings.TrimSpace(text[start:end])
}

// topicMentions captures a context window around every pattern match,
// deduplicating overlapping captures and stopping once the topic's
// cumulative budget is exhausted.
func (e *SectionExtractor) topicMentions(text string, topic compiledTopic) string {
	var captured []string
	used := 0

	for _, re := range topic.patterns {
		if used >= e.limits.TopicBudget {
			break
		}
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if used >= e.limits.TopicBudget {
				break
			}
			lo := loc[0] - e.limits.ContextBefore
			if lo < 0 {
				lo = 0
			}
			hi := loc[1] + e.limits.ContextAfter
			if hi > len(text) {
				hi = len(text)
			}
			mention := strings.TrimSpace(text[lo:hi])

			if isDuplicateMention(mention, captured, e.limits.DedupCore) {
				continue
			}
			captured = append(captured, mention)
			used += len(mention)
		}
	}

	if len(captured) == 0 {
		return ""
	}
	return strings.Join(captured, "\n…\n")
}

// isDuplicateMention reports whether the middle core of a mention is
// already contained in a previously captured mention. Overlapping context
// windows from adjacent matches share their core, so this collapses them.
func isDuplicateMention(mention string, captured []string, core int) bool {
	mid := middleSlice(mention, core)
	if mid == "" {
		return false
	}
	for _, prev := range captured {
		if strings.Contains(prev, mid) {
			return true
		}
	}
	return false
}

// middleSlice returns the centered n-byte slice of s, widened to rune
// boundaries, or s itself when shorter.
func middleSlice(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := (len(s) - n) / 2
	for start > 0 && !utf8.RuneStart(s[start]) {
		start--
	}
	end := start + n
	for end < len(s) && !utf8.RuneStart(s[end]) {
		end++
	}
	return s[start:end]
}

// Markup-stripping patterns for filing documents.
var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// entityReplacer decodes the five entities that dominate EDGAR documents.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
)

// CleanFilingText strips markup and normalizes whitespace. It is
// idempotent: cleaning already-clean text returns it unchanged.
func CleanFilingText(raw string) string {
	text := scriptBlockRe.ReplaceAllString(raw, " ")
	text = styleBlockRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
