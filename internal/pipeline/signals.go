package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dbdb168/fs-account-scorer/internal/model"
	"github.com/dbdb168/fs-account-scorer/internal/registry"
	"github.com/dbdb168/fs-account-scorer/pkg/anthropic"
	"github.com/dbdb168/fs-account-scorer/pkg/jsonx"
)

const extractionSystemText = "You are a research analyst scoring financial services companies on their likelihood of needing digital product and customer experience consulting. Only use evidence from the data provided. Return valid JSON in the exact format requested."

const extractionPrompt = `You are analyzing financial data to score a company's likelihood of needing digital product and customer experience (CX) consulting work.

TODAY'S DATE: %s

CRITICAL RULES:
- ONLY use evidence from the data provided below. Do NOT invent or assume information.
- For dates, use the actual date from the source. If a review or filing doesn't have a date, use today's date.
- If no relevant data exists for a category, score it 50 and provide one evidence item: {"text": "Insufficient data available", "source": "N/A", "date": "%s"}

Analyze the provided data and extract signals for each category. For each category, provide:
1. A score from 0-100 (higher = stronger buy signal)
2. 2-4 pieces of evidence with exact quotes or data points from the provided data

SCORING GUIDELINES:

**AI & CX Investment (weight: 30%%)**
- 80-100: Explicit mentions of large AI/digital investments, hiring AI talent, digital transformation initiatives
- 50-79: General technology investment mentions, some digital focus
- 0-49: Minimal or no digital/AI investment signals

**New Market Entry (weight: 20%%)**
- 80-100: Announced expansion into new geographic markets or customer segments
- 50-79: Exploring new markets, partnerships for expansion
- 0-49: Focused on existing markets only

**New Products (weight: 20%%)**
- 80-100: Launching new digital products, apps, or major feature updates
- 50-79: Incremental product updates, planned launches
- 0-49: Maintenance mode, no significant new products

**Leadership Changes (weight: 15%%)**
- 80-100: New CTO, CDO, CIO, or CXO within last 12 months
- 50-79: Leadership changes in digital/tech-adjacent roles
- 0-49: Stable leadership, no recent changes

**CX Indicators (weight: 15%%)**
- HIGH SCORE = MORE PAIN (opportunity for consultants)
- 80-100: Poor app ratings (<4.0), significant complaints, regulatory issues
- 50-79: Mixed reviews, some complaints
- 0-49: Strong ratings (>4.5), positive customer sentiment (less opportunity)

Respond in this exact JSON format:
{
  "aiCxInvestment": {"score": <number>, "evidence": [{"text": "<exact quote or data point>", "source": "<source name>", "date": "<YYYY-MM-DD>"}]},
  "newMarkets": {"score": <number>, "evidence": [...]},
  "newProducts": {"score": <number>, "evidence": [...]},
  "leadershipChanges": {"score": <number>, "evidence": [...]},
  "cxIndicators": {"score": <number>, "evidence": [...]}
}`

// SignalExtractor turns an evidence digest into five scored signal
// categories via one reasoning call per company. It never fails a
// company: any error path yields deterministic default signals.
type SignalExtractor struct {
	ai        anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	weights   registry.Weights
	now       func() time.Time
}

// NewSignalExtractor creates a SignalExtractor.
func NewSignalExtractor(ai anthropic.Client, modelID string, maxTokens int64, timeout time.Duration) *SignalExtractor {
	return &SignalExtractor{
		ai:        ai,
		model:     modelID,
		maxTokens: maxTokens,
		timeout:   timeout,
		weights:   registry.SignalWeights(),
		now:       time.Now,
	}
}

// parsedSignal mirrors the JSON shape the reasoning service is asked for.
type parsedSignal struct {
	Score    *float64 `json:"score"`
	Evidence []struct {
		Text   string `json:"text"`
		Source string `json:"source"`
		Date   string `json:"date"`
	} `json:"evidence"`
}

// ExtractSignals sends the digest plus the rubric to the reasoning
// service and parses the response into the five categories. On any
// failure (network, non-text response, missing or malformed JSON) it
// returns the deterministic defaults instead of an error.
func (x *SignalExtractor) ExtractSignals(ctx context.Context, companyName, ticker, digest string, ev model.EvidenceSet) model.Signals {
	runDate := x.now().Format("2006-01-02")

	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	prompt := fmt.Sprintf(extractionPrompt, runDate, runDate)
	prompt += fmt.Sprintf("\n\n---\n\nCOMPANY: %s (%s)\n\n%s", companyName, ticker, digest)

	resp, err := x.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     x.model,
		MaxTokens: x.maxTokens,
		System:    extractionSystemText,
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		zap.L().Warn("signals: reasoning call failed, using defaults",
			zap.String("company", companyName),
			zap.Error(err),
		)
		return x.DefaultSignals()
	}
	resp.Usage.LogUsage(x.model, "extract")

	raw := jsonx.ExtractObject(resp.Text())
	if raw == "" {
		zap.L().Warn("signals: no JSON object in response, using defaults",
			zap.String("company", companyName),
		)
		return x.DefaultSignals()
	}

	var parsed map[string]parsedSignal
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		zap.L().Warn("signals: failed to parse response JSON, using defaults",
			zap.String("company", companyName),
			zap.Error(err),
		)
		return x.DefaultSignals()
	}

	return model.Signals{
		AICxInvestment:    x.buildSignal(parsed["aiCxInvestment"], x.weights.AICxInvestment, runDate, ev),
		NewMarkets:        x.buildSignal(parsed["newMarkets"], x.weights.NewMarkets, runDate, ev),
		NewProducts:       x.buildSignal(parsed["newProducts"], x.weights.NewProducts, runDate, ev),
		LeadershipChanges: x.buildSignal(parsed["leadershipChanges"], x.weights.LeadershipChanges, runDate, ev),
		CxIndicators:      x.buildSignal(parsed["cxIndicators"], x.weights.CxIndicators, runDate, ev),
	}
}

// buildSignal converts one parsed category, substituting the
// insufficient-data score and a placeholder evidence item when the
// category is absent or malformed. A malformed category never fails the
// company.
func (x *SignalExtractor) buildSignal(p parsedSignal, weight float64, runDate string, ev model.EvidenceSet) model.Signal {
	if p.Score == nil {
		return model.Signal{
			Score:    50,
			Weight:   weight,
			Evidence: []model.Evidence{insufficientData(runDate)},
		}
	}

	score := int(math.Round(*p.Score))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	evidence := make([]model.Evidence, 0, len(p.Evidence))
	for _, e := range p.Evidence {
		date := e.Date
		if date == "" {
			date = runDate
		}
		source := e.Source
		if source == "" {
			source = "Unknown"
		}
		evidence = append(evidence, model.Evidence{
			Text:      e.Text,
			Source:    source,
			SourceURL: sourceURL(source, ev),
			Date:      date,
		})
	}
	if len(evidence) == 0 {
		evidence = []model.Evidence{insufficientData(runDate)}
	}

	return model.Signal{Score: score, Weight: weight, Evidence: evidence}
}

func insufficientData(runDate string) model.Evidence {
	return model.Evidence{
		Text:      "Insufficient data available",
		Source:    "N/A",
		SourceURL: "#",
		Date:      runDate,
	}
}

// DefaultSignals is the deterministic fallback for a failed reasoning
// call: every category at the insufficient-data score with one
// placeholder evidence item and the fixed weights intact.
func (x *SignalExtractor) DefaultSignals() model.Signals {
	runDate := x.now().Format("2006-01-02")
	def := func(weight float64) model.Signal {
		return model.Signal{
			Score:  50,
			Weight: weight,
			Evidence: []model.Evidence{{
				Text:      "Data unavailable",
				Source:    "N/A",
				SourceURL: "#",
				Date:      runDate,
			}},
		}
	}
	return model.Signals{
		AICxInvestment:    def(x.weights.AICxInvestment),
		NewMarkets:        def(x.weights.NewMarkets),
		NewProducts:       def(x.weights.NewProducts),
		LeadershipChanges: def(x.weights.LeadershipChanges),
		CxIndicators:      def(x.weights.CxIndicators),
	}
}

// PlaceholderSignals is the all-zero signal set used when extraction is
// skipped entirely (no-data companies under the app-rating policy). All
// five keys stay present to satisfy the output contract.
func PlaceholderSignals() model.Signals {
	w := registry.SignalWeights()
	zero := func(weight float64) model.Signal {
		return model.Signal{Score: 0, Weight: weight, Evidence: []model.Evidence{}}
	}
	return model.Signals{
		AICxInvestment:    zero(w.AICxInvestment),
		NewMarkets:        zero(w.NewMarkets),
		NewProducts:       zero(w.NewProducts),
		LeadershipChanges: zero(w.LeadershipChanges),
		CxIndicators:      zero(w.CxIndicators),
	}
}

// sourceURL maps an evidence source label to the best available URL via
// keyword sniffing. Best-effort attribution, not precise per-item linking.
func sourceURL(sourceName string, ev model.EvidenceSet) string {
	lower := strings.ToLower(sourceName)

	switch {
	case containsAny(lower, "earnings", "transcript", "q1", "q2", "q3", "q4"):
		return "https://investor.relations"
	case containsAny(lower, "press", "release"):
		for _, pr := range ev.PressReleases {
			if pr.URL != "" {
				return pr.URL
			}
		}
		return "https://company.com/news"
	case containsAny(lower, "app store", "review"):
		return "https://apps.apple.com"
	case containsAny(lower, "sec", "10-k", "10-q", "8-k", "filing"):
		if len(ev.Filings) > 0 {
			return ev.Filings[0].URL
		}
		return "https://sec.gov"
	default:
		return "#"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
