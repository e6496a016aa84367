package analysis

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"propvalue/server/internal/models"
)

// Outcome labels reported for every analysis.
const (
	OutcomeParsed        = "parsed"
	OutcomeUnparsable    = "unparsable"
	OutcomeProviderError = "provider_error"
)

const (
	fallbackRatio      = 0.95
	fallbackAdjustment = -5

	confidenceMedium = "Medium"
	confidenceLow    = "Low"

	unparsableInsights = "Analysis completed. Market value estimated at 95% of listed price."
	unparsableNotes    = "Analysis based on general market trends."
	defaultInsights    = "Property analysis completed."
	defaultNotes       = "No specific comparable data available."
	providerErrorNotes = "Analysis unavailable due to API error."
)

// OutcomeRecorder receives one observation per Analyze call.
type OutcomeRecorder interface {
	ObserveAnalysis(outcome string, duration time.Duration)
}

type Options struct {
	MaxTokens   int
	Temperature float64
}

// Gateway turns a property into an Analysis through the provider. It never
// fails: every provider or parse problem degrades to a fallback result.
type Gateway struct {
	completer Completer
	opts      Options
	logger    *logrus.Logger
	recorder  OutcomeRecorder
	now       func() time.Time
}

func NewGateway(completer Completer, opts Options, logger *logrus.Logger, recorder OutcomeRecorder) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Gateway{
		completer: completer,
		opts:      opts,
		logger:    logger,
		recorder:  recorder,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// SetClock replaces the time source used for analyzedAt.
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

func (g *Gateway) Analyze(ctx context.Context, p *models.Property) models.Analysis {
	start := time.Now()
	log := g.logger.WithField("property_id", p.ID)

	reply, err := g.completer.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: BuildPrompt(p)},
		},
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
	})

	var result models.Analysis
	var outcome string
	if err != nil {
		log.WithError(err).Warn("Analysis provider failed, using fallback")
		result = providerFallback(p.Price)
		outcome = OutcomeProviderError
	} else if parsed, ok := parseReply(reply, p.Price); ok {
		log.WithField("confidence", parsed.Confidence).Info("Analysis completed")
		result = parsed
		outcome = OutcomeParsed
	} else {
		log.WithField("reply_length", len(reply)).Warn("Analysis reply is not valid JSON, using fallback")
		result = unparsableFallback(reply, p.Price)
		outcome = OutcomeUnparsable
	}

	if g.recorder != nil {
		g.recorder.ObserveAnalysis(outcome, time.Since(start))
	}
	result.AnalyzedAt = g.now()
	return result
}

// parseReply reads the first JSON object in reply. Fields that are missing,
// null, empty or of the wrong type fall back independently.
func parseReply(reply string, price float64) (models.Analysis, bool) {
	raw, ok := ExtractJSONObject(reply)
	if !ok || !gjson.Valid(raw) {
		return models.Analysis{}, false
	}

	doc := gjson.Parse(raw)
	if !doc.IsObject() {
		return models.Analysis{}, false
	}

	estimate := price * fallbackRatio
	return models.Analysis{
		MarketValue:      numberOr(doc.Get("marketValue"), estimate),
		RecommendedPrice: numberOr(doc.Get("recommendedPrice"), estimate),
		PriceAdjustment:  numberOr(doc.Get("priceAdjustment"), 0),
		Insights:         textOr(doc.Get("insights"), defaultInsights),
		Confidence:       textOr(doc.Get("confidence"), confidenceMedium),
		ComparativeNotes: textOr(doc.Get("comparativeNotes"), defaultNotes),
	}, true
}

// numberOr treats numbers that overflow float64 as missing.
func numberOr(v gjson.Result, fallback float64) float64 {
	if v.Type != gjson.Number {
		return fallback
	}
	f := v.Float()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return fallback
	}
	return f
}

func textOr(v gjson.Result, fallback string) string {
	if v.Type != gjson.String {
		return fallback
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return fallback
	}
	return s
}

func unparsableFallback(reply string, price float64) models.Analysis {
	estimate := price * fallbackRatio
	insights := strings.TrimSpace(reply)
	if insights == "" {
		insights = unparsableInsights
	}
	return models.Analysis{
		MarketValue:      estimate,
		RecommendedPrice: estimate,
		PriceAdjustment:  fallbackAdjustment,
		Insights:         insights,
		Confidence:       confidenceMedium,
		ComparativeNotes: unparsableNotes,
	}
}

func providerFallback(price float64) models.Analysis {
	estimate := price * fallbackRatio
	return models.Analysis{
		MarketValue:      estimate,
		RecommendedPrice: estimate,
		PriceAdjustment:  fallbackAdjustment,
		Insights: "Note: AI analysis unavailable. Fallback analysis suggests market value of $" +
			formatMoney(estimate) +
			". This is a placeholder - ensure OPENAI_API_KEY is configured for accurate analysis.",
		Confidence:       confidenceLow,
		ComparativeNotes: providerErrorNotes,
	}
}
