package translate

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/deusflow/newsbrief/internal/retry"
)

const (
	maxContentLength = 2000
	minSummaryLength = 10

	unavailableSuffix = " (Translation unavailable - check API key)"
)

type Language string

const (
	Turkish Language = "tr"
	English Language = "en"
)

type Sentiment string

const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

// ParseSentiment maps a decoded JSON value to a Sentiment. Anything other than
// one of the three labels, compared case-insensitively, is Neutral.
func ParseSentiment(v any) Sentiment {
	s, ok := v.(string)
	if !ok {
		return Neutral
	}
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case Positive:
		return Positive
	case Negative:
		return Negative
	default:
		return Neutral
	}
}

// Result is a summary plus its sentiment label.
type Result struct {
	Summary   string    `json:"summary"`
	Sentiment Sentiment `json:"sentiment"`
}

type summaryStyle struct {
	lang   Language
	prompt string
	scrub  bool
	// failed builds the result when no usable reply could be obtained.
	failed func(title string) Result
}

var (
	turkishStyle = summaryStyle{
		lang:   Turkish,
		prompt: turkishSummaryPrompt,
		scrub:  true,
		failed: func(title string) Result {
			return Result{Summary: title + unavailableSuffix, Sentiment: Neutral}
		},
	}
	englishStyle = summaryStyle{
		lang:   English,
		prompt: englishSummaryPrompt,
		failed: func(title string) Result {
			return Result{Summary: title, Sentiment: Neutral}
		},
	}
)

// SummarizeAndTranslate writes a 2-3 sentence Turkish summary of the item and
// labels its sentiment.
func (t *Translator) SummarizeAndTranslate(ctx context.Context, title, body string) Result {
	return t.summarize(ctx, turkishStyle, title, body)
}

// SummarizeInEnglish is SummarizeAndTranslate with an English summary.
func (t *Translator) SummarizeInEnglish(ctx context.Context, title, body string) Result {
	return t.summarize(ctx, englishStyle, title, body)
}

// Summarize dispatches on lang. Unknown languages get a Turkish summary.
func (t *Translator) Summarize(ctx context.Context, lang Language, title, body string) Result {
	if lang == English {
		return t.SummarizeInEnglish(ctx, title, body)
	}
	return t.SummarizeAndTranslate(ctx, title, body)
}

func (t *Translator) summarize(ctx context.Context, style summaryStyle, title, body string) Result {
	start := time.Now()
	ctx, span := t.tracer.Start(ctx, "translate.Summarize", trace.WithAttributes(
		attribute.String("lang", string(style.lang)),
	))
	defer span.End()

	log := t.log.With(zap.String("lang", string(style.lang)), zap.String("title", title))

	result, outcome := t.summarizeContent(ctx, log, style, title, body)

	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.String("sentiment", string(result.Sentiment)),
	)
	t.metrics.ObserveSummary(string(style.lang), outcome, time.Since(start))
	log.Debug("summary ready", zap.String("outcome", outcome), zap.String("sentiment", string(result.Sentiment)))
	return result
}

func (t *Translator) summarizeContent(ctx context.Context, log *zap.Logger, style summaryStyle, title, body string) (Result, string) {
	content := buildContent(title, body)
	if strings.TrimSpace(content) == "" {
		return Result{Summary: title, Sentiment: Neutral}, OutcomeEmptyInput
	}

	req := t.request(style.prompt, content, summaryMaxTokens)
	raw, err := retry.Do(ctx, t.retry, func(ctx context.Context) (string, error) {
		resp, err := t.client.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		return resp.Content(), nil
	})
	if err != nil {
		log.Error("summary completion failed", zap.Error(err))
		return style.failed(title), OutcomeFailed
	}

	parsed, err := parseReply(raw)
	if err != nil {
		if text := stripCodeFence(raw); utf8.RuneCountInString(text) > minSummaryLength {
			log.Warn("reply is not valid JSON, using it as the summary", zap.Error(err))
			return Result{Summary: text, Sentiment: Neutral}, OutcomeRawReply
		}
		log.Error("reply is not valid JSON and too short to reuse", zap.Error(err))
		return style.failed(title), OutcomeFailed
	}

	summary := parsed.Summary
	if style.scrub {
		summary = ScrubEnglish(summary)
	}
	if utf8.RuneCountInString(summary) <= minSummaryLength {
		return Result{Summary: title, Sentiment: parsed.Sentiment}, OutcomeTitleFallback
	}
	return Result{Summary: summary, Sentiment: parsed.Sentiment}, OutcomeOK
}

// IsFallback reports whether r is one of the title-based results returned
// when no summary could be produced for title.
func IsFallback(title string, r Result) bool {
	return r.Summary == title || r.Summary == title+unavailableSuffix
}

// buildContent joins title and body and caps the result at maxContentLength runes.
func buildContent(title, body string) string {
	content := title
	if body != "" {
		content = title + "\n\n" + body
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		content = string([]rune(content)[:maxContentLength]) + "..."
	}
	return content
}
