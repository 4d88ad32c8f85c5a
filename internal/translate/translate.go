// Package translate turns news items into short Turkish or English summaries
// with a sentiment label, and translates free text into Turkish.
//
// None of the entry points return errors. Every failure path degrades to a
// usable string: the sanitized input, the raw model reply or the title.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/newsbrief/internal/completion"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/retry"
	"github.com/deusflow/newsbrief/internal/sanitize"
)

const (
	DefaultModel = "gpt-4o-mini"

	temperature        = 0.3
	translateMaxTokens = 1000
	summaryMaxTokens   = 500
)

// Outcomes reported to metrics and logs.
const (
	OutcomeOK            = "ok"
	OutcomeEmptyInput    = "empty_input"
	OutcomeRawReply      = "raw_reply"
	OutcomeTitleFallback = "title_fallback"
	OutcomeFailed        = "failed"
)

// Translator talks to a completion.Client. It keeps no per-call state and is
// safe for concurrent use.
type Translator struct {
	client    completion.Client
	model     string
	retry     retry.Config
	log       *zap.Logger
	tracer    trace.Tracer
	metrics   *metrics.Metrics
	sanitizer *sanitize.Sanitizer
}

type Option func(*Translator)

func WithModel(model string) Option {
	return func(t *Translator) {
		if model != "" {
			t.model = model
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(t *Translator) {
		if log != nil {
			t.log = log
		}
	}
}

// WithRetry overrides the attempt count, initial delay and sleep used for
// summary completions.
func WithRetry(cfg retry.Config) Option {
	return func(t *Translator) { t.retry = cfg }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(t *Translator) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Translator) { t.metrics = m }
}

func New(client completion.Client, opts ...Option) *Translator {
	t := &Translator{
		client: client,
		model:  DefaultModel,
		retry:  retry.DefaultConfig(),
		log:    zap.NewNop(),
		tracer: otel.Tracer("github.com/deusflow/newsbrief/internal/translate"),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.log = t.log.Named("translate")
	t.sanitizer = sanitize.New(t.log)

	hook := t.retry.OnRetry
	t.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		t.log.Warn("completion attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		t.metrics.IncrementRetries()
		if hook != nil {
			hook(attempt, err, wait)
		}
	}
	return t
}

// TranslateToTurkish translates text into Turkish with a single completion
// call. Blank input comes back unchanged. When the call fails the sanitized
// input is returned instead.
func (t *Translator) TranslateToTurkish(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	ctx, span := t.tracer.Start(ctx, "translate.TranslateToTurkish")
	defer span.End()

	cleaned := t.sanitizer.Clean(text)
	if cleaned == "" {
		t.finishTranslation(span, OutcomeEmptyInput)
		return text
	}

	resp, err := t.client.Complete(ctx, t.request(translatePrompt, cleaned, translateMaxTokens))
	if err != nil {
		t.log.Warn("translation failed, keeping original", zap.Error(err))
		span.RecordError(err)
		t.finishTranslation(span, OutcomeFailed)
		return cleaned
	}

	translated := t.sanitizer.Clean(resp.Content())
	if translated == "" {
		t.log.Warn("translation reply empty after cleaning, keeping original")
		t.finishTranslation(span, OutcomeRawReply)
		return cleaned
	}

	t.finishTranslation(span, OutcomeOK)
	return translated
}

func (t *Translator) finishTranslation(span trace.Span, outcome string) {
	span.SetAttributes(attribute.String("outcome", outcome))
	t.metrics.ObserveTranslation(outcome)
}

// TranslateBatch translates every text concurrently. The result has the same
// length and order as texts. If a worker panics the inputs are returned as is.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string) []string {
	if len(texts) == 0 {
		return texts
	}

	results := make([]string, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("translate batch item %d: panic: %v", i, r)
				}
			}()
			results[i] = t.TranslateToTurkish(gctx, text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.log.Error("batch translation failed, returning inputs", zap.Error(err), zap.Int("size", len(texts)))
		return texts
	}
	return results
}

func (t *Translator) request(system, content string, maxTokens int) completion.Request {
	return completion.Request{
		Model: t.model,
		Messages: []completion.Message{
			completion.System(system),
			completion.User(content),
		},
		Temperature: completion.Float32(temperature),
		MaxTokens:   maxTokens,
	}
}
