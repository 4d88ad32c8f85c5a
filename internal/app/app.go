// Package app wires configuration, providers, caches and the news pipeline
// into one run.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/deusflow/newsbrief/internal/cache"
	"github.com/deusflow/newsbrief/internal/completion"
	"github.com/deusflow/newsbrief/internal/config"
	"github.com/deusflow/newsbrief/internal/gemini"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/news"
	"github.com/deusflow/newsbrief/internal/retry"
	"github.com/deusflow/newsbrief/internal/rss"
	"github.com/deusflow/newsbrief/internal/storage"
	"github.com/deusflow/newsbrief/internal/translate"
)

// Run fetches the configured feeds, summarizes the fresh items and writes one
// JSON digest per line to out.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, m *metrics.Metrics, out io.Writer) error {
	urls, err := rss.LoadFeeds(cfg.FeedsConfigPath)
	if err != nil {
		return fmt.Errorf("load feeds: %w", err)
	}

	client, closeClient, err := newCompletionClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeClient()

	summaryCache, closeCache, err := newCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	tr := translate.New(client,
		translate.WithModel(modelFor(cfg)),
		translate.WithLogger(log),
		translate.WithMetrics(m),
		translate.WithRetry(retry.Config{MaxAttempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}),
	)

	opts := []news.Option{
		news.WithLanguage(translate.Language(cfg.SummaryLanguage)),
		news.WithLimit(cfg.MaxNewsLimit),
		news.WithMaxAge(cfg.NewsMaxAge),
		news.WithLogger(log),
		news.WithMetrics(m),
	}
	if summaryCache != nil {
		opts = append(opts, news.WithCache(summaryCache))
	}
	pipeline := news.NewPipeline(tr, opts...)

	items := rss.NewFetcher(cfg.RequestTimeout, log).FetchAll(ctx, urls)
	digests := pipeline.Run(ctx, items)

	if err := writeDigests(out, digests); err != nil {
		return err
	}
	log.Info("run finished", zap.Int("items", len(items)), zap.Int("digests", len(digests)))
	return nil
}

func writeDigests(out io.Writer, digests []news.Digest) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	for _, d := range digests {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("write digest: %w", err)
		}
	}
	return nil
}

func modelFor(cfg *config.Config) string {
	if cfg.Provider == config.ProviderGemini {
		return cfg.GeminiModel
	}
	return cfg.OpenAIModel
}

func newCompletionClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (completion.Client, func(), error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case config.ProviderOpenAI:
		return completion.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, log), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}

// newCache returns a nil cache for the "none" backend.
func newCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (news.Cache, func(), error) {
	ttl := cfg.CacheTTL()

	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, func() {}, nil
	case config.CacheMemory:
		return cache.NewMemory(ttl), func() {}, nil
	case config.CacheRedis:
		rc, err := cache.DialRedis(ctx, cfg.RedisAddr, ttl)
		if err != nil {
			return nil, nil, err
		}
		return rc, closer(log, "redis", rc.Close), nil
	case config.CachePostgres:
		pc, err := storage.NewPostgresCache(ctx, cfg.DatabaseURL, ttl, log)
		if err != nil {
			return nil, nil, err
		}
		cleanupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := pc.Cleanup(cleanupCtx); err != nil {
			log.Warn("summary cache cleanup failed", zap.Error(err))
		}
		return pc, closer(log, "postgres", pc.Close), nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func closer(log *zap.Logger, name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			log.Warn("close failed", zap.String("resource", name), zap.Error(err))
		}
	}
}
