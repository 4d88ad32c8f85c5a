// Package news filters feed items and turns them into summarized digests.
package news

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/deusflow/newsbrief/internal/cache"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/rss"
	"github.com/deusflow/newsbrief/internal/sanitize"
	"github.com/deusflow/newsbrief/internal/translate"
)

// Item is a deduplicated feed entry ready for summarizing.
type Item struct {
	Title     string
	Body      string
	Link      string
	Source    string
	Published time.Time
}

// Digest is one summarized item.
type Digest struct {
	Title           string              `json:"title"`
	TranslatedTitle string              `json:"translated_title,omitempty"`
	Link            string              `json:"link"`
	Source          string              `json:"source,omitempty"`
	Published       time.Time           `json:"published"`
	Language        translate.Language  `json:"language"`
	Summary         string              `json:"summary"`
	Sentiment       translate.Sentiment `json:"sentiment"`
	Cached          bool                `json:"cached"`
}

// Translator is the part of translate.Translator the pipeline uses.
type Translator interface {
	Summarize(ctx context.Context, lang translate.Language, title, body string) translate.Result
	TranslateBatch(ctx context.Context, texts []string) []string
}

// Cache stores finished summaries by key.
type Cache interface {
	Get(ctx context.Context, key string) (translate.Result, bool, error)
	Set(ctx context.Context, key string, result translate.Result) error
}

type Pipeline struct {
	translator Translator
	cache      Cache
	lang       translate.Language
	limit      int
	maxAge     time.Duration
	log        *zap.Logger
	metrics    *metrics.Metrics
	sanitizer  *sanitize.Sanitizer
	now        func() time.Time
}

type Option func(*Pipeline)

func WithCache(c Cache) Option               { return func(p *Pipeline) { p.cache = c } }
func WithLanguage(l translate.Language) Option { return func(p *Pipeline) { p.lang = l } }
func WithLimit(n int) Option                  { return func(p *Pipeline) { p.limit = n } }
func WithMaxAge(d time.Duration) Option       { return func(p *Pipeline) { p.maxAge = d } }
func WithMetrics(m *metrics.Metrics) Option   { return func(p *Pipeline) { p.metrics = m } }

func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

func NewPipeline(tr Translator, opts ...Option) *Pipeline {
	p := &Pipeline{
		translator: tr,
		lang:       translate.Turkish,
		limit:      8,
		maxAge:     24 * time.Hour,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("news")
	p.sanitizer = sanitize.New(p.log)
	return p
}

// Run filters items and summarizes what is left.
func (p *Pipeline) Run(ctx context.Context, items []rss.FeedItem) []Digest {
	return p.Summarize(ctx, p.Filter(items))
}

// Filter drops stale and duplicate items, orders the rest newest first and
// keeps at most the configured limit. Duplicates are detected by link, by
// title and description, and by a looser per-source similarity key.
func (p *Pipeline) Filter(items []rss.FeedItem) []Item {
	seenLinks := map[string]struct{}{}
	seenContent := map[string]struct{}{}
	seenSimilar := map[string]struct{}{}
	var candidates []Item

	now := p.now()
	for i := range items {
		item := &items[i]
		p.metrics.IncrementNewsProcessed()

		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		if p.maxAge > 0 && item.Published != nil && now.Sub(*item.Published) > p.maxAge {
			continue
		}

		if item.Link != "" {
			if _, dup := seenLinks[item.Link]; dup {
				p.log.Debug("duplicate link", zap.String("title", item.Title))
				p.metrics.IncrementDuplicatesFiltered()
				continue
			}
			seenLinks[item.Link] = struct{}{}
		}

		key := makeNewsKey(item.Title, item.Description)
		if _, dup := seenContent[key]; dup {
			p.log.Debug("duplicate content", zap.String("title", item.Title))
			p.metrics.IncrementDuplicatesFiltered()
			continue
		}
		seenContent[key] = struct{}{}

		similarKey := makeSimilarityKey(item, now)
		if _, dup := seenSimilar[similarKey]; dup {
			p.log.Debug("similar item", zap.String("title", item.Title))
			p.metrics.IncrementDuplicatesFiltered()
			continue
		}
		seenSimilar[similarKey] = struct{}{}

		published := now
		if item.Published != nil {
			published = *item.Published
		}
		candidates = append(candidates, Item{
			Title:     strings.TrimSpace(item.Title),
			Body:      p.body(item),
			Link:      item.Link,
			Source:    item.Source,
			Published: published,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Published.After(candidates[j].Published)
	})
	if p.limit > 0 && len(candidates) > p.limit {
		candidates = candidates[:p.limit]
	}

	p.log.Info("items filtered", zap.Int("in", len(items)), zap.Int("kept", len(candidates)))
	return candidates
}

// body prefers the full content when it cleans up to more text than the
// description.
func (p *Pipeline) body(item *rss.FeedItem) string {
	desc := p.sanitizer.Clean(item.Description)
	content := p.sanitizer.Clean(item.Content)
	if utf8.RuneCountInString(content) > utf8.RuneCountInString(desc) {
		return content
	}
	return desc
}

// Summarize produces one digest per item, in order. Cached summaries are
// reused; fresh ones are stored unless they are a title fallback.
func (p *Pipeline) Summarize(ctx context.Context, items []Item) []Digest {
	digests := make([]Digest, 0, len(items))
	for i, item := range items {
		p.log.Debug("summarizing", zap.Int("n", i+1), zap.Int("of", len(items)), zap.String("title", item.Title))

		result, cached := p.summary(ctx, item)
		digests = append(digests, Digest{
			Title:     item.Title,
			Link:      item.Link,
			Source:    item.Source,
			Published: item.Published,
			Language:  p.lang,
			Summary:   result.Summary,
			Sentiment: result.Sentiment,
			Cached:    cached,
		})
	}

	if p.lang == translate.Turkish && len(digests) > 0 {
		titles := make([]string, len(digests))
		for i, d := range digests {
			titles[i] = d.Title
		}
		for i, t := range p.translator.TranslateBatch(ctx, titles) {
			if t != digests[i].Title {
				digests[i].TranslatedTitle = t
			}
		}
	}
	return digests
}

func (p *Pipeline) summary(ctx context.Context, item Item) (translate.Result, bool) {
	key := cache.Key(p.lang, item.Title, item.Body)

	if p.cache != nil {
		result, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.log.Warn("cache lookup failed", zap.Error(err))
		}
		p.metrics.RecordCacheLookup(ok)
		if ok {
			return result, true
		}
	}

	result := p.translator.Summarize(ctx, p.lang, item.Title, item.Body)

	if p.cache != nil && !translate.IsFallback(item.Title, result) {
		if err := p.cache.Set(ctx, key, result); err != nil {
			p.log.Warn("cache store failed", zap.Error(err))
		}
	}
	return result, false
}

// makeNewsKey hashes title and description for exact duplicate detection.
func makeNewsKey(title, description string) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(title + description)))
	return hex.EncodeToString(h.Sum(nil))
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "to": true, "in": true,
	"on": true, "for": true, "and": true, "is": true, "as": true, "at": true,
	"ve": true, "bir": true, "ile": true, "bu": true, "için": true,
}

// makeSimilarityKey is host|first significant title words|6h window. Two
// reposts of one story by the same site within a window collapse to one key.
func makeSimilarityKey(item *rss.FeedItem, now time.Time) string {
	const (
		window   = 6 * time.Hour
		maxWords = 6
	)

	host := "unknown"
	if u, err := url.Parse(item.Link); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}

	words := strings.Fields(normalize(item.Title + " " + item.Description))
	significant := make([]string, 0, maxWords)
	for _, w := range words {
		if len(significant) >= maxWords {
			break
		}
		if stopWords[w] || utf8.RuneCountInString(w) <= 2 {
			continue
		}
		significant = append(significant, w)
	}
	if len(significant) == 0 {
		significant = words[:min(len(words), maxWords)]
	}

	t := now
	if item.Published != nil {
		t = *item.Published
	}
	return fmt.Sprintf("%s|%s|%d", host, strings.Join(significant, "_"), t.Truncate(window).Unix())
}

func normalize(s string) string {
	s = tagPattern.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, s)
}
