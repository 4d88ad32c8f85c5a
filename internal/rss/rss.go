package rss

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FeedsConfig is the YAML feeds file:
//
//	feeds:
//	  - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// FeedItem is the part of a feed entry the pipeline reads.
type FeedItem struct {
	Title       string
	Description string
	Content     string
	Link        string
	Source      string
	Published   *time.Time
}

// LoadFeeds reads the feed URL list from a YAML file.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode feeds config %s: %w", path, err)
	}

	urls := cfg.Feeds[:0]
	for _, u := range cfg.Feeds {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	log     *zap.Logger
}

func NewFetcher(timeout time.Duration, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{parser: gofeed.NewParser(), timeout: timeout, log: log.Named("rss")}
}

// FetchAll downloads and parses every feed. A feed that fails is logged and
// skipped.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []FeedItem {
	var items []FeedItem
	ok := 0

	for _, url := range urls {
		feed, err := f.fetch(ctx, url)
		if err != nil {
			f.log.Warn("feed failed", zap.String("url", url), zap.Error(err))
			continue
		}
		items = append(items, convert(feed)...)
		ok++
		f.log.Debug("feed loaded", zap.String("url", url), zap.Int("items", len(feed.Items)))
	}

	f.log.Info("feeds processed", zap.Int("ok", ok), zap.Int("total", len(urls)), zap.Int("items", len(items)))
	return items
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.parser.ParseURLWithContext(url, ctx)
}

// ParseString parses a feed document held in memory.
func ParseString(doc string) ([]FeedItem, error) {
	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return convert(feed), nil
}

func convert(feed *gofeed.Feed) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		source := feed.Title
		if it.Author != nil && source == "" {
			source = it.Author.Name
		}
		published := it.PublishedParsed
		if published == nil {
			published = it.UpdatedParsed
		}
		items = append(items, FeedItem{
			Title:       strings.TrimSpace(it.Title),
			Description: it.Description,
			Content:     it.Content,
			Link:        strings.TrimSpace(it.Link),
			Source:      source,
			Published:   published,
		})
	}
	return items
}
