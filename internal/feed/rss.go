package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/model"
)

// RSSProviderName is the provider identifier used in source group configuration
const RSSProviderName = "rss"

// RSSProvider fetches a source group from its RSS or Atom feeds
type RSSProvider struct {
	fetcher  *Fetcher
	cache    cache.Cache
	cacheTTL time.Duration
}

var _ Provider = (*RSSProvider)(nil)

// NewRSSProvider creates the provider. respCache may be nil.
func NewRSSProvider(fetcher *Fetcher, respCache cache.Cache, cacheTTL time.Duration) *RSSProvider {
	if respCache == nil {
		respCache = cache.Nop{}
	}
	return &RSSProvider{
		fetcher:  fetcher,
		cache:    respCache,
		cacheTTL: cacheTTL,
	}
}

// Name returns the provider identifier
func (p *RSSProvider) Name() string {
	return RSSProviderName
}

// Fetch reads every feed of the group and returns the newest items.
// A feed that fails is skipped; the group fails only when all feeds do.
func (p *RSSProvider) Fetch(ctx context.Context, group model.SourceGroup, params Params) ([]model.RawItem, error) {
	if len(group.Feeds) == 0 {
		return nil, fmt.Errorf("group %s has no feeds", group.Name)
	}

	var (
		items []model.RawItem
		errs  []error
	)
	for _, feedURL := range group.Feeds {
		feedItems, err := p.fetchFeed(ctx, feedURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", feedURL, err))
			continue
		}
		items = append(items, feedItems...)
	}
	if len(errs) == len(group.Feeds) {
		return nil, errors.Join(errs...)
	}

	if !params.Since.IsZero() {
		kept := items[:0]
		for _, item := range items {
			if item.PublishedAt.IsZero() || !item.PublishedAt.Before(params.Since) {
				kept = append(kept, item)
			}
		}
		items = kept
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if params.Limit > 0 && len(items) > params.Limit {
		items = items[:params.Limit]
	}
	return items, nil
}

func (p *RSSProvider) fetchFeed(ctx context.Context, feedURL string) ([]model.RawItem, error) {
	key := cache.CacheKey("rss", feedURL)
	if items, ok := cache.GetJSON[[]model.RawItem](p.cache, key); ok {
		return items, nil
	}

	result, err := p.fetcher.FetchWithRetry(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	items, err := ParseFeed(result.Body)
	if err != nil {
		return nil, err
	}

	_ = cache.SetJSON(p.cache, key, items, p.cacheTTL)
	return items, nil
}

// ParseFeed converts an RSS, Atom or JSON feed document into raw items
func ParseFeed(body string) ([]model.RawItem, error) {
	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := strings.TrimSpace(parsed.Title)
	items := make([]model.RawItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		description := it.Description
		if strings.TrimSpace(description) == "" {
			description = it.Content
		}

		item := model.RawItem{
			Title:       StripHTML(it.Title),
			Description: StripHTML(description),
			URL:         it.Link,
			Image:       itemImage(it),
			Source:      source,
		}
		switch {
		case it.PublishedParsed != nil:
			item.PublishedAt = it.PublishedParsed.UTC()
		case it.UpdatedParsed != nil:
			item.PublishedAt = it.UpdatedParsed.UTC()
		}
		items = append(items, item)
	}
	return items, nil
}

func itemImage(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
