package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/newsapi"
)

// NewsAPIProviderName is the provider identifier used in source group configuration
const NewsAPIProviderName = "newsapi"

const defaultNewsAPILimit = 5

// Placeholder title NewsAPI returns for retracted articles
const removedTitle = "[Removed]"

// NewsAPIProvider fetches a source group as a NewsAPI domain search
type NewsAPIProvider struct {
	client   *newsapi.Client
	cache    cache.Cache
	cacheTTL time.Duration
	language string
}

var _ Provider = (*NewsAPIProvider)(nil)

// NewNewsAPIProvider creates the provider. respCache may be nil.
func NewNewsAPIProvider(client *newsapi.Client, respCache cache.Cache, cacheTTL time.Duration) *NewsAPIProvider {
	if respCache == nil {
		respCache = cache.Nop{}
	}
	return &NewsAPIProvider{
		client:   client,
		cache:    respCache,
		cacheTTL: cacheTTL,
		language: "en",
	}
}

// Name returns the provider identifier
func (p *NewsAPIProvider) Name() string {
	return NewsAPIProviderName
}

// Fetch returns the newest articles published by the group's domains
func (p *NewsAPIProvider) Fetch(ctx context.Context, group model.SourceGroup, params Params) ([]model.RawItem, error) {
	if len(group.Domains) == 0 {
		return nil, fmt.Errorf("group %s has no domains", group.Name)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultNewsAPILimit
	}

	var since string
	if !params.Since.IsZero() {
		since = params.Since.UTC().Format("2006-01-02")
	}
	key := cache.CacheKey("newsapi", strings.Join(group.Domains, ","), since, strconv.Itoa(limit))
	if items, ok := cache.GetJSON[[]model.RawItem](p.cache, key); ok {
		return items, nil
	}

	articles, err := p.client.Everything(ctx, newsapi.EverythingParams{
		Domains:  group.Domains,
		Language: p.language,
		SortBy:   "publishedAt",
		From:     params.Since,
		PageSize: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("newsapi %s: %w", group.Name, err)
	}

	items := make([]model.RawItem, 0, len(articles))
	for _, a := range articles {
		if a.Title == removedTitle {
			continue
		}
		items = append(items, model.RawItem{
			Title:       strings.TrimSpace(a.Title),
			Description: StripHTML(a.Description),
			URL:         a.URL,
			Image:       a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	_ = cache.SetJSON(p.cache, key, items, p.cacheTTL)
	return items, nil
}
