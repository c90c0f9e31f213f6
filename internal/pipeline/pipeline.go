// Package pipeline wires the scorer, caches, feeds and gallery into one service.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/verity/internal/cache"
	"github.com/ppiankov/verity/internal/extract"
	"github.com/ppiankov/verity/internal/facts"
	"github.com/ppiankov/verity/internal/feed"
	"github.com/ppiankov/verity/internal/gallery"
	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/newsapi"
	"github.com/ppiankov/verity/internal/process"
	"github.com/ppiankov/verity/internal/score"
	"github.com/ppiankov/verity/internal/signal"
	"github.com/ppiankov/verity/internal/util"
	"github.com/ppiankov/verity/internal/worker"
)

// ErrEmptyClaim is the only evaluation error surfaced to callers
var ErrEmptyClaim = errors.New("claim text is empty")

// Pipeline orchestrates claim evaluation and the news gallery
type Pipeline struct {
	cfg       model.Config
	logger    *slog.Logger
	scorer    *score.Scorer
	memo      *cache.Memo[model.ScoreBreakdown] // nil when caching is disabled
	processor *process.Processor
	scheduler *feed.Scheduler
	store     *gallery.Store
	feedCache cache.Cache
	fetcher   *feed.Fetcher
	limiter   *worker.Limiter
}

type options struct {
	signals  []signal.Provider
	feeds    []feed.Provider
	registry prometheus.Registerer
}

// Option customizes how a Pipeline is built
type Option func(*options)

// WithSignalProviders replaces the configured signal providers
func WithSignalProviders(providers ...signal.Provider) Option {
	return func(o *options) { o.signals = providers }
}

// WithFeedProviders replaces the configured feed providers
func WithFeedProviders(providers ...feed.Provider) Option {
	return func(o *options) { o.feeds = providers }
}

// WithRegistry sets where the memo collector is registered. Defaults to the global registry; nil skips registration.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New builds a pipeline from configuration. Background gallery refreshes derive from ctx.
func New(ctx context.Context, cfg model.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := signal.NewHTTPClient(cfg.HTTP)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	for host, rps := range cfg.RateLimiting.Hosts {
		limiter.SetDomainRate(host, rps, 0)
	}
	news := newsapi.NewClient(cfg.Providers.NewsAPIKey, cfg.Providers.NewsAPIBaseURL, httpClient, limiter, cfg.HTTP.UserAgent)

	if o.signals == nil {
		o.signals = buildSignalProviders(cfg, httpClient, news, logger)
	}

	p := &Pipeline{
		cfg:       cfg,
		logger:    logger,
		feedCache: newFeedCache(cfg.Cache),
		limiter:   limiter,
	}

	p.scorer = score.NewScorer(facts.NewTable(cfg.Facts), o.signals,
		score.WithWeights(cfg.Scoring.Weights),
		score.WithDamping(cfg.Scoring.Damping),
		score.WithFallbackConfidence(cfg.Scoring.FallbackConfidence),
		score.WithProviderTimeout(cfg.Scoring.ProviderTimeout),
		score.WithLogger(logger),
	)

	if cfg.Cache.Enabled {
		p.memo = cache.NewMemo[model.ScoreBreakdown](cfg.Cache.MemoTTL, cfg.Cache.MemoCapacity)
		if o.registry != nil {
			if err := metrics.RegisterMemo(o.registry, "claims", p.memo.Stats); err != nil {
				return nil, fmt.Errorf("register memo metrics: %w", err)
			}
		}
	}

	p.fetcher = feed.NewFetcher(cfg.HTTP.Timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBodyBytes, cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy).WithLimiter(limiter)
	p.fetcher.WithRobots(util.NewRobotsChecker(p.fetcher.HTTPClient(), cfg.HTTP.UserAgent, time.Hour))

	if o.feeds == nil {
		o.feeds = []feed.Provider{
			feed.NewNewsAPIProvider(news, p.feedCache, cfg.Cache.FeedTTL),
			feed.NewRSSProvider(p.fetcher, p.feedCache, cfg.Cache.FeedTTL),
		}
	}

	p.scheduler = feed.NewScheduler(o.feeds, feed.SchedulerConfig{
		Workers:       cfg.Concurrency.FetchWorkers,
		GroupTimeout:  cfg.Gallery.GroupTimeout,
		ItemsPerGroup: cfg.Gallery.ItemsPerGroup,
		LookbackDays:  cfg.Gallery.LookbackDays,
	}, logger)

	classifier := process.NewClassifier(cfg.Sources.Topics, cfg.Sources.SensationalWords)
	p.processor = process.NewProcessor(p, classifier, cfg.Concurrency.ProcessWorkers, cfg.Gallery.PartialEvery, logger)

	p.store = gallery.New(ctx, p.refresh, gallery.Config{
		TTL:             cfg.Gallery.TTL,
		RefreshTimeout:  cfg.Gallery.RefreshTimeout,
		MaxItems:        cfg.Gallery.MaxItems,
		DefaultPageSize: cfg.Gallery.DefaultPageSize,
	}, logger)

	return p, nil
}

// buildSignalProviders creates one provider per signal kind. Missing credentials yield
// providers that report config_missing without touching the network.
func buildSignalProviders(cfg model.Config, httpClient *http.Client, news *newsapi.Client, logger *slog.Logger) []signal.Provider {
	table := signal.NewCredibilityTable(cfg.Sources.Reliable)

	var judge signal.Provider
	backend, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		logger.Warn("AI judge disabled", "error", err)
		judge = signal.NewDisabled(model.SignalAIJudge)
	} else {
		judge = signal.NewJudgeProvider(backend, cfg.LLM.Model, cfg.LLM.MaxTokens)
	}

	return []signal.Provider{
		signal.NewClassifierProvider(cfg.Providers.ClassifierURL, cfg.Providers.ClassifierAPIKey, httpClient),
		signal.NewFactCheckProvider(cfg.Providers.FactCheckAPIKey, cfg.Providers.FactCheckBaseURL, httpClient),
		signal.NewVerificationProvider(news, table),
		signal.NewCredibilityProvider(table),
		judge,
	}
}

func newFeedCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return cache.Nop{}
	}
	if cfg.Dir != "" {
		return cache.NewMemoryDiskCache(cfg.FeedTTL, cfg.Dir)
	}
	return cache.NewMemoryCache(cfg.FeedTTL, 2*cfg.FeedTTL)
}

// Evaluate scores a claim. Provider failures never surface; only an empty claim is an error.
func (p *Pipeline) Evaluate(ctx context.Context, claim model.Claim) (model.Verdict, error) {
	if claim.IsEmpty() {
		metrics.Evaluations.WithLabelValues("rejected").Inc()
		return model.Verdict{}, ErrEmptyClaim
	}

	if p.memo == nil {
		return model.NewVerdict(claim, p.scorer.Score(ctx, claim)), nil
	}

	key := claim.Fingerprint(p.cfg.Cache.FingerprintLength)
	var uncached *model.ScoreBreakdown
	breakdown, err := p.memo.GetOrCompute(key, func() (model.ScoreBreakdown, error) {
		b := p.scorer.Score(ctx, claim)
		// Signals from a cancelled call are fallbacks, not answers; keep them out of the memo
		if ctxErr := ctx.Err(); ctxErr != nil {
			uncached = &b
			return b, ctxErr
		}
		return b, nil
	})
	if err != nil {
		if uncached != nil {
			return model.NewVerdict(claim, *uncached), nil
		}
		// Joined a flight whose owner was cancelled
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return model.NewVerdict(claim, p.scorer.Score(ctx, claim)), nil
		}
		return model.Verdict{}, fmt.Errorf("evaluate claim: %w", err)
	}
	return model.NewVerdict(claim, breakdown), nil
}

// EvaluateURL fetches an article page and evaluates its headline and lead
func (p *Pipeline) EvaluateURL(ctx context.Context, pageURL string) (model.Verdict, error) {
	result, err := p.fetcher.FetchWithRetry(ctx, pageURL)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("fetch article: %w", err)
	}

	article, err := extract.ExtractArticle(result.Body, result.FinalURL)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("extract article: %w", err)
	}
	return p.Evaluate(ctx, article.Claim())
}

// Gallery returns the news gallery store
func (p *Pipeline) Gallery() *gallery.Store {
	return p.store
}

// Config returns the configuration the pipeline was built with
func (p *Pipeline) Config() model.Config {
	return p.cfg
}

// MemoStats reports claim memo counters. The zero value is returned when caching is disabled.
func (p *Pipeline) MemoStats() cache.MemoStats {
	if p.memo == nil {
		return cache.MemoStats{}
	}
	return p.memo.Stats()
}

// Close waits for in-flight refreshes and drops cached state
func (p *Pipeline) Close() error {
	p.store.Wait()
	if p.memo != nil {
		p.memo.Purge()
	}
	return p.feedCache.Clear()
}

// refresh is the gallery refresh cycle: fetch every source group, then score and rank
func (p *Pipeline) refresh(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
	raws, err := p.scheduler.FetchAll(ctx, p.cfg.Sources.Groups)
	if err != nil {
		return nil, fmt.Errorf("fetch feeds: %w", err)
	}
	items := p.processor.Process(ctx, raws, publish)
	// Items left unscored by a deadline are degraded; such a run must not replace a good snapshot
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process items: %w", err)
	}
	return items, nil
}
