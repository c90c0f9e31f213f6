package model

import (
	"fmt"
	"math"
	"time"
)

// Config holds all runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Providers    ProvidersConfig    `yaml:"providers" mapstructure:"providers"`
	Gallery      GalleryConfig      `yaml:"gallery" mapstructure:"gallery"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Sources      SourcesConfig      `yaml:"sources" mapstructure:"sources"`
	Facts        []FactEntry        `yaml:"facts" mapstructure:"facts"`
}

// HTTPConfig controls outbound HTTP clients
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the claim memo and the feed response cache
type CacheConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoTTL           time.Duration `yaml:"memo_ttl" mapstructure:"memo_ttl"`
	MemoCapacity      int           `yaml:"memo_capacity" mapstructure:"memo_capacity"`
	FingerprintLength int           `yaml:"fingerprint_length" mapstructure:"fingerprint_length"`
	FeedTTL           time.Duration `yaml:"feed_ttl" mapstructure:"feed_ttl"`
	Dir               string        `yaml:"dir,omitempty" mapstructure:"dir"` // Enables the on-disk feed layer when set
}

// ConcurrencyConfig sizes the worker pools
type ConcurrencyConfig struct {
	FetchWorkers   int `yaml:"fetch_workers" mapstructure:"fetch_workers"`
	ProcessWorkers int `yaml:"process_workers" mapstructure:"process_workers"`
	BatchWorkers   int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// RateLimitingConfig bounds per-host request rates
type RateLimitingConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int                `yaml:"burst_size" mapstructure:"burst_size"`
	Hosts             map[string]float64 `yaml:"hosts,omitempty" mapstructure:"hosts"` // Per-host requests per second, overriding the default
}

// ScoringConfig controls the composite scorer
type ScoringConfig struct {
	Weights            Weights       `yaml:"weights" mapstructure:"weights"`
	Damping            float64       `yaml:"damping" mapstructure:"damping"`                         // k in conf * (1 - k*stddev)
	ProviderTimeout    time.Duration `yaml:"provider_timeout" mapstructure:"provider_timeout"`       // Per-signal deadline
	FallbackConfidence float64       `yaml:"fallback_confidence" mapstructure:"fallback_confidence"` // Used when the AI judge is unavailable
}

// Weights is the fixed weight vector applied to signal values. It must sum to 1.0.
type Weights struct {
	Classifier        float64 `yaml:"classifier" mapstructure:"classifier"`
	FactCheck         float64 `yaml:"fact_check" mapstructure:"fact_check"`
	Verification      float64 `yaml:"verification" mapstructure:"verification"`
	SourceCredibility float64 `yaml:"source_credibility" mapstructure:"source_credibility"`
	AIJudge           float64 `yaml:"ai_judge" mapstructure:"ai_judge"`
}

// DefaultWeights returns the reference weight vector
func DefaultWeights() Weights {
	return Weights{
		Classifier:        0.25,
		FactCheck:         0.20,
		Verification:      0.15,
		SourceCredibility: 0.10,
		AIJudge:           0.30,
	}
}

// For returns the weight of a signal kind
func (w Weights) For(kind SignalKind) float64 {
	switch kind {
	case SignalClassifier:
		return w.Classifier
	case SignalFactCheck:
		return w.FactCheck
	case SignalVerification:
		return w.Verification
	case SignalSourceCredibility:
		return w.SourceCredibility
	case SignalAIJudge:
		return w.AIJudge
	}
	return 0
}

// Validate checks that every weight is non-negative and the vector sums to 1.0
func (w Weights) Validate() error {
	sum := 0.0
	for _, kind := range AllSignals {
		v := w.For(kind)
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", kind, v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0, got %.4f", sum)
	}
	return nil
}

// LLMConfig configures the AI judge backend
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, or empty to disable
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ProvidersConfig configures the HTTP-backed signal providers and feeds
type ProvidersConfig struct {
	ClassifierURL    string `yaml:"classifier_url,omitempty" mapstructure:"classifier_url"`
	ClassifierAPIKey string `yaml:"-" mapstructure:"classifier_api_key"`
	FactCheckAPIKey  string `yaml:"-" mapstructure:"fact_check_api_key"`
	FactCheckBaseURL string `yaml:"fact_check_base_url" mapstructure:"fact_check_base_url"`
	NewsAPIKey       string `yaml:"-" mapstructure:"news_api_key"`
	NewsAPIBaseURL   string `yaml:"news_api_base_url" mapstructure:"news_api_base_url"`
}

// GalleryConfig controls the news gallery refresh cycle
type GalleryConfig struct {
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RefreshTimeout  time.Duration `yaml:"refresh_timeout" mapstructure:"refresh_timeout"`
	GroupTimeout    time.Duration `yaml:"group_timeout" mapstructure:"group_timeout"`
	PartialEvery    int           `yaml:"partial_every" mapstructure:"partial_every"`
	MaxItems        int           `yaml:"max_items" mapstructure:"max_items"`
	DefaultPageSize int           `yaml:"default_page_size" mapstructure:"default_page_size"`
	ItemsPerGroup   int           `yaml:"items_per_group" mapstructure:"items_per_group"`
	LookbackDays    int           `yaml:"lookback_days" mapstructure:"lookback_days"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
}

// SourcesConfig holds the immutable source tables
type SourcesConfig struct {
	Groups           []SourceGroup    `yaml:"groups" mapstructure:"groups"`
	Reliable         []ReliableSource `yaml:"reliable" mapstructure:"reliable"`
	Topics           []Topic          `yaml:"topics" mapstructure:"topics"`
	SensationalWords []string         `yaml:"sensational_words" mapstructure:"sensational_words"`
}

// SourceGroup is a named set of upstream feeds fetched as one unit
type SourceGroup struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Provider string   `yaml:"provider" mapstructure:"provider"` // newsapi or rss
	Domains  []string `yaml:"domains,omitempty" mapstructure:"domains"`
	Feeds    []string `yaml:"feeds,omitempty" mapstructure:"feeds"`
}

// ReliableSource is a publisher with a known reputation score
type ReliableSource struct {
	Name   string  `yaml:"name" mapstructure:"name"`
	Domain string  `yaml:"domain" mapstructure:"domain"`
	Score  float64 `yaml:"score" mapstructure:"score"`
}

// Topic is one entry in the ordered category taxonomy
type Topic struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	Priority bool     `yaml:"priority" mapstructure:"priority"` // Counts toward an item's priority score
}

// FactEntry is a well-known statement with a fixed verdict
type FactEntry struct {
	Text    string  `yaml:"text" mapstructure:"text"`
	Verdict float64 `yaml:"verdict" mapstructure:"verdict"`
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "Verity/0.1 (+https://github.com/ppiankov/verity)",
			MaxBodyBytes: 2_000_000,
		},
		Cache: CacheConfig{
			Enabled:           true,
			MemoTTL:           time.Hour,
			MemoCapacity:      1000,
			FingerprintLength: DefaultFingerprintLength,
			FeedTTL:           10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers:   8,
			ProcessWorkers: 8,
			BatchWorkers:   4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Scoring: ScoringConfig{
			Weights:            DefaultWeights(),
			Damping:            0.5,
			ProviderTimeout:    5 * time.Second,
			FallbackConfidence: 0.3,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 500,
		},
		Providers: ProvidersConfig{
			FactCheckBaseURL: "https://factchecktools.googleapis.com/v1alpha1",
			NewsAPIBaseURL:   "https://newsapi.org/v2",
		},
		Gallery: GalleryConfig{
			TTL:             time.Hour,
			RefreshTimeout:  5 * time.Minute,
			GroupTimeout:    8 * time.Second,
			PartialEvery:    5,
			MaxItems:        100,
			DefaultPageSize: 10,
			ItemsPerGroup:   5,
			LookbackDays:    2,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Sources: DefaultSources(),
		Facts:   DefaultFacts(),
	}
}

// DefaultSources returns the built-in source groups, reliability table and taxonomy
func DefaultSources() SourcesConfig {
	return SourcesConfig{
		Groups: []SourceGroup{
			{Name: "mainstream", Provider: "newsapi", Domains: []string{"timesofindia.indiatimes.com", "hindustantimes.com", "indianexpress.com", "ndtv.com"}},
			{Name: "business", Provider: "newsapi", Domains: []string{"economictimes.indiatimes.com", "livemint.com", "business-standard.com"}},
			{Name: "regional", Provider: "newsapi", Domains: []string{"thehindu.com", "deccanherald.com", "telegraphindia.com"}},
			{Name: "international", Provider: "newsapi", Domains: []string{"reuters.com", "apnews.com", "bbc.co.uk", "aljazeera.com"}},
		},
		Reliable: []ReliableSource{
			{Name: "the times of india", Domain: "timesofindia.indiatimes.com", Score: 0.85},
			{Name: "hindustan times", Domain: "hindustantimes.com", Score: 0.85},
			{Name: "indian express", Domain: "indianexpress.com", Score: 0.85},
			{Name: "ndtv", Domain: "ndtv.com", Score: 0.85},
			{Name: "india today", Domain: "indiatoday.in", Score: 0.85},
			{Name: "the hindu", Domain: "thehindu.com", Score: 0.90},
			{Name: "economic times", Domain: "economictimes.indiatimes.com", Score: 0.88},
			{Name: "mint", Domain: "livemint.com", Score: 0.88},
			{Name: "business standard", Domain: "business-standard.com", Score: 0.88},
			{Name: "ani news", Domain: "aninews.in", Score: 0.85},
			{Name: "pti", Domain: "ptinews.com", Score: 0.90},
			{Name: "press trust of india", Domain: "ptinews.com", Score: 0.90},
			{Name: "dd news", Domain: "ddnews.gov.in", Score: 0.85},
			{Name: "zee news", Domain: "zeenews.india.com", Score: 0.80},
			{Name: "reuters", Domain: "reuters.com", Score: 0.90},
			{Name: "associated press", Domain: "apnews.com", Score: 0.90},
			{Name: "bbc news", Domain: "bbc.co.uk", Score: 0.88},
		},
		Topics: []Topic{
			{Name: "Breaking News", Priority: true, Keywords: []string{"breaking", "urgent", "alert", "latest", "update", "just in", "developing", "emergency"}},
			{Name: "Politics", Priority: true, Keywords: []string{"election", "government", "minister", "parliament", "policy", "political", "vote", "campaign"}},
			{Name: "Economy", Priority: true, Keywords: []string{"economy", "market", "stock", "trade", "finance", "business", "gdp", "inflation"}},
			{Name: "Technology", Priority: true, Keywords: []string{"technology", "tech", "digital", "cyber", "ai", "artificial intelligence", "innovation", "startup"}},
			{Name: "Health", Keywords: []string{"health", "hospital", "vaccine", "disease", "virus", "medical", "doctor"}},
			{Name: "Sports", Keywords: []string{"cricket", "football", "match", "tournament", "olympics", "championship"}},
		},
		SensationalWords: []string{
			"shocking", "unbelievable", "you won't believe", "miracle", "exposed",
			"bombshell", "outrage", "explosive", "conspiracy", "scandal", "secret", "stunning",
		},
	}
}

// DefaultFacts returns the built-in table of well-known statements
func DefaultFacts() []FactEntry {
	return []FactEntry{
		{Text: "sun rises in the east", Verdict: 1.0},
		{Text: "the sun rises in the east", Verdict: 1.0},
		{Text: "earth revolves around the sun", Verdict: 1.0},
		{Text: "the earth revolves around the sun", Verdict: 1.0},
		{Text: "water boils at 100 degrees", Verdict: 1.0},
		{Text: "water freezes at 0 degrees", Verdict: 1.0},
		{Text: "earth is round", Verdict: 1.0},
		{Text: "the earth is round", Verdict: 1.0},
		{Text: "humans need oxygen to survive", Verdict: 1.0},
		{Text: "earth is flat", Verdict: 0.0},
		{Text: "the earth is flat", Verdict: 0.0},
		{Text: "vaccines cause autism", Verdict: 0.0},
	}
}
