// Package newsapi is a minimal client for the NewsAPI.org v2 REST API.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/verity/internal/worker"
)

// DefaultBaseURL is the public API root
const DefaultBaseURL = "https://newsapi.org/v2"

// ErrNoAPIKey is returned when the client was built without credentials
var ErrNoAPIKey = errors.New("newsapi: API key not configured")

// Article is one search hit
type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string    `json:"author"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	URLToImage  string    `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
}

// EverythingParams are the /everything query parameters this client uses
type EverythingParams struct {
	Query    string
	Domains  []string
	Language string
	SortBy   string // relevancy, popularity or publishedAt
	From     time.Time
	To       time.Time
	PageSize int
	Page     int
}

// Client calls NewsAPI
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *worker.Limiter
	userAgent  string
}

// NewClient creates a NewsAPI client. limiter may be nil.
func NewClient(apiKey, baseURL string, httpClient *http.Client, limiter *worker.Limiter, userAgent string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  userAgent,
	}
}

// Configured reports whether the client has an API key
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Everything searches all indexed articles
func (c *Client) Everything(ctx context.Context, p EverythingParams) ([]Article, error) {
	if !c.Configured() {
		return nil, ErrNoAPIKey
	}

	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if len(p.Domains) > 0 {
		q.Set("domains", strings.Join(p.Domains, ","))
	}
	if p.Language != "" {
		q.Set("language", p.Language)
	}
	if p.SortBy != "" {
		q.Set("sortBy", p.SortBy)
	}
	if !p.From.IsZero() {
		q.Set("from", p.From.Format("2006-01-02"))
	}
	if !p.To.IsZero() {
		q.Set("to", p.To.Format("2006-01-02"))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}

	endpoint := c.baseURL + "/everything?" + q.Encode()
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.Status != "ok" {
		return nil, fmt.Errorf("newsapi error (%d): %s %s", resp.StatusCode, out.Code, out.Message)
	}

	return out.Articles, nil
}
