package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// DefaultFactCheckBaseURL is the Google Fact Check Tools API root
const DefaultFactCheckBaseURL = "https://factchecktools.googleapis.com/v1alpha1"

// Values reported by the fact-check signal when ratings cannot decide
const (
	factCheckNoMatch    = 0.4 // No published fact-check mentions the claim
	factCheckUnratedHit = 0.9 // Fact-checks exist but none carries a recognizable rating
)

// queryRunes bounds the query sent upstream
const queryRunes = 200

// Ordered so that compound ratings ("mostly false") win over their parts
var ratingTable = []struct {
	phrase string
	value  float64
}{
	{"mostly false", 0.25},
	{"half true", 0.5},
	{"mostly true", 0.75},
	{"not true", 0.1},
	{"untrue", 0.1},
	{"misleading", 0.3},
	{"mixture", 0.5},
	{"mixed", 0.5},
	{"unproven", 0.4},
	{"pants on fire", 0.0},
	{"false", 0.1},
	{"fake", 0.1},
	{"incorrect", 0.1},
	{"inaccurate", 0.1},
	{"wrong", 0.1},
	{"hoax", 0.05},
	{"true", 0.9},
	{"correct", 0.9},
	{"accurate", 0.9},
}

// FactCheckProvider searches published fact-checks for the claim
type FactCheckProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*FactCheckProvider)(nil)

type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// NewFactCheckProvider creates a fact-check client. An empty API key disables it.
func NewFactCheckProvider(apiKey, baseURL string, httpClient *http.Client) *FactCheckProvider {
	if baseURL == "" {
		baseURL = DefaultFactCheckBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &FactCheckProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Kind returns the fact-check signal kind
func (p *FactCheckProvider) Kind() model.SignalKind {
	return model.SignalFactCheck
}

// Evaluate looks up fact-checks matching the leading part of the claim
func (p *FactCheckProvider) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	if p.apiKey == "" {
		return Reading{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("query", claim.Fingerprint(queryRunes))
	q.Set("key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/claims:search?"+q.Encode(), nil)
	if err != nil {
		return Reading{}, fmt.Errorf("new request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out factCheckResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 2<<20)).Decode(&out); err != nil {
		return Reading{}, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}

	if len(out.Claims) == 0 {
		return Reading{Value: factCheckNoMatch, Detail: "no published fact-checks"}, nil
	}

	sum, rated := 0.0, 0
	for _, c := range out.Claims {
		for _, review := range c.ClaimReview {
			if v, ok := RatingValue(review.TextualRating); ok {
				sum += v
				rated++
			}
		}
	}

	if rated == 0 {
		return Reading{
			Value:   factCheckUnratedHit,
			Detail:  fmt.Sprintf("%d fact-checks, none rated", len(out.Claims)),
			Matches: len(out.Claims),
		}, nil
	}

	return Reading{
		Value:   sum / float64(rated),
		Detail:  fmt.Sprintf("%d fact-checks, %d rated", len(out.Claims), rated),
		Matches: len(out.Claims),
	}, nil
}

// RatingValue maps a publisher's textual rating onto [0,1]
func RatingValue(rating string) (float64, bool) {
	r := strings.ToLower(strings.TrimSpace(rating))
	if r == "" {
		return 0, false
	}
	for _, entry := range ratingTable {
		if strings.Contains(r, entry.phrase) {
			return entry.value, true
		}
	}
	return 0, false
}
