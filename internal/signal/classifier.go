package signal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// ClassifierProvider asks an external text classifier for the probability that a claim is real
type ClassifierProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ Provider = (*ClassifierProvider)(nil)

type classifierRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	URL    string `json:"url,omitempty"`
}

// The service may answer with a direct probability or a label plus probability
type classifierResponse struct {
	RealProbability *float64 `json:"real_probability"`
	Label           string   `json:"label"`
	Probability     *float64 `json:"probability"`
}

// NewClassifierProvider creates a classifier client. An empty endpoint disables it.
func NewClassifierProvider(endpoint, apiKey string, httpClient *http.Client) *ClassifierProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClassifierProvider{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Kind returns the classifier signal kind
func (p *ClassifierProvider) Kind() model.SignalKind {
	return model.SignalClassifier
}

// Evaluate posts the claim text to the classifier
func (p *ClassifierProvider) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	if p.endpoint == "" {
		return Reading{}, ErrNotConfigured
	}

	body, err := json.Marshal(classifierRequest{Text: claim.Text, Source: claim.Source, URL: claim.URL})
	if err != nil {
		return Reading{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reading{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var out classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reading{}, fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}

	switch {
	case out.RealProbability != nil:
		return Reading{Value: clamp01(*out.RealProbability)}, nil
	case out.Probability != nil && out.Label != "":
		prob := clamp01(*out.Probability)
		switch strings.ToUpper(out.Label) {
		case "REAL", "TRUE":
			return Reading{Value: prob, Detail: "label " + out.Label}, nil
		case "FAKE", "FALSE":
			return Reading{Value: 1 - prob, Detail: "label " + out.Label}, nil
		}
		return Reading{}, fmt.Errorf("%w: unknown label %q", ErrInvalidResponse, out.Label)
	}
	return Reading{}, fmt.Errorf("%w: no probability in reply", ErrInvalidResponse)
}
