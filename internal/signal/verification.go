package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/newsapi"
)

const verificationPageSize = 10

// VerificationProvider cross-references the claim against coverage by reliable outlets
type VerificationProvider struct {
	client *newsapi.Client
	table  *CredibilityTable
}

var _ Provider = (*VerificationProvider)(nil)

// NewVerificationProvider creates a verification provider backed by NewsAPI search
func NewVerificationProvider(client *newsapi.Client, table *CredibilityTable) *VerificationProvider {
	if table == nil {
		table = NewCredibilityTable(nil)
	}
	return &VerificationProvider{client: client, table: table}
}

// Kind returns the verification signal kind
func (p *VerificationProvider) Kind() model.SignalKind {
	return model.SignalVerification
}

// Evaluate searches recent coverage and averages the reliability of matching outlets
func (p *VerificationProvider) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	if !p.client.Configured() {
		return Reading{}, ErrNotConfigured
	}

	query := strings.TrimSpace(claim.Fingerprint(queryRunes))
	articles, err := p.client.Everything(ctx, newsapi.EverythingParams{
		Query:    query,
		Language: "en",
		SortBy:   "relevancy",
		PageSize: verificationPageSize,
	})
	if err != nil {
		if errors.Is(err, newsapi.ErrNoAPIKey) {
			return Reading{}, ErrNotConfigured
		}
		return Reading{}, fmt.Errorf("search coverage: %w", err)
	}

	sum, matched := 0.0, 0
	for _, a := range articles {
		if score, ok := p.table.Reliability(a.Source.Name, a.URL); ok {
			sum += score
			matched++
		}
	}

	if matched == 0 {
		return Reading{
			Value:  FallbackValue,
			Detail: fmt.Sprintf("%d articles, none from reliable outlets", len(articles)),
		}, nil
	}

	return Reading{
		Value:   sum / float64(matched),
		Detail:  fmt.Sprintf("%d of %d articles from reliable outlets", matched, len(articles)),
		Matches: matched,
	}, nil
}
