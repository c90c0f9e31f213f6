package signal

import (
	"context"
	"net/url"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// DomainMatchScore is the credibility of a claim whose URL belongs to a reliable outlet
// or an official domain but whose source name is not in the table
const DomainMatchScore = 0.8

// Official suffixes treated like reliable outlets
var officialSuffixes = []string{".gov", ".gov.in", ".nic.in", ".edu", ".ac.in", ".ac.uk"}

// CredibilityTable holds publisher reputation scores. It is immutable after construction.
type CredibilityTable struct {
	byName  map[string]float64
	domains []model.ReliableSource
}

// NewCredibilityTable indexes the reliable sources. Later duplicates of a name are ignored.
func NewCredibilityTable(sources []model.ReliableSource) *CredibilityTable {
	t := &CredibilityTable{
		byName: make(map[string]float64, len(sources)),
	}
	for _, s := range sources {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name != "" {
			if _, exists := t.byName[name]; !exists {
				t.byName[name] = clamp01(s.Score)
			}
		}
		if s.Domain != "" {
			s.Domain = strings.ToLower(strings.TrimPrefix(s.Domain, "www."))
			s.Score = clamp01(s.Score)
			t.domains = append(t.domains, s)
		}
	}
	return t
}

// ByName returns the score of a publisher by display name, case-insensitively
func (t *CredibilityTable) ByName(name string) (float64, bool) {
	score, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	return score, ok
}

// ByURL returns the reliable source whose domain hosts rawURL
func (t *CredibilityTable) ByURL(rawURL string) (model.ReliableSource, bool) {
	host := hostOf(rawURL)
	if host == "" {
		return model.ReliableSource{}, false
	}
	for _, s := range t.domains {
		if host == s.Domain || strings.HasSuffix(host, "."+s.Domain) {
			return s, true
		}
	}
	return model.ReliableSource{}, false
}

// Reliability returns the table score of a publisher known by name or URL
func (t *CredibilityTable) Reliability(name, rawURL string) (float64, bool) {
	if score, ok := t.ByName(name); ok {
		return score, true
	}
	if s, ok := t.ByURL(rawURL); ok {
		return s.Score, true
	}
	return 0, false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		// Bare domains such as "bbc.co.uk/news"
		parsed, err = url.Parse("https://" + rawURL)
		if err != nil {
			return ""
		}
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func isOfficial(host string) bool {
	for _, suffix := range officialSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

// CredibilityProvider scores the claim's publisher. It never calls the network.
type CredibilityProvider struct {
	table *CredibilityTable
}

var _ Provider = (*CredibilityProvider)(nil)

// NewCredibilityProvider creates a source-credibility provider
func NewCredibilityProvider(table *CredibilityTable) *CredibilityProvider {
	if table == nil {
		table = NewCredibilityTable(nil)
	}
	return &CredibilityProvider{table: table}
}

// Kind returns the source-credibility signal kind
func (p *CredibilityProvider) Kind() model.SignalKind {
	return model.SignalSourceCredibility
}

// Evaluate looks the source name up first, then the URL's domain
func (p *CredibilityProvider) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if score, ok := p.table.ByName(claim.Source); ok {
		return Reading{Value: score, Detail: "known source " + claim.Source}, nil
	}
	if s, ok := p.table.ByURL(claim.URL); ok {
		return Reading{Value: DomainMatchScore, Detail: "reliable domain " + s.Domain}, nil
	}
	if host := hostOf(claim.URL); host != "" && isOfficial(host) {
		return Reading{Value: DomainMatchScore, Detail: "official domain " + host}, nil
	}
	return Reading{Value: FallbackValue, Detail: "unknown source"}, nil
}
