// Package signal implements the independent scoring inputs consumed by the composite scorer.
package signal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/util"
)

// FallbackValue is the neutral value substituted for any unavailable signal
const FallbackValue = 0.5

var (
	// ErrNotConfigured marks a provider that was built without the credentials or endpoint it needs.
	// Such a provider never makes a network call.
	ErrNotConfigured = errors.New("signal provider not configured")

	// ErrInvalidResponse is returned when an upstream answers with something unusable
	ErrInvalidResponse = errors.New("invalid provider response")
)

// Provider produces one signal for a claim
type Provider interface {
	// Kind returns the signal this provider produces
	Kind() model.SignalKind

	// Evaluate scores the claim. Implementations must honor ctx cancellation.
	Evaluate(ctx context.Context, claim model.Claim) (Reading, error)
}

// Reading is a successful provider answer
type Reading struct {
	Value         float64 // In [0,1]
	Confidence    float64 // Self-reported confidence, meaningful when HasConfidence is set
	HasConfidence bool
	Detail        string
	Matches       int // Upstream matches backing the value (e.g. published fact-checks)
}

// Fallback returns the documented fallback value for a signal kind
func Fallback(kind model.SignalKind) float64 {
	return FallbackValue
}

// Classify maps a provider error onto the error taxonomy
func Classify(err error) model.ErrorKind {
	if err == nil {
		return model.ErrorNone
	}
	if errors.Is(err, ErrNotConfigured) {
		return model.ErrorConfigMissing
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.ErrorTimeout
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, llm.ErrInvalidJudgment) {
		return model.ErrorInvalidResponse
	}
	return model.ErrorUnavailable
}

// Disabled is a provider that always reports missing configuration
type Disabled struct {
	kind model.SignalKind
}

// NewDisabled creates a permanently unavailable provider for kind
func NewDisabled(kind model.SignalKind) *Disabled {
	return &Disabled{kind: kind}
}

// Kind returns the signal kind
func (d *Disabled) Kind() model.SignalKind {
	return d.kind
}

// Evaluate always fails with ErrNotConfigured
func (d *Disabled) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	return Reading{}, ErrNotConfigured
}

// NewHTTPClient builds the HTTP client shared by the network-backed providers
func NewHTTPClient(cfg model.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
