package score

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/verity/internal/facts"
	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/signal"
)

// DefaultProviderTimeout bounds each provider call
const DefaultProviderTimeout = 5 * time.Second

// Scorer merges the fact table and the signal providers into one breakdown
type Scorer struct {
	facts              *facts.Table
	providers          map[model.SignalKind]signal.Provider
	weights            model.Weights
	damping            float64
	fallbackConfidence float64
	timeout            time.Duration
	logger             *slog.Logger
}

// Option configures a Scorer
type Option func(*Scorer)

// WithWeights sets the weight vector. An invalid vector is replaced by the default.
func WithWeights(w model.Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithDamping sets k in the confidence formula
func WithDamping(k float64) Option {
	return func(s *Scorer) { s.damping = k }
}

// WithFallbackConfidence sets the confidence anchor used when the AI judge is unavailable
func WithFallbackConfidence(c float64) Option {
	return func(s *Scorer) { s.fallbackConfidence = c }
}

// WithProviderTimeout sets the per-provider deadline
func WithProviderTimeout(d time.Duration) Option {
	return func(s *Scorer) { s.timeout = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) { s.logger = l }
}

// NewScorer creates a scorer. table may be nil. When two providers share a kind the first wins.
func NewScorer(table *facts.Table, providers []signal.Provider, opts ...Option) *Scorer {
	s := &Scorer{
		facts:              table,
		providers:          make(map[model.SignalKind]signal.Provider, len(providers)),
		weights:            model.DefaultWeights(),
		damping:            DefaultDamping,
		fallbackConfidence: DefaultFallbackConfidence,
		timeout:            DefaultProviderTimeout,
		logger:             slog.Default(),
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, exists := s.providers[p.Kind()]; !exists {
			s.providers[p.Kind()] = p
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.weights.Validate(); err != nil {
		s.logger.Warn("invalid signal weights, using defaults", "error", err)
		s.weights = model.DefaultWeights()
	}
	if s.timeout <= 0 {
		s.timeout = DefaultProviderTimeout
	}
	return s
}

// Score evaluates a claim. It never fails: provider errors become fallback values.
func (s *Scorer) Score(ctx context.Context, claim model.Claim) model.ScoreBreakdown {
	// 1. Fact table short-circuit
	if s.facts != nil {
		if matched, verdict := s.facts.Lookup(claim.Text); matched {
			metrics.Evaluations.WithLabelValues("basic_fact").Inc()
			return model.ScoreBreakdown{
				Signals:     map[model.SignalKind]float64{},
				FinalScore:  verdict,
				Confidence:  facts.BasicFactConfidence,
				IsBasicFact: true,
			}
		}
	}

	// 2. Every provider concurrently, each under its own deadline
	results := make([]model.SignalResult, len(model.AllSignals))
	readings := make([]signal.Reading, len(model.AllSignals))
	var wg sync.WaitGroup
	for i, kind := range model.AllSignals {
		provider, ok := s.providers[kind]
		if !ok {
			results[i] = model.SignalResult{Kind: kind, Value: signal.Fallback(kind), ErrorKind: model.ErrorConfigMissing}
			continue
		}
		wg.Add(1)
		go func(i int, p signal.Provider) {
			defer wg.Done()
			results[i], readings[i] = s.evaluate(ctx, p, claim)
		}(i, provider)
	}
	wg.Wait()

	// 3-5. Weighted sum, confidence, breakdown
	b := Combine(results, AuthoritativeConfidence(results, s.fallbackConfidence), s.weights, s.damping)
	for i, kind := range model.AllSignals {
		if kind == model.SignalFactCheck && results[i].Available {
			b.ClaimsFound = readings[i].Matches
		}
	}

	metrics.Evaluations.WithLabelValues("scored").Inc()
	s.logger.Debug("claim scored",
		"score", b.FinalScore,
		"confidence", b.Confidence,
		"unavailable", b.Unavailable())
	return b
}

// evaluate runs one provider, converting errors, timeouts and panics into a fallback result.
// A provider that ignores its context is abandoned at the deadline.
func (s *Scorer) evaluate(ctx context.Context, p signal.Provider, claim model.Claim) (model.SignalResult, signal.Reading) {
	kind := p.Kind()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type outcome struct {
		reading signal.Reading
		err     error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		reading, err := p.Evaluate(ctx, claim)
		done <- outcome{reading: reading, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}
	metrics.SignalDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if out.err != nil {
		errKind := signal.Classify(out.err)
		metrics.SignalResults.WithLabelValues(string(kind), string(errKind)).Inc()
		if errKind != model.ErrorConfigMissing {
			s.logger.Debug("signal unavailable", "signal", kind, "error_kind", errKind, "error", out.err)
		}
		return model.SignalResult{
			Kind:      kind,
			Value:     signal.Fallback(kind),
			ErrorKind: errKind,
			Detail:    out.err.Error(),
		}, signal.Reading{}
	}

	metrics.SignalResults.WithLabelValues(string(kind), "none").Inc()
	result := model.SignalResult{
		Kind:      kind,
		Value:     clamp(out.reading.Value, 0, 1),
		Available: true,
		Detail:    out.reading.Detail,
	}
	if out.reading.HasConfidence {
		result.Confidence = clamp(out.reading.Confidence, 0, 1)
	}
	return result, out.reading
}
