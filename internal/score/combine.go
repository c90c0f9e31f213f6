package score

import (
	"math"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/signal"
)

// Confidence bounds and defaults
const (
	MinConfidence             = 0.1
	MaxConfidence             = 1.0
	DefaultDamping            = 0.5
	DefaultFallbackConfidence = 0.3
)

// Combine merges per-signal results into a breakdown. It is a pure function.
//
// finalScore = sum(weight_i * value_i) over every signal kind, with unavailable
// or missing signals contributing their fallback value.
// confidence = clamp(auth * (1 - damping*stddev(values)), 0.1, 1.0).
func Combine(results []model.SignalResult, auth float64, weights model.Weights, damping float64) model.ScoreBreakdown {
	if weights.Validate() != nil {
		weights = model.DefaultWeights()
	}
	if damping < 0 || math.IsNaN(damping) {
		damping = DefaultDamping
	}

	byKind := make(map[model.SignalKind]model.SignalResult, len(results))
	for _, r := range results {
		if _, seen := byKind[r.Kind]; !seen {
			byKind[r.Kind] = r
		}
	}

	b := model.ScoreBreakdown{
		Signals: make(map[model.SignalKind]float64, len(model.AllSignals)),
		Results: make(map[model.SignalKind]model.SignalResult, len(model.AllSignals)),
	}

	values := make([]float64, 0, len(model.AllSignals))
	final := 0.0
	for _, kind := range model.AllSignals {
		r, ok := byKind[kind]
		if !ok {
			r = model.SignalResult{Kind: kind, ErrorKind: model.ErrorConfigMissing}
		}
		if !r.Available || math.IsNaN(r.Value) {
			r.Available = false
			r.Value = signal.Fallback(kind)
			if r.ErrorKind == model.ErrorNone {
				r.ErrorKind = model.ErrorUnavailable
			}
		}
		r.Value = clamp(r.Value, 0, 1)

		b.Results[kind] = r
		b.Signals[kind] = r.Value
		values = append(values, r.Value)
		final += weights.For(kind) * r.Value
	}

	b.FinalScore = round(clamp(final, 0, 1))
	b.Confidence = round(clamp(clamp(auth, 0, 1)*(1-damping*stddev(values)), MinConfidence, MaxConfidence))
	return b
}

// AuthoritativeConfidence returns the AI judge's self-reported confidence, or
// fallback when the judge did not answer or reported no confidence
func AuthoritativeConfidence(results []model.SignalResult, fallback float64) float64 {
	for _, r := range results {
		if r.Kind == model.SignalAIJudge && r.Available && r.Confidence > 0 {
			return r.Confidence
		}
	}
	return fallback
}

// stddev is the population standard deviation
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round trims floating-point noise so equal inputs give byte-identical output
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
