package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimFingerprint(t *testing.T) {
	short := Claim{Text: "Short Claim"}
	assert.Equal(t, "Short Claim", short.Fingerprint(200))

	long := Claim{Text: strings.Repeat("a", 150) + strings.Repeat("B", 100)}
	fp := long.Fingerprint(200)
	assert.Len(t, fp, 200)
	assert.True(t, strings.HasSuffix(fp, "BBBBB"), "case must be preserved")

	// Claims that differ only after the prefix share a fingerprint
	other := Claim{Text: long.Text[:200] + "different tail"}
	assert.Equal(t, fp, other.Fingerprint(200))

	// Non-positive length falls back to the default
	assert.Equal(t, fp, long.Fingerprint(0))
}

func TestClaimFingerprint_Runes(t *testing.T) {
	c := Claim{Text: "नमस्ते दुनिया"}
	assert.Equal(t, []rune(c.Text)[:3], []rune(c.Fingerprint(3)))
}

func TestClaimIsEmpty(t *testing.T) {
	assert.True(t, Claim{Text: ""}.IsEmpty())
	assert.True(t, Claim{Text: "  \n\t"}.IsEmpty())
	assert.False(t, Claim{Text: "x"}.IsEmpty())
}

func TestNewVerdict(t *testing.T) {
	v := NewVerdict(Claim{Text: "x"}, ScoreBreakdown{FinalScore: 0.51, Confidence: 0.4})
	assert.True(t, v.IsReal)
	assert.InDelta(t, 0.4, v.Confidence, 1e-9)

	v = NewVerdict(Claim{Text: "x"}, ScoreBreakdown{FinalScore: 0.5})
	assert.False(t, v.IsReal, "0.5 is not real")
}

func TestWeightsValidate(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())

	bad := DefaultWeights()
	bad.AIJudge = 0.5
	assert.Error(t, bad.Validate())

	neg := Weights{Classifier: 1.2, FactCheck: -0.2}
	assert.Error(t, neg.Validate())
}

func TestWeightsFor(t *testing.T) {
	w := DefaultWeights()
	sum := 0.0
	for _, kind := range AllSignals {
		sum += w.For(kind)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Zero(t, w.For(SignalKind("unknown")))
}

func TestDegradedItem(t *testing.T) {
	item := DegradedItem(RawItem{Title: "t", Description: "d"})
	assert.Equal(t, DegradedScore, item.FinalScore)
	assert.Equal(t, DegradedConfidence, item.Confidence)
	assert.Equal(t, DefaultCategory, item.Category)
	assert.Zero(t, item.PriorityScore)
	assert.False(t, item.IsAlert)
	assert.True(t, item.Degraded)
}

func TestRawItemValid(t *testing.T) {
	assert.True(t, RawItem{Title: "t", Description: "d"}.Valid())
	assert.False(t, RawItem{Title: "t"}.Valid())
	assert.False(t, RawItem{Description: "d"}.Valid())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 8, cfg.Concurrency.FetchWorkers)
	assert.Equal(t, 8, cfg.Concurrency.ProcessWorkers)
	assert.Equal(t, 5, cfg.Gallery.PartialEvery)
	assert.Equal(t, 200, cfg.Cache.FingerprintLength)
	assert.Len(t, cfg.Sources.Groups, 4)
	assert.NotEmpty(t, cfg.Facts)
	require.NoError(t, cfg.Scoring.Weights.Validate())
}
