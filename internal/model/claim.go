package model

import "strings"

// DefaultFingerprintLength is the number of leading runes used as a claim's cache key
const DefaultFingerprintLength = 200

// Claim represents a unit of text submitted for a trustworthiness verdict
type Claim struct {
	Text   string `json:"text"`             // The claim text itself
	Source string `json:"source,omitempty"` // Publisher name, if known (e.g., "The Hindu")
	URL    string `json:"url,omitempty"`    // Where the claim was published, if known
}

// IsEmpty reports whether the claim carries no text after trimming whitespace
func (c Claim) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Fingerprint returns the first n runes of the claim text, case preserved.
// Two claims sharing the prefix share a cache entry.
func (c Claim) Fingerprint(n int) string {
	if n <= 0 {
		n = DefaultFingerprintLength
	}
	runes := []rune(c.Text)
	if len(runes) <= n {
		return c.Text
	}
	return string(runes[:n])
}

// Verdict is the result of evaluating a single claim
type Verdict struct {
	Claim      Claim          `json:"claim"`
	FinalScore float64        `json:"final_score"` // Weighted trust score in [0,1]
	Confidence float64        `json:"confidence"`  // In [0.1,1.0]
	IsReal     bool           `json:"is_real"`     // FinalScore > 0.5
	Breakdown  ScoreBreakdown `json:"breakdown"`
}

// NewVerdict packages a breakdown into a verdict for the given claim
func NewVerdict(claim Claim, b ScoreBreakdown) Verdict {
	return Verdict{
		Claim:      claim,
		FinalScore: b.FinalScore,
		Confidence: b.Confidence,
		IsReal:     IsRealScore(b.FinalScore),
		Breakdown:  b,
	}
}

// IsRealScore applies the real/fake threshold to a final score
func IsRealScore(score float64) bool {
	return score > 0.5
}
