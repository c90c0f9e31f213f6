package model

// SignalKind identifies one independent scoring input
type SignalKind string

const (
	SignalClassifier        SignalKind = "classifier"         // Trained text classifier probability
	SignalFactCheck         SignalKind = "fact_check"         // Published fact-check lookup
	SignalVerification      SignalKind = "verification"       // Cross-reference against reliable outlets
	SignalSourceCredibility SignalKind = "source_credibility" // Reputation of the publishing source
	SignalAIJudge           SignalKind = "ai_judge"           // LLM verdict
)

// AllSignals lists every signal kind in weight-vector order
var AllSignals = []SignalKind{
	SignalClassifier,
	SignalFactCheck,
	SignalVerification,
	SignalSourceCredibility,
	SignalAIJudge,
}

// ErrorKind classifies why a signal could not be produced
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorUnavailable     ErrorKind = "unavailable"      // Network, HTTP or auth failure
	ErrorTimeout         ErrorKind = "timeout"          // Provider exceeded its deadline
	ErrorConfigMissing   ErrorKind = "config_missing"   // Provider disabled for lack of credentials
	ErrorInvalidResponse ErrorKind = "invalid_response" // Provider answered with something unusable
)

// SignalResult is the outcome of asking one provider about a claim
type SignalResult struct {
	Kind       SignalKind `json:"kind"`
	Value      float64    `json:"value"`                // In [0,1]; the fallback when unavailable
	Available  bool       `json:"available"`            // False when Value is a fallback
	ErrorKind  ErrorKind  `json:"error_kind,omitempty"` // Why the provider failed
	Confidence float64    `json:"confidence,omitempty"` // Self-reported confidence, if the provider has one
	Detail     string     `json:"detail,omitempty"`     // Short human-readable explanation
}

// ScoreBreakdown is the full, immutable result of one claim evaluation
type ScoreBreakdown struct {
	Signals     map[SignalKind]float64      `json:"signals"`           // Per-signal values used in the weighted sum
	Results     map[SignalKind]SignalResult `json:"results,omitempty"` // Per-signal provenance
	FinalScore  float64                     `json:"final_score"`
	Confidence  float64                     `json:"confidence"`
	IsBasicFact bool                        `json:"is_basic_fact"`
	ClaimsFound int                         `json:"claims_found"` // Fact-check matches, when the provider reports them
}

// Unavailable returns the number of signals that fell back to their default value
func (b ScoreBreakdown) Unavailable() int {
	count := 0
	for _, r := range b.Results {
		if !r.Available {
			count++
		}
	}
	return count
}
