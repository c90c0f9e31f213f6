package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidJudgment is returned when a model reply cannot be parsed into a judgment
var ErrInvalidJudgment = errors.New("invalid judgment")

// Provider defines the interface for LLM judge backends
type Provider interface {
	// Name returns the provider name
	Name() string

	// Judge asks the model for a REAL/FAKE verdict on a claim
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// JudgeRequest contains the input for a judgment
type JudgeRequest struct {
	// Claim is the statement to verify
	Claim string

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Source is a reference the model cited for its verdict
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Judgment is the parsed model verdict
type Judgment struct {
	Verdict    string   `json:"verdict"`     // REAL or FAKE
	Confidence float64  `json:"confidence"`  // 0.0 to 1.0
	Evidence   string   `json:"evidence"`    // Model's explanation
	TruthScore float64  `json:"truth_score"` // 0.0 (false) to 1.0 (true)
	Sources    []Source `json:"sources"`

	// Model is the model that generated the response
	Model string `json:"-"`

	// TokensUsed tracks token consumption
	TokensUsed int `json:"-"`
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "gemini", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 500,
	}
}

const systemPrompt = "You are an expert fact-checker. You answer only with the requested JSON object."

// BuildPrompt constructs the default verification prompt for a claim
func BuildPrompt(claim string) string {
	return fmt.Sprintf(`Task: Carefully analyze the following statement and determine if it is REAL or FAKE news.

STATEMENT TO VERIFY: %q

Analysis Instructions:
- Evaluate the entire statement as a single claim
- Determine if the news/claim is REAL or FAKE
- Provide specific evidence supporting your assessment
- List reliable sources that verify or contradict the claim

Format your response as a JSON object with this structure:
{
  "verdict": "REAL" or "FAKE",
  "confidence": 0.0 to 1.0,
  "evidence": "explanation of your assessment",
  "truth_score": 0.0 (completely false) to 1.0 (completely true),
  "sources": [{"name": "publication or organization", "url": "direct link"}]
}

Express confidence based on the quality and quantity of available sources.
Your response must ONLY contain the JSON object with no other text.`, claim)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ParseJudgment extracts a judgment from a model reply. The reply may wrap the
// JSON object in a markdown fence or surround it with prose.
func ParseJudgment(text string) (*Judgment, error) {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrInvalidJudgment)
	}

	var j Judgment
	if err := json.Unmarshal([]byte(body[start:end+1]), &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJudgment, err)
	}

	j.Verdict = strings.ToUpper(strings.TrimSpace(j.Verdict))
	if j.Verdict != "REAL" && j.Verdict != "FAKE" {
		return nil, fmt.Errorf("%w: unknown verdict %q", ErrInvalidJudgment, j.Verdict)
	}

	j.Confidence = clamp01(j.Confidence)
	j.TruthScore = clamp01(j.TruthScore)

	return &j, nil
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

// resolveRequest fills model, prompt and token defaults for a request
func resolveRequest(req JudgeRequest, cfg Config, defaultModel string) (prompt, model string, maxTokens int) {
	prompt = req.Prompt
	if prompt == "" {
		prompt = BuildPrompt(req.Claim)
	}

	model = req.Model
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens = req.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = 500
	}

	return prompt, model, maxTokens
}
