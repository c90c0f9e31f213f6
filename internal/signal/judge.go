package signal

import (
	"context"
	"fmt"

	"github.com/ppiankov/verity/internal/llm"
	"github.com/ppiankov/verity/internal/model"
)

// JudgeProvider asks an LLM for a verdict. Its confidence anchors the composite confidence.
type JudgeProvider struct {
	llm       llm.Provider
	model     string
	maxTokens int
}

var _ Provider = (*JudgeProvider)(nil)

// NewJudgeProvider wraps an LLM backend. A nil backend disables the judge.
func NewJudgeProvider(backend llm.Provider, modelName string, maxTokens int) *JudgeProvider {
	return &JudgeProvider{llm: backend, model: modelName, maxTokens: maxTokens}
}

// Kind returns the AI-judge signal kind
func (p *JudgeProvider) Kind() model.SignalKind {
	return model.SignalAIJudge
}

// Evaluate returns the model's truth score with its self-reported confidence
func (p *JudgeProvider) Evaluate(ctx context.Context, claim model.Claim) (Reading, error) {
	if p.llm == nil {
		return Reading{}, ErrNotConfigured
	}

	judgment, err := p.llm.Judge(ctx, llm.JudgeRequest{
		Claim:     claim.Text,
		Model:     p.model,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return Reading{}, fmt.Errorf("%s judge: %w", p.llm.Name(), err)
	}

	return Reading{
		Value:         clamp01(judgment.TruthScore),
		Confidence:    clamp01(judgment.Confidence),
		HasConfidence: true,
		Detail:        fmt.Sprintf("%s: %s", judgment.Verdict, judgment.Evidence),
	}, nil
}
