package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/verity/internal/model"
)

// Evaluator evaluates a single claim
type Evaluator interface {
	Evaluate(ctx context.Context, claim model.Claim) (model.Verdict, error)
}

// ClaimJob evaluates one claim from a batch
type ClaimJob struct {
	Index     int
	Claim     model.Claim
	Evaluator Evaluator
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	verdict, err := j.Evaluator.Evaluate(ctx, j.Claim)
	if err != nil {
		return &ClaimResult{Index: j.Index, Claim: j.Claim, Error: err}
	}
	return &ClaimResult{Index: j.Index, Claim: j.Claim, Verdict: &verdict}
}

// ClaimResult represents the result of a claim job
type ClaimResult struct {
	Index   int
	Claim   model.Claim
	Verdict *model.Verdict
	Error   error
}

// GetError returns the error from the claim result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchEvaluator evaluates many claims concurrently
type BatchEvaluator struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchEvaluator creates a new batch evaluator
func NewBatchEvaluator(evaluator Evaluator, concurrency int) *BatchEvaluator {
	return &BatchEvaluator{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// EvaluateClaims evaluates claims concurrently and returns results in input order
func (b *BatchEvaluator) EvaluateClaims(ctx context.Context, claims []model.Claim) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, claim := range claims {
		if !pool.Submit(&ClaimJob{Index: i, Claim: claim, Evaluator: b.evaluator}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*ClaimResult, 0, len(results))
	for _, result := range results {
		switch r := result.(type) {
		case *ClaimResult:
			out = append(out, r)
		case *PanicResult:
			if job, ok := r.Job.(*ClaimJob); ok {
				out = append(out, &ClaimResult{Index: job.Index, Claim: job.Claim, Error: r.GetError()})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// EvaluateFile reads claims from a file and evaluates them concurrently
func (b *BatchEvaluator) EvaluateFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	lines, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	claims := make([]model.Claim, len(lines))
	for i, line := range lines {
		claims[i] = model.Claim{Text: line}
	}

	return b.EvaluateClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file, one per line.
// Blank lines and lines starting with # are skipped; repeated claims are read once.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
