package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/model"
)

// mockEvaluator implements Evaluator
type mockEvaluator struct {
	failOn string
}

func (m *mockEvaluator) Evaluate(ctx context.Context, claim model.Claim) (model.Verdict, error) {
	time.Sleep(5 * time.Millisecond) // Simulate work
	if claim.Text == m.failOn {
		return model.Verdict{}, errors.New("evaluate error")
	}
	if strings.Contains(claim.Text, "panic") {
		panic("evaluator exploded")
	}
	return model.NewVerdict(claim, model.ScoreBreakdown{FinalScore: 0.8, Confidence: 0.6}), nil
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "claims")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestBatchEvaluator_EvaluateClaims(t *testing.T) {
	evaluator := NewBatchEvaluator(&mockEvaluator{}, 2)

	claims := []model.Claim{{Text: "one"}, {Text: "two"}, {Text: "three"}}
	results := evaluator.EvaluateClaims(context.Background(), claims)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Claim.Text, res.Error)
		}
		if res.Index != i || res.Claim.Text != claims[i].Text {
			t.Errorf("result %d out of order: %+v", i, res)
		}
		if res.Verdict == nil || !res.Verdict.IsReal {
			t.Errorf("expected real verdict for %q", res.Claim.Text)
		}
	}
}

func TestBatchEvaluator_EvaluateClaims_Error(t *testing.T) {
	evaluator := NewBatchEvaluator(&mockEvaluator{failOn: "bad"}, 2)

	results := evaluator.EvaluateClaims(context.Background(), []model.Claim{{Text: "bad"}})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Verdict != nil {
		t.Error("expected nil verdict on error")
	}
}

func TestBatchEvaluator_EvaluateClaims_Panic(t *testing.T) {
	evaluator := NewBatchEvaluator(&mockEvaluator{}, 2)

	results := evaluator.EvaluateClaims(context.Background(), []model.Claim{{Text: "ok"}, {Text: "panic here"}})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Error == nil {
		t.Error("expected panicking claim to carry an error")
	}
}

func TestBatchEvaluator_EvaluateClaims_Empty(t *testing.T) {
	evaluator := NewBatchEvaluator(&mockEvaluator{}, 2)

	results := evaluator.EvaluateClaims(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := writeTempFile(t, `The earth is flat
# comment
Vaccines cause autism

  Markets rallied on Monday   `)

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{"The earth is flat", "Vaccines cause autism", "Markets rallied on Monday"}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d", len(expected), len(claims))
	}
	for i, claim := range claims {
		if claim != expected[i] {
			t.Errorf("expected claim %q at index %d, got %q", expected[i], i, claim)
		}
	}
}

func TestReadClaimsFromFile_Deduplication(t *testing.T) {
	path := writeTempFile(t, "same claim\nsame claim\n")

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}
	if len(claims) != 1 {
		t.Errorf("expected 1 claim after deduplication, got %d", len(claims))
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	_, err := ReadClaimsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchEvaluator_EvaluateFile(t *testing.T) {
	path := writeTempFile(t, "one\ntwo\n# comment\n\nthree\n")

	evaluator := NewBatchEvaluator(&mockEvaluator{}, 2)
	results, err := evaluator.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchEvaluator_EvaluateFile_NonExistent(t *testing.T) {
	evaluator := NewBatchEvaluator(&mockEvaluator{}, 2)

	_, err := evaluator.EvaluateFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestClaimResult_GetError(t *testing.T) {
	r1 := &ClaimResult{Claim: model.Claim{Text: "x"}}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("evaluate failed")
	r2 := &ClaimResult{Claim: model.Claim{Text: "x"}, Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
