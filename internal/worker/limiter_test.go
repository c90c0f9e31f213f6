package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}
	
	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	url := "http://example.com/foo"
	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	
	// Different domain should also work
	if err := limiter.Wait(ctx, "http://google.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()
	
	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}
	
	duration := time.Since(start)
	if duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

// shortCtx bounds a Wait so an exhausted bucket fails fast instead of blocking
func shortCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)
	url := "http://example.com"

	if err := limiter.Wait(shortCtx(t), url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Token consumed; the next one is a second away, beyond the deadline
	if err := limiter.Wait(shortCtx(t), url); err == nil {
		t.Errorf("expected wait to fail (exhausted tokens)")
	}

	// Different domain should be allowed
	if err := limiter.Wait(shortCtx(t), "http://other.com"); err != nil {
		t.Errorf("expected clearance for other domain: %v", err)
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default
	limiter.SetDomainRate("Slow.com", 0.1, 1)

	if err := limiter.Wait(shortCtx(t), "http://slow.com/feed"); err != nil {
		t.Errorf("first request should pass: %v", err)
	}
	if err := limiter.Wait(shortCtx(t), "http://SLOW.com/feed"); err == nil {
		t.Errorf("second request should fail")
	}
	if err := limiter.Wait(shortCtx(t), "http://fast.com"); err != nil {
		t.Errorf("other domain should pass: %v", err)
	}
}

func TestLimiter_SetDomainRateUnlimited(t *testing.T) {
	limiter := NewLimiter(1, 1)
	limiter.SetDomainRate("internal.example", 0, 1)

	for i := 0; i < 20; i++ {
		if err := limiter.Wait(shortCtx(t), "http://internal.example/x"); err != nil {
			t.Fatalf("request %d should pass with limiting disabled: %v", i, err)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	domain, err := extractDomain("http://example.com/foo")
	if err != nil {
		t.Fatalf("extractDomain failed: %v", err)
	}
	if domain != "example.com" {
		t.Errorf("expected example.com, got %s", domain)
	}
	
	_, err = extractDomain("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if err := limiter.Wait(shortCtx(t), "http://example.com"); err != nil {
			t.Fatalf("request %d should pass with limiting disabled: %v", i, err)
		}
	}
}

func TestLimiter_WaitKey(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := limiter.WaitKey(ctx, "newsapi"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	// Second token is a second away, beyond the deadline
	if err := limiter.WaitKey(ctx, "newsapi"); err == nil {
		t.Errorf("expected deadline error on exhausted key")
	}
}

func TestLimiter_Nil(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "http://example.com"); err != nil {
		t.Errorf("nil limiter should not wait: %v", err)
	}
}

func TestExtractDomain_StripsPort(t *testing.T) {
	domain, err := extractDomain("http://localhost:8080/feed")
	if err != nil {
		t.Fatalf("extractDomain failed: %v", err)
	}
	if domain != "localhost" {
		t.Errorf("expected localhost, got %s", domain)
	}
}
