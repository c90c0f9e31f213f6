package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/verity/internal/logging"
	"github.com/ppiankov/verity/internal/model"
)

func makeItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			RawItem:    model.RawItem{Title: fmt.Sprintf("story %d", i), Description: "d"},
			FinalScore: 0.8,
			IsReal:     true,
		}
	}
	return items
}

func staticRefresh(items []model.Item, calls *atomic.Int32) RefreshFunc {
	return func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		calls.Add(1)
		return items, nil
	}
}

func newTestStore(refresh RefreshFunc) *Store {
	return New(context.Background(), refresh, Config{}, logging.Discard())
}

func TestGetPage_Pagination(t *testing.T) {
	var calls atomic.Int32
	s := newTestStore(staticRefresh(makeItems(25), &calls))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	tests := []struct {
		page, size int
		want       int
	}{
		{1, 10, 10},
		{2, 10, 10},
		{3, 10, 5},
		{4, 10, 0},
		{0, 10, 0},
		{-1, 10, 0},
	}
	for _, tt := range tests {
		p := s.GetPage(tt.page, tt.size)
		if len(p.Items) != tt.want {
			t.Errorf("page %d: got %d items, want %d", tt.page, len(p.Items), tt.want)
		}
		if p.TotalPages != 3 || p.TotalItems != 25 {
			t.Errorf("page %d: totals = %d/%d", tt.page, p.TotalPages, p.TotalItems)
		}
		if p.Status != model.StatusSuccess {
			t.Errorf("page %d: status %s", tt.page, p.Status)
		}
		if p.Items == nil {
			t.Errorf("page %d: items must be non-nil", tt.page)
		}
	}

	p := s.GetPage(3, 10)
	if p.Items[0].Title != "story 20" {
		t.Errorf("unexpected first item on page 3: %s", p.Items[0].Title)
	}
	if calls.Load() != 1 {
		t.Errorf("fresh store should not refresh again, got %d calls", calls.Load())
	}
}

func TestGetPage_DefaultSize(t *testing.T) {
	var calls atomic.Int32
	s := newTestStore(staticRefresh(makeItems(25), &calls))
	_ = s.Refresh(context.Background())

	p := s.GetPage(1, 0)
	if p.PageSize != DefaultPageSize || len(p.Items) != DefaultPageSize {
		t.Errorf("expected default page size, got %d (%d items)", p.PageSize, len(p.Items))
	}
}

func TestGetPage_EmptyReturnsPlaceholders(t *testing.T) {
	release := make(chan struct{})
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		<-release
		return makeItems(3), nil
	})

	p := s.GetPage(1, 5)
	if p.Status != model.StatusPartial {
		t.Errorf("status = %s, want partial", p.Status)
	}
	if len(p.Items) != 5 {
		t.Fatalf("got %d placeholders, want 5", len(p.Items))
	}
	for i, it := range p.Items {
		if !it.Placeholder {
			t.Errorf("item %d not marked placeholder", i)
		}
		want := PlaceholderFakeScore
		if i%2 == 0 {
			want = PlaceholderRealScore
		}
		if it.FinalScore != want || it.IsReal != (i%2 == 0) {
			t.Errorf("item %d: score %v real %v", i, it.FinalScore, it.IsReal)
		}
	}
	if s.State() != StatePopulating {
		t.Errorf("state = %s, want populating", s.State())
	}

	close(release)
	s.Wait()

	p = s.GetPage(1, 5)
	if p.Status != model.StatusSuccess || len(p.Items) != 3 {
		t.Errorf("after refresh: status %s, %d items", p.Status, len(p.Items))
	}
	if s.State() != StateFresh {
		t.Errorf("state = %s, want fresh", s.State())
	}
}

func TestGetPage_SingleRefreshUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		calls.Add(1)
		<-release
		return makeItems(4), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.GetPage(1, 10)
		}()
	}
	wg.Wait()

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("expected ErrRefreshInProgress, got %v", err)
	}

	close(release)
	s.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected exactly one refresh, got %d", calls.Load())
	}
}

func TestGetPage_StaleWhileRevalidate(t *testing.T) {
	var generation atomic.Int32
	release := make(chan struct{}, 1)
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		n := generation.Add(1)
		if n > 1 {
			<-release
		}
		items := makeItems(2)
		items[0].Title = fmt.Sprintf("generation %d", n)
		return items, nil
	})

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if s.State() != StateStale {
		t.Fatalf("state = %s, want stale", s.State())
	}

	p := s.GetPage(1, 10)
	if p.Status != model.StatusSuccess || p.Items[0].Title != "generation 1" {
		t.Errorf("stale read should serve the old snapshot, got %s %q", p.Status, p.Items[0].Title)
	}

	release <- struct{}{}
	s.Wait()

	p = s.GetPage(1, 10)
	if p.Items[0].Title != "generation 2" {
		t.Errorf("expected refreshed snapshot, got %q", p.Items[0].Title)
	}
	if !p.LastUpdated.Equal(now) {
		t.Errorf("last updated = %v, want %v", p.LastUpdated, now)
	}
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	fail := false
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		if fail {
			return nil, errors.New("upstream down")
		}
		return makeItems(7), nil
	})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	fail = true
	err := s.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if s.LastError() == nil {
		t.Error("LastError should be recorded")
	}

	p := s.GetPage(1, 10)
	if len(p.Items) != 7 || p.Status != model.StatusSuccess {
		t.Errorf("snapshot lost after failed refresh: %d items, %s", len(p.Items), p.Status)
	}
}

func TestRefresh_EmptyResultKeepsStaleSnapshot(t *testing.T) {
	var calls atomic.Int32
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		if calls.Add(1) > 1 {
			return []model.Item{}, nil
		}
		return makeItems(25), nil
	})

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	updated := now

	now = now.Add(2 * time.Hour)
	s.GetPage(1, 10)
	s.Wait()

	if calls.Load() != 2 {
		t.Fatalf("stale read should trigger a refresh, got %d calls", calls.Load())
	}
	if !errors.Is(s.LastError(), ErrNoItems) {
		t.Errorf("LastError = %v, want ErrNoItems", s.LastError())
	}
	if s.State() != StateStale {
		t.Errorf("state = %s, want stale", s.State())
	}

	p := s.GetPage(1, 10)
	s.Wait()
	if p.Status != model.StatusSuccess || len(p.Items) != 10 || p.TotalItems != 25 {
		t.Errorf("snapshot lost after empty refresh: %s, %d items, total %d", p.Status, len(p.Items), p.TotalItems)
	}
	if !p.LastUpdated.Equal(updated) {
		t.Errorf("last updated = %v, want %v", p.LastUpdated, updated)
	}

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("synchronous empty refresh should fail, got %v", err)
	}
}

func TestRefresh_Panic(t *testing.T) {
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		panic("boom")
	})

	if err := s.Refresh(context.Background()); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("expected ErrRefreshFailed, got %v", err)
	}
	if s.State() == StatePopulating {
		t.Error("guard must be released after a panic")
	}
}

func TestGetPage_EmptyRefreshReportsLoading(t *testing.T) {
	var calls atomic.Int32
	s := newTestStore(staticRefresh(nil, &calls))
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	p := s.GetPage(1, 10)
	s.Wait()
	if p.Status != model.StatusLoading {
		t.Errorf("status = %s, want loading", p.Status)
	}
	if len(p.Items) != 0 || p.Items == nil {
		t.Errorf("expected empty non-nil items, got %v", p.Items)
	}
	// An empty store keeps asking for data
	if calls.Load() != 2 {
		t.Errorf("expected a second refresh from the read, got %d", calls.Load())
	}
}

func TestRefresh_PartialPublication(t *testing.T) {
	partialSeen := make(chan struct{})
	release := make(chan struct{})
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		publish(makeItems(2))
		close(partialSeen)
		<-release
		return makeItems(6), nil
	})

	_ = s.GetPage(1, 10)
	<-partialSeen

	p := s.GetPage(1, 10)
	if p.Status != model.StatusPartial || len(p.Items) != 2 {
		t.Errorf("expected partial page of 2, got %s with %d", p.Status, len(p.Items))
	}
	for _, it := range p.Items {
		if it.Placeholder {
			t.Error("partial results must not be placeholders")
		}
	}

	close(release)
	s.Wait()

	p = s.GetPage(1, 10)
	if p.Status != model.StatusSuccess || len(p.Items) != 6 {
		t.Errorf("expected complete page of 6, got %s with %d", p.Status, len(p.Items))
	}
}

func TestRefresh_PartialIgnoredOnceComplete(t *testing.T) {
	first := true
	release := make(chan struct{})
	published := make(chan struct{})
	s := newTestStore(func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error) {
		if first {
			first = false
			return makeItems(5), nil
		}
		publish(makeItems(1))
		close(published)
		<-release
		return makeItems(5), nil
	})

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	go func() { _ = s.Refresh(context.Background()) }()
	<-published

	p := s.GetPage(1, 10)
	if len(p.Items) != 5 || p.Status != model.StatusSuccess {
		t.Errorf("complete snapshot replaced by partial: %d items, %s", len(p.Items), p.Status)
	}
	close(release)
	s.Wait()
}

func TestRefresh_TruncatesToMaxItems(t *testing.T) {
	var calls atomic.Int32
	s := New(context.Background(), staticRefresh(makeItems(30), &calls), Config{MaxItems: 12}, logging.Discard())
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	p := s.GetPage(1, 50)
	if p.TotalItems != 12 {
		t.Errorf("total = %d, want 12", p.TotalItems)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateEmpty:      "empty",
		StatePopulating: "populating",
		StateFresh:      "fresh",
		StateStale:      "stale",
		State(9):        "state(9)",
	} {
		if state.String() != want {
			t.Errorf("%d.String() = %s, want %s", int(state), state.String(), want)
		}
	}
}
