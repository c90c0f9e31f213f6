// Package gallery holds the ranked, paginated news gallery and its refresh cycle.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
)

// Store defaults
const (
	DefaultTTL            = time.Hour
	DefaultRefreshTimeout = 5 * time.Minute
	DefaultMaxItems       = 100
	DefaultPageSize       = 10
	MaxPageSize           = 100
)

// Scores carried by synthetic placeholder items
const (
	PlaceholderRealScore = 0.7
	PlaceholderFakeScore = 0.3
)

var (
	// ErrRefreshInProgress is returned by Refresh when another refresh holds the guard
	ErrRefreshInProgress = errors.New("gallery refresh already in progress")

	// ErrRefreshFailed wraps the cause of a refresh that produced no snapshot
	ErrRefreshFailed = errors.New("gallery refresh failed")

	// ErrNoItems is recorded when a refresh finds nothing while a snapshot is being served
	ErrNoItems = fmt.Errorf("%w: no items returned", ErrRefreshFailed)
)

// State is the refresh state observed by readers
type State int

const (
	StateEmpty State = iota
	StatePopulating
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulating:
		return "populating"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RefreshFunc produces a new gallery. It may call publish with sorted partial
// results while it runs; the final return value must be sorted too.
type RefreshFunc func(ctx context.Context, publish func([]model.Item)) ([]model.Item, error)

// Config controls a Store
type Config struct {
	TTL             time.Duration
	RefreshTimeout  time.Duration
	MaxItems        int
	DefaultPageSize int
}

// Store is the shared gallery snapshot. The exposed slice is only ever replaced, never mutated.
type Store struct {
	refresh RefreshFunc
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
	baseCtx context.Context

	mu          sync.Mutex
	items       []model.Item
	lastUpdated time.Time
	complete    bool // items came from a finished refresh
	completed   bool // some refresh has finished, even with no items
	refreshing  bool
	lastErr     error

	wg sync.WaitGroup
}

// New creates an empty store. Background refreshes derive from ctx.
func New(ctx context.Context, refresh RefreshFunc, cfg Config, logger *slog.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Store{
		refresh: refresh,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		baseCtx: ctx,
	}
}

// state must be called with mu held
func (s *Store) state() State {
	if s.refreshing {
		return StatePopulating
	}
	if !s.complete || len(s.items) == 0 {
		return StateEmpty
	}
	if s.now().Sub(s.lastUpdated) > s.cfg.TTL {
		return StateStale
	}
	return StateFresh
}

// State reports the current refresh state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// LastError returns the error of the most recent failed refresh, if the next one has not succeeded
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// GetPage returns one page of the gallery. It never blocks on a refresh: a read
// that finds the store empty or stale starts one in the background.
func (s *Store) GetPage(page, size int) model.Page {
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state() {
	case StateEmpty, StateStale:
		s.startLocked()
	}

	if len(s.items) == 0 {
		if s.completed {
			return model.Page{
				Items:       []model.Item{},
				Page:        page,
				PageSize:    size,
				Status:      model.StatusLoading,
				LastUpdated: s.lastUpdated,
			}
		}
		return placeholderPage(page, size)
	}

	status := model.StatusSuccess
	if !s.complete {
		status = model.StatusPartial
	}
	return paginate(s.items, page, size, status, s.lastUpdated)
}

// Refresh runs a refresh synchronously through the same guard as background refreshes
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInProgress
	}
	s.refreshing = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	return s.run(ctx)
}

// Wait blocks until no refresh is running
func (s *Store) Wait() {
	s.wg.Wait()
}

// startLocked begins a background refresh if none is running. mu must be held.
func (s *Store) startLocked() {
	if s.refreshing {
		return
	}
	s.refreshing = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.run(s.baseCtx)
	}()
}

// run performs one refresh. The caller has set refreshing.
func (s *Store) run(ctx context.Context) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RefreshTimeout)
	defer cancel()

	start := s.now()
	var items []model.Item

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrRefreshFailed, r)
		}
		err = s.finish(items, err)
		if err != nil {
			metrics.GalleryRefreshes.WithLabelValues("failed").Inc()
			s.logger.Error("gallery refresh failed", "error", err)
			return
		}
		metrics.GalleryRefreshes.WithLabelValues("ok").Inc()
		s.logger.Info("gallery refreshed", "items", len(items), "duration", s.now().Sub(start))
	}()

	items, err = s.refresh(ctx, s.publishPartial)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return nil
}

// publishPartial swaps in intermediate results, but only while no complete snapshot exists
func (s *Store) publishPartial(items []model.Item) {
	items = s.truncate(items)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete || !s.refreshing {
		return
	}
	s.items = items
	s.lastUpdated = s.now()
	metrics.GalleryItems.Set(float64(len(items)))
}

// finish publishes the result of a refresh and releases the guard. It returns
// the refresh outcome, which is an error when an empty result was rejected.
func (s *Store) finish(items []model.Item, err error) error {
	items = s.truncate(items)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false

	// An empty result never replaces a complete snapshot
	if err == nil && len(items) == 0 && s.complete && len(s.items) > 0 {
		err = ErrNoItems
	}

	if err != nil {
		s.lastErr = err
		// A partial list from the failed run is not kept
		if !s.complete {
			s.items = nil
		}
		return err
	}

	s.items = items
	s.lastUpdated = s.now()
	s.complete = true
	s.completed = true
	s.lastErr = nil
	metrics.GalleryItems.Set(float64(len(items)))
	return nil
}

// truncate copies at most MaxItems items so the published slice is never shared
func (s *Store) truncate(items []model.Item) []model.Item {
	n := len(items)
	if n > s.cfg.MaxItems {
		n = s.cfg.MaxItems
	}
	out := make([]model.Item, n)
	copy(out, items[:n])
	return out
}

// paginate slices a snapshot. Out-of-range pages are empty, never an error.
func paginate(items []model.Item, page, size int, status string, lastUpdated time.Time) model.Page {
	total := len(items)
	totalPages := (total + size - 1) / size

	p := model.Page{
		Items:       []model.Item{},
		TotalItems:  total,
		TotalPages:  totalPages,
		Page:        page,
		PageSize:    size,
		Status:      status,
		LastUpdated: lastUpdated,
	}
	if page < 1 || page > totalPages {
		return p
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	p.Items = items[start:end:end]
	return p
}

// placeholderPage returns size synthetic items, alternately marked real and fake
func placeholderPage(page, size int) model.Page {
	items := make([]model.Item, size)
	for i := range items {
		isReal := i%2 == 0
		score := PlaceholderFakeScore
		if isReal {
			score = PlaceholderRealScore
		}
		items[i] = model.Item{
			RawItem: model.RawItem{
				Title:       fmt.Sprintf("Loading news item %d", i+1),
				Description: "Fresh stories are being fetched and scored.",
				Source:      "verity",
			},
			FinalScore:  score,
			Confidence:  score,
			IsReal:      isReal,
			Category:    model.DefaultCategory,
			Tone:        model.ToneNeutral,
			Placeholder: true,
		}
	}
	return model.Page{
		Items:      items,
		TotalItems: size,
		TotalPages: 1,
		Page:       page,
		PageSize:   size,
		Status:     model.StatusPartial,
	}
}
