package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/worker"
)

// Scheduler defaults
const (
	DefaultFetchWorkers = 8
	DefaultGroupTimeout = 8 * time.Second
)

// SchedulerConfig sizes a Scheduler
type SchedulerConfig struct {
	Workers       int
	GroupTimeout  time.Duration
	ItemsPerGroup int
	LookbackDays  int
}

// Scheduler fetches every source group concurrently on a bounded pool
type Scheduler struct {
	providers map[string]Provider
	cfg       SchedulerConfig
	logger    *slog.Logger
	now       func() time.Time
}

// NewScheduler creates a scheduler over the given providers, keyed by Name
func NewScheduler(providers []Provider, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultFetchWorkers
	}
	if cfg.GroupTimeout <= 0 {
		cfg.GroupTimeout = DefaultGroupTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		providers: make(map[string]Provider, len(providers)),
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range providers {
		s.providers[p.Name()] = p
	}
	return s
}

// groupJob fetches one source group
type groupJob struct {
	index    int
	group    model.SourceGroup
	provider Provider
	params   Params
	timeout  time.Duration
}

// groupResult is the outcome of a groupJob
type groupResult struct {
	index int
	group string
	items []model.RawItem
	err   error
}

func (r *groupResult) GetError() error {
	return r.err
}

func (j *groupJob) Execute(ctx context.Context) worker.Result {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	items, err := j.provider.Fetch(ctx, j.group, j.params)
	if err != nil {
		return &groupResult{index: j.index, group: j.group.Name, err: err}
	}
	for i := range items {
		items[i].Group = j.group.Name
	}
	return &groupResult{index: j.index, group: j.group.Name, items: items}
}

// FetchAll fetches every group and concatenates their items in group order.
// A failing group contributes nothing; an error is returned only when every group failed.
func (s *Scheduler) FetchAll(ctx context.Context, groups []model.SourceGroup) ([]model.RawItem, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	params := Params{Limit: s.cfg.ItemsPerGroup}
	if s.cfg.LookbackDays > 0 {
		params.Since = s.now().AddDate(0, 0, -s.cfg.LookbackDays)
	}

	pool := worker.NewPoolWithContext(ctx, s.cfg.Workers)
	pool.Start()

	var immediate []*groupResult
	for i, group := range groups {
		provider, ok := s.providers[group.Provider]
		if !ok {
			immediate = append(immediate, &groupResult{index: i, group: group.Name, err: fmt.Errorf("no feed provider %q", group.Provider)})
			continue
		}
		job := &groupJob{index: i, group: group, provider: provider, params: params, timeout: s.cfg.GroupTimeout}
		if !pool.Submit(job) {
			immediate = append(immediate, &groupResult{index: i, group: group.Name, err: ctx.Err()})
		}
	}

	results := immediate
	for _, r := range pool.Wait() {
		switch res := r.(type) {
		case *groupResult:
			results = append(results, res)
		case *worker.PanicResult:
			if job, ok := res.Job.(*groupJob); ok {
				results = append(results, &groupResult{index: job.index, group: job.group.Name, err: res.GetError()})
			}
		}
	}

	// Jobs still queued when ctx ended never ran
	seen := make(map[int]bool, len(results))
	for _, r := range results {
		seen[r.index] = true
	}
	for i, group := range groups {
		if !seen[i] {
			results = append(results, &groupResult{index: i, group: group.Name, err: fmt.Errorf("not fetched: %w", context.Cause(ctx))})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	var (
		items []model.RawItem
		errs  []error
	)
	for _, r := range results {
		if r.err != nil {
			metrics.FeedFetches.WithLabelValues(r.group, "error").Inc()
			s.logger.Warn("source group fetch failed", "group", r.group, "error", r.err)
			errs = append(errs, fmt.Errorf("group %s: %w", r.group, r.err))
			continue
		}
		metrics.FeedFetches.WithLabelValues(r.group, "ok").Inc()
		s.logger.Debug("source group fetched", "group", r.group, "items", len(r.items))
		items = append(items, r.items...)
	}

	if len(errs) == len(groups) {
		return nil, errors.Join(errs...)
	}
	return items, nil
}
