package process

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/verity/internal/metrics"
	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/worker"
)

// Processor defaults
const (
	DefaultWorkers      = 8
	DefaultPartialEvery = 5
)

// Evaluator scores a claim, normally through the result memo
type Evaluator interface {
	Evaluate(ctx context.Context, claim model.Claim) (model.Verdict, error)
}

// Processor turns raw feed items into ranked gallery items
type Processor struct {
	evaluator    Evaluator
	classifier   *Classifier
	workers      int
	partialEvery int
	logger       *slog.Logger
}

// NewProcessor creates a processor. Non-positive sizes use the defaults.
func NewProcessor(evaluator Evaluator, classifier *Classifier, workers, partialEvery int, logger *slog.Logger) *Processor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if partialEvery <= 0 {
		partialEvery = DefaultPartialEvery
	}
	if classifier == nil {
		classifier = NewClassifier(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		evaluator:    evaluator,
		classifier:   classifier,
		workers:      workers,
		partialEvery: partialEvery,
		logger:       logger,
	}
}

// itemJob enriches one raw item
type itemJob struct {
	index int
	raw   model.RawItem
	p     *Processor
}

// itemResult carries an enriched item. It never reports an error: failures degrade the item.
type itemResult struct {
	index int
	item  model.Item
}

func (r *itemResult) GetError() error {
	return nil
}

func (j *itemJob) Execute(ctx context.Context) worker.Result {
	return &itemResult{index: j.index, item: j.p.enrich(ctx, j.raw)}
}

// Process filters, deduplicates and enriches raws, returning them sorted.
// publish, when non-nil, receives a sorted copy of the items finished so far
// after every partialEvery items. It is called from a single goroutine.
func (p *Processor) Process(ctx context.Context, raws []model.RawItem, publish func([]model.Item)) []model.Item {
	candidates := Dedup(raws, p.logger)
	if len(candidates) == 0 {
		return []model.Item{}
	}

	var done []model.Item
	pool := worker.NewPoolWithContext(ctx, p.workers)
	pool.OnResult(func(r worker.Result) {
		item, ok := p.itemFrom(r)
		if !ok {
			return
		}
		done = append(done, item)
		if publish != nil && len(done)%p.partialEvery == 0 && len(done) < len(candidates) {
			snapshot := make([]model.Item, len(done))
			copy(snapshot, done)
			SortItems(snapshot)
			publish(snapshot)
		}
	})
	pool.Start()

	for i, raw := range candidates {
		if !pool.Submit(&itemJob{index: i, raw: raw, p: p}) {
			break
		}
	}
	pool.Wait()

	// Items whose jobs never ran because ctx ended are kept, degraded
	if len(done) < len(candidates) {
		finished := make(map[string]bool, len(done))
		for _, it := range done {
			finished[it.Title] = true
		}
		for _, raw := range candidates {
			if !finished[raw.Title] {
				metrics.ItemsProcessed.WithLabelValues("degraded").Inc()
				done = append(done, model.DegradedItem(raw))
			}
		}
	}

	SortItems(done)
	return done
}

func (p *Processor) itemFrom(r worker.Result) (model.Item, bool) {
	switch res := r.(type) {
	case *itemResult:
		return res.item, true
	case *worker.PanicResult:
		job, ok := res.Job.(*itemJob)
		if !ok {
			return model.Item{}, false
		}
		p.logger.Warn("item processing panicked", "title", job.raw.Title, "error", res.GetError())
		metrics.ItemsProcessed.WithLabelValues("degraded").Inc()
		return model.DegradedItem(job.raw), true
	}
	return model.Item{}, false
}

// enrich scores and classifies one item. Any failure yields a degraded item.
func (p *Processor) enrich(ctx context.Context, raw model.RawItem) model.Item {
	claim := model.Claim{Text: raw.ClaimText(), Source: raw.Source, URL: raw.URL}

	verdict, err := p.evaluate(ctx, claim)
	if err != nil {
		p.logger.Warn("item scoring failed", "title", raw.Title, "error", err)
		metrics.ItemsProcessed.WithLabelValues("degraded").Inc()
		return model.DegradedItem(raw)
	}

	c := p.classifier.Classify(raw.ClaimText())
	breakdown := verdict.Breakdown

	metrics.ItemsProcessed.WithLabelValues("scored").Inc()
	return model.Item{
		RawItem:       raw,
		FinalScore:    verdict.FinalScore,
		Confidence:    verdict.Confidence,
		IsReal:        verdict.IsReal,
		Category:      c.Category,
		Tone:          c.Tone,
		PriorityScore: c.PriorityScore,
		IsAlert:       c.IsAlert,
		Breakdown:     &breakdown,
	}
}

func (p *Processor) evaluate(ctx context.Context, claim model.Claim) (v model.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluator panicked: %v", r)
		}
	}()
	if p.evaluator == nil {
		return model.Verdict{}, fmt.Errorf("no evaluator")
	}
	return p.evaluator.Evaluate(ctx, claim)
}

// Dedup drops items missing a title or description and keeps the first item of each exact title.
// Input order is the tie-break, so earlier source groups win.
func Dedup(raws []model.RawItem, logger *slog.Logger) []model.RawItem {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool, len(raws))
	out := make([]model.RawItem, 0, len(raws))
	for _, raw := range raws {
		raw.Title = strings.TrimSpace(raw.Title)
		raw.Description = strings.TrimSpace(raw.Description)
		if !raw.Valid() {
			logger.Debug("dropping malformed item", "group", raw.Group, "url", raw.URL)
			metrics.ItemsProcessed.WithLabelValues("dropped").Inc()
			continue
		}
		if seen[raw.Title] {
			metrics.ItemsProcessed.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[raw.Title] = true
		out = append(out, raw)
	}
	return out
}

// SortItems orders items by priority score, then recency, then title
func SortItems(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.After(b.PublishedAt)
		}
		return a.Title < b.Title
	})
}
