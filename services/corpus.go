package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"engagement-dashboard/models"
	"engagement-dashboard/scraper"
	"engagement-dashboard/utils"
)

// ErrNoIdentityLoaded is returned when every requested identity failed.
var ErrNoIdentityLoaded = errors.New("corpus: no identity could be loaded")

// CorpusResult is the combined table plus one load status per identity, in
// selection order.
type CorpusResult struct {
	Table    *models.CombinedTable
	Statuses []models.LoadStatus
}

// Failed returns the statuses of identities that produced no rows due to an error.
func (r *CorpusResult) Failed() []models.LoadStatus {
	var out []models.LoadStatus
	for _, s := range r.Statuses {
		if s.State == models.LoadFailed {
			out = append(out, s)
		}
	}
	return out
}

// CorpusOption configures a Corpus.
type CorpusOption func(*Corpus)

// WithConcurrency fetches up to workers identities at once, starting at most
// one fetch every rateLimitMs milliseconds.
func WithConcurrency(workers, rateLimitMs int) CorpusOption {
	return func(c *Corpus) {
		c.workers = workers
		c.rateLimitMs = rateLimitMs
	}
}

// Corpus fetches and annotates every selected identity and concatenates the
// results into one table.
type Corpus struct {
	fetcher     scraper.Fetcher
	cleaner     *Cleaner
	builder     *MetricsBuilder
	logger      *utils.Logger
	workers     int
	rateLimitMs int
}

// NewCorpus creates a Corpus reading from fetcher. By default identities are
// fetched one at a time.
func NewCorpus(fetcher scraper.Fetcher, logger *utils.Logger, opts ...CorpusOption) *Corpus {
	c := &Corpus{
		fetcher: fetcher,
		cleaner: NewCleaner(logger),
		builder: NewMetricsBuilder(logger),
		logger:  logger,
		workers: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type identitySlot struct {
	rows   []*models.AnnotatedPost
	status models.LoadStatus
}

// Aggregate builds the combined table for handles, applying limit to every
// identity. A failing identity is skipped and reported in its status; the
// result is still returned. The error is non-nil only when ctx ends or when
// every identity failed.
func (c *Corpus) Aggregate(ctx context.Context, handles []string, limit int) (*CorpusResult, error) {
	selected := c.selection(handles)
	slots := make([]identitySlot, len(selected))

	pool := utils.NewWorkerPool(c.workers, c.rateLimitMs)
	for i, handle := range selected {
		pool.Submit(func() {
			slots[i] = c.loadIdentity(ctx, handle, limit)
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("corpus: aggregation interrupted: %w", err)
	}

	blocks := make([][]*models.AnnotatedPost, 0, len(slots))
	result := &CorpusResult{Statuses: make([]models.LoadStatus, 0, len(slots))}
	failed := 0
	for _, s := range slots {
		blocks = append(blocks, s.rows)
		result.Statuses = append(result.Statuses, s.status)
		if s.status.State == models.LoadFailed {
			failed++
		}
	}
	result.Table = models.NewCombinedTable(blocks...)

	c.logger.Info("[corpus] Combined table: %d rows from %d identities (%d failed)",
		result.Table.Len(), len(selected), failed)

	if len(selected) > 0 && failed == len(selected) {
		return result, ErrNoIdentityLoaded
	}
	return result, nil
}

// selection normalises handles and drops repeats, keeping first occurrences.
func (c *Corpus) selection(handles []string) []string {
	set := utils.NewHandleSet()
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		handle := scraper.NormalizeHandle(h)
		if handle == "" {
			c.logger.Warn("[corpus] Ignoring empty identity %q", h)
			continue
		}
		if !set.Add(handle) {
			c.logger.Warn("[corpus] Identity %s selected twice, keeping the first", handle)
			continue
		}
		out = append(out, handle)
	}
	c.logger.Debug("[corpus] %d distinct identities selected", set.Size())
	return out
}

func (c *Corpus) loadIdentity(ctx context.Context, handle string, limit int) identitySlot {
	start := time.Now()
	slot := identitySlot{status: models.LoadStatus{Handle: handle}}

	if err := ctx.Err(); err != nil {
		slot.status.State = models.LoadFailed
		slot.status.Err = err
		return slot
	}

	raw, fetchErr := c.fetcher.FetchPosts(ctx, handle, limit)
	slot.rows = c.builder.Build(c.cleaner.Clean(handle, raw), limit)
	slot.status.Posts = len(slot.rows)
	slot.status.Err = fetchErr
	slot.status.Duration = time.Since(start)

	switch {
	case fetchErr != nil && len(slot.rows) > 0:
		slot.status.State = models.LoadPartial
		c.logger.Warn("[corpus] %s: partial load, kept %d posts: %v", handle, len(slot.rows), fetchErr)
	case fetchErr != nil:
		slot.status.State = models.LoadFailed
		c.logger.Error("[corpus] %s: fetch failed: %v", handle, fetchErr)
	case len(slot.rows) == 0:
		slot.status.State = models.LoadEmpty
		c.logger.Warn("[corpus] %s: source returned no posts", handle)
	default:
		slot.status.State = models.LoadLoaded
		c.logger.Info("[corpus] %s: %d posts in %v", handle, len(slot.rows), slot.status.Duration.Round(time.Millisecond))
	}
	return slot
}
