package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/captionforge/captionforge/internal/captions"
	"github.com/captionforge/captionforge/internal/models"
	"github.com/captionforge/captionforge/internal/providers"
)

// ItemStatus is the per-image state within a batch run.
type ItemStatus string

const (
	StatusPending  ItemStatus = "pending"
	StatusInFlight ItemStatus = "in_flight"
	StatusDone     ItemStatus = "done"
	StatusFailed   ItemStatus = "failed"
	StatusSkipped  ItemStatus = "skipped"
)

// DefaultConcurrency bounds in-flight provider requests. The backend is a
// single local inference server, so a small fan-out is enough to keep it
// busy without queueing.
const DefaultConcurrency = 2

// Options configures one batch captioning run.
type Options struct {
	Provider     providers.Provider
	ProviderName string
	Endpoint     string
	Model        string
	Prompt       string
	Temperature  float64
	Concurrency  int
	// TriggerWord, when set, is kept as the first tag of every written
	// caption.
	TriggerWord string
	// OnProgress is called after each item reaches a terminal status.
	OnProgress func(completed, total int)
	// OnTagsWritten is called after an item's caption has been persisted,
	// before the item is marked done.
	OnTagsWritten func(entry *models.ImageEntry, tags []string)
}

// ItemResult is the terminal outcome of one image in a batch.
type ItemResult struct {
	ID     string     `json:"id" yaml:"id"`
	Path   string     `json:"path" yaml:"path"`
	Status ItemStatus `json:"status" yaml:"status"`
	Tags   []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Error  string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary reports a finished batch, outcomes keyed by entry id.
type Summary struct {
	Total     int                   `json:"total" yaml:"total"`
	Done      int                   `json:"done" yaml:"done"`
	Failed    int                   `json:"failed" yaml:"failed"`
	Skipped   int                   `json:"skipped" yaml:"skipped"`
	Cancelled bool                  `json:"cancelled" yaml:"cancelled"`
	Items     map[string]ItemResult `json:"items" yaml:"items"`
}

type item struct {
	entry  *models.ImageEntry
	status ItemStatus
	tags   []string
	err    string
}

// Job is an in-flight batch captioning run.
type Job struct {
	opts  Options
	total int

	mu        sync.Mutex
	items     []*item
	completed int
	cancelled bool

	done chan struct{}
}

// Orchestrator runs at most one batch captioning job at a time.
type Orchestrator struct {
	mu      sync.Mutex
	current *Job
}

// New returns a new Orchestrator.
func New() *Orchestrator {
	return &Orchestrator{}
}

// Current returns the most recent job, which may already be finished.
func (o *Orchestrator) Current() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Start begins captioning the given entries. It returns immediately with
// a handle; use Wait for the final summary. A second Start while a job is
// running fails with ErrAlreadyInProgress.
func (o *Orchestrator) Start(ctx context.Context, entries []*models.ImageEntry, opts Options) (*Job, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries to caption", models.ErrInvalidArgument)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: context already cancelled", models.ErrCancelled)
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: no provider configured", models.ErrInvalidArgument)
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = providers.DefaultPrompt
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	o.mu.Lock()
	if o.current != nil && !o.current.Finished() {
		o.mu.Unlock()
		return nil, models.ErrAlreadyInProgress
	}

	job := &Job{
		opts:  opts,
		total: len(entries),
		items: make([]*item, len(entries)),
		done:  make(chan struct{}),
	}
	for i, e := range entries {
		job.items[i] = &item{entry: e, status: StatusPending}
	}
	o.current = job
	o.mu.Unlock()

	slog.Info("Starting batch captioning",
		"items", job.total,
		"provider", opts.ProviderName,
		"model", opts.Model,
		"concurrency", opts.Concurrency)

	go job.run(ctx)
	return job, nil
}

func (j *Job) run(ctx context.Context) {
	defer close(j.done)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, j.opts.Concurrency)

	for _, it := range j.items {
		wg.Add(1)
		go func(it *item) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			// The cancel flag is checked only before an item starts;
			// anything already in flight finishes and persists normally.
			j.mu.Lock()
			if j.cancelled || ctx.Err() != nil {
				it.status = StatusSkipped
				j.completed++
				j.notifyProgressLocked()
				j.mu.Unlock()
				return
			}
			it.status = StatusInFlight
			j.mu.Unlock()

			j.processItem(ctx, it)

			j.mu.Lock()
			j.completed++
			j.notifyProgressLocked()
			j.mu.Unlock()
		}(it)
	}
	wg.Wait()

	summary := j.Summary()
	slog.Info("Batch captioning finished",
		"done", summary.Done,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled)
}

func (j *Job) processItem(ctx context.Context, it *item) {
	caption, err := j.opts.Provider.Caption(ctx, providers.Request{
		ImagePath:   it.entry.Path,
		Model:       j.opts.Model,
		Prompt:      j.opts.Prompt,
		Endpoint:    j.opts.Endpoint,
		Temperature: j.opts.Temperature,
	})
	if err != nil {
		slog.Warn("Caption generation failed", "path", it.entry.RelativePath, "err", err)
		j.setTerminal(it, StatusFailed, nil, err.Error())
		return
	}

	tags := captions.ParseTags(caption)
	tags = captions.WithTrigger(j.opts.TriggerWord, tags)
	if len(tags) == 0 {
		j.setTerminal(it, StatusFailed, nil, "provider returned an empty caption")
		return
	}

	// Persist before reporting done, so done always implies written.
	if err := captions.WriteTags(it.entry.Path, tags); err != nil {
		j.setTerminal(it, StatusFailed, nil, err.Error())
		return
	}
	if j.opts.OnTagsWritten != nil {
		j.opts.OnTagsWritten(it.entry, tags)
	}
	j.setTerminal(it, StatusDone, tags, "")
}

func (j *Job) setTerminal(it *item, status ItemStatus, tags []string, errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	it.status = status
	it.tags = tags
	it.err = errMsg
}

func (j *Job) notifyProgressLocked() {
	if j.opts.OnProgress != nil {
		j.opts.OnProgress(j.completed, j.total)
	}
}

// Cancel marks the job cancelled. Pending items become skipped as their
// workers observe the flag; in-flight requests are not interrupted.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = true
}

// Finished reports whether every item has reached a terminal status.
func (j *Job) Finished() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Progress returns how many items are terminal out of the total.
func (j *Job) Progress() (completed, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.completed, j.total
}

// Wait blocks until the job finishes and returns its summary.
func (j *Job) Wait() Summary {
	<-j.done
	return j.Summary()
}

// Summary snapshots the per-item outcomes keyed by entry id.
func (j *Job) Summary() Summary {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Summary{
		Total:     j.total,
		Cancelled: j.cancelled,
		Items:     make(map[string]ItemResult, len(j.items)),
	}
	for _, it := range j.items {
		switch it.status {
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
		s.Items[it.entry.ID] = ItemResult{
			ID:     it.entry.ID,
			Path:   it.entry.RelativePath,
			Status: it.status,
			Tags:   it.tags,
			Error:  it.err,
		}
	}
	return s
}
