// Package engine ties extraction, week-date resolution, merging and the task
// registry together behind a single writer goroutine. Every read and
// mutation of the store runs on that goroutine; only network fetches run
// elsewhere, and their results are handed back to the writer for merging.
package engine

import (
	"context"
	"errors"
	"time"

	"iuhsched/internal/extract"
	appLog "iuhsched/internal/log"
	"iuhsched/internal/model"
	"iuhsched/internal/portal"
	"iuhsched/internal/store"
	"iuhsched/internal/tasks"
	"iuhsched/internal/view"
	"iuhsched/internal/weekdates"
)

// ErrStopped is returned when the writer loop is no longer running.
var ErrStopped = errors.New("engine stopped")

// Source provides timetable pages for a week offset.
type Source interface {
	FetchWeek(ctx context.Context, offset int) (portal.Page, error)
}

// Engine owns the store and serializes access to it.
type Engine struct {
	store  *store.Store
	tasks  *tasks.Registry
	source Source
	now    func() time.Time

	cmds    chan func()
	stopped chan struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source used for week arithmetic.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSource sets where FetchWeek gets pages from.
func WithSource(src Source) Option {
	return func(e *Engine) { e.source = src }
}

// WithRegistry replaces the default task registry (which uses the same
// clock as the engine).
func WithRegistry(reg *tasks.Registry) Option {
	return func(e *Engine) { e.tasks = reg }
}

// New returns an Engine over st. Run must be started before any other
// method is used.
func New(st *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		now:     time.Now,
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tasks == nil {
		e.tasks = tasks.New(st, tasks.WithClock(e.now))
	}
	return e
}

// Run executes submitted work until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			cmd()
		}
	}
}

// do runs fn on the writer goroutine and waits for it.
func (e *Engine) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case e.cmds <- wrapped:
	case <-e.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted, fn runs to completion before the loop can stop.
	<-done
	return nil
}

// Subscribe registers fn for change notifications. fn runs on the writer
// goroutine and must not call back into the engine synchronously.
func (e *Engine) Subscribe(ctx context.Context, fn func()) (unsubscribe func(), err error) {
	err = e.do(ctx, func() {
		inner := e.store.Subscribe(fn)
		unsubscribe = func() {
			_ = e.do(context.Background(), inner)
		}
	})
	return unsubscribe, err
}

// IngestResult reports what an ingest did.
type IngestResult struct {
	Offset     int               `json:"offset"`
	Extracted  int               `json:"extracted"`
	Added      int               `json:"added"`
	Duplicates int               `json:"duplicates"`
	Total      int               `json:"total"`
	Dates      model.WeekDateMap `json:"dates"`
	DateSource string            `json:"date_source"`
}

// Ingest extracts sessions from page and merges them into the store. offset
// is only used to date the entries when the page has no date header. The
// extracted count is zero for pages that are not a timetable.
func (e *Engine) Ingest(ctx context.Context, page string, offset int) (IngestResult, error) {
	dates, src := weekdates.Resolve(page, e.now(), offset)
	fresh := extract.Extract(page, dates)

	res := IngestResult{
		Offset:     offset,
		Extracted:  len(fresh),
		Dates:      dates,
		DateSource: src.String(),
	}
	err := e.do(ctx, func() {
		if len(fresh) > 0 {
			m := e.store.MergeSessions(fresh)
			res.Added = m.Added
			res.Duplicates = m.Duplicates
			e.store.Commit()
		}
		res.Total = len(e.store.Sessions())
	})
	if err != nil {
		return IngestResult{}, err
	}

	appLog.Info("ingest completed",
		"offset", offset,
		"extracted", res.Extracted,
		"added", res.Added,
		"duplicates", res.Duplicates,
		"total", res.Total,
		"dates", res.DateSource,
	)
	return res, nil
}

// FetchWeek downloads the page of week offset from the configured source and
// ingests it. Network failures are returned without touching the store.
// Concurrent calls are not de-duplicated.
func (e *Engine) FetchWeek(ctx context.Context, offset int) (IngestResult, error) {
	if e.source == nil {
		return IngestResult{}, errors.New("engine: no page source configured")
	}
	page, err := e.source.FetchWeek(ctx, offset)
	if err != nil {
		appLog.Error("week fetch failed", err, "offset", offset)
		return IngestResult{}, err
	}
	return e.Ingest(ctx, page.Body, offset)
}

// FetchOutcome is delivered by FetchWeekAsync.
type FetchOutcome struct {
	Result IngestResult
	Err    error
}

// FetchWeekAsync runs FetchWeek on its own goroutine. The channel receives
// exactly one outcome.
func (e *Engine) FetchWeekAsync(ctx context.Context, offset int) <-chan FetchOutcome {
	out := make(chan FetchOutcome, 1)
	go func() {
		res, err := e.FetchWeek(ctx, offset)
		out <- FetchOutcome{Result: res, Err: err}
	}()
	return out
}

// Week is the projected view of one week.
type Week struct {
	Offset int               `json:"offset"`
	Label  string            `json:"label"`
	Dates  model.WeekDateMap `json:"dates"`
	// Cells is indexed [period][day].
	Cells [][][]view.Item `json:"cells"`
}

// Week projects the stored sessions and tasks onto the week offset weeks
// from now.
func (e *Engine) Week(ctx context.Context, offset int) (Week, error) {
	now := e.now()
	w := Week{
		Offset: offset,
		Label:  weekdates.Label(now, offset),
		Dates:  weekdates.FromOffset(now, offset),
	}
	err := e.do(ctx, func() {
		w.Cells = view.Grid(e.store.Sessions(), e.store.Tasks(), w.Dates)
	})
	return w, err
}

// Cell returns the ordered items of one cell of week offset.
func (e *Engine) Cell(ctx context.Context, offset, day, period int) ([]view.Item, error) {
	dates := weekdates.FromOffset(e.now(), offset)
	var items []view.Item
	err := e.do(ctx, func() {
		items = view.ItemsForCell(e.store.Sessions(), e.store.Tasks(), day, period, dates)
	})
	return items, err
}

// Snapshot returns copies of the stored collections.
func (e *Engine) Snapshot(ctx context.Context) (sessions []model.SessionEntry, taskList []model.TaskEntry, err error) {
	err = e.do(ctx, func() {
		sessions = e.store.Sessions()
		taskList = e.store.Tasks()
	})
	return sessions, taskList, err
}
