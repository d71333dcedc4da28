// Package reconcile keeps a board store live against the realtime change
// feed. Rather than interpreting each event kind, it schedules a debounced
// full refetch: one round-trip buys correctness against arbitrary changes,
// including kinds the engine does not model.
package reconcile

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"boardsync/domain"
	"boardsync/remote"
)

// DefaultDebounce is the window within which further events coalesce into
// one refetch.
const DefaultDebounce = 250 * time.Millisecond

// Fetcher re-reads the full project view.
type Fetcher interface {
	FetchProject(ctx context.Context, projectID string) (remote.ProjectView, error)
}

// Board is the slice of the task store the reconciler needs.
type Board interface {
	ReplaceAll(tasksByStage map[string][]domain.Task)
}

// Registrar registers change-event handlers, typically the session's
// realtime manager.
type Registrar interface {
	Register(table domain.Table, filter string, handler func(domain.ChangeEvent)) func()
}

// Reconciler merges remote changes into the board without clobbering
// unconfirmed local mutations: the refetched state simply replaces local
// state, resolving stale optimistic entries.
type Reconciler struct {
	projectID string
	board     Board
	fetch     Fetcher
	logger    *log.Logger
	debounce  time.Duration

	mu          sync.Mutex
	loaded      bool
	epoch       uint64
	timer       *time.Timer
	unregisters []func()
	stopped     bool
}

// New creates a reconciler for one project. A non-positive debounce falls
// back to DefaultDebounce.
func New(projectID string, board Board, fetch Fetcher, debounce time.Duration, logger *log.Logger) *Reconciler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Reconciler{
		projectID: projectID,
		board:     board,
		fetch:     fetch,
		logger:    logger,
		debounce:  debounce,
	}
}

// Start registers for the project's change events on all three tables.
func (r *Reconciler) Start(ctx context.Context, reg Registrar) {
	filter := domain.FilterFor(r.projectID)
	handler := func(ev domain.ChangeEvent) { r.onEvent(ctx, ev) }
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, table := range []domain.Table{domain.TableTasks, domain.TableProject, domain.TableMembers} {
		r.unregisters = append(r.unregisters, reg.Register(table, filter, handler))
	}
}

// MarkLoaded records that the initial fetch has completed. Events arriving
// earlier are dropped; they would race the initial load.
func (r *Reconciler) MarkLoaded() {
	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()
}

func (r *Reconciler) onEvent(ctx context.Context, ev domain.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded || r.stopped {
		return
	}
	if r.timer != nil {
		// a refetch is already scheduled; this event coalesces into it
		return
	}
	r.timer = time.AfterFunc(r.debounce, func() { r.refetch(ctx) })
}

func (r *Reconciler) refetch(ctx context.Context) {
	r.mu.Lock()
	r.timer = nil
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	view, err := r.fetch.FetchProject(ctx, r.projectID)
	if err != nil {
		// never surfaced to the user; the next event retries
		r.logger.WithFields(log.Fields{
			"project": r.projectID,
			"error":   err.Error(),
		}).Error("reconcile: refetch failed")
		return
	}

	r.mu.Lock()
	stale := r.stopped || epoch != r.epoch
	r.mu.Unlock()
	if stale {
		// a newer refetch superseded this one; discard the result
		return
	}
	r.board.ReplaceAll(view.TasksByStage)
}

// Flush forces any scheduled refetch to run now. Intended for tests.
func (r *Reconciler) Flush(ctx context.Context) {
	r.mu.Lock()
	pending := r.timer != nil
	if pending {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	if pending {
		r.refetch(ctx)
	}
}

// Stop deregisters the handlers and discards any pending refetch result.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.epoch++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	unregs := r.unregisters
	r.unregisters = nil
	r.mu.Unlock()
	for _, un := range unregs {
		un()
	}
}
