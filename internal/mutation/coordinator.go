// Package mutation applies writes to the local page cache speculatively and
// reconciles them with the server.
//
// Every write runs the same protocol:
//
//	idle -> optimistic-applied -> confirmed | rolled-back -> settled
//
// Begin cancels in-flight fetches on the scope, snapshots it and applies the
// optimistic transform. Dispatch performs the remote call. Settle either
// discards the snapshot and invalidates (confirmed) or restores the snapshot
// (rolled-back), and in both cases invalidates the scope once more.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mmcdole/wardrobe/internal/domain"
	"github.com/mmcdole/wardrobe/internal/store"
)

// State of a single mutation
type State int

const (
	StateIdle State = iota
	StateOptimisticApplied
	StateConfirmed
	StateRolledBack
	StateSettled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimisticApplied:
		return "optimistic-applied"
	case StateConfirmed:
		return "confirmed"
	case StateRolledBack:
		return "rolled-back"
	case StateSettled:
		return "settled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNotApplied is returned by Dispatch when the optimistic apply did not happen
var ErrNotApplied = errors.New("mutation was not applied")

// PageCache is the part of the page store a mutation touches
type PageCache interface {
	Snapshot(pred store.Predicate[domain.PageKey]) store.Snapshot[domain.PageKey, domain.Page]
	Update(pred store.Predicate[domain.PageKey], transform func(domain.PageKey, domain.Page) (domain.Page, error)) ([]domain.PageKey, error)
	Restore(snap store.Snapshot[domain.PageKey, domain.Page])
	Invalidate(pred store.Predicate[domain.PageKey]) []domain.PageKey
}

// Canceler aborts authoritative fetches in flight for matching keys
type Canceler interface {
	CancelFetches(pred store.Predicate[domain.PageKey]) int
}

// Transform is a pure rewrite of one cached page
type Transform func(domain.PageKey, domain.Page) (domain.Page, error)

// Mutation describes one write
type Mutation[R any] struct {
	// Name is used in logs and user-facing messages
	Name string

	// Scope selects every page the write can affect
	Scope store.Predicate[domain.PageKey]

	// Transform is the optimistic edit, applied to every page in Scope
	Transform Transform

	// Plan builds the optimistic edit from the pages in Scope right before
	// it is applied, for edits that depend on more than one page. Optional;
	// when set it replaces Transform.
	Plan Plan

	// Call performs the remote write
	Call func(ctx context.Context) (R, error)

	// Report extracts partial failures from a successful result. Optional.
	Report func(R) (failed int, errs []string)

	// Describe renders a successful result for the user. Optional.
	Describe func(R) string
}

// Outcome is the result of a settled mutation
type Outcome[R any] struct {
	ID     string
	Name   string
	State  State // StateConfirmed or StateRolledBack
	Result R
	Err    error

	// Message is a human-readable summary suitable for a status line
	Message string

	Partial bool
	Failed  int
	Errors  []string
}

// OK reports whether the server accepted the write, possibly partially
func (o Outcome[R]) OK() bool { return o.State == StateConfirmed }

// Coordinator runs mutations against one page cache.
//
// Mutations may overlap. Each owns its own snapshot; when one rolls back,
// every mutation that began after it and is still awaiting the server is
// re-applied on top of the restored pages, so a rollback never erases a
// concurrent optimistic edit.
type Coordinator struct {
	cache    PageCache
	canceler Canceler
	logger   *slog.Logger

	mu      sync.Mutex
	pending []*applied
}

// applied is the optimistic half of a mutation that has not settled yet
type applied struct {
	id        string
	scope     store.Predicate[domain.PageKey]
	transform Transform
	plan      Plan
	snap      store.Snapshot[domain.PageKey, domain.Page]
}

// NewCoordinator creates a coordinator. canceler may be nil.
func NewCoordinator(cache PageCache, canceler Canceler, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cache: cache, canceler: canceler, logger: logger}
}

// Pending reports whether an unsettled mutation covers k. Fetches for such
// keys would overwrite optimistic state and should be deferred until the
// settle invalidation.
func (c *Coordinator) Pending(k domain.PageKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.pending {
		if a.scope(k) {
			return true
		}
	}
	return false
}

// InFlight returns the number of unsettled mutations
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) apply(a *applied) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a.snap = c.cache.Snapshot(a.scope)
	if a.plan != nil {
		a.transform = a.plan(a.snap)
	}
	if a.transform != nil {
		touched, err := c.cache.Update(a.scope, a.transform)
		if err != nil {
			return err
		}
		c.logger.Debug("optimistic update applied", "txn", a.id, "pages", len(touched))
	}
	c.pending = append(c.pending, a)
	return nil
}

// release drops a confirmed mutation
func (c *Coordinator) release(a *applied) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.Index(c.pending, a); i >= 0 {
		c.pending = slices.Delete(c.pending, i, i+1)
	}
}

// rollback restores a's snapshot and rebases every later pending mutation.
// Only pages inside a's scope were restored, so a later mutation is
// re-applied there alone; its pages outside a's scope still hold its edit
// and keep their original snapshot entries.
func (c *Coordinator) rollback(a *applied) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.Index(c.pending, a)
	if i < 0 {
		return
	}
	c.cache.Restore(a.snap)

	for _, later := range c.pending[i+1:] {
		overlap := func(k domain.PageKey) bool { return a.scope(k) && later.scope(k) }
		later.snap = rebaseSnapshot(later.snap, c.cache.Snapshot(overlap), a.scope)
		if later.plan != nil {
			later.transform = later.plan(later.snap)
		}
		if later.transform == nil {
			continue
		}
		if _, err := c.cache.Update(overlap, later.transform); err != nil {
			c.logger.Warn("failed to re-apply pending mutation", "txn", later.id, "error", err)
		}
	}
	c.pending = slices.Delete(c.pending, i, i+1)
}

// rebaseSnapshot keeps the entries of old outside restored and takes the
// rest from fresh
func rebaseSnapshot(old, fresh store.Snapshot[domain.PageKey, domain.Page], restored store.Predicate[domain.PageKey]) store.Snapshot[domain.PageKey, domain.Page] {
	out := store.Snapshot[domain.PageKey, domain.Page]{}
	for _, e := range old.Entries {
		if !restored(e.Key) {
			out.Entries = append(out.Entries, e)
		}
	}
	out.Entries = append(out.Entries, fresh.Entries...)
	return out
}

// Txn is one in-progress mutation
type Txn[R any] struct {
	ID   string
	Name string

	c *Coordinator
	m Mutation[R]
	a *applied

	mu       sync.Mutex
	state    State
	applyErr error
	started  time.Time
	outcome  *Outcome[R]
}

// Begin takes the mutation from idle to optimistic-applied. If the
// transform fails the cache is untouched and the txn is already settled;
// Dispatch then returns the transform error without calling the server.
func Begin[R any](c *Coordinator, m Mutation[R]) *Txn[R] {
	if m.Scope == nil {
		m.Scope = store.All[domain.PageKey]()
	}
	t := &Txn[R]{
		ID:      ulid.Make().String(),
		Name:    m.Name,
		c:       c,
		m:       m,
		state:   StateIdle,
		started: time.Now(),
	}

	if c.canceler != nil {
		if n := c.canceler.CancelFetches(m.Scope); n > 0 {
			c.logger.Debug("cancelled in-flight fetches", "txn", t.ID, "mutation", m.Name, "count", n)
		}
	}

	a := &applied{id: t.ID, scope: m.Scope, transform: m.Transform, plan: m.Plan}
	if err := c.apply(a); err != nil {
		t.applyErr = fmt.Errorf("optimistic %s: %w", m.Name, err)
		t.state = StateSettled
		c.logger.Error("optimistic transform failed", "txn", t.ID, "mutation", m.Name, "error", err)
		return t
	}

	t.a = a
	t.state = StateOptimisticApplied
	return t
}

// State returns the current state
func (t *Txn[R]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Dispatch performs the remote call. It blocks until the server answers or
// ctx is done.
func (t *Txn[R]) Dispatch(ctx context.Context) (R, error) {
	var zero R
	t.mu.Lock()
	state, applyErr := t.state, t.applyErr
	t.mu.Unlock()

	if applyErr != nil {
		return zero, applyErr
	}
	if state != StateOptimisticApplied {
		return zero, ErrNotApplied
	}
	if t.m.Call == nil {
		return zero, nil
	}
	return t.m.Call(ctx)
}

// Settle reconciles the cache with the result of Dispatch. Only the first
// call touches the cache; later calls return the first outcome.
func (t *Txn[R]) Settle(result R, err error) Outcome[R] {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.outcome != nil {
		return *t.outcome
	}

	out := Outcome[R]{ID: t.ID, Name: t.Name, Result: result, Err: err}
	if t.applyErr != nil {
		out.Err = t.applyErr
		out.State = StateRolledBack
		out.Message = fmt.Sprintf("%s failed: %s", t.Name, Describe(t.applyErr))
		t.outcome = &out
		return out
	}

	c := t.c
	logger := c.logger.With("txn", t.ID, "mutation", t.Name, "elapsed", time.Since(t.started))

	if err == nil {
		t.state = StateConfirmed
		c.release(t.a)
		c.cache.Invalidate(t.m.Scope)

		out.State = StateConfirmed
		if t.m.Report != nil {
			out.Failed, out.Errors = t.m.Report(result)
			out.Partial = out.Failed > 0
		}
		if t.m.Describe != nil {
			out.Message = t.m.Describe(result)
		}
		if out.Partial {
			logger.Warn("mutation partially failed", "failed", out.Failed, "errors", out.Errors)
		} else {
			logger.Info("mutation confirmed")
		}
	} else {
		t.state = StateRolledBack
		c.rollback(t.a)

		out.State = StateRolledBack
		out.Message = fmt.Sprintf("%s failed: %s", t.Name, Describe(err))
		logger.Error("mutation rolled back", "error", err)
	}

	t.a = nil
	t.state = StateSettled
	c.cache.Invalidate(t.m.Scope)
	t.outcome = &out
	return out
}

// Run applies, dispatches and settles m in one call
func Run[R any](ctx context.Context, c *Coordinator, m Mutation[R]) Outcome[R] {
	t := Begin(c, m)
	r, err := t.Dispatch(ctx)
	return t.Settle(r, err)
}
