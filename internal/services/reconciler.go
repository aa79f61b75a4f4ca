// Package services hosts the reconciliation controller: the single owner
// of one open spreadsheet's in-memory state.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gastos/internal/core"
	"gastos/internal/docstore"
	"gastos/internal/export"
	"gastos/internal/log"
)

// State is the controller lifecycle. Every remote update implicitly
// re-enters the subscribed-and-reconciled pair; Detached is terminal.
type State int

const (
	StateUninitialized State = iota
	StateSubscribed
	StateReconciled
	StateDetached
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSubscribed:
		return "subscribed"
	case StateReconciled:
		return "reconciled"
	case StateDetached:
		return "detached"
	default:
		return "unknown"
	}
}

var (
	// ErrDetached reports a mutation on a spreadsheet whose backing
	// document was removed remotely.
	ErrDetached = errors.New("spreadsheet document removed")

	// ErrNotLoaded reports a mutation attempted before the first remote
	// snapshot arrived. Writing at that point would overwrite the remote
	// document with state this client never loaded; callers retry once
	// OnRemoteUpdate has fired.
	ErrNotLoaded = errors.New("spreadsheet not loaded yet")

	// ErrClosed reports use of a controller after Close.
	ErrClosed = errors.New("reconciler closed")
)

// SyncError wraps a failed remote write. The local optimistic state is kept
// as-is; the error is recoverable and surfaced for user display.
type SyncError struct {
	Path string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Hooks notify the caller about asynchronous controller events. Nil hooks
// are skipped. Hooks run on controller goroutines and must not call back
// into mutating methods.
type Hooks struct {
	// OnRemoteUpdate fires after a remote snapshot replaced local state.
	OnRemoteUpdate func()
	// OnDetached fires once when the backing document is confirmed gone.
	OnDetached func()
	// OnSyncError fires when an asynchronous write is rejected.
	OnSyncError func(error)
}

// Reconciler owns the authoritative in-memory ledgers of one spreadsheet.
// Mutations apply locally and synchronously; persistence is asynchronous
// whole-document overwrite. Inbound remote snapshots replace local state
// wholesale: the remote store wins at document granularity.
type Reconciler struct {
	store  docstore.Store
	path   string
	hooks  Hooks
	logger *log.Logger

	mu      sync.Mutex
	state   State
	name    string
	ownerID string
	cats    core.CategoryLedger
	exps    core.ExpenseLedger
	saving  bool
	closed  bool

	sub     *docstore.Subscription
	writeCh chan docstore.Document
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewReconciler builds a controller for the document at path. It does
// nothing until Open.
func NewReconciler(store docstore.Store, path string, hooks Hooks, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Reconciler{
		store:  store,
		path:   path,
		hooks:  hooks,
		logger: logger.WithComponent("reconciler").With("path", path),
	}
}

// Open subscribes to the backing document and starts the snapshot consumer
// and the write sequencer. The first remote snapshot arrives asynchronously;
// until then reads see empty ledgers.
func (r *Reconciler) Open(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state != StateUninitialized {
		r.mu.Unlock()
		return fmt.Errorf("reconciler already open (state %s)", r.state)
	}
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)

	sub, err := r.store.Subscribe(ctx, r.path)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", r.path, err)
	}

	r.mu.Lock()
	r.state = StateSubscribed
	r.sub = sub
	r.cancel = cancel
	r.writeCh = make(chan docstore.Document, 1)
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)

	r.logger.InfoContext(ctx, "Spreadsheet opened")
	return nil
}

// run consumes the snapshot stream and drains queued writes; both live on
// one goroutine so writes are issued strictly in mutation order.
func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-r.sub.Snapshots():
			if !ok {
				return
			}
			if !r.applySnapshot(ctx, snap) {
				return
			}
		case doc := <-r.writeCh:
			r.issueWrite(ctx, doc)
		}
	}
}

// applySnapshot replaces local state with the remote one. Returns false
// when the controller detached and the loop must stop.
func (r *Reconciler) applySnapshot(ctx context.Context, snap docstore.Snapshot) bool {
	if !snap.Exists {
		r.mu.Lock()
		r.state = StateDetached
		r.saving = false
		r.mu.Unlock()

		r.logger.InfoContext(ctx, "Backing document removed, detaching")
		r.sub.Close()
		if r.hooks.OnDetached != nil {
			r.hooks.OnDetached()
		}
		return false
	}

	r.mu.Lock()
	r.name = snap.Doc.Name
	r.ownerID = snap.Doc.OwnerID
	r.cats = core.NewCategoryLedger(snap.Doc.Config.Categories)
	r.exps = core.NewExpenseLedger(snap.Doc.Expenses)
	r.state = StateReconciled
	// The remote state is now authoritative; nothing older is in flight
	// from this client's perspective unless another mutation queued since.
	if len(r.writeCh) == 0 {
		r.saving = false
	}
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "Reconciled remote snapshot",
		"categories", len(snap.Doc.Config.Categories),
		"expenses", len(snap.Doc.Expenses))

	if r.hooks.OnRemoteUpdate != nil {
		r.hooks.OnRemoteUpdate()
	}
	return true
}

func (r *Reconciler) issueWrite(ctx context.Context, doc docstore.Document) {
	err := r.store.Write(ctx, r.path, doc)

	r.mu.Lock()
	if len(r.writeCh) == 0 {
		r.saving = false
	}
	r.mu.Unlock()

	if err != nil {
		serr := &SyncError{Path: r.path, Err: err}
		r.logger.ErrorContext(ctx, "Remote write failed, keeping optimistic state", "error", err)
		if r.hooks.OnSyncError != nil {
			r.hooks.OnSyncError(serr)
		}
	}
}

// mutate runs fn against the ledgers under lock and, when it succeeds,
// queues an asynchronous whole-document write. Consecutive pending writes
// coalesce to the newest document, which carries every earlier mutation.
func (r *Reconciler) mutate(fn func() error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if r.state == StateDetached {
		r.mu.Unlock()
		return ErrDetached
	}
	// Every write carries the full document, so mutating before the first
	// snapshot would overwrite remote state this client never saw.
	if r.state != StateReconciled {
		r.mu.Unlock()
		return ErrNotLoaded
	}
	if err := fn(); err != nil {
		r.mu.Unlock()
		return err
	}

	doc := r.documentLocked()
	r.saving = true
	// Cap-one queue: replace any undelivered document with the newest.
	for {
		select {
		case r.writeCh <- doc:
			r.mu.Unlock()
			return nil
		default:
			select {
			case <-r.writeCh:
			default:
			}
		}
	}
}

// AddCategory appends a category; the name must be unique independent of
// case.
func (r *Reconciler) AddCategory(name string, budget core.Money) error {
	return r.mutate(func() error {
		return r.cats.Add(name, budget)
	})
}

// RenameCategory replaces the category at index with a new name and budget,
// keeping its position.
func (r *Reconciler) RenameCategory(index int, newName string, newBudget core.Money) error {
	return r.mutate(func() error {
		return r.cats.Rename(index, newName, newBudget)
	})
}

// AddCategoryDecimal parses a submitted budget string ("250", "12.34",
// "12,34"; zero allowed) and adds the category.
func (r *Reconciler) AddCategoryDecimal(name, budget string) error {
	cents, err := core.ParseBudgetToCents(budget)
	if err != nil {
		return err
	}
	return r.AddCategory(name, core.Money{Cents: cents})
}

// RenameCategoryDecimal is RenameCategory with a submitted budget string.
func (r *Reconciler) RenameCategoryDecimal(index int, newName, newBudget string) error {
	cents, err := core.ParseBudgetToCents(newBudget)
	if err != nil {
		return err
	}
	return r.RenameCategory(index, newName, core.Money{Cents: cents})
}

// AddExpenseDecimal parses a submitted amount string and records the spend.
func (r *Reconciler) AddExpenseDecimal(category, amount string) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return core.Expense{}, err
	}
	return r.AddExpense(category, core.Money{Cents: cents})
}

// RemoveCategory deletes the category at index. Its expenses are kept as
// orphans, not erased.
func (r *Reconciler) RemoveCategory(index int) error {
	return r.mutate(func() error {
		r.cats.Remove(index)
		return nil
	})
}

// AddExpense records a spend against an existing category.
func (r *Reconciler) AddExpense(category string, amount core.Money) (core.Expense, error) {
	var created core.Expense
	err := r.mutate(func() error {
		if !r.cats.Contains(category) {
			return core.ErrUnknownCategory
		}
		e, err := r.exps.Add(category, amount)
		if err != nil {
			return err
		}
		created = e
		return nil
	})
	return created, err
}

// RemoveExpense deletes an expense by id; absent ids are a no-op.
func (r *Reconciler) RemoveExpense(id int64) error {
	return r.mutate(func() error {
		r.exps.Remove(id)
		return nil
	})
}

// Categories returns the category ledger in display order.
func (r *Reconciler) Categories() []core.Category {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cats.Items()
}

// Expenses returns the expense ledger.
func (r *Reconciler) Expenses() []core.Expense {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exps.Items()
}

// Name returns the spreadsheet's display name.
func (r *Reconciler) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// State returns the current lifecycle state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Saving reports whether a write is still outstanding; the UI shows a
// transient saving notice while true.
func (r *Reconciler) Saving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saving && r.state != StateDetached
}

// Totals recomputes the aggregate view from the current ledgers. Derived
// figures are never stored, so they cannot go stale.
func (r *Reconciler) Totals() core.Totals {
	r.mu.Lock()
	cats := r.cats.Items()
	exps := r.exps.Items()
	r.mu.Unlock()
	return core.Aggregate(cats, exps)
}

// Grid lays out the current aggregate snapshot for export.
func (r *Reconciler) Grid() export.Grid {
	r.mu.Lock()
	name := r.name
	cats := r.cats.Items()
	exps := r.exps.Items()
	r.mu.Unlock()
	return export.BuildGrid(name, core.Aggregate(cats, exps))
}

// Close releases the subscription and stops the run loop. It returns once
// no further snapshot can mutate state. Closing twice is safe.
func (r *Reconciler) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sub, cancel, done := r.sub, r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

// documentLocked assembles the whole-document write payload from local
// state. Callers hold r.mu.
func (r *Reconciler) documentLocked() docstore.Document {
	return docstore.Document{
		Name:     r.name,
		OwnerID:  r.ownerID,
		Config:   docstore.Config{Categories: r.cats.Items()},
		Expenses: r.exps.Items(),
	}
}
