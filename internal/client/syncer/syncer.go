// Package syncer pushes local mirror entries to the inventory API.
//
// Each entry moves through pending -> syncing -> synced, with sync_failed
// reachable from syncing. A local delete of a synced entry goes through
// pending_delete -> syncing -> removed; a delete of an entry the server never
// saw is resolved locally. At most one request per entry is in flight; edits
// made meanwhile are pushed as a follow-up once it resolves.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/remote"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type mirrorStore interface {
	Insert(ctx context.Context, e *mirror.Entry) error
	Get(ctx context.Context, localID uuid.UUID) (*mirror.Entry, error)
	Save(ctx context.Context, e *mirror.Entry) error
	Delete(ctx context.Context, localID uuid.UUID) error
	List(ctx context.Context, statuses ...mirror.Status) ([]mirror.Entry, error)
	ResetInFlight(ctx context.Context) (int64, error)
}

type ownedAPI interface {
	CreateOwned(ctx context.Context, req remote.AddRequest) (*remote.Owned, error)
	UpdateOwned(ctx context.Context, id uuid.UUID, req remote.PatchRequest) (*remote.Owned, error)
	DeleteOwned(ctx context.Context, id uuid.UUID) error
}

// Options tunes retries and parallelism.
type Options struct {
	// MaxAttempts bounds tries per push, the first one included.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Concurrency bounds parallel pushes in SyncAll.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = 30 * time.Second
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	return o
}

// Event reports an entry state change to listeners.
type Event struct {
	LocalID uuid.UUID
	Status  mirror.Status
	// Removed is set when the entry no longer exists locally.
	Removed bool
	// Err is set when a push failed; it wraps domain.ErrSyncFailed.
	Err error
}

// Mediator owns every mirror state transition.
type Mediator struct {
	store mirrorStore
	api   ownedAPI
	log   *slog.Logger
	opts  Options

	mu        sync.Mutex
	inflight  map[uuid.UUID]struct{}
	listeners []func(Event)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Mediator. Background pushes run until Close.
func New(store mirrorStore, api ownedAPI, logger *slog.Logger, opts Options) *Mediator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Mediator{
		store:    store,
		api:      api,
		log:      logger.With("component", "syncer"),
		opts:     opts.withDefaults(),
		inflight: make(map[uuid.UUID]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// OnChange registers a listener. Listeners run on the goroutine that made
// the change and must not block.
func (m *Mediator) OnChange(fn func(Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Recover returns entries interrupted mid-push by a previous run to the
// state they were pushed from. Call once before anything else.
func (m *Mediator) Recover(ctx context.Context) error {
	n, err := m.store.ResetInFlight(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.InfoContext(ctx, "reset interrupted syncs", slog.Int64("entries", n))
	}
	return nil
}

// Wait blocks until background pushes started so far have finished.
func (m *Mediator) Wait() {
	m.wg.Wait()
}

// Close cancels background pushes and waits for them.
func (m *Mediator) Close() {
	m.cancel()
	m.wg.Wait()
}

// Get returns one entry.
func (m *Mediator) Get(ctx context.Context, localID uuid.UUID) (*mirror.Entry, error) {
	return m.store.Get(ctx, localID)
}

// List returns all entries, optionally narrowed to the given statuses.
func (m *Mediator) List(ctx context.Context, statuses ...mirror.Status) ([]mirror.Entry, error) {
	return m.store.List(ctx, statuses...)
}

// ---------------------------------------------------------------------------
// Local mutations
// ---------------------------------------------------------------------------

// Create stores a captured product as pending and starts pushing it.
func (m *Mediator) Create(ctx context.Context, capture mirror.Capture) (*mirror.Entry, error) {
	capture.Name = strings.TrimSpace(capture.Name)
	capture.Brand = strings.TrimSpace(capture.Brand)
	if capture.Name == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	if capture.SizeValue != nil && *capture.SizeValue <= 0 {
		return nil, domain.NewValidationError("size_value", "must be positive")
	}

	e := &mirror.Entry{
		LocalID: uuid.New(),
		Status:  mirror.StatusPending,
		Capture: capture,
	}
	if err := m.store.Insert(ctx, e); err != nil {
		return nil, err
	}

	m.emit(Event{LocalID: e.LocalID, Status: e.Status})
	m.schedule(e.LocalID)
	return e, nil
}

// Update records user edits. They are pushed after any in-flight request.
func (m *Mediator) Update(ctx context.Context, localID uuid.UUID, patch mirror.Patch) (*mirror.Entry, error) {
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("patch", "nothing to update")
	}
	if a := patch.AmountRemaining; a != nil && (*a < 0 || *a > 100) {
		return nil, domain.NewValidationError("amount_remaining", "must be between 0 and 100")
	}

	m.mu.Lock()
	e, err := m.store.Get(ctx, localID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if e.Deleted {
		m.mu.Unlock()
		return nil, fmt.Errorf("entry %s is deleted: %w", localID, domain.ErrNotFound)
	}

	_, busy := m.inflight[localID]
	e.Patch = e.Patch.Merge(&patch)
	if !busy {
		e.Status = mirror.StatusPending
	}
	err = m.store.Save(ctx, e)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.emit(Event{LocalID: localID, Status: e.Status})
	if !busy {
		m.schedule(localID)
	}
	return e, nil
}

// Delete removes an entry. An entry the server never received is removed at
// once; otherwise it waits in pending_delete for the remote delete.
func (m *Mediator) Delete(ctx context.Context, localID uuid.UUID) error {
	m.mu.Lock()
	e, err := m.store.Get(ctx, localID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if e.Deleted {
		m.mu.Unlock()
		return nil
	}

	_, busy := m.inflight[localID]
	if e.RemoteID == nil && !busy {
		err = m.store.Delete(ctx, localID)
		m.mu.Unlock()
		if err != nil {
			return err
		}
		m.emit(Event{LocalID: localID, Removed: true})
		return nil
	}

	// With a create in flight the remote id is not known yet; the push
	// picks up the delete when it resolves.
	e.Deleted = true
	e.Patch = nil
	e.Status = mirror.StatusPendingDelete
	err = m.store.Save(ctx, e)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.emit(Event{LocalID: localID, Status: e.Status})
	if !busy {
		m.schedule(localID)
	}
	return nil
}

// Discard drops unsent local state. An entry the server never received is
// removed; otherwise it returns to the last synced server view. Entries with
// a request in flight cannot be discarded.
func (m *Mediator) Discard(ctx context.Context, localID uuid.UUID) error {
	m.mu.Lock()
	if _, busy := m.inflight[localID]; busy {
		m.mu.Unlock()
		return domain.NewValidationError("status", "entry is syncing")
	}
	e, err := m.store.Get(ctx, localID)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	switch e.Status {
	case mirror.StatusPending, mirror.StatusSyncFailed, mirror.StatusPendingDelete:
	default:
		m.mu.Unlock()
		return domain.NewValidationError("status", "nothing to discard in status "+e.Status.String())
	}

	if e.RemoteID == nil {
		err = m.store.Delete(ctx, localID)
		m.mu.Unlock()
		if err != nil {
			return err
		}
		m.emit(Event{LocalID: localID, Removed: true})
		return nil
	}

	e.Patch = nil
	e.Deleted = false
	e.Attempts = 0
	e.LastError = nil
	e.Status = mirror.StatusSynced
	err = m.store.Save(ctx, e)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.emit(Event{LocalID: localID, Status: e.Status})
	return nil
}

// Retry starts pushing a failed entry again.
func (m *Mediator) Retry(ctx context.Context, localID uuid.UUID) error {
	m.mu.Lock()
	e, err := m.store.Get(ctx, localID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if e.Status != mirror.StatusSyncFailed && (e.Status != mirror.StatusPendingDelete || e.LastError == nil) {
		m.mu.Unlock()
		return domain.NewValidationError("status", "entry has not failed")
	}
	e.Attempts = 0
	if !e.Deleted {
		e.Status = mirror.StatusPending
	}
	err = m.store.Save(ctx, e)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.emit(Event{LocalID: localID, Status: e.Status})
	m.schedule(localID)
	return nil
}

// SyncAll pushes every entry with unsent changes, failed ones included, and
// waits for the results. Every entry is attempted; the first failure is
// returned.
func (m *Mediator) SyncAll(ctx context.Context) error {
	entries, err := m.store.List(ctx,
		mirror.StatusPending, mirror.StatusSyncFailed, mirror.StatusPendingDelete)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(m.opts.Concurrency)
	for _, e := range entries {
		id := e.LocalID
		g.Go(func() error {
			return m.Sync(ctx, id)
		})
	}
	return g.Wait()
}

// Sync pushes one entry and waits for the result. It returns nil at once
// when a push for the entry is already running.
func (m *Mediator) Sync(ctx context.Context, localID uuid.UUID) error {
	if !m.acquire(localID) {
		return nil
	}
	return m.run(ctx, localID)
}

func (m *Mediator) schedule(localID uuid.UUID) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.Sync(m.ctx, localID); err != nil && !errors.Is(err, context.Canceled) {
			m.log.WarnContext(m.ctx, "background sync failed",
				slog.String("local_id", localID.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

func (m *Mediator) emit(ev Event) {
	m.mu.Lock()
	listeners := make([]func(Event), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
