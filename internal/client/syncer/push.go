package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/remote"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type jobKind int

const (
	jobCreate jobKind = iota
	jobUpdate
	jobDelete
)

func (k jobKind) String() string {
	switch k {
	case jobCreate:
		return "create"
	case jobUpdate:
		return "update"
	default:
		return "delete"
	}
}

// job is one request taken from an entry.
type job struct {
	kind     jobKind
	localID  uuid.UUID
	remoteID uuid.UUID
	capture  mirror.Capture
	// patch is moved out of the entry while the update is in flight.
	patch *mirror.Patch
}

func (m *Mediator) acquire(localID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[localID]; busy {
		return false
	}
	m.inflight[localID] = struct{}{}
	return true
}

// release must be called with m.mu held.
func (m *Mediator) release(localID uuid.UUID) {
	delete(m.inflight, localID)
}

// run drives one entry until nothing is left to push. The caller holds the
// in-flight slot for the entry.
func (m *Mediator) run(ctx context.Context, localID uuid.UUID) error {
	for {
		j, ev, err := m.begin(ctx, localID)
		if ev != nil {
			m.emit(*ev)
		}
		if err != nil || j == nil {
			return err
		}

		owned, pushErr := m.push(ctx, j)
		interrupted := ctx.Err() != nil

		more, ev, err := m.finish(context.WithoutCancel(ctx), j, owned, pushErr, interrupted)
		if ev != nil {
			m.emit(*ev)
		}
		if err != nil || !more {
			return err
		}
	}
}

// begin picks the next request for an entry and marks it syncing. A nil job
// means there is nothing to send; the in-flight slot is then released.
func (m *Mediator) begin(ctx context.Context, localID uuid.UUID) (*job, *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.store.Get(ctx, localID)
	if err != nil {
		m.release(localID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	j := &job{localID: localID}
	switch {
	case e.Deleted && e.RemoteID == nil:
		m.release(localID)
		if err := m.store.Delete(ctx, localID); err != nil {
			return nil, nil, err
		}
		return nil, &Event{LocalID: localID, Removed: true}, nil
	case e.Deleted:
		j.kind = jobDelete
		j.remoteID = *e.RemoteID
	case e.RemoteID == nil:
		j.kind = jobCreate
		j.capture = e.Capture
	case !e.Patch.IsEmpty():
		j.kind = jobUpdate
		j.remoteID = *e.RemoteID
		j.patch = e.Patch
		e.Patch = nil
	default:
		m.release(localID)
		if e.Status == mirror.StatusSynced {
			return nil, nil, nil
		}
		e.Status = mirror.StatusSynced
		e.LastError = nil
		if err := m.store.Save(ctx, e); err != nil {
			return nil, nil, err
		}
		return nil, &Event{LocalID: localID, Status: e.Status}, nil
	}

	e.Status = mirror.StatusSyncing
	if err := m.store.Save(ctx, e); err != nil {
		m.release(localID)
		return nil, nil, err
	}
	return j, &Event{LocalID: localID, Status: e.Status}, nil
}

// push sends a job with bounded exponential retry. Only unavailability is
// retried; any other failure is final.
func (m *Mediator) push(ctx context.Context, j *job) (*remote.Owned, error) {
	var owned *remote.Owned
	op := func() error {
		var err error
		switch j.kind {
		case jobCreate:
			owned, err = m.api.CreateOwned(ctx, toAddRequest(j.capture))
		case jobUpdate:
			owned, err = m.api.UpdateOwned(ctx, j.remoteID, toPatchRequest(j.patch))
		case jobDelete:
			err = m.api.DeleteOwned(ctx, j.remoteID)
			if errors.Is(err, domain.ErrNotFound) {
				err = nil
			}
		}
		if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = m.opts.InitialBackoff
	exp.MaxInterval = m.opts.MaxBackoff
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(m.opts.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		m.log.DebugContext(ctx, "sync retry",
			slog.String("local_id", j.localID.String()),
			slog.String("op", j.kind.String()),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	})
	return owned, err
}

// finish applies a push result to the entry as it is now, which may differ
// from when the push began. It reports whether another push is needed; the
// in-flight slot is kept only in that case.
func (m *Mediator) finish(ctx context.Context, j *job, owned *remote.Owned, pushErr error, interrupted bool) (bool, *Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.store.Get(ctx, j.localID)
	if err != nil {
		m.release(j.localID)
		return false, nil, err
	}

	if pushErr != nil && interrupted {
		if j.kind == jobUpdate {
			e.Patch = j.patch.Merge(e.Patch)
		}
		e.Status = restingStatus(e)
		m.release(j.localID)
		if err := m.store.Save(ctx, e); err != nil {
			return false, nil, err
		}
		return false, &Event{LocalID: e.LocalID, Status: e.Status}, pushErr
	}

	if pushErr == nil {
		return m.succeed(ctx, j, e, owned)
	}
	return m.fail(ctx, j, e, pushErr)
}

func (m *Mediator) succeed(ctx context.Context, j *job, e *mirror.Entry, owned *remote.Owned) (bool, *Event, error) {
	if j.kind == jobDelete {
		m.release(j.localID)
		if err := m.store.Delete(ctx, j.localID); err != nil {
			return false, nil, err
		}
		return false, &Event{LocalID: j.localID, Removed: true}, nil
	}

	if j.kind == jobCreate {
		id := owned.ID
		e.RemoteID = &id
	}
	e.Resolved = resolvedFrom(owned, e.Resolved)
	e.Attempts = 0
	e.LastError = nil

	more := true
	switch {
	case e.Deleted:
		// Deleted while the request was in flight: never synced.
		e.Status = mirror.StatusPendingDelete
	case !e.Patch.IsEmpty():
		e.Status = mirror.StatusPending
	default:
		e.Status = mirror.StatusSynced
		more = false
	}

	if err := m.store.Save(ctx, e); err != nil {
		m.release(j.localID)
		return false, nil, err
	}
	if !more {
		m.release(j.localID)
	}
	return more, &Event{LocalID: e.LocalID, Status: e.Status}, nil
}

func (m *Mediator) fail(ctx context.Context, j *job, e *mirror.Entry, pushErr error) (bool, *Event, error) {
	m.release(j.localID)

	if j.kind == jobCreate && e.Deleted {
		// The server never acknowledged the entry, so the delete is local.
		if err := m.store.Delete(ctx, j.localID); err != nil {
			return false, nil, err
		}
		return false, &Event{LocalID: j.localID, Removed: true}, nil
	}

	msg := pushErr.Error()
	e.Attempts++
	e.LastError = &msg
	if e.Deleted {
		e.Status = mirror.StatusPendingDelete
	} else {
		if j.kind == jobUpdate {
			e.Patch = j.patch.Merge(e.Patch)
		}
		e.Status = mirror.StatusSyncFailed
	}
	if err := m.store.Save(ctx, e); err != nil {
		return false, nil, err
	}

	m.log.WarnContext(ctx, "sync failed",
		slog.String("local_id", j.localID.String()),
		slog.String("op", j.kind.String()),
		slog.Int("attempts", e.Attempts),
		slog.String("error", msg),
	)

	failErr := fmt.Errorf("%w: %s %s: %w", domain.ErrSyncFailed, j.kind, j.localID, pushErr)
	return false, &Event{LocalID: j.localID, Status: e.Status, Err: failErr}, failErr
}

// restingStatus is the status of an entry with no request in flight.
func restingStatus(e *mirror.Entry) mirror.Status {
	if e.Deleted {
		return mirror.StatusPendingDelete
	}
	return mirror.StatusPending
}

// ---------------------------------------------------------------------------
// Wire mapping
// ---------------------------------------------------------------------------

func toAddRequest(c mirror.Capture) remote.AddRequest {
	return remote.AddRequest{
		Barcode:      c.Barcode,
		Name:         c.Name,
		Brand:        c.Brand,
		SizeValue:    c.SizeValue,
		SizeUnit:     c.SizeUnit,
		PurchaseDate: remote.DateOf(c.PurchaseDate),
		OpenDate:     remote.DateOf(c.OpenDate),
		ExpiryDate:   remote.DateOf(c.ExpiryDate),
		Favorite:     c.Favorite,
		BatchCode:    c.BatchCode,
		PAOText:      c.PAOText,
		Vegan:        c.Vegan,
		CrueltyFree:  c.CrueltyFree,
		TagIDs:       c.TagIDs,
		BagIDs:       c.BagIDs,
	}
}

func toPatchRequest(p *mirror.Patch) remote.PatchRequest {
	if p == nil {
		return remote.PatchRequest{}
	}
	return remote.PatchRequest{
		Favorite:        p.Favorite,
		Finished:        p.Finished,
		AmountRemaining: p.AmountRemaining,
		OpenDate:        remote.DateOf(p.OpenDate),
		ExpiryDate:      remote.DateOf(p.ExpiryDate),
		TagIDs:          p.TagIDs,
		BagIDs:          p.BagIDs,
	}
}

// resolvedFrom takes the server's view of an entry. Catalog fields are kept
// from prev when the response does not embed the catalog.
func resolvedFrom(o *remote.Owned, prev *mirror.Resolved) *mirror.Resolved {
	r := &mirror.Resolved{
		CatalogID:       o.CatalogID,
		Quantity:        o.Quantity,
		ExpiryDate:      o.ExpiryDate.Ptr(),
		OpenDate:        o.OpenDate.Ptr(),
		Favorite:        o.Favorite,
		Finished:        o.Finished,
		AmountRemaining: o.AmountRemaining,
		TagIDs:          o.TagIDs,
		BagIDs:          o.BagIDs,
	}
	switch {
	case o.Catalog != nil:
		r.Name = o.Catalog.Name
		r.Brand = o.Catalog.Brand
		r.ImageURL = o.Catalog.ImageURL
	case prev != nil:
		r.Name = prev.Name
		r.Brand = prev.Brand
		r.ImageURL = prev.ImageURL
	}
	return r
}
