package syncer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/client/remote"
)

// ownedAPIMock is a func-field implementation of ownedAPI that records calls.
type ownedAPIMock struct {
	CreateOwnedFunc func(ctx context.Context, req remote.AddRequest) (*remote.Owned, error)
	UpdateOwnedFunc func(ctx context.Context, id uuid.UUID, req remote.PatchRequest) (*remote.Owned, error)
	DeleteOwnedFunc func(ctx context.Context, id uuid.UUID) error

	mu      sync.Mutex
	creates []remote.AddRequest
	updates []remote.PatchRequest
	deletes []uuid.UUID
}

func (m *ownedAPIMock) CreateOwned(ctx context.Context, req remote.AddRequest) (*remote.Owned, error) {
	m.mu.Lock()
	m.creates = append(m.creates, req)
	m.mu.Unlock()
	if m.CreateOwnedFunc == nil {
		panic("ownedAPIMock.CreateOwnedFunc: method is nil but CreateOwned was just called")
	}
	return m.CreateOwnedFunc(ctx, req)
}

func (m *ownedAPIMock) UpdateOwned(ctx context.Context, id uuid.UUID, req remote.PatchRequest) (*remote.Owned, error) {
	m.mu.Lock()
	m.updates = append(m.updates, req)
	m.mu.Unlock()
	if m.UpdateOwnedFunc == nil {
		panic("ownedAPIMock.UpdateOwnedFunc: method is nil but UpdateOwned was just called")
	}
	return m.UpdateOwnedFunc(ctx, id, req)
}

func (m *ownedAPIMock) DeleteOwned(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.deletes = append(m.deletes, id)
	m.mu.Unlock()
	if m.DeleteOwnedFunc == nil {
		panic("ownedAPIMock.DeleteOwnedFunc: method is nil but DeleteOwned was just called")
	}
	return m.DeleteOwnedFunc(ctx, id)
}

func (m *ownedAPIMock) CreateCalls() []remote.AddRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]remote.AddRequest(nil), m.creates...)
}

func (m *ownedAPIMock) UpdateCalls() []remote.PatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]remote.PatchRequest(nil), m.updates...)
}

func (m *ownedAPIMock) DeleteCalls() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deletes...)
}
