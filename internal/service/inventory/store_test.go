package inventory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

// memStore is a transactional in-memory stand-in for both PostgreSQL stores.
// Transactions are serialized and roll back to a snapshot on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	catalogs  map[uuid.UUID]domain.CatalogRecord
	barcodes  map[string]uuid.UUID
	instances map[uuid.UUID]domain.OwnedInstance
	usage     map[uuid.UUID][]domain.UsageEntry

	failOwnedCreate error
	failRecompute   error

	// calls records row and user lock requests in order.
	calls []string
}

func newMemStore() *memStore {
	return &memStore{
		catalogs:  map[uuid.UUID]domain.CatalogRecord{},
		barcodes:  map[string]uuid.UUID{},
		instances: map[uuid.UUID]domain.OwnedInstance{},
		usage:     map[uuid.UUID][]domain.UsageEntry{},
	}
}

type inTxKey struct{}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	catalogs, barcodes := maps.Clone(m.catalogs), maps.Clone(m.barcodes)
	instances, usage := maps.Clone(m.instances), maps.Clone(m.usage)
	m.mu.Unlock()

	if err = fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		m.mu.Lock()
		m.catalogs, m.barcodes, m.instances, m.usage = catalogs, barcodes, instances, usage
		m.mu.Unlock()
	}
	return err
}

func (m *memStore) catalogCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.catalogs)
}

func (m *memStore) instanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

func (m *memStore) instance(id uuid.UUID) (domain.OwnedInstance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	return inst, ok
}

// ---------------------------------------------------------------------------
// Catalog view
// ---------------------------------------------------------------------------

type memCatalog struct{ *memStore }

func (m memCatalog) GetByID(_ context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.catalogs[id]
	if !ok {
		return nil, fmt.Errorf("catalog_product %s: %w", id, domain.ErrNotFound)
	}
	return &rec, nil
}

func (m memCatalog) FindByBarcode(_ context.Context, barcode string) (*domain.CatalogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.barcodes[barcode]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec := m.catalogs[id]
	return &rec, nil
}

func (m memCatalog) Create(_ context.Context, rec *domain.CatalogRecord) (*domain.CatalogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Barcode != nil {
		if _, taken := m.barcodes[*rec.Barcode]; taken {
			return nil, domain.ErrDuplicateBarcode
		}
		m.barcodes[*rec.Barcode] = rec.ID
	}
	m.catalogs[rec.ID] = *rec
	out := *rec
	return &out, nil
}

func (m memCatalog) Update(ctx context.Context, id uuid.UUID, _ *domain.CatalogRecord) (*domain.CatalogRecord, error) {
	return m.GetByID(ctx, id)
}

// ---------------------------------------------------------------------------
// Owned view
// ---------------------------------------------------------------------------

type memOwned struct{ *memStore }

func (m memOwned) GetByID(_ context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.UserID != userID {
		return nil, fmt.Errorf("owned_product %s: %w", id, domain.ErrNotFound)
	}
	return &inst, nil
}

func (m memOwned) GetByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error) {
	m.record("get_for_update")
	return m.GetByID(ctx, userID, id)
}

func (m memOwned) LockUser(context.Context, uuid.UUID) error {
	m.record("lock_user")
	return nil
}

func (m *memStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *memStore) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.calls...)
}

func (m memOwned) List(_ context.Context, userID uuid.UUID, f domain.OwnedFilter) ([]domain.OwnedInstance, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OwnedInstance
	for _, inst := range m.instances {
		if inst.UserID != userID {
			continue
		}
		if f.Favorite != nil && inst.Favorite != *f.Favorite {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (m memOwned) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	m.record("count")
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inst := range m.instances {
		if inst.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m memOwned) Create(_ context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOwnedCreate != nil {
		return nil, m.failOwnedCreate
	}
	m.instances[inst.ID] = *inst
	out := *inst
	return &out, nil
}

func (m memOwned) Update(_ context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.instances[inst.ID]
	if !ok || cur.UserID != inst.UserID {
		return nil, domain.ErrNotFound
	}
	next := *inst
	next.Quantity = cur.Quantity
	next.UpdatedAt = time.Now().UTC()
	m.instances[inst.ID] = next
	return &next, nil
}

func (m memOwned) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok || inst.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.instances, id)
	delete(m.usage, id)
	return nil
}

func (m memOwned) InsertUsage(_ context.Context, e *domain.UsageEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage[e.InstanceID] = append(m.usage[e.InstanceID], *e)
	return nil
}

func (m memOwned) ListUsage(_ context.Context, instanceID uuid.UUID) ([]domain.UsageEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.UsageEntry{}, m.usage[instanceID]...), nil
}

func (m memOwned) LockGroup(context.Context, domain.SimilarityKey) error { return nil }

func (m memOwned) FindSimilar(_ context.Context, q domain.SimilarityQuery) ([]domain.SimilarInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecompute != nil {
		return nil, m.failRecompute
	}
	var out []domain.SimilarInstance
	for _, inst := range m.instances {
		rec := m.catalogs[inst.CatalogID]
		if inst.UserID != q.UserID || rec.NameNormalized != q.Name || rec.BrandNormalized != q.Brand {
			continue
		}
		if inst.SizeValue != nil &&
			((q.SizeMin != nil && *inst.SizeValue < *q.SizeMin) || (q.SizeMax != nil && *inst.SizeValue > *q.SizeMax)) {
			continue
		}
		out = append(out, domain.SimilarInstance{
			ID: inst.ID, Name: rec.NameNormalized, Brand: rec.BrandNormalized, Size: inst.SizeValue, Quantity: inst.Quantity,
		})
	}
	return out, nil
}

func (m memOwned) UpdateMany(_ context.Context, ids []uuid.UUID, fields domain.OwnedBulkUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		inst, ok := m.instances[id]
		if !ok {
			continue
		}
		inst.Quantity = *fields.Quantity
		m.instances[id] = inst
		n++
	}
	return n, nil
}
