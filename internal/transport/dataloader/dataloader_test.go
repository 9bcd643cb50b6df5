package dataloader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	dl "github.com/heartmarshall/beautyshelf-backend/internal/transport/dataloader"
)

type mockCatalogRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]domain.CatalogRecord
	err     error
	calls   [][]uuid.UUID
}

func (m *mockCatalogRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.CatalogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ids)
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CatalogRecord
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newRepo(names ...string) (*mockCatalogRepo, []uuid.UUID) {
	repo := &mockCatalogRepo{records: make(map[uuid.UUID]domain.CatalogRecord)}
	ids := make([]uuid.UUID, len(names))
	for i, name := range names {
		ids[i] = uuid.New()
		repo.records[ids[i]] = domain.CatalogRecord{ID: ids[i], Name: name}
	}
	return repo, ids
}

func TestAttachCatalog_SingleBatch(t *testing.T) {
	t.Parallel()

	repo, ids := newRepo("Cleanser", "Serum")
	loaders := dl.NewLoaders(repo)

	instances := []domain.OwnedInstance{
		{ID: uuid.New(), CatalogID: ids[0]},
		{ID: uuid.New(), CatalogID: ids[1]},
		{ID: uuid.New(), CatalogID: ids[0]},
	}

	require.NoError(t, loaders.AttachCatalog(context.Background(), instances))

	assert.Equal(t, "Cleanser", instances[0].Catalog.Name)
	assert.Equal(t, "Serum", instances[1].Catalog.Name)
	assert.Same(t, instances[0].Catalog, instances[2].Catalog)
	require.Len(t, repo.calls, 1)
	assert.Len(t, repo.calls[0], 2, "duplicate keys are loaded once")
}

func TestAttachCatalog_Empty(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	require.NoError(t, dl.NewLoaders(repo).AttachCatalog(context.Background(), nil))
	assert.Empty(t, repo.calls)
}

func TestAttachCatalog_StoreError(t *testing.T) {
	t.Parallel()

	repo, ids := newRepo("Toner")
	repo.err = domain.ErrStoreUnavailable

	err := dl.NewLoaders(repo).AttachCatalog(context.Background(), []domain.OwnedInstance{{CatalogID: ids[0]}})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestAttachCatalog_MissingRecord(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	err := dl.NewLoaders(repo).AttachCatalog(context.Background(), []domain.OwnedInstance{{CatalogID: uuid.New()}})

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCatalogByID_CachesWithinRequest(t *testing.T) {
	t.Parallel()

	repo, ids := newRepo("Balm")
	loaders := dl.NewLoaders(repo)
	ctx := context.Background()

	first, err := loaders.CatalogByID.Load(ctx, ids[0])()
	require.NoError(t, err)
	second, err := loaders.CatalogByID.Load(ctx, ids[0])()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, repo.calls, 1)
}

func TestMiddleware_FreshLoadersPerRequest(t *testing.T) {
	t.Parallel()

	repo, _ := newRepo()
	var seen []*dl.Loaders

	handler := dl.Middleware(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := dl.FromContext(r.Context())
		require.NotNil(t, l)
		seen = append(seen, l)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
}

func TestFromContext_Missing(t *testing.T) {
	t.Parallel()

	assert.Nil(t, dl.FromContext(context.Background()))
}
