// Package dataloader provides per-request loaders that batch catalog lookups
// for owned-instance listings into single SQL calls. Loaders call the catalog
// store directly; catalog records are shared and carry no per-user scoping.
package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader/v7"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

const (
	maxBatch = 100
	wait     = 2 * time.Millisecond
)

type catalogRepo interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CatalogRecord, error)
}

// Loaders holds per-request loader instances. Results are cached for the
// lifetime of one request only.
type Loaders struct {
	CatalogByID *dataloader.Loader[uuid.UUID, *domain.CatalogRecord]
}

// NewLoaders creates a fresh set of loaders backed by the catalog store.
func NewLoaders(catalog catalogRepo) *Loaders {
	return &Loaders{
		CatalogByID: dataloader.NewBatchedLoader(
			newCatalogBatchFn(catalog),
			dataloader.WithWait[uuid.UUID, *domain.CatalogRecord](wait),
			dataloader.WithBatchCapacity[uuid.UUID, *domain.CatalogRecord](maxBatch),
		),
	}
}

func newCatalogBatchFn(repo catalogRepo) dataloader.BatchFunc[uuid.UUID, *domain.CatalogRecord] {
	return func(ctx context.Context, keys []uuid.UUID) []*dataloader.Result[*domain.CatalogRecord] {
		results := make([]*dataloader.Result[*domain.CatalogRecord], len(keys))

		rows, err := repo.GetByIDs(ctx, keys)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result[*domain.CatalogRecord]{Error: err}
			}
			return results
		}

		byID := make(map[uuid.UUID]*domain.CatalogRecord, len(rows))
		for i := range rows {
			byID[rows[i].ID] = &rows[i]
		}
		for i, key := range keys {
			rec, ok := byID[key]
			if !ok {
				results[i] = &dataloader.Result[*domain.CatalogRecord]{Error: domain.ErrNotFound}
				continue
			}
			results[i] = &dataloader.Result[*domain.CatalogRecord]{Data: rec}
		}
		return results
	}
}

// AttachCatalog loads catalog records for all instances in one batch and sets
// inst.Catalog in place.
func (l *Loaders) AttachCatalog(ctx context.Context, instances []domain.OwnedInstance) error {
	if len(instances) == 0 {
		return nil
	}
	keys := make([]uuid.UUID, len(instances))
	for i := range instances {
		keys[i] = instances[i].CatalogID
	}

	records, errs := l.CatalogByID.LoadMany(ctx, keys)()
	for i := range instances {
		if len(errs) > i && errs[i] != nil {
			return errs[i]
		}
		instances[i].Catalog = records[i]
	}
	return nil
}

type loadersKey struct{}

// WithLoaders stores Loaders in the context.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, l)
}

// FromContext retrieves Loaders from the context, or nil when the middleware
// is not installed.
func FromContext(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey{}).(*Loaders)
	return l
}

// Middleware instantiates per-request loaders and stores them in the context.
func Middleware(catalog catalogRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(catalog))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
