package rest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/inventory"
)

type inventoryServiceMock struct {
	AddOwnedProductFunc    func(ctx context.Context, input inventory.AddOwnedInput) (*domain.OwnedInstance, error)
	RemoveOwnedProductFunc func(ctx context.Context, id uuid.UUID) error
	UpdateOwnedProductFunc func(ctx context.Context, id uuid.UUID, patch domain.OwnedPatch) (*domain.OwnedInstance, error)
	RecordUsageFunc        func(ctx context.Context, id uuid.UUID, input inventory.UsageInput) (*domain.OwnedInstance, error)
	GetOwnedProductFunc    func(ctx context.Context, id uuid.UUID) (*domain.OwnedInstance, error)
	ListOwnedProductsFunc  func(ctx context.Context, filter domain.OwnedFilter) ([]domain.OwnedInstance, int, error)
	InferExpiryFunc        func(periodText, batchCode string, openDate *time.Time) expiry.Estimate
}

func (m *inventoryServiceMock) AddOwnedProduct(ctx context.Context, input inventory.AddOwnedInput) (*domain.OwnedInstance, error) {
	return m.AddOwnedProductFunc(ctx, input)
}

func (m *inventoryServiceMock) RemoveOwnedProduct(ctx context.Context, id uuid.UUID) error {
	return m.RemoveOwnedProductFunc(ctx, id)
}

func (m *inventoryServiceMock) UpdateOwnedProduct(ctx context.Context, id uuid.UUID, patch domain.OwnedPatch) (*domain.OwnedInstance, error) {
	return m.UpdateOwnedProductFunc(ctx, id, patch)
}

func (m *inventoryServiceMock) RecordUsage(ctx context.Context, id uuid.UUID, input inventory.UsageInput) (*domain.OwnedInstance, error) {
	return m.RecordUsageFunc(ctx, id, input)
}

func (m *inventoryServiceMock) GetOwnedProduct(ctx context.Context, id uuid.UUID) (*domain.OwnedInstance, error) {
	return m.GetOwnedProductFunc(ctx, id)
}

func (m *inventoryServiceMock) ListOwnedProducts(ctx context.Context, filter domain.OwnedFilter) ([]domain.OwnedInstance, int, error) {
	return m.ListOwnedProductsFunc(ctx, filter)
}

func (m *inventoryServiceMock) InferExpiry(periodText, batchCode string, openDate *time.Time) expiry.Estimate {
	return m.InferExpiryFunc(periodText, batchCode, openDate)
}

type catalogServiceMock struct {
	GetRecordFunc     func(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
	FindByBarcodeFunc func(ctx context.Context, barcode string) (*domain.CatalogRecord, error)
	EnrichFunc        func(ctx context.Context, id uuid.UUID, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error)
}

func (m *catalogServiceMock) GetRecord(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	return m.GetRecordFunc(ctx, id)
}

func (m *catalogServiceMock) FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogRecord, error) {
	return m.FindByBarcodeFunc(ctx, barcode)
}

func (m *catalogServiceMock) Enrich(ctx context.Context, id uuid.UUID, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error) {
	return m.EnrichFunc(ctx, id, attrs)
}

type catalogRepoStub struct {
	records map[uuid.UUID]domain.CatalogRecord
}

func (s *catalogRepoStub) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.CatalogRecord, error) {
	var out []domain.CatalogRecord
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}
