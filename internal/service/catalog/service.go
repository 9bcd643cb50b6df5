package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type catalogRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogRecord, error)
	Create(ctx context.Context, rec *domain.CatalogRecord) (*domain.CatalogRecord, error)
	Update(ctx context.Context, id uuid.UUID, in *domain.CatalogRecord) (*domain.CatalogRecord, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type dateInferrer interface {
	ManufactureDate(batchCode string) (time.Time, bool)
	ShelfLifeExpiry(manufactured time.Time) time.Time
}

// Service resolves captured product attributes to shared catalog records.
type Service struct {
	log     *slog.Logger
	records catalogRepo
	tx      txManager
	dates   dateInferrer
	now     func() time.Time
}

// NewService creates a new catalog Service.
func NewService(logger *slog.Logger, records catalogRepo, tx txManager, dates dateInferrer) *Service {
	return &Service{
		log:     logger.With("service", "catalog"),
		records: records,
		tx:      tx,
		dates:   dates,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetRecord returns a catalog record by id.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}
	return s.records.GetByID(ctx, id)
}

// FindByBarcode looks up the record owning a barcode. The barcode is
// normalized before the lookup.
func (s *Service) FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogRecord, error) {
	code := domain.NormalizeBarcode(barcode)
	if code == "" {
		return nil, domain.NewValidationError("barcode", "required")
	}
	return s.records.FindByBarcode(ctx, code)
}
