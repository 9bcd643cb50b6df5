// Package inventory orchestrates owned-product operations: resolving the
// catalog record, persisting the instance and reconciling quantities, all
// inside one transaction.
package inventory

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
)

type catalogResolver interface {
	ResolveOrCreate(ctx context.Context, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
}

type ownedRepo interface {
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error)
	GetByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error)
	List(ctx context.Context, userID uuid.UUID, f domain.OwnedFilter) ([]domain.OwnedInstance, int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	LockUser(ctx context.Context, userID uuid.UUID) error
	Create(ctx context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error)
	Update(ctx context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	InsertUsage(ctx context.Context, e *domain.UsageEntry) error
	ListUsage(ctx context.Context, instanceID uuid.UUID) ([]domain.UsageEntry, error)
}

type quantityReconciler interface {
	Lock(ctx context.Context, key domain.SimilarityKey) error
	Recompute(ctx context.Context, key domain.SimilarityKey, cause domain.ReconcileCause) (int, error)
}

type expiryInferrer interface {
	Infer(periodText, batchCode string, openDate *time.Time) expiry.Estimate
	ManufactureDate(batchCode string) (time.Time, bool)
	ShelfLifeExpiry(manufactured time.Time) time.Time
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Options tune inventory limits.
type Options struct {
	// MaxOwnedPerUser caps instances per user. Zero disables the cap.
	MaxOwnedPerUser int
}

// Service implements the owned-product operations.
type Service struct {
	log        *slog.Logger
	catalog    catalogResolver
	owned      ownedRepo
	quantities quantityReconciler
	expiry     expiryInferrer
	tx         txManager
	opts       Options
	now        func() time.Time
}

// NewService creates a new inventory Service.
func NewService(
	logger *slog.Logger,
	catalog catalogResolver,
	owned ownedRepo,
	quantities quantityReconciler,
	inferrer expiryInferrer,
	tx txManager,
	opts Options,
) *Service {
	return &Service{
		log:        logger.With("service", "inventory"),
		catalog:    catalog,
		owned:      owned,
		quantities: quantities,
		expiry:     inferrer,
		tx:         tx,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// InferExpiry previews expiry inference without persisting anything.
func (s *Service) InferExpiry(periodText, batchCode string, openDate *time.Time) expiry.Estimate {
	return s.expiry.Infer(periodText, batchCode, openDate)
}

// expiryFor derives an instance expiry from the catalog record and the
// captured values. Captured PAO text is used only when the record has none;
// a captured batch code wins over the record's. A PAO without an open date
// gives no estimate, so an unopened unit falls back to the shelf life of its
// own batch code, then to the record's shelf-life expiry. Returns nil when
// nothing is known.
func (s *Service) expiryFor(rec *domain.CatalogRecord, paoText, batchCode *string, openDate *time.Time) *time.Time {
	pao := deref(rec.PAOText)
	if pao == "" {
		pao = deref(paoText)
	}
	batch := deref(batchCode)
	if batch == "" {
		batch = deref(rec.BatchCode)
	}

	if est := s.expiry.Infer(pao, batch, openDate); est.ExpiryDate != nil {
		return est.ExpiryDate
	}
	if captured := deref(batchCode); captured != "" {
		if made, ok := s.expiry.ManufactureDate(captured); ok {
			exp := s.expiry.ShelfLifeExpiry(made)
			return &exp
		}
	}
	return rec.ShelfLifeExpiry
}

func similarityKey(userID uuid.UUID, rec *domain.CatalogRecord, size *float64) domain.SimilarityKey {
	return domain.NewSimilarityKey(userID, rec.Name, rec.Brand, size)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
