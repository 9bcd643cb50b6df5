package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// GetOwnedProduct returns an instance with its catalog record and usage log.
func (s *Service) GetOwnedProduct(ctx context.Context, instanceID uuid.UUID) (*domain.OwnedInstance, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	inst, err := s.owned.GetByID(ctx, userID, instanceID)
	if err != nil {
		return nil, err
	}

	rec, err := s.catalog.GetRecord(ctx, inst.CatalogID)
	if err != nil {
		return nil, fmt.Errorf("get catalog record: %w", err)
	}
	inst.Catalog = rec

	usage, err := s.owned.ListUsage(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	inst.Usage = usage

	return inst, nil
}

// ListOwnedProducts returns a page of the user's instances and the total
// count. Catalog records are not attached; callers batch-load them.
func (s *Service) ListOwnedProducts(ctx context.Context, filter domain.OwnedFilter) ([]domain.OwnedInstance, int, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, 0, domain.ErrUnauthorized
	}
	if filter.Offset < 0 {
		return nil, 0, domain.NewValidationError("offset", "must not be negative")
	}

	filter.Limit = clampLimit(filter.Limit)
	return s.owned.List(ctx, userID, filter)
}

// clampLimit keeps the page size within [1, 100], defaulting 0 to 20.
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
