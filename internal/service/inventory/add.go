package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

// AddOwnedProduct resolves the capture to a catalog record, creates the
// owned instance and recomputes the quantity of its similarity group.
// Everything runs in one transaction: if any step fails nothing is kept,
// including a catalog record created on the way.
func (s *Service) AddOwnedProduct(ctx context.Context, input AddOwnedInput) (*domain.OwnedInstance, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	var result *domain.OwnedInstance
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if s.opts.MaxOwnedPerUser > 0 {
			if err := s.owned.LockUser(txCtx, userID); err != nil {
				return fmt.Errorf("lock user: %w", err)
			}
			count, err := s.owned.CountByUser(txCtx, userID)
			if err != nil {
				return fmt.Errorf("count owned products: %w", err)
			}
			if count >= s.opts.MaxOwnedPerUser {
				return domain.NewValidationError("products", fmt.Sprintf("limit reached (max %d)", s.opts.MaxOwnedPerUser))
			}
		}

		rec, err := s.catalog.ResolveOrCreate(txCtx, input.Catalog)
		if err != nil {
			return fmt.Errorf("resolve catalog: %w", err)
		}

		key := similarityKey(userID, rec, input.SizeValue)
		if err := s.quantities.Lock(txCtx, key); err != nil {
			return err
		}

		inst := s.newInstance(userID, rec, input)
		created, err := s.owned.Create(txCtx, inst)
		if err != nil {
			return fmt.Errorf("create owned product: %w", err)
		}

		qty, err := s.quantities.Recompute(txCtx, key, domain.ReconcileCauseAdded)
		if err != nil {
			return fmt.Errorf("reconcile quantity: %w", err)
		}
		created.Quantity = qty
		created.Catalog = rec
		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "owned product added",
		slog.String("user_id", userID.String()),
		slog.String("instance_id", result.ID.String()),
		slog.String("catalog_id", result.CatalogID.String()),
		slog.Int("quantity", result.Quantity),
	)

	return result, nil
}

func (s *Service) newInstance(userID uuid.UUID, rec *domain.CatalogRecord, input AddOwnedInput) *domain.OwnedInstance {
	now := s.now()
	inst := &domain.OwnedInstance{
		ID:              uuid.New(),
		UserID:          userID,
		CatalogID:       rec.ID,
		SizeValue:       input.SizeValue,
		SizeUnit:        domain.TrimPtr(input.SizeUnit),
		BatchCode:       domain.TrimPtr(input.Catalog.BatchCode),
		PurchaseDate:    input.PurchaseDate,
		OpenDate:        input.OpenDate,
		Favorite:        input.Favorite,
		AmountRemaining: 100,
		TagIDs:          input.TagIDs,
		BagIDs:          input.BagIDs,
		Quantity:        1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if input.ExpiryDate != nil {
		inst.ExpiryDate = input.ExpiryDate
		inst.ExpiryOverridden = true
	} else {
		inst.ExpiryDate = s.expiryFor(rec, input.Catalog.PAOText, inst.BatchCode, inst.OpenDate)
	}
	return inst
}
