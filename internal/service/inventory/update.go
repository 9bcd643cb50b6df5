package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

// UpdateOwnedProduct applies user-driven changes. Quantity is never
// recomputed here. When the open date changes and expiry is not overridden,
// expiry is inferred again.
func (s *Service) UpdateOwnedProduct(ctx context.Context, instanceID uuid.UUID, patch domain.OwnedPatch) (*domain.OwnedInstance, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var updated *domain.OwnedInstance
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		inst, err := s.owned.GetByIDForUpdate(txCtx, userID, instanceID)
		if err != nil {
			return fmt.Errorf("get owned product: %w", err)
		}

		reinfer := s.applyPatch(inst, patch)
		if reinfer {
			rec, err := s.catalog.GetRecord(txCtx, inst.CatalogID)
			if err != nil {
				return fmt.Errorf("get catalog record: %w", err)
			}
			inst.ExpiryDate = s.expiryFor(rec, nil, inst.BatchCode, inst.OpenDate)
		}

		updated, err = s.owned.Update(txCtx, inst)
		if err != nil {
			return fmt.Errorf("update owned product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "owned product updated",
		slog.String("user_id", userID.String()),
		slog.String("instance_id", instanceID.String()),
	)

	return updated, nil
}

// applyPatch mutates inst and reports whether expiry must be inferred again.
func (s *Service) applyPatch(inst *domain.OwnedInstance, p domain.OwnedPatch) bool {
	reinfer := false

	if p.Favorite != nil {
		inst.Favorite = *p.Favorite
	}
	if p.Finished != nil {
		inst.Finished = *p.Finished
		switch {
		case !inst.Finished:
			inst.FinishedAt = nil
		case p.FinishedAt != nil:
			inst.FinishedAt = p.FinishedAt
		case inst.FinishedAt == nil:
			now := s.now()
			inst.FinishedAt = &now
		}
	} else if p.FinishedAt != nil && inst.Finished {
		inst.FinishedAt = p.FinishedAt
	}
	if p.AmountRemaining != nil {
		inst.AmountRemaining = *p.AmountRemaining
	}
	if p.PurchaseDate != nil {
		inst.PurchaseDate = p.PurchaseDate
	}
	if p.OpenDate != nil {
		inst.OpenDate = p.OpenDate
		reinfer = !inst.ExpiryOverridden
	}
	if p.ExpiryDate != nil {
		inst.ExpiryDate = p.ExpiryDate
		inst.ExpiryOverridden = true
		reinfer = false
	}
	if p.ClearExpiryOverride {
		inst.ExpiryOverridden = false
		reinfer = true
	}
	if p.TagIDs != nil {
		inst.TagIDs = *p.TagIDs
	}
	if p.BagIDs != nil {
		inst.BagIDs = *p.BagIDs
	}

	return reinfer
}
