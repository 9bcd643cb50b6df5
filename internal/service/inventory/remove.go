package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

// RemoveOwnedProduct deletes an instance and recomputes the quantity of the
// similarity group it belonged to. Removing the last instance of a group is
// not an error.
func (s *Service) RemoveOwnedProduct(ctx context.Context, instanceID uuid.UUID) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if instanceID == uuid.Nil {
		return domain.NewValidationError("id", "required")
	}

	var remaining int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		inst, err := s.owned.GetByID(txCtx, userID, instanceID)
		if err != nil {
			return fmt.Errorf("get owned product: %w", err)
		}

		rec, err := s.catalog.GetRecord(txCtx, inst.CatalogID)
		if err != nil {
			return fmt.Errorf("get catalog record: %w", err)
		}

		key := similarityKey(userID, rec, inst.SizeValue)
		if err := s.quantities.Lock(txCtx, key); err != nil {
			return err
		}

		if err := s.owned.Delete(txCtx, userID, instanceID); err != nil {
			return fmt.Errorf("delete owned product: %w", err)
		}

		remaining, err = s.quantities.Recompute(txCtx, key, domain.ReconcileCauseRemoved)
		if err != nil {
			return fmt.Errorf("reconcile quantity: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "owned product removed",
		slog.String("user_id", userID.String()),
		slog.String("instance_id", instanceID.String()),
		slog.Int("remaining", remaining),
	)

	return nil
}
