package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/pkg/ctxutil"
)

// RecordUsage appends a usage entry and bumps the usage count. A reported
// remaining amount replaces the instance's current one.
func (s *Service) RecordUsage(ctx context.Context, instanceID uuid.UUID, input UsageInput) (*domain.OwnedInstance, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	usedAt := s.now()
	if input.UsedAt != nil {
		usedAt = input.UsedAt.UTC()
	}

	var updated *domain.OwnedInstance
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		inst, err := s.owned.GetByIDForUpdate(txCtx, userID, instanceID)
		if err != nil {
			return fmt.Errorf("get owned product: %w", err)
		}

		entry := &domain.UsageEntry{
			ID:              uuid.New(),
			InstanceID:      inst.ID,
			UsedAt:          usedAt,
			Note:            domain.TrimPtr(input.Note),
			AmountRemaining: input.AmountRemaining,
		}
		if err := s.owned.InsertUsage(txCtx, entry); err != nil {
			return fmt.Errorf("insert usage: %w", err)
		}

		inst.UsageCount++
		if input.AmountRemaining != nil {
			inst.AmountRemaining = *input.AmountRemaining
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

	s.log.InfoContext(ctx, "usage recorded",
		slog.String("user_id", userID.String()),
		slog.String("instance_id", instanceID.String()),
		slog.Int("usage_count", updated.UsageCount),
	)

	return updated, nil
}
