// Package quantity keeps the derived quantity of owned instances equal to the
// size of their similarity group.
package quantity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type ownedRepo interface {
	LockGroup(ctx context.Context, key domain.SimilarityKey) error
	FindSimilar(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarInstance, error)
	UpdateMany(ctx context.Context, ids []uuid.UUID, fields domain.OwnedBulkUpdate) (int64, error)
}

// Reconciler recomputes quantities for similarity groups.
type Reconciler struct {
	log       *slog.Logger
	owned     ownedRepo
	predicate Predicate
}

// NewReconciler creates a Reconciler. A nil predicate uses NameBrandSize with
// the default tolerance.
func NewReconciler(logger *slog.Logger, owned ownedRepo, predicate Predicate) *Reconciler {
	if predicate == nil {
		predicate = NewNameBrandSize(DefaultSizeTolerance)
	}
	return &Reconciler{
		log:       logger.With("service", "quantity"),
		owned:     owned,
		predicate: predicate,
	}
}

// Lock serializes reconciliation of the key's (user, name, brand) bucket for
// the rest of the current transaction. Callers take it before inserting or
// deleting the triggering instance so the following Recompute sees every
// committed change in the bucket.
func (r *Reconciler) Lock(ctx context.Context, key domain.SimilarityKey) error {
	if err := r.owned.LockGroup(ctx, key); err != nil {
		return fmt.Errorf("lock similarity group: %w", err)
	}
	return nil
}

// Recompute counts the instances similar to key and writes that count as the
// quantity of each of them. It returns the count. An empty group is not an
// error: there is nothing left to hold a quantity.
//
// On removal the caller deletes the instance first, so the count already
// reflects the post-delete state.
func (r *Reconciler) Recompute(ctx context.Context, key domain.SimilarityKey, cause domain.ReconcileCause) (int, error) {
	candidates, err := r.owned.FindSimilar(ctx, r.predicate.Query(key))
	if err != nil {
		return 0, fmt.Errorf("find similar instances: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		if r.predicate.Match(key, c) {
			ids = append(ids, c.ID)
		}
	}
	count := len(ids)

	if count == 0 {
		r.log.DebugContext(ctx, "similarity group empty",
			slog.String("user_id", key.UserID.String()),
			slog.String("cause", string(cause)),
		)
		return 0, nil
	}

	if _, err := r.owned.UpdateMany(ctx, ids, domain.OwnedBulkUpdate{Quantity: &count}); err != nil {
		return 0, fmt.Errorf("update quantities: %w", err)
	}

	r.log.DebugContext(ctx, "quantity recomputed",
		slog.String("user_id", key.UserID.String()),
		slog.String("cause", string(cause)),
		slog.Int("quantity", count),
	)

	return count, nil
}
