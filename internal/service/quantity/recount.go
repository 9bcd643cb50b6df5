package quantity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type keyScanner interface {
	ScanKeys(ctx context.Context, after uuid.UUID, limit int) ([]domain.InstanceKey, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecountResult summarizes a recount run.
type RecountResult struct {
	Instances int
	Groups    int
}

// Recounter recomputes quantities for every similarity group. It repairs
// drift and backfills quantities after bulk imports.
type Recounter struct {
	log         *slog.Logger
	keys        keyScanner
	reconciler  *Reconciler
	tx          txManager
	pageSize    int
	concurrency int
}

// NewRecounter creates a Recounter. Non-positive pageSize and concurrency
// default to 500 and 4.
func NewRecounter(logger *slog.Logger, keys keyScanner, reconciler *Reconciler, tx txManager, pageSize, concurrency int) *Recounter {
	if pageSize <= 0 {
		pageSize = 500
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Recounter{
		log:         logger.With("service", "recount"),
		keys:        keys,
		reconciler:  reconciler,
		tx:          tx,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Run walks all instances page by page. Within a page, keys are grouped by
// (user, name, brand) bucket; each bucket is locked and recomputed in its own
// transaction, buckets run concurrently.
func (r *Recounter) Run(ctx context.Context) (RecountResult, error) {
	var res RecountResult
	after := uuid.Nil

	for {
		page, err := r.keys.ScanKeys(ctx, after, r.pageSize)
		if err != nil {
			return res, fmt.Errorf("scan instance keys: %w", err)
		}
		if len(page) == 0 {
			break
		}
		after = page[len(page)-1].InstanceID
		res.Instances += len(page)

		buckets := groupKeys(page)
		res.Groups += len(buckets)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.concurrency)
		for _, keys := range buckets {
			g.Go(func() error {
				return r.recountBucket(gctx, keys)
			})
		}
		if err := g.Wait(); err != nil {
			return res, err
		}

		if len(page) < r.pageSize {
			break
		}
	}

	r.log.InfoContext(ctx, "recount finished",
		slog.Int("instances", res.Instances),
		slog.Int("groups", res.Groups),
	)
	return res, nil
}

func (r *Recounter) recountBucket(ctx context.Context, keys []domain.SimilarityKey) error {
	return r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := r.reconciler.Lock(txCtx, keys[0]); err != nil {
			return err
		}
		for _, key := range keys {
			if _, err := r.reconciler.Recompute(txCtx, key, domain.ReconcileCauseRepair); err != nil {
				return err
			}
		}
		return nil
	})
}

// groupKeys buckets keys by group, dropping keys that repeat an earlier one
// exactly (same size).
func groupKeys(page []domain.InstanceKey) [][]domain.SimilarityKey {
	index := map[string]int{}
	seen := map[string]bool{}
	var out [][]domain.SimilarityKey

	for _, ik := range page {
		key := ik.Key
		exact := key.GroupKey() + "|" + sizeString(key.Size)
		if seen[exact] {
			continue
		}
		seen[exact] = true

		i, ok := index[key.GroupKey()]
		if !ok {
			i = len(out)
			index[key.GroupKey()] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], key)
	}
	return out
}

func sizeString(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *s)
}
