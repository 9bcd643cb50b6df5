// Package owned implements the per-user owned product store using PostgreSQL.
package owned

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/beautyshelf-backend/internal/adapter/postgres"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

const (
	table      = "owned_products"
	usageTable = "usage_entries"
)

var columns = []string{
	"id", "user_id", "catalog_id", "size_value", "size_unit", "batch_code",
	"purchase_date", "open_date", "expiry_date", "expiry_overridden",
	"favorite", "finished", "finished_at", "amount_remaining", "usage_count",
	"tag_ids", "bag_ids", "quantity", "created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides owned-instance persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new owned-instance repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns an instance owned by userID.
func (r *Repo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error) {
	q := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"id": id, "user_id": userID})
	return r.getOne(ctx, q, id)
}

// GetByIDForUpdate is GetByID that also locks the row until the surrounding
// transaction ends. Read-modify-write callers use it so concurrent updates
// of the same instance apply one after the other.
func (r *Repo) GetByIDForUpdate(ctx context.Context, userID, id uuid.UUID) (*domain.OwnedInstance, error) {
	q := psql.Select(columns...).From(table).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		Suffix("FOR UPDATE")
	return r.getOne(ctx, q, id)
}

// List returns a page of the user's instances, newest first, together with
// the total number of instances matching the filter.
func (r *Repo) List(ctx context.Context, userID uuid.UUID, f domain.OwnedFilter) ([]domain.OwnedInstance, int, error) {
	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if f.Favorite != nil {
		where = append(where, squirrel.Eq{"favorite": *f.Favorite})
	}
	if f.Finished != nil {
		where = append(where, squirrel.Eq{"finished": *f.Finished})
	}
	if f.ExpiringBefore != nil {
		where = append(where, squirrel.Lt{"expiry_date": *f.ExpiringBefore})
	}

	querier := postgres.QuerierFromCtx(ctx, r.db)

	countSQL, countArgs, err := psql.Select("count(*)").From(table).Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build owned count: %w", err)
	}
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.MapError(err, "owned_product", uuid.Nil)
	}

	q := psql.Select(columns...).From(table).Where(where).OrderBy("created_at DESC", "id")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build owned list: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, 0, postgres.MapError(err, "owned_product", uuid.Nil)
	}

	out := make([]domain.OwnedInstance, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, total, nil
}

// CountByUser returns how many instances a user owns.
func (r *Repo) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	sql, args, err := psql.Select("count(*)").From(table).Where(squirrel.Eq{"user_id": userID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build owned count: %w", err)
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "owned_product", uuid.Nil)
	}
	return n, nil
}

// FindSimilar returns the user's instances whose catalog record matches the
// normalized name and brand and whose size (when known) falls inside the
// query window. Results are ordered by creation time.
func (r *Repo) FindSimilar(ctx context.Context, sq domain.SimilarityQuery) ([]domain.SimilarInstance, error) {
	q := psql.Select("o.id", "c.name_normalized", "c.brand_normalized", "o.size_value", "o.quantity").
		From(table+" o").
		Join("catalog_products c ON c.id = o.catalog_id").
		Where(squirrel.Eq{
			"o.user_id":          sq.UserID,
			"c.name_normalized":  sq.Name,
			"c.brand_normalized": sq.Brand,
		}).
		OrderBy("o.created_at", "o.id")

	if sq.SizeMin != nil || sq.SizeMax != nil {
		window := squirrel.And{}
		if sq.SizeMin != nil {
			window = append(window, squirrel.GtOrEq{"o.size_value": *sq.SizeMin})
		}
		if sq.SizeMax != nil {
			window = append(window, squirrel.LtOrEq{"o.size_value": *sq.SizeMax})
		}
		q = q.Where(squirrel.Or{squirrel.Eq{"o.size_value": nil}, window})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build similar query: %w", err)
	}

	var rows []similarRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "owned_product", uuid.Nil)
	}

	out := make([]domain.SimilarInstance, len(rows))
	for i, rw := range rows {
		out[i] = domain.SimilarInstance{
			ID:       rw.ID,
			Name:     rw.Name,
			Brand:    rw.Brand,
			Size:     rw.Size,
			Quantity: rw.Quantity,
		}
	}
	return out, nil
}

// ScanKeys walks all instances in id order, returning the similarity key of
// each. Pass the last returned id as after to fetch the next page.
func (r *Repo) ScanKeys(ctx context.Context, after uuid.UUID, limit int) ([]domain.InstanceKey, error) {
	sql, args, err := psql.Select("o.id", "o.user_id", "c.name_normalized", "c.brand_normalized", "o.size_value").
		From(table + " o").
		Join("catalog_products c ON c.id = o.catalog_id").
		Where(squirrel.Gt{"o.id": after}).
		OrderBy("o.id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build key scan: %w", err)
	}

	var rows []keyRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "owned_product", uuid.Nil)
	}

	out := make([]domain.InstanceKey, len(rows))
	for i, rw := range rows {
		out[i] = domain.InstanceKey{
			InstanceID: rw.ID,
			Key: domain.SimilarityKey{
				UserID: rw.UserID,
				Name:   rw.Name,
				Brand:  rw.Brand,
				Size:   rw.Size,
			},
		}
	}
	return out, nil
}

// ListUsage returns the usage log of an instance, oldest first.
func (r *Repo) ListUsage(ctx context.Context, instanceID uuid.UUID) ([]domain.UsageEntry, error) {
	sql, args, err := psql.Select("id", "instance_id", "used_at", "note", "amount_remaining").
		From(usageTable).
		Where(squirrel.Eq{"instance_id": instanceID}).
		OrderBy("used_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build usage list: %w", err)
	}

	var rows []usageRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "usage_entry", instanceID)
	}

	out := make([]domain.UsageEntry, len(rows))
	for i, rw := range rows {
		out[i] = domain.UsageEntry(rw)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts an instance. Quantity is written as given; the reconciler
// owns its final value.
func (r *Repo) Create(ctx context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error) {
	q := psql.Insert(table).
		Columns(columns...).
		Values(
			inst.ID, inst.UserID, inst.CatalogID, inst.SizeValue, inst.SizeUnit, inst.BatchCode,
			inst.PurchaseDate, inst.OpenDate, inst.ExpiryDate, inst.ExpiryOverridden,
			inst.Favorite, inst.Finished, inst.FinishedAt, inst.AmountRemaining, inst.UsageCount,
			idsOrEmpty(inst.TagIDs), idsOrEmpty(inst.BagIDs), inst.Quantity, inst.CreatedAt, inst.UpdatedAt,
		).
		Suffix("RETURNING " + returning())
	return r.getOne(ctx, q, inst.ID)
}

// Update writes the user-mutable fields of an instance. Quantity is not
// touched.
func (r *Repo) Update(ctx context.Context, inst *domain.OwnedInstance) (*domain.OwnedInstance, error) {
	q := psql.Update(table).
		SetMap(map[string]any{
			"purchase_date":     inst.PurchaseDate,
			"open_date":         inst.OpenDate,
			"expiry_date":       inst.ExpiryDate,
			"expiry_overridden": inst.ExpiryOverridden,
			"favorite":          inst.Favorite,
			"finished":          inst.Finished,
			"finished_at":       inst.FinishedAt,
			"amount_remaining":  inst.AmountRemaining,
			"usage_count":       inst.UsageCount,
			"tag_ids":           idsOrEmpty(inst.TagIDs),
			"bag_ids":           idsOrEmpty(inst.BagIDs),
			"updated_at":        time.Now().UTC(),
		}).
		Where(squirrel.Eq{"id": inst.ID, "user_id": inst.UserID}).
		Suffix("RETURNING " + returning())
	return r.getOne(ctx, q, inst.ID)
}

// Delete removes an instance owned by userID.
func (r *Repo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	sql, args, err := psql.Delete(table).Where(squirrel.Eq{"id": id, "user_id": userID}).ToSql()
	if err != nil {
		return fmt.Errorf("build owned delete: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "owned_product", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("owned_product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateMany applies the same field values to every listed instance and
// returns the number of rows written.
func (r *Repo) UpdateMany(ctx context.Context, ids []uuid.UUID, fields domain.OwnedBulkUpdate) (int64, error) {
	if len(ids) == 0 || fields.Quantity == nil {
		return 0, nil
	}

	sql, args, err := psql.Update(table).
		Set("quantity", *fields.Quantity).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build owned bulk update: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.MapError(err, "owned_product", uuid.Nil)
	}
	return tag.RowsAffected(), nil
}

// LockGroup takes a transaction-scoped advisory lock on the key's
// (user, name, brand) bucket. Must run inside a transaction; the lock is
// released at commit or rollback.
func (r *Repo) LockGroup(ctx context.Context, key domain.SimilarityKey) error {
	_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.GroupKey())
	if err != nil {
		return postgres.MapError(err, "owned_group", uuid.Nil)
	}
	return nil
}

// LockUser takes a transaction-scoped advisory lock on everything the user
// owns, serializing per-user checks such as the instance cap.
func (r *Repo) LockUser(ctx context.Context, userID uuid.UUID) error {
	_, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userLockKey(userID))
	if err != nil {
		return postgres.MapError(err, "owned_user", userID)
	}
	return nil
}

// InsertUsage appends a usage log entry.
func (r *Repo) InsertUsage(ctx context.Context, e *domain.UsageEntry) error {
	sql, args, err := psql.Insert(usageTable).
		Columns("id", "instance_id", "used_at", "note", "amount_remaining").
		Values(e.ID, e.InstanceID, e.UsedAt, e.Note, e.AmountRemaining).
		ToSql()
	if err != nil {
		return fmt.Errorf("build usage insert: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "usage_entry", e.ID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) getOne(ctx context.Context, q squirrel.Sqlizer, id uuid.UUID) (*domain.OwnedInstance, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owned query: %w", err)
	}

	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			err = pgx.ErrNoRows
		}
		return nil, postgres.MapError(err, "owned_product", id)
	}

	inst := rw.toDomain()
	return &inst, nil
}

// userLockKey cannot collide with a group key, which always has two "|".
func userLockKey(userID uuid.UUID) string {
	return "user:" + userID.String()
}

func returning() string {
	return strings.Join(columns, ", ")
}
