// Package catalog implements the shared product catalog store using PostgreSQL.
// Records are created once per barcode and afterwards only enriched: no
// operation here overwrites a non-null value or deletes a record.
package catalog

import (
	"context"
	"errors"
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

const table = "catalog_products"

var columns = []string{
	"id", "barcode", "name", "name_normalized", "brand", "brand_normalized",
	"image_url", "ingredients", "pao_text", "pao_months", "batch_code",
	"manufacture_date", "shelf_life_expiry", "compliance_notes",
	"vegan", "cruelty_free", "category", "source", "verified",
	"created_at", "updated_at",
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides catalog persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new catalog repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a catalog record. Returns domain.ErrNotFound if absent.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error) {
	q := psql.Select(columns...).From(table).Where(squirrel.Eq{"id": id})
	return r.getOne(ctx, q, id)
}

// FindByBarcode returns the record owning a normalized barcode.
// Returns domain.ErrNotFound if no record carries it.
func (r *Repo) FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogRecord, error) {
	q := psql.Select(columns...).From(table).Where(squirrel.Eq{"barcode": barcode})
	return r.getOne(ctx, q, uuid.Nil)
}

// GetByIDs returns the records for ids in no particular order. Missing ids
// are skipped.
func (r *Repo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.CatalogRecord, error) {
	if len(ids) == 0 {
		return []domain.CatalogRecord{}, nil
	}

	sql, args, err := psql.Select(columns...).From(table).Where(squirrel.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build catalog select: %w", err)
	}

	var rows []row
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(err, "catalog_product", uuid.Nil)
	}

	records := make([]domain.CatalogRecord, len(rows))
	for i, rw := range rows {
		records[i] = rw.toDomain()
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new record. When another writer already holds the barcode
// the insert is skipped and domain.ErrDuplicateBarcode is returned; the
// statement does not abort an enclosing transaction.
func (r *Repo) Create(ctx context.Context, rec *domain.CatalogRecord) (*domain.CatalogRecord, error) {
	q := psql.Insert(table).
		Columns(columns...).
		Values(
			rec.ID, rec.Barcode, rec.Name, rec.NameNormalized, rec.Brand, rec.BrandNormalized,
			rec.ImageURL, ingredientsOrEmpty(rec.Ingredients), rec.PAOText, rec.PAOMonths, rec.BatchCode,
			rec.ManufactureDate, rec.ShelfLifeExpiry, rec.ComplianceNotes,
			rec.Vegan, rec.CrueltyFree, rec.Category, string(rec.Source), rec.Verified,
			rec.CreatedAt, rec.UpdatedAt,
		).
		Suffix("ON CONFLICT (barcode) DO NOTHING RETURNING " + returning())

	created, err := r.getOne(ctx, q, rec.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("catalog_product %s: %w", rec.ID, domain.ErrDuplicateBarcode)
	}
	return created, err
}

// Update merges incoming values into an existing record field by field.
// A column is only written when it is currently null (or empty) and the
// incoming value is present. Name and brand are never changed here: they
// drive owned-instance similarity grouping.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, in *domain.CatalogRecord) (*domain.CatalogRecord, error) {
	q := psql.Update(table).Where(squirrel.Eq{"id": id})
	n := 0

	fill := func(col string, v any) {
		q = q.Set(col, squirrel.Expr("COALESCE("+col+", ?)", v))
		n++
	}

	if in.ImageURL != nil {
		fill("image_url", *in.ImageURL)
	}
	if in.PAOText != nil {
		fill("pao_text", *in.PAOText)
	}
	if in.PAOMonths != nil {
		fill("pao_months", *in.PAOMonths)
	}
	if in.BatchCode != nil {
		fill("batch_code", *in.BatchCode)
	}
	if in.ManufactureDate != nil {
		fill("manufacture_date", *in.ManufactureDate)
	}
	if in.ShelfLifeExpiry != nil {
		fill("shelf_life_expiry", *in.ShelfLifeExpiry)
	}
	if in.ComplianceNotes != nil {
		fill("compliance_notes", *in.ComplianceNotes)
	}
	if in.Vegan != nil {
		fill("vegan", *in.Vegan)
	}
	if in.CrueltyFree != nil {
		fill("cruelty_free", *in.CrueltyFree)
	}
	if in.Category != nil {
		fill("category", *in.Category)
	}
	if len(in.Ingredients) > 0 {
		q = q.Set("ingredients", squirrel.Expr("CASE WHEN cardinality(ingredients) = 0 THEN ?::text[] ELSE ingredients END", in.Ingredients))
		n++
	}
	if in.Verified {
		q = q.Set("verified", true)
		n++
	}

	if n == 0 {
		return r.GetByID(ctx, id)
	}

	q = q.Set("updated_at", time.Now().UTC()).Suffix("RETURNING " + returning())
	return r.getOne(ctx, q, id)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) getOne(ctx context.Context, q squirrel.Sqlizer, id uuid.UUID) (*domain.CatalogRecord, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build catalog query: %w", err)
	}

	var rw row
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			err = pgx.ErrNoRows
		}
		return nil, postgres.MapError(err, "catalog_product", id)
	}

	rec := rw.toDomain()
	return &rec, nil
}

func returning() string {
	return strings.Join(columns, ", ")
}

func ingredientsOrEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
