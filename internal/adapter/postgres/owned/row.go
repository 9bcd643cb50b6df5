package owned

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type row struct {
	ID               uuid.UUID   `db:"id"`
	UserID           uuid.UUID   `db:"user_id"`
	CatalogID        uuid.UUID   `db:"catalog_id"`
	SizeValue        *float64    `db:"size_value"`
	SizeUnit         *string     `db:"size_unit"`
	BatchCode        *string     `db:"batch_code"`
	PurchaseDate     *time.Time  `db:"purchase_date"`
	OpenDate         *time.Time  `db:"open_date"`
	ExpiryDate       *time.Time  `db:"expiry_date"`
	ExpiryOverridden bool        `db:"expiry_overridden"`
	Favorite         bool        `db:"favorite"`
	Finished         bool        `db:"finished"`
	FinishedAt       *time.Time  `db:"finished_at"`
	AmountRemaining  int         `db:"amount_remaining"`
	UsageCount       int         `db:"usage_count"`
	TagIDs           []uuid.UUID `db:"tag_ids"`
	BagIDs           []uuid.UUID `db:"bag_ids"`
	Quantity         int         `db:"quantity"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (r row) toDomain() domain.OwnedInstance {
	return domain.OwnedInstance{
		ID:               r.ID,
		UserID:           r.UserID,
		CatalogID:        r.CatalogID,
		SizeValue:        r.SizeValue,
		SizeUnit:         r.SizeUnit,
		BatchCode:        r.BatchCode,
		PurchaseDate:     r.PurchaseDate,
		OpenDate:         r.OpenDate,
		ExpiryDate:       r.ExpiryDate,
		ExpiryOverridden: r.ExpiryOverridden,
		Favorite:         r.Favorite,
		Finished:         r.Finished,
		FinishedAt:       r.FinishedAt,
		AmountRemaining:  r.AmountRemaining,
		UsageCount:       r.UsageCount,
		TagIDs:           idsOrEmpty(r.TagIDs),
		BagIDs:           idsOrEmpty(r.BagIDs),
		Quantity:         r.Quantity,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type similarRow struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name_normalized"`
	Brand    string    `db:"brand_normalized"`
	Size     *float64  `db:"size_value"`
	Quantity int       `db:"quantity"`
}

type keyRow struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`
	Name   string    `db:"name_normalized"`
	Brand  string    `db:"brand_normalized"`
	Size   *float64  `db:"size_value"`
}

type usageRow struct {
	ID              uuid.UUID `db:"id"`
	InstanceID      uuid.UUID `db:"instance_id"`
	UsedAt          time.Time `db:"used_at"`
	Note            *string   `db:"note"`
	AmountRemaining *int      `db:"amount_remaining"`
}

func idsOrEmpty(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
