package domain

import (
	"time"

	"github.com/google/uuid"
)

// OwnedInstance is one user's record of possessing a unit of a cataloged
// product. Quantity is derived by the reconciler and is not user input.
type OwnedInstance struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	CatalogID        uuid.UUID
	SizeValue        *float64
	SizeUnit         *string
	BatchCode        *string
	PurchaseDate     *time.Time
	OpenDate         *time.Time
	ExpiryDate       *time.Time
	ExpiryOverridden bool
	Favorite         bool
	Finished         bool
	FinishedAt       *time.Time
	AmountRemaining  int
	UsageCount       int
	TagIDs           []uuid.UUID
	BagIDs           []uuid.UUID
	Quantity         int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Catalog *CatalogRecord
	Usage   []UsageEntry
}

// UsageEntry is a free-form usage log line attached to an owned instance.
type UsageEntry struct {
	ID              uuid.UUID
	InstanceID      uuid.UUID
	UsedAt          time.Time
	Note            *string
	AmountRemaining *int
}

// OwnedPatch carries user-driven changes to an owned instance. Nil fields are
// left untouched. None of these fields affect quantity.
type OwnedPatch struct {
	Favorite        *bool
	Finished        *bool
	FinishedAt      *time.Time
	AmountRemaining *int
	PurchaseDate    *time.Time
	OpenDate        *time.Time
	ExpiryDate      *time.Time
	// ClearExpiryOverride drops a manual expiry and falls back to inference.
	ClearExpiryOverride bool
	TagIDs              *[]uuid.UUID
	BagIDs              *[]uuid.UUID
}

// IsEmpty reports whether the patch changes nothing.
func (p OwnedPatch) IsEmpty() bool {
	return p.Favorite == nil && p.Finished == nil && p.FinishedAt == nil &&
		p.AmountRemaining == nil && p.PurchaseDate == nil && p.OpenDate == nil &&
		p.ExpiryDate == nil && !p.ClearExpiryOverride && p.TagIDs == nil && p.BagIDs == nil
}

// OwnedFilter narrows owned-instance listings for one user.
type OwnedFilter struct {
	Favorite       *bool
	Finished       *bool
	ExpiringBefore *time.Time
	Limit          int
	Offset         int
}

// OwnedBulkUpdate lists the fields written by a bulk update across instances.
type OwnedBulkUpdate struct {
	Quantity *int
}
