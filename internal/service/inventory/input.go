package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

// AddOwnedInput holds a capture from a scan or a manual entry.
type AddOwnedInput struct {
	Catalog domain.CatalogAttributes

	SizeValue    *float64
	SizeUnit     *string
	PurchaseDate *time.Time
	OpenDate     *time.Time
	// ExpiryDate, when set, overrides inference.
	ExpiryDate *time.Time
	Favorite   bool
	TagIDs     []uuid.UUID
	BagIDs     []uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i AddOwnedInput) Validate() error {
	var errs []domain.FieldError

	name := strings.TrimSpace(i.Catalog.Name)
	if name == "" {
		errs = append(errs, domain.FieldError{Field: "name", Message: "required"})
	}
	if len(name) > 200 {
		errs = append(errs, domain.FieldError{Field: "name", Message: "max 200 characters"})
	}
	if len(strings.TrimSpace(i.Catalog.Brand)) > 200 {
		errs = append(errs, domain.FieldError{Field: "brand", Message: "max 200 characters"})
	}
	if i.SizeValue != nil && *i.SizeValue <= 0 {
		errs = append(errs, domain.FieldError{Field: "size_value", Message: "must be positive"})
	}
	if i.PurchaseDate != nil && i.OpenDate != nil && i.OpenDate.Before(*i.PurchaseDate) {
		errs = append(errs, domain.FieldError{Field: "open_date", Message: "before purchase date"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// UsageInput holds one usage event.
type UsageInput struct {
	UsedAt          *time.Time
	Note            *string
	AmountRemaining *int
}

// Validate checks all fields and collects all errors.
func (i UsageInput) Validate() error {
	var errs []domain.FieldError

	if i.AmountRemaining != nil && (*i.AmountRemaining < 0 || *i.AmountRemaining > 100) {
		errs = append(errs, domain.FieldError{Field: "amount_remaining", Message: "must be between 0 and 100"})
	}
	if i.Note != nil && len(*i.Note) > 1000 {
		errs = append(errs, domain.FieldError{Field: "note", Message: "max 1000 characters"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func validatePatch(p domain.OwnedPatch) error {
	var errs []domain.FieldError

	if p.IsEmpty() {
		errs = append(errs, domain.FieldError{Field: "input", Message: "at least one field must be provided"})
	}
	if p.AmountRemaining != nil && (*p.AmountRemaining < 0 || *p.AmountRemaining > 100) {
		errs = append(errs, domain.FieldError{Field: "amount_remaining", Message: "must be between 0 and 100"})
	}
	if p.ExpiryDate != nil && p.ClearExpiryOverride {
		errs = append(errs, domain.FieldError{Field: "expiry_date", Message: "cannot set and clear override together"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
