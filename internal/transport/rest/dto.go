package rest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
)

const dateLayout = time.DateOnly

// Date is a calendar date encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(s string) (*time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *Date) ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateOf(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// CatalogFields are the mergeable catalog attributes accepted on capture and
// enrichment.
type CatalogFields struct {
	ImageURL        *string  `json:"image_url" validate:"omitempty,url,max=2048"`
	Ingredients     []string `json:"ingredients" validate:"max=300,dive,max=200"`
	PAOText         *string  `json:"pao_text" validate:"omitempty,max=50"`
	BatchCode       *string  `json:"batch_code" validate:"omitempty,max=64"`
	ManufactureDate *Date    `json:"manufacture_date"`
	ComplianceNotes *string  `json:"compliance_notes" validate:"omitempty,max=2000"`
	Vegan           *bool    `json:"vegan"`
	CrueltyFree     *bool    `json:"cruelty_free"`
	Category        *string  `json:"category" validate:"omitempty,max=100"`
}

func (f CatalogFields) attributes() domain.CatalogAttributes {
	return domain.CatalogAttributes{
		ImageURL:        f.ImageURL,
		Ingredients:     f.Ingredients,
		PAOText:         f.PAOText,
		BatchCode:       f.BatchCode,
		ManufactureDate: f.ManufactureDate.ptr(),
		ComplianceNotes: f.ComplianceNotes,
		Vegan:           f.Vegan,
		CrueltyFree:     f.CrueltyFree,
		Category:        f.Category,
	}
}

type addOwnedRequest struct {
	CatalogFields

	Barcode *string `json:"barcode" validate:"omitempty,max=64"`
	Name    string  `json:"name" validate:"required,max=200"`
	Brand   string  `json:"brand" validate:"max=200"`

	SizeValue    *float64    `json:"size_value" validate:"omitempty,gt=0"`
	SizeUnit     *string     `json:"size_unit" validate:"omitempty,max=16"`
	PurchaseDate *Date       `json:"purchase_date"`
	OpenDate     *Date       `json:"open_date"`
	ExpiryDate   *Date       `json:"expiry_date"`
	Favorite     bool        `json:"favorite"`
	TagIDs       []uuid.UUID `json:"tag_ids" validate:"max=50"`
	BagIDs       []uuid.UUID `json:"bag_ids" validate:"max=50"`
}

type patchOwnedRequest struct {
	Favorite            *bool        `json:"favorite"`
	Finished            *bool        `json:"finished"`
	FinishedAt          *time.Time   `json:"finished_at"`
	AmountRemaining     *int         `json:"amount_remaining" validate:"omitempty,min=0,max=100"`
	PurchaseDate        *Date        `json:"purchase_date"`
	OpenDate            *Date        `json:"open_date"`
	ExpiryDate          *Date        `json:"expiry_date"`
	ClearExpiryOverride bool         `json:"clear_expiry_override"`
	TagIDs              *[]uuid.UUID `json:"tag_ids" validate:"omitempty,max=50"`
	BagIDs              *[]uuid.UUID `json:"bag_ids" validate:"omitempty,max=50"`
}

func (p patchOwnedRequest) patch() domain.OwnedPatch {
	return domain.OwnedPatch{
		Favorite:            p.Favorite,
		Finished:            p.Finished,
		FinishedAt:          p.FinishedAt,
		AmountRemaining:     p.AmountRemaining,
		PurchaseDate:        p.PurchaseDate.ptr(),
		OpenDate:            p.OpenDate.ptr(),
		ExpiryDate:          p.ExpiryDate.ptr(),
		ClearExpiryOverride: p.ClearExpiryOverride,
		TagIDs:              p.TagIDs,
		BagIDs:              p.BagIDs,
	}
}

type usageRequest struct {
	UsedAt          *time.Time `json:"used_at"`
	Note            *string    `json:"note" validate:"omitempty,max=1000"`
	AmountRemaining *int       `json:"amount_remaining" validate:"omitempty,min=0,max=100"`
}

type inferExpiryRequest struct {
	PAOText   string `json:"pao_text" validate:"max=50"`
	BatchCode string `json:"batch_code" validate:"max=64"`
	OpenDate  *Date  `json:"open_date"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

type catalogResponse struct {
	ID              uuid.UUID `json:"id"`
	Barcode         *string   `json:"barcode,omitempty"`
	Name            string    `json:"name"`
	Brand           string    `json:"brand"`
	ImageURL        *string   `json:"image_url,omitempty"`
	Ingredients     []string  `json:"ingredients"`
	PAOText         *string   `json:"pao_text,omitempty"`
	PAOMonths       *int      `json:"pao_months,omitempty"`
	BatchCode       *string   `json:"batch_code,omitempty"`
	ManufactureDate *Date     `json:"manufacture_date,omitempty"`
	ShelfLifeExpiry *Date     `json:"shelf_life_expiry,omitempty"`
	ComplianceNotes *string   `json:"compliance_notes,omitempty"`
	Vegan           *bool     `json:"vegan,omitempty"`
	CrueltyFree     *bool     `json:"cruelty_free,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Source          string    `json:"source"`
	Verified        bool      `json:"verified"`
}

func toCatalogResponse(rec *domain.CatalogRecord) *catalogResponse {
	if rec == nil {
		return nil
	}
	ingredients := rec.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return &catalogResponse{
		ID:              rec.ID,
		Barcode:         rec.Barcode,
		Name:            rec.Name,
		Brand:           rec.Brand,
		ImageURL:        rec.ImageURL,
		Ingredients:     ingredients,
		PAOText:         rec.PAOText,
		PAOMonths:       rec.PAOMonths,
		BatchCode:       rec.BatchCode,
		ManufactureDate: dateOf(rec.ManufactureDate),
		ShelfLifeExpiry: dateOf(rec.ShelfLifeExpiry),
		ComplianceNotes: rec.ComplianceNotes,
		Vegan:           rec.Vegan,
		CrueltyFree:     rec.CrueltyFree,
		Category:        rec.Category,
		Source:          string(rec.Source),
		Verified:        rec.Verified,
	}
}

type usageResponse struct {
	ID              uuid.UUID `json:"id"`
	UsedAt          time.Time `json:"used_at"`
	Note            *string   `json:"note,omitempty"`
	AmountRemaining *int      `json:"amount_remaining,omitempty"`
}

type ownedResponse struct {
	ID               uuid.UUID        `json:"id"`
	CatalogID        uuid.UUID        `json:"catalog_id"`
	Catalog          *catalogResponse `json:"catalog,omitempty"`
	SizeValue        *float64         `json:"size_value,omitempty"`
	SizeUnit         *string          `json:"size_unit,omitempty"`
	BatchCode        *string          `json:"batch_code,omitempty"`
	PurchaseDate     *Date            `json:"purchase_date,omitempty"`
	OpenDate         *Date            `json:"open_date,omitempty"`
	ExpiryDate       *Date            `json:"expiry_date,omitempty"`
	ExpiryOverridden bool             `json:"expiry_overridden"`
	Favorite         bool             `json:"favorite"`
	Finished         bool             `json:"finished"`
	FinishedAt       *time.Time       `json:"finished_at,omitempty"`
	AmountRemaining  int              `json:"amount_remaining"`
	UsageCount       int              `json:"usage_count"`
	TagIDs           []uuid.UUID      `json:"tag_ids"`
	BagIDs           []uuid.UUID      `json:"bag_ids"`
	Quantity         int              `json:"quantity"`
	Usage            []usageResponse  `json:"usage,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func toOwnedResponse(inst *domain.OwnedInstance) ownedResponse {
	resp := ownedResponse{
		ID:               inst.ID,
		CatalogID:        inst.CatalogID,
		Catalog:          toCatalogResponse(inst.Catalog),
		SizeValue:        inst.SizeValue,
		SizeUnit:         inst.SizeUnit,
		BatchCode:        inst.BatchCode,
		PurchaseDate:     dateOf(inst.PurchaseDate),
		OpenDate:         dateOf(inst.OpenDate),
		ExpiryDate:       dateOf(inst.ExpiryDate),
		ExpiryOverridden: inst.ExpiryOverridden,
		Favorite:         inst.Favorite,
		Finished:         inst.Finished,
		FinishedAt:       inst.FinishedAt,
		AmountRemaining:  inst.AmountRemaining,
		UsageCount:       inst.UsageCount,
		TagIDs:           nonNilIDs(inst.TagIDs),
		BagIDs:           nonNilIDs(inst.BagIDs),
		Quantity:         inst.Quantity,
		CreatedAt:        inst.CreatedAt,
		UpdatedAt:        inst.UpdatedAt,
	}
	for _, u := range inst.Usage {
		resp.Usage = append(resp.Usage, usageResponse{
			ID:              u.ID,
			UsedAt:          u.UsedAt,
			Note:            u.Note,
			AmountRemaining: u.AmountRemaining,
		})
	}
	return resp
}

func nonNilIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

type listOwnedResponse struct {
	Items []ownedResponse `json:"items"`
	Total int             `json:"total"`
}

type expiryResponse struct {
	ManufactureDate *Date  `json:"manufacture_date,omitempty"`
	ExpiryDate      *Date  `json:"expiry_date,omitempty"`
	Method          string `json:"method,omitempty"`
}

func toExpiryResponse(e expiry.Estimate) expiryResponse {
	return expiryResponse{
		ManufactureDate: dateOf(e.ManufactureDate),
		ExpiryDate:      dateOf(e.ExpiryDate),
		Method:          string(e.Method),
	}
}
