package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Date is a calendar date on the wire ("2006-01-02").
type Date struct {
	time.Time
}

// DateOf wraps t, keeping nil as nil.
func DateOf(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// Ptr returns the date as a time pointer; nil stays nil.
func (d *Date) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("date %q: %w", s, err)
	}
	d.Time = t
	return nil
}

// AddRequest is the body of POST /api/v1/owned.
type AddRequest struct {
	Barcode      *string     `json:"barcode,omitempty"`
	Name         string      `json:"name"`
	Brand        string      `json:"brand,omitempty"`
	SizeValue    *float64    `json:"size_value,omitempty"`
	SizeUnit     *string     `json:"size_unit,omitempty"`
	PurchaseDate *Date       `json:"purchase_date,omitempty"`
	OpenDate     *Date       `json:"open_date,omitempty"`
	ExpiryDate   *Date       `json:"expiry_date,omitempty"`
	Favorite     bool        `json:"favorite,omitempty"`
	BatchCode    *string     `json:"batch_code,omitempty"`
	PAOText      *string     `json:"pao_text,omitempty"`
	Vegan        *bool       `json:"vegan,omitempty"`
	CrueltyFree  *bool       `json:"cruelty_free,omitempty"`
	TagIDs       []uuid.UUID `json:"tag_ids,omitempty"`
	BagIDs       []uuid.UUID `json:"bag_ids,omitempty"`
}

// PatchRequest is the body of PATCH /api/v1/owned/{id}.
type PatchRequest struct {
	Favorite        *bool `json:"favorite,omitempty"`
	Finished        *bool `json:"finished,omitempty"`
	AmountRemaining *int  `json:"amount_remaining,omitempty"`
	OpenDate        *Date `json:"open_date,omitempty"`
	ExpiryDate      *Date `json:"expiry_date,omitempty"`
	// A non-nil empty list is sent as [] and clears the set.
	TagIDs *[]uuid.UUID `json:"tag_ids,omitempty"`
	BagIDs *[]uuid.UUID `json:"bag_ids,omitempty"`
}

// InferRequest is the body of POST /api/v1/expiry/infer.
type InferRequest struct {
	PAOText   string `json:"pao_text,omitempty"`
	BatchCode string `json:"batch_code,omitempty"`
	OpenDate  *Date  `json:"open_date,omitempty"`
}

// Catalog is the catalog record embedded in owned responses.
type Catalog struct {
	ID       uuid.UUID `json:"id"`
	Barcode  *string   `json:"barcode"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand"`
	ImageURL *string   `json:"image_url"`
}

// Owned is the server's view of an owned product.
type Owned struct {
	ID              uuid.UUID   `json:"id"`
	CatalogID       uuid.UUID   `json:"catalog_id"`
	Catalog         *Catalog    `json:"catalog"`
	OpenDate        *Date       `json:"open_date"`
	ExpiryDate      *Date       `json:"expiry_date"`
	Favorite        bool        `json:"favorite"`
	Finished        bool        `json:"finished"`
	AmountRemaining int         `json:"amount_remaining"`
	Quantity        int         `json:"quantity"`
	TagIDs          []uuid.UUID `json:"tag_ids"`
	BagIDs          []uuid.UUID `json:"bag_ids"`
}

// Estimate is an expiry preview.
type Estimate struct {
	ManufactureDate *Date  `json:"manufacture_date"`
	ExpiryDate      *Date  `json:"expiry_date"`
	Method          string `json:"method"`
}
