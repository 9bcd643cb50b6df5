package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CatalogRecord is the canonical, shared description of a product type.
// At most one record exists per barcode. Records are enriched over time but
// existing values are never overwritten.
type CatalogRecord struct {
	ID              uuid.UUID
	Barcode         *string
	Name            string
	NameNormalized  string
	Brand           string
	BrandNormalized string
	ImageURL        *string
	Ingredients     []string
	PAOText         *string
	PAOMonths       *int
	BatchCode       *string
	ManufactureDate *time.Time
	ShelfLifeExpiry *time.Time
	ComplianceNotes *string
	Vegan           *bool
	CrueltyFree     *bool
	Category        *string
	Source          CatalogSource
	Verified        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsManual reports whether the record was created without a barcode.
func (r *CatalogRecord) IsManual() bool {
	return r.Source == CatalogSourceManual
}

// CatalogAttributes are the product attributes captured by a scan or a
// manual entry. Everything except Name is optional.
type CatalogAttributes struct {
	Barcode         *string
	Name            string
	Brand           string
	ImageURL        *string
	Ingredients     []string
	PAOText         *string
	BatchCode       *string
	ManufactureDate *time.Time
	ComplianceNotes *string
	Vegan           *bool
	CrueltyFree     *bool
	Category        *string
}

// Normalize trims free-text inputs in place and normalizes the barcode.
// A barcode that is blank after normalization is treated as absent.
func (a *CatalogAttributes) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Brand = strings.TrimSpace(a.Brand)
	if a.Barcode != nil {
		code := NormalizeBarcode(*a.Barcode)
		if code == "" {
			a.Barcode = nil
		} else {
			a.Barcode = &code
		}
	}
	a.ImageURL = TrimPtr(a.ImageURL)
	a.PAOText = TrimPtr(a.PAOText)
	a.BatchCode = TrimPtr(a.BatchCode)
	a.ComplianceNotes = TrimPtr(a.ComplianceNotes)
	a.Category = TrimPtr(a.Category)

	ingredients := a.Ingredients[:0:0]
	for _, ing := range a.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			ingredients = append(ingredients, ing)
		}
	}
	a.Ingredients = ingredients
}
