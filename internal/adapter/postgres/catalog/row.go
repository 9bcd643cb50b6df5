package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type row struct {
	ID              uuid.UUID  `db:"id"`
	Barcode         *string    `db:"barcode"`
	Name            string     `db:"name"`
	NameNormalized  string     `db:"name_normalized"`
	Brand           string     `db:"brand"`
	BrandNormalized string     `db:"brand_normalized"`
	ImageURL        *string    `db:"image_url"`
	Ingredients     []string   `db:"ingredients"`
	PAOText         *string    `db:"pao_text"`
	PAOMonths       *int       `db:"pao_months"`
	BatchCode       *string    `db:"batch_code"`
	ManufactureDate *time.Time `db:"manufacture_date"`
	ShelfLifeExpiry *time.Time `db:"shelf_life_expiry"`
	ComplianceNotes *string    `db:"compliance_notes"`
	Vegan           *bool      `db:"vegan"`
	CrueltyFree     *bool      `db:"cruelty_free"`
	Category        *string    `db:"category"`
	Source          string     `db:"source"`
	Verified        bool       `db:"verified"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r row) toDomain() domain.CatalogRecord {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	return domain.CatalogRecord{
		ID:              r.ID,
		Barcode:         r.Barcode,
		Name:            r.Name,
		NameNormalized:  r.NameNormalized,
		Brand:           r.Brand,
		BrandNormalized: r.BrandNormalized,
		ImageURL:        r.ImageURL,
		Ingredients:     ingredients,
		PAOText:         r.PAOText,
		PAOMonths:       r.PAOMonths,
		BatchCode:       r.BatchCode,
		ManufactureDate: r.ManufactureDate,
		ShelfLifeExpiry: r.ShelfLifeExpiry,
		ComplianceNotes: r.ComplianceNotes,
		Vegan:           r.Vegan,
		CrueltyFree:     r.CrueltyFree,
		Category:        r.Category,
		Source:          domain.CatalogSource(r.Source),
		Verified:        r.Verified,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
