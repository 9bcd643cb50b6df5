package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
)

// ResolveOrCreate finds the catalog record for the captured attributes or
// creates one.
//
// With a barcode, an existing record is returned untouched; otherwise a new
// record is created with dates inferred from the batch code when no
// manufacture date was supplied. A concurrent create of the same barcode is
// detected through domain.ErrDuplicateBarcode and answered with the winner's
// record. Without a barcode a new manual, unverified record is always created.
//
// When called inside a transaction the create joins it, so a failure later in
// the caller's transaction leaves no orphaned record behind.
func (s *Service) ResolveOrCreate(ctx context.Context, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error) {
	attrs.Normalize()
	if domain.NormalizeText(attrs.Name) == "" {
		return nil, domain.NewValidationError("name", "required")
	}

	if attrs.Barcode != nil {
		existing, err := s.records.FindByBarcode(ctx, *attrs.Barcode)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find catalog by barcode: %w", err)
		}
	}

	rec := s.buildRecord(attrs)

	var created *domain.CatalogRecord
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var createErr error
		created, createErr = s.records.Create(txCtx, rec)
		if errors.Is(createErr, domain.ErrDuplicateBarcode) {
			created, createErr = s.records.FindByBarcode(txCtx, *rec.Barcode)
			if createErr != nil {
				return fmt.Errorf("find catalog after barcode conflict: %w", createErr)
			}
			s.log.InfoContext(txCtx, "catalog create lost barcode race",
				slog.String("barcode", *rec.Barcode),
				slog.String("catalog_id", created.ID.String()),
			)
			return nil
		}
		if createErr != nil {
			return fmt.Errorf("create catalog record: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.ID == rec.ID {
		s.log.InfoContext(ctx, "catalog record created",
			slog.String("catalog_id", created.ID.String()),
			slog.String("source", string(created.Source)),
		)
	}

	return created, nil
}

func (s *Service) buildRecord(attrs domain.CatalogAttributes) *domain.CatalogRecord {
	now := s.now()
	source := domain.CatalogSourceBarcode
	if attrs.Barcode == nil {
		source = domain.CatalogSourceManual
	}

	rec := &domain.CatalogRecord{
		ID:              uuid.New(),
		Barcode:         attrs.Barcode,
		Name:            attrs.Name,
		NameNormalized:  domain.NormalizeText(attrs.Name),
		Brand:           attrs.Brand,
		BrandNormalized: domain.NormalizeText(attrs.Brand),
		ImageURL:        attrs.ImageURL,
		Ingredients:     attrs.Ingredients,
		PAOText:         attrs.PAOText,
		BatchCode:       attrs.BatchCode,
		ManufactureDate: attrs.ManufactureDate,
		ComplianceNotes: attrs.ComplianceNotes,
		Vegan:           attrs.Vegan,
		CrueltyFree:     attrs.CrueltyFree,
		Category:        attrs.Category,
		Source:          source,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.fillDerived(rec)
	return rec
}

// fillDerived computes PAO months, manufacture date and shelf-life expiry
// where they are missing and derivable.
func (s *Service) fillDerived(rec *domain.CatalogRecord) {
	if rec.PAOText != nil && rec.PAOMonths == nil {
		if months, ok := expiry.ParsePeriodMonths(*rec.PAOText); ok {
			rec.PAOMonths = &months
		}
	}
	if rec.ManufactureDate == nil && rec.BatchCode != nil {
		if made, ok := s.dates.ManufactureDate(*rec.BatchCode); ok {
			rec.ManufactureDate = &made
		}
	}
	if rec.ManufactureDate != nil && rec.ShelfLifeExpiry == nil {
		exp := s.dates.ShelfLifeExpiry(*rec.ManufactureDate)
		rec.ShelfLifeExpiry = &exp
	}
}
