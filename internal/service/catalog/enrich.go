package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

// Enrich fills fields of an existing record that are still empty. Values the
// record already holds are kept; name, brand and barcode are never changed.
func (s *Service) Enrich(ctx context.Context, id uuid.UUID, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}
	attrs.Normalize()

	in := &domain.CatalogRecord{
		ImageURL:        attrs.ImageURL,
		Ingredients:     attrs.Ingredients,
		PAOText:         attrs.PAOText,
		BatchCode:       attrs.BatchCode,
		ManufactureDate: attrs.ManufactureDate,
		ComplianceNotes: attrs.ComplianceNotes,
		Vegan:           attrs.Vegan,
		CrueltyFree:     attrs.CrueltyFree,
		Category:        attrs.Category,
	}
	s.fillDerived(in)

	var updated *domain.CatalogRecord
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var updErr error
		updated, updErr = s.records.Update(txCtx, id, in)
		if updErr != nil {
			return fmt.Errorf("enrich catalog record: %w", updErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "catalog record enriched", slog.String("catalog_id", id.String()))
	return updated, nil
}
