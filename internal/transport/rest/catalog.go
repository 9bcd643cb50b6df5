package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

type catalogService interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*domain.CatalogRecord, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogRecord, error)
	Enrich(ctx context.Context, id uuid.UUID, attrs domain.CatalogAttributes) (*domain.CatalogRecord, error)
}

// CatalogHandler serves the shared product catalog.
type CatalogHandler struct {
	svc catalogService
	log *slog.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(svc catalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{svc: svc, log: logger.With("handler", "catalog")}
}

// Get handles GET /api/v1/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	rec, err := h.svc.GetRecord(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(rec))
}

// ByBarcode handles GET /api/v1/catalog/barcode/{code}.
func (h *CatalogHandler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindByBarcode(r.Context(), r.PathValue("code"))
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(rec))
}

// Enrich handles PATCH /api/v1/catalog/{id}. Only fields still empty on the
// record are filled.
func (h *CatalogHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req CatalogFields
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	rec, err := h.svc.Enrich(r.Context(), id, req.attributes())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCatalogResponse(rec))
}
