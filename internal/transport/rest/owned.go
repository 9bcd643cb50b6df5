package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/inventory"
	"github.com/heartmarshall/beautyshelf-backend/internal/transport/dataloader"
)

type inventoryService interface {
	AddOwnedProduct(ctx context.Context, input inventory.AddOwnedInput) (*domain.OwnedInstance, error)
	RemoveOwnedProduct(ctx context.Context, instanceID uuid.UUID) error
	UpdateOwnedProduct(ctx context.Context, instanceID uuid.UUID, patch domain.OwnedPatch) (*domain.OwnedInstance, error)
	RecordUsage(ctx context.Context, instanceID uuid.UUID, input inventory.UsageInput) (*domain.OwnedInstance, error)
	GetOwnedProduct(ctx context.Context, instanceID uuid.UUID) (*domain.OwnedInstance, error)
	ListOwnedProducts(ctx context.Context, filter domain.OwnedFilter) ([]domain.OwnedInstance, int, error)
	InferExpiry(periodText, batchCode string, openDate *time.Time) expiry.Estimate
}

// OwnedHandler serves owned-product endpoints.
type OwnedHandler struct {
	svc inventoryService
	log *slog.Logger
}

// NewOwnedHandler creates an OwnedHandler.
func NewOwnedHandler(svc inventoryService, logger *slog.Logger) *OwnedHandler {
	return &OwnedHandler{svc: svc, log: logger.With("handler", "owned")}
}

// Add handles POST /api/v1/owned.
func (h *OwnedHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addOwnedRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	attrs := req.attributes()
	attrs.Barcode = req.Barcode
	attrs.Name = req.Name
	attrs.Brand = req.Brand

	inst, err := h.svc.AddOwnedProduct(r.Context(), inventory.AddOwnedInput{
		Catalog:      attrs,
		SizeValue:    req.SizeValue,
		SizeUnit:     req.SizeUnit,
		PurchaseDate: req.PurchaseDate.ptr(),
		OpenDate:     req.OpenDate.ptr(),
		ExpiryDate:   req.ExpiryDate.ptr(),
		Favorite:     req.Favorite,
		TagIDs:       req.TagIDs,
		BagIDs:       req.BagIDs,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOwnedResponse(inst))
}

// Remove handles DELETE /api/v1/owned/{id}.
func (h *OwnedHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	if err := h.svc.RemoveOwnedProduct(r.Context(), id); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Update handles PATCH /api/v1/owned/{id}.
func (h *OwnedHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req patchOwnedRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	inst, err := h.svc.UpdateOwnedProduct(r.Context(), id, req.patch())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnedResponse(inst))
}

// RecordUsage handles POST /api/v1/owned/{id}/usage.
func (h *OwnedHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	var req usageRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	inst, err := h.svc.RecordUsage(r.Context(), id, inventory.UsageInput{
		UsedAt:          req.UsedAt,
		Note:            req.Note,
		AmountRemaining: req.AmountRemaining,
	})
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnedResponse(inst))
}

// Get handles GET /api/v1/owned/{id}.
func (h *OwnedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	inst, err := h.svc.GetOwnedProduct(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOwnedResponse(inst))
}

// List handles GET /api/v1/owned.
// Query: favorite, finished (bool), expiring_before (YYYY-MM-DD), limit, offset.
func (h *OwnedHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOwnedFilter(r)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	items, total, err := h.svc.ListOwnedProducts(r.Context(), filter)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}

	if loaders := dataloader.FromContext(r.Context()); loaders != nil {
		if err := loaders.AttachCatalog(r.Context(), items); err != nil {
			handleError(h.log, w, r, err)
			return
		}
	}

	resp := listOwnedResponse{Items: make([]ownedResponse, 0, len(items)), Total: total}
	for i := range items {
		resp.Items = append(resp.Items, toOwnedResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// InferExpiry handles POST /api/v1/expiry/infer. Nothing is persisted.
func (h *OwnedHandler) InferExpiry(w http.ResponseWriter, r *http.Request) {
	var req inferExpiryRequest
	if err := decodeBody(w, r, &req); err != nil {
		handleError(h.log, w, r, err)
		return
	}

	est := h.svc.InferExpiry(req.PAOText, req.BatchCode, req.OpenDate.ptr())
	writeJSON(w, http.StatusOK, toExpiryResponse(est))
}

func parseOwnedFilter(r *http.Request) (domain.OwnedFilter, error) {
	q := r.URL.Query()
	var (
		filter domain.OwnedFilter
		errs   []domain.FieldError
	)

	parseBool := func(key string) *bool {
		raw := q.Get(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: key, Message: "must be a boolean"})
			return nil
		}
		return &v
	}
	parseInt := func(key string) int {
		raw := q.Get(key)
		if raw == "" {
			return 0
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: key, Message: "must be an integer"})
		}
		return v
	}

	filter.Favorite = parseBool("favorite")
	filter.Finished = parseBool("finished")
	filter.Limit = parseInt("limit")
	filter.Offset = parseInt("offset")
	if raw := q.Get("expiring_before"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "expiring_before", Message: "must be YYYY-MM-DD"})
		}
		filter.ExpiringBefore = d
	}

	if len(errs) > 0 {
		return domain.OwnedFilter{}, domain.NewValidationErrors(errs)
	}
	return filter, nil
}
