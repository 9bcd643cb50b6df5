package rest

import (
	"net/http"

	"github.com/heartmarshall/beautyshelf-backend/internal/transport/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health  *HealthHandler
	Owned   *OwnedHandler
	Catalog *CatalogHandler
}

// NewRouter registers all routes. Probes are public; everything under
// /api/v1 requires an authenticated user.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", h.Health.Live)
	mux.HandleFunc("GET /ready", h.Health.Ready)
	mux.HandleFunc("GET /health", h.Health.Health)

	private := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireUser(fn))
	}

	private("POST /api/v1/owned", h.Owned.Add)
	private("GET /api/v1/owned", h.Owned.List)
	private("GET /api/v1/owned/{id}", h.Owned.Get)
	private("PATCH /api/v1/owned/{id}", h.Owned.Update)
	private("DELETE /api/v1/owned/{id}", h.Owned.Remove)
	private("POST /api/v1/owned/{id}/usage", h.Owned.RecordUsage)
	private("POST /api/v1/expiry/infer", h.Owned.InferExpiry)

	private("GET /api/v1/catalog/{id}", h.Catalog.Get)
	private("PATCH /api/v1/catalog/{id}", h.Catalog.Enrich)
	private("GET /api/v1/catalog/barcode/{code}", h.Catalog.ByBarcode)

	return mux
}
