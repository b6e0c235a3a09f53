package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/pkg/logging"
)

// CatalogHandler serves the read-only catalog data the widget renders before
// and during the flow.
type CatalogHandler struct {
	provider catalog.Provider
	logger   *logging.Logger
}

// NewCatalogHandler creates a CatalogHandler.
func NewCatalogHandler(provider catalog.Provider, logger *logging.Logger) *CatalogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CatalogHandler{
		provider: provider,
		logger:   logger.Component("catalog_handler"),
	}
}

// Catalog returns the company's service catalog grouped by category.
func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	categories, err := h.provider.ServiceCatalog(r.Context(), companyID)
	if err != nil {
		h.writeUpstreamError(w, companyID, "load service catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company_id": companyID,
		"categories": categories,
	})
}

// Professionals returns the company's bookable staff roster.
func (h *CatalogHandler) Professionals(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	pros, err := h.provider.Professionals(r.Context(), companyID)
	if err != nil {
		h.writeUpstreamError(w, companyID, "load professionals", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company_id":    companyID,
		"professionals": pros,
	})
}

func (h *CatalogHandler) writeUpstreamError(w http.ResponseWriter, companyID, action string, err error) {
	if errors.Is(err, salonapi.ErrNotFound) {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	h.logger.Warn("upstream call failed", "company_id", companyID, "action", action, "error", err)
	writeError(w, http.StatusBadGateway, "booking backend unavailable")
}
