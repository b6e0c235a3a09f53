package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/salonkit/bookflow/internal/bookings"
	"github.com/salonkit/bookflow/pkg/logging"
)

// RecordLister reads back locally recorded bookings.
type RecordLister interface {
	ListRecent(ctx context.Context, companyID string, limit int) ([]bookings.Record, error)
}

// RecordsHandler exposes the booking audit trail to operators.
type RecordsHandler struct {
	records RecordLister
	logger  *logging.Logger
}

// NewRecordsHandler creates a RecordsHandler. records may be nil when no
// database is configured.
func NewRecordsHandler(records RecordLister, logger *logging.Logger) *RecordsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordsHandler{
		records: records,
		logger:  logger.Component("records_handler"),
	}
}

// List returns the newest booking records for a company.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeError(w, http.StatusServiceUnavailable, "booking records are not configured")
		return
	}
	companyID := chi.URLParam(r, "companyID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.records.ListRecent(r.Context(), companyID, limit)
	if err != nil {
		h.logger.Error("list booking records failed", "company_id", companyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list booking records")
		return
	}
	if records == nil {
		records = []bookings.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"company_id": companyID,
		"records":    records,
	})
}
