package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salonkit/bookflow/internal/availability"
	"github.com/salonkit/bookflow/internal/booking"
	"github.com/salonkit/bookflow/internal/bookings"
	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/flow"
	"github.com/salonkit/bookflow/internal/observability/metrics"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/internal/schedule"
	"github.com/salonkit/bookflow/pkg/logging"
)

// SlotSource supplies availability windows for the schedule step.
type SlotSource interface {
	Windows(ctx context.Context, companyID string, staff catalog.StaffSelection, date time.Time) ([]schedule.Window, error)
	Invalidate(companyID string, staff catalog.StaffSelection)
}

// BookingSubmitter sends a completed selection to the booking backend.
type BookingSubmitter interface {
	Submit(ctx context.Context, sel booking.Selection, contact booking.ContactInfo) (*salonapi.BookingConfirmation, error)
}

// RecordWriter persists local booking records. Optional; nil disables the
// audit trail.
type RecordWriter interface {
	Insert(ctx context.Context, rec bookings.Record) (uuid.UUID, error)
}

// FlowHandler drives the booking wizard over HTTP. Every mutation loads the
// session, applies the transition and saves it back.
type FlowHandler struct {
	store     *flow.Store
	provider  catalog.Provider
	slots     SlotSource
	submitter BookingSubmitter
	records   RecordWriter
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
}

// NewFlowHandler creates a FlowHandler. records may be nil.
func NewFlowHandler(
	store *flow.Store,
	provider catalog.Provider,
	slots SlotSource,
	submitter BookingSubmitter,
	records RecordWriter,
	logger *logging.Logger,
	m *metrics.BookingMetrics,
) *FlowHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FlowHandler{
		store:     store,
		provider:  provider,
		slots:     slots,
		submitter: submitter,
		records:   records,
		logger:    logger.Component("flow_handler"),
		metrics:   m,
	}
}

type flowResponse struct {
	*flow.Flow
	Total catalog.Money `json:"total"`
	Ready bool          `json:"ready_to_submit"`
}

func flowView(f *flow.Flow) flowResponse {
	return flowResponse{Flow: f, Total: f.Total(), Ready: f.ReadyToSubmit()}
}

// Create starts a new booking flow for a company.
func (h *FlowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CompanyID string `json:"company_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, err := flow.New(body.CompanyID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "company_id is required")
		return
	}
	if !h.save(w, r, f) {
		return
	}
	h.metrics.ObserveFlowStep(string(f.Step))
	writeJSON(w, http.StatusCreated, flowView(f))
}

// Get returns the current flow state.
func (h *FlowHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// AddService selects a catalog service into the flow.
func (h *FlowHandler) AddService(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ServiceID string `json:"service_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	f, ok := h.load(w, r)
	if !ok {
		return
	}

	categories, err := h.provider.ServiceCatalog(r.Context(), f.CompanyID)
	if err != nil {
		h.upstreamError(w, "load service catalog", err)
		return
	}
	svc, found := catalog.FindService(categories, body.ServiceID)
	if !found {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}

	if err := f.AddService(svc); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// RemoveService deselects a service.
func (h *FlowHandler) RemoveService(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := f.RemoveService(chi.URLParam(r, "serviceID")); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// Advance moves the flow to the next step.
func (h *FlowHandler) Advance(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := f.Advance(); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	h.metrics.ObserveFlowStep(string(f.Step))
	writeJSON(w, http.StatusOK, flowView(f))
}

// Retreat moves the flow one step back.
func (h *FlowHandler) Retreat(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := f.Retreat(); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	h.metrics.ObserveFlowStep(string(f.Step))
	writeJSON(w, http.StatusOK, flowView(f))
}

// SelectProfessional sets the staff choice and invalidates any cached
// availability for the previous choice.
func (h *FlowHandler) SelectProfessional(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Any            bool   `json:"any"`
		ProfessionalID string `json:"professional_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, ok := h.load(w, r)
	if !ok {
		return
	}

	var staff catalog.StaffSelection
	var name string
	if body.Any {
		staff = catalog.AnyProfessional()
		name = "Any professional"
	} else {
		if body.ProfessionalID == "" {
			writeError(w, http.StatusUnprocessableEntity, "professional_id or any is required")
			return
		}
		pro, err := h.lookupProfessional(r.Context(), f.CompanyID, body.ProfessionalID)
		if err != nil {
			h.upstreamError(w, "load professionals", err)
			return
		}
		if pro == nil {
			writeError(w, http.StatusNotFound, "professional not found")
			return
		}
		if !pro.Active {
			writeError(w, http.StatusUnprocessableEntity, "professional is not accepting bookings")
			return
		}
		staff = catalog.SpecificProfessional(pro.ID)
		name = pro.Name
	}

	prev := f.Staff
	if err := f.SelectProfessional(staff, name); err != nil {
		h.flowError(w, err)
		return
	}
	if !prev.IsZero() {
		// Only this flow's replaced selection goes stale.
		h.slots.Invalidate(f.CompanyID, prev)
	}
	if !h.save(w, r, f) {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// SelectDate sets the calendar date.
func (h *FlowHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, err := schedule.ParseDate(body.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "date must be YYYY-MM-DD")
		return
	}

	f, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := f.SelectDate(date); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// Slots returns the bookable slots for the flow's professional and date.
func (h *FlowHandler) Slots(w http.ResponseWriter, r *http.Request) {
	f, ok := h.load(w, r)
	if !ok {
		return
	}
	slots, status := h.deriveSlots(r.Context(), w, f)
	if status != http.StatusOK {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  f.Date,
		"slots": slots,
	})
}

// SelectTime sets the time slot after checking it is still derivable from the
// current availability.
func (h *FlowHandler) SelectTime(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start string `json:"start"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Start == "" {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}

	f, ok := h.load(w, r)
	if !ok {
		return
	}
	slots, status := h.deriveSlots(r.Context(), w, f)
	if status != http.StatusOK {
		return
	}

	var chosen *schedule.Slot
	for i := range slots {
		if slots[i].Label == body.Start {
			chosen = &slots[i]
			break
		}
	}
	if chosen == nil {
		writeError(w, http.StatusUnprocessableEntity, "time is not available")
		return
	}

	if err := f.SelectTime(*chosen); err != nil {
		h.flowError(w, err)
		return
	}
	if !h.save(w, r, f) {
		return
	}
	writeJSON(w, http.StatusOK, flowView(f))
}

// Submit sends the reviewed booking to the backend. On success the flow
// completes and resets; on failure it returns to review with the error
// retained and the selections intact.
func (h *FlowHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var contact booking.ContactInfo
	if err := decodeJSON(r, &contact); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f, ok := h.load(w, r)
	if !ok {
		return
	}

	// Capture the selection before the flow mutates; CompleteSubmit clears it.
	sel := booking.Selection{
		CompanyID: f.CompanyID,
		Services:  f.Services.Services(),
		Staff:     f.Staff,
		Date:      f.Date,
		Slot:      f.Slot,
	}
	total := f.Total()

	if err := f.BeginSubmit(); err != nil {
		h.flowError(w, err)
		return
	}
	h.metrics.ObserveFlowStep(string(f.Step))

	confirmation, err := h.submitter.Submit(r.Context(), sel, contact)
	if err != nil {
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			f.FailSubmit(vErr.Error())
			h.saveBestEffort(r.Context(), f)
			writeError(w, http.StatusUnprocessableEntity, vErr.Error())
			return
		}
		// Backend rejections carry a user-facing reason; backend 5xx
		// messages stay in the logs.
		msg := "booking could not be completed"
		var apiErr *salonapi.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" && !salonapi.IsServerError(err) {
			msg = apiErr.Message
		}
		f.FailSubmit(msg)
		h.saveBestEffort(r.Context(), f)
		writeError(w, http.StatusBadGateway, msg)
		return
	}

	h.recordBooking(r.Context(), sel, contact, total, confirmation)

	f.CompleteSubmit()
	h.metrics.ObserveFlowStep(string(f.Step))
	h.saveBestEffort(r.Context(), f)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"confirmation": confirmation,
		"flow":         flowView(f),
	})
}

func (h *FlowHandler) deriveSlots(ctx context.Context, w http.ResponseWriter, f *flow.Flow) ([]schedule.Slot, int) {
	if f.Staff.IsZero() || f.Date == "" {
		writeError(w, http.StatusConflict, "professional and date must be selected first")
		return nil, http.StatusConflict
	}
	date, err := schedule.ParseDate(f.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored date is invalid")
		return nil, http.StatusInternalServerError
	}

	windows, err := h.slots.Windows(ctx, f.CompanyID, f.Staff, date)
	if err != nil {
		if errors.Is(err, availability.ErrSuperseded) {
			h.metrics.ObserveAvailabilityFetch(f.Staff.CacheKey(), "superseded")
			writeError(w, http.StatusConflict, "selection changed while loading availability, retry")
			return nil, http.StatusConflict
		}
		h.metrics.ObserveAvailabilityFetch(f.Staff.CacheKey(), "error")
		h.upstreamError(w, "load availability", err)
		return nil, http.StatusBadGateway
	}
	h.metrics.ObserveAvailabilityFetch(f.Staff.CacheKey(), "ok")
	return schedule.Derive(windows, date), http.StatusOK
}

func (h *FlowHandler) lookupProfessional(ctx context.Context, companyID, professionalID string) (*catalog.Professional, error) {
	pros, err := h.provider.Professionals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	for i := range pros {
		if pros[i].ID == professionalID {
			return &pros[i], nil
		}
	}
	return nil, nil
}

func (h *FlowHandler) recordBooking(ctx context.Context, sel booking.Selection, contact booking.ContactInfo, total catalog.Money, confirmation *salonapi.BookingConfirmation) {
	if h.records == nil || confirmation == nil {
		return
	}
	date, err := schedule.ParseDate(sel.Date)
	if err != nil {
		return
	}
	startAt, err := schedule.CombineUTC(date, sel.Slot.Label)
	if err != nil {
		return
	}
	professionalID, _ := sel.Staff.ProfessionalID()

	if _, err := h.records.Insert(ctx, bookings.Record{
		CompanyID:      sel.CompanyID,
		BookingRef:     confirmation.ID,
		CustomerEmail:  contact.Email,
		StartAt:        startAt,
		ServiceCount:   len(sel.Services),
		TotalAmount:    total.Amount,
		TotalCurrency:  total.Currency,
		ProfessionalID: professionalID,
	}); err != nil {
		h.logger.Warn("booking record insert failed",
			"company_id", sel.CompanyID,
			"booking_ref", confirmation.ID,
			"error", err,
		)
	}
}

func (h *FlowHandler) load(w http.ResponseWriter, r *http.Request) (*flow.Flow, bool) {
	flowID := chi.URLParam(r, "flowID")
	f, err := h.store.Load(r.Context(), flowID)
	if errors.Is(err, flow.ErrFlowNotFound) {
		writeError(w, http.StatusNotFound, "flow not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("flow load failed", "flow_id", flowID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load flow")
		return nil, false
	}
	return f, true
}

func (h *FlowHandler) save(w http.ResponseWriter, r *http.Request, f *flow.Flow) bool {
	if err := h.store.Save(r.Context(), f); err != nil {
		h.logger.Error("flow save failed", "flow_id", f.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save flow")
		return false
	}
	return true
}

// saveBestEffort is used after the backend call already settled the outcome;
// a session write failure should not mask it.
func (h *FlowHandler) saveBestEffort(ctx context.Context, f *flow.Flow) {
	if err := h.store.Save(ctx, f); err != nil {
		h.logger.Warn("flow save failed", "flow_id", f.ID, "error", err)
	}
}

func (h *FlowHandler) flowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flow.ErrIncompleteSelection):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, flow.ErrInvalidTransition), errors.Is(err, flow.ErrPrecondition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *FlowHandler) upstreamError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, salonapi.ErrNotFound) {
		writeError(w, http.StatusNotFound, "company not found")
		return
	}
	h.logger.Warn("upstream call failed", "action", action, "error", err)
	writeError(w, http.StatusBadGateway, "booking backend unavailable")
}
