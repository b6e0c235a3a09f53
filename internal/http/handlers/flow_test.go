package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonkit/bookflow/internal/booking"
	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/flow"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/internal/schedule"
)

type fakeProvider struct {
	categories []catalog.Category
	pros       []catalog.Professional
	err        error
}

func (p *fakeProvider) ServiceCatalog(ctx context.Context, companyID string) ([]catalog.Category, error) {
	return p.categories, p.err
}

func (p *fakeProvider) Professionals(ctx context.Context, companyID string) ([]catalog.Professional, error) {
	return p.pros, p.err
}

type fakeSlots struct {
	windows     []schedule.Window
	err         error
	invalidated []string
}

func (s *fakeSlots) Windows(ctx context.Context, companyID string, staff catalog.StaffSelection, date time.Time) ([]schedule.Window, error) {
	return s.windows, s.err
}

func (s *fakeSlots) Invalidate(companyID string, staff catalog.StaffSelection) {
	s.invalidated = append(s.invalidated, companyID+"|"+staff.CacheKey())
}

type fakeSubmitter struct {
	confirmation *salonapi.BookingConfirmation
	err          error
	calls        int
	gotSelection booking.Selection
	gotContact   booking.ContactInfo
}

func (s *fakeSubmitter) Submit(ctx context.Context, sel booking.Selection, contact booking.ContactInfo) (*salonapi.BookingConfirmation, error) {
	s.calls++
	s.gotSelection = sel
	s.gotContact = contact
	if s.err != nil {
		return nil, s.err
	}
	return s.confirmation, nil
}

type flowViewBody struct {
	ID        string            `json:"id"`
	CompanyID string            `json:"company_id"`
	Step      string            `json:"step"`
	Services  []catalog.Service `json:"services"`
	StaffName string            `json:"staff_name"`
	Date      string            `json:"date"`
	Slot      *schedule.Slot    `json:"slot"`
	LastError string            `json:"last_error"`
	Total     catalog.Money     `json:"total"`
	Ready     bool              `json:"ready_to_submit"`
}

type handlerFixture struct {
	router    chi.Router
	provider  *fakeProvider
	slots     *fakeSlots
	submitter *fakeSubmitter
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := flow.NewStore(client, time.Hour)

	provider := &fakeProvider{
		categories: []catalog.Category{{
			Name: "Hair",
			Services: []catalog.Service{
				{ID: "svc-1", Title: "Cut", Duration: "30min", Price: catalog.Money{Amount: 4500, Currency: "USD"}, Category: "Hair"},
				{ID: "svc-2", Title: "Color", Duration: "1h", Price: catalog.Money{Amount: 12000, Currency: "USD"}, Category: "Hair"},
			},
		}},
		pros: []catalog.Professional{
			{ID: "pro-1", Name: "Dana Reyes", Role: "Stylist", Active: true},
			{ID: "pro-2", Name: "Kim Osei", Role: "Stylist", Active: false},
		},
	}
	slots := &fakeSlots{
		windows: []schedule.Window{
			{Date: "2024-06-03", Start: "12:00", End: "13:00", Available: true},
		},
	}
	submitter := &fakeSubmitter{
		confirmation: &salonapi.BookingConfirmation{ID: "bk-77", Status: "confirmed", StartTime: "2024-06-03T12:00:00Z"},
	}

	h := NewFlowHandler(store, provider, slots, submitter, nil, nil, nil)

	r := chi.NewRouter()
	r.Route("/api/v1/flows", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{flowID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/services", h.AddService)
			r.Delete("/services/{serviceID}", h.RemoveService)
			r.Post("/advance", h.Advance)
			r.Post("/retreat", h.Retreat)
			r.Put("/professional", h.SelectProfessional)
			r.Put("/date", h.SelectDate)
			r.Get("/slots", h.Slots)
			r.Put("/time", h.SelectTime)
			r.Post("/submit", h.Submit)
		})
	})

	return &handlerFixture{router: r, provider: provider, slots: slots, submitter: submitter}
}

func (fx *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func (fx *handlerFixture) decodeFlow(t *testing.T, rec *httptest.ResponseRecorder) flowViewBody {
	t.Helper()
	var view flowViewBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func (fx *handlerFixture) createFlow(t *testing.T) flowViewBody {
	t.Helper()
	rec := fx.do(t, http.MethodPost, "/api/v1/flows", map[string]string{"company_id": "comp-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	return fx.decodeFlow(t, rec)
}

func TestCreateFlow(t *testing.T) {
	fx := newFixture(t)

	view := fx.createFlow(t)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "comp-1", view.CompanyID)
	assert.Equal(t, string(flow.StepServices), view.Step)
	assert.False(t, view.Ready)
}

func TestCreateFlowRequiresCompany(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows", map[string]string{"company_id": ""})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFlowNotFound(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/flows/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddServiceUnknownID(t *testing.T) {
	fx := newFixture(t)
	view := fx.createFlow(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/services", map[string]string{"service_id": "svc-missing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvanceWithoutServices(t *testing.T) {
	fx := newFixture(t)
	view := fx.createFlow(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/advance", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAddAndRemoveService(t *testing.T) {
	fx := newFixture(t)
	view := fx.createFlow(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/services", map[string]string{"service_id": "svc-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/services", map[string]string{"service_id": "svc-2"})
	require.Equal(t, http.StatusOK, rec.Code)

	got := fx.decodeFlow(t, rec)
	require.Len(t, got.Services, 2)
	assert.Equal(t, int64(16500), got.Total.Amount)

	rec = fx.do(t, http.MethodDelete, "/api/v1/flows/"+view.ID+"/services/svc-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = fx.decodeFlow(t, rec)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "svc-1", got.Services[0].ID)
}

func TestSelectProfessionalClearsTimeAndInvalidates(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	rec := fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	// The first selection replaces nothing, so nothing goes stale.
	assert.Empty(t, fx.slots.invalidated)

	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-03"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/time", map[string]string{"start": "12:00"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := fx.decodeFlow(t, rec)
	require.NotNil(t, got.Slot)

	// Switching professionals drops the chosen time and marks only the
	// replaced selection stale.
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"any": true})
	require.Equal(t, http.StatusOK, rec.Code)
	got = fx.decodeFlow(t, rec)
	assert.Nil(t, got.Slot)
	assert.Equal(t, "Any professional", got.StaffName)
	assert.Equal(t, []string{"comp-1|staff:pro-1"}, fx.slots.invalidated)
}

func TestSelectInactiveProfessional(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	rec := fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-2"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDateChangeKeepsProfessional(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	rec := fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-03"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/time", map[string]string{"start": "12:30"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-04"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := fx.decodeFlow(t, rec)
	assert.Equal(t, "Dana Reyes", got.StaffName)
	assert.Equal(t, "2024-06-04", got.Date)
	assert.Nil(t, got.Slot)
}

func TestSlotsRequireSelection(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	rec := fx.do(t, http.MethodGet, "/api/v1/flows/"+view.ID+"/slots", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSlotsDerivedFromWindows(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-1"})
	fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-03"})

	rec := fx.do(t, http.MethodGet, "/api/v1/flows/"+view.ID+"/slots", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Date  string          `json:"date"`
		Slots []schedule.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-06-03", body.Date)
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "12:00", body.Slots[0].Label)
	assert.Equal(t, "12:30", body.Slots[1].Label)
}

func TestSelectTimeNotAvailable(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-1"})
	fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-03"})

	rec := fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/time", map[string]string{"start": "15:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitHappyPath(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToReview(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/submit", booking.ContactInfo{
		Email:     "sam@example.com",
		FirstName: "Sam",
		LastName:  "Lee",
		Phone:     "+15551234567",
		Notes:     "first visit",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Confirmation salonapi.BookingConfirmation `json:"confirmation"`
		Flow         flowViewBody                 `json:"flow"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bk-77", body.Confirmation.ID)
	assert.Equal(t, string(flow.StepCompleted), body.Flow.Step)
	assert.Empty(t, body.Flow.Services)
	assert.Nil(t, body.Flow.Slot)

	assert.Equal(t, 1, fx.submitter.calls)
	assert.Equal(t, "comp-1", fx.submitter.gotSelection.CompanyID)
	assert.Equal(t, "sam@example.com", fx.submitter.gotContact.Email)
}

func TestSubmitBackendFailureReturnsToReview(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToReview(t)
	fx.submitter.err = &salonapi.APIError{StatusCode: http.StatusConflict, Message: "slot already taken"}

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/submit", booking.ContactInfo{
		Email:     "sam@example.com",
		FirstName: "Sam",
		LastName:  "Lee",
		Phone:     "+15551234567",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	got := fx.do(t, http.MethodGet, "/api/v1/flows/"+view.ID, nil)
	state := fx.decodeFlow(t, got)
	assert.Equal(t, string(flow.StepReview), state.Step)
	assert.Equal(t, "slot already taken", state.LastError)
	assert.NotEmpty(t, state.Services)
	assert.NotNil(t, state.Slot)
}

func TestSubmitBackendServerErrorMasksMessage(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToReview(t)
	fx.submitter.err = &salonapi.APIError{StatusCode: http.StatusInternalServerError, Message: "pq: deadlock detected"}

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/submit", booking.ContactInfo{
		Email:     "sam@example.com",
		FirstName: "Sam",
		LastName:  "Lee",
		Phone:     "+15551234567",
	})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "deadlock")
	assert.Contains(t, rec.Body.String(), "booking could not be completed")

	got := fx.do(t, http.MethodGet, "/api/v1/flows/"+view.ID, nil)
	state := fx.decodeFlow(t, got)
	assert.Equal(t, string(flow.StepReview), state.Step)
	assert.Equal(t, "booking could not be completed", state.LastError)
}

func TestSubmitValidationFailure(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToReview(t)
	fx.submitter.err = &booking.ValidationError{Field: "email", Reason: "must look like an email address"}

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/submit", booking.ContactInfo{
		Email: "not-an-email",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	got := fx.do(t, http.MethodGet, "/api/v1/flows/"+view.ID, nil)
	state := fx.decodeFlow(t, got)
	assert.Equal(t, string(flow.StepReview), state.Step)
	assert.NotEmpty(t, state.LastError)
}

func TestSubmitOutsideReview(t *testing.T) {
	fx := newFixture(t)
	view := fx.createFlow(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/submit", booking.ContactInfo{})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, fx.submitter.calls)
}

func TestRetreatFromSchedule(t *testing.T) {
	fx := newFixture(t)
	view := fx.walkToSchedule(t)

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/retreat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := fx.decodeFlow(t, rec)
	assert.Equal(t, string(flow.StepServices), got.Step)
}

func TestUpstreamErrorMapsToBadGateway(t *testing.T) {
	fx := newFixture(t)
	view := fx.createFlow(t)
	fx.provider.err = errors.New("connection refused")

	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/services", map[string]string{"service_id": "svc-1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func (fx *handlerFixture) walkToSchedule(t *testing.T) flowViewBody {
	t.Helper()
	view := fx.createFlow(t)
	rec := fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/services", map[string]string{"service_id": "svc-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return fx.decodeFlow(t, rec)
}

func (fx *handlerFixture) walkToReview(t *testing.T) flowViewBody {
	t.Helper()
	view := fx.walkToSchedule(t)
	rec := fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/professional", map[string]interface{}{"professional_id": "pro-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/date", map[string]string{"date": "2024-06-03"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPut, "/api/v1/flows/"+view.ID+"/time", map[string]string{"start": "12:00"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = fx.do(t, http.MethodPost, "/api/v1/flows/"+view.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return fx.decodeFlow(t, rec)
}
