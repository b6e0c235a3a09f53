package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/salonapi"
)

func newCatalogRouter(provider catalog.Provider) chi.Router {
	h := NewCatalogHandler(provider, nil)
	r := chi.NewRouter()
	r.Get("/api/v1/companies/{companyID}/catalog", h.Catalog)
	r.Get("/api/v1/companies/{companyID}/professionals", h.Professionals)
	return r
}

func TestCatalogEndpoint(t *testing.T) {
	r := newCatalogRouter(&fakeProvider{
		categories: []catalog.Category{{
			Name:     "Nails",
			Services: []catalog.Service{{ID: "svc-9", Title: "Manicure"}},
		}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/comp-1/catalog", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		CompanyID  string             `json:"company_id"`
		Categories []catalog.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "comp-1", body.CompanyID)
	require.Len(t, body.Categories, 1)
	assert.Equal(t, "Nails", body.Categories[0].Name)
}

func TestProfessionalsEndpoint(t *testing.T) {
	r := newCatalogRouter(&fakeProvider{
		pros: []catalog.Professional{{ID: "pro-1", Name: "Dana Reyes", Active: true}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/comp-1/professionals", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Professionals []catalog.Professional `json:"professionals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Professionals, 1)
	assert.Equal(t, "Dana Reyes", body.Professionals[0].Name)
}

func TestCatalogUnknownCompany(t *testing.T) {
	r := newCatalogRouter(&fakeProvider{err: salonapi.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/companies/ghost/catalog", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
