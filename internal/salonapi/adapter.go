package salonapi

import (
	"context"
	"strings"

	"github.com/salonkit/bookflow/internal/catalog"
)

// CatalogAdapter exposes the backend catalog through the catalog.Provider
// interface, converting wire types into domain types.
type CatalogAdapter struct {
	client *Client
}

// NewCatalogAdapter wraps a Client as a catalog.Provider.
func NewCatalogAdapter(client *Client) *CatalogAdapter {
	return &CatalogAdapter{client: client}
}

// ServiceCatalog returns the company's services grouped by category.
func (a *CatalogAdapter) ServiceCatalog(ctx context.Context, companyID string) ([]catalog.Category, error) {
	raw, err := a.client.GetServiceCatalog(ctx, companyID)
	if err != nil {
		return nil, err
	}
	categories := make([]catalog.Category, 0, len(raw))
	for _, group := range raw {
		services := make([]catalog.Service, 0, len(group.Services))
		for _, svc := range group.Services {
			category := svc.Category
			if category == "" {
				category = group.Category
			}
			services = append(services, catalog.Service{
				ID:       svc.ID,
				Title:    svc.Title,
				Duration: svc.Duration,
				Price:    catalog.Money{Amount: svc.Price.Amount, Currency: svc.Price.Currency},
				Category: category,
			})
		}
		categories = append(categories, catalog.Category{Name: group.Category, Services: services})
	}
	return categories, nil
}

// Professionals returns the company's staff roster.
func (a *CatalogAdapter) Professionals(ctx context.Context, companyID string) ([]catalog.Professional, error) {
	raw, err := a.client.GetProfessionals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	professionals := make([]catalog.Professional, 0, len(raw))
	for _, p := range raw {
		professionals = append(professionals, catalog.Professional{
			ID:     p.ID,
			Name:   strings.TrimSpace(p.FirstName + " " + p.LastName),
			Role:   p.Role,
			Active: p.Status != "inactive",
		})
	}
	return professionals, nil
}

var _ catalog.Provider = (*CatalogAdapter)(nil)
