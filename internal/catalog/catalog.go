// Package catalog holds the service and professional domain model for the
// booking flow. The catalog itself is owned by the upstream booking backend;
// this package only models what the flow selects from it.
package catalog

import (
	"context"
	"fmt"
)

// Money is a currency-tagged integer amount in minor units (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Add returns the sum of two amounts. Mixing currencies is a programming
// error in this flow; the first non-empty currency wins.
func (m Money) Add(other Money) Money {
	currency := m.Currency
	if currency == "" {
		currency = other.Currency
	}
	return Money{Amount: m.Amount + other.Amount, Currency: currency}
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}

// Service is an immutable catalog entry.
type Service struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
	Price    Money  `json:"price"`
	Category string `json:"category"`
}

// Category groups services the way the upstream catalog endpoint returns them.
type Category struct {
	Name     string    `json:"name"`
	Services []Service `json:"services"`
}

// Professional is a staff member from the upstream roster.
type Professional struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Provider supplies catalog data to the flow. Implementations talk to the
// upstream booking backend; tests inject fixtures.
type Provider interface {
	ServiceCatalog(ctx context.Context, companyID string) ([]Category, error)
	Professionals(ctx context.Context, companyID string) ([]Professional, error)
}

// FindService looks a service up by id across categories.
func FindService(categories []Category, serviceID string) (Service, bool) {
	for _, cat := range categories {
		for _, svc := range cat.Services {
			if svc.ID == serviceID {
				return svc, true
			}
		}
	}
	return Service{}, false
}
