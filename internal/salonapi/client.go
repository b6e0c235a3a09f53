// Package salonapi is an HTTP client for the upstream booking backend: the
// service catalog, the professional roster, weekly availability and booking
// creation.
package salonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTimeout = 20 * time.Second

// Client talks to the booking backend's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a booking backend client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger.Component("salonapi"),
		tracer: otel.Tracer("bookflow.internal.salonapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetServiceCatalog returns the category-grouped service catalog for a company.
func (c *Client) GetServiceCatalog(ctx context.Context, companyID string) ([]ServiceCategory, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("salonapi: company id required")
	}
	var out []ServiceCategory
	path := fmt.Sprintf("/api/v1/services/companies/%s/services", url.PathEscape(companyID))
	if err := c.get(ctx, "catalog.services", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfessionals returns the professional roster for a company.
func (c *Client) GetProfessionals(ctx context.Context, companyID string) ([]Professional, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("salonapi: company id required")
	}
	var out []Professional
	path := fmt.Sprintf("/api/v1/services/companies/%s/users", url.PathEscape(companyID))
	if err := c.get(ctx, "catalog.professionals", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetWeeklyAvailability returns one week of availability windows starting at
// dateFrom. For the wildcard selection it queries the aggregate company
// endpoint, otherwise the per-professional one.
func (c *Client) GetWeeklyAvailability(ctx context.Context, companyID string, staff catalog.StaffSelection, dateFrom time.Time) ([]AvailabilityWindow, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("salonapi: company id required")
	}
	if staff.IsZero() {
		return nil, fmt.Errorf("salonapi: staff selection required")
	}

	var path string
	if id, ok := staff.ProfessionalID(); ok {
		path = fmt.Sprintf("/api/v1/companies/%s/users/%s/availability", url.PathEscape(companyID), url.PathEscape(id))
	} else {
		path = fmt.Sprintf("/api/v1/companies/%s/availabilities", url.PathEscape(companyID))
	}
	query := url.Values{
		"date_from":         {dateFrom.Format("2006-01-02")},
		"availability_type": {"weekly"},
	}

	var out []AvailabilityWindow
	if err := c.get(ctx, "availability.weekly", path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateBooking submits a booking and returns the backend's confirmation.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*BookingConfirmation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("salonapi: marshal booking request: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, "salonapi.create_booking")
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/bookings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("salonapi: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out BookingConfirmation
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}

	c.logger.Info("booking created",
		"company_id", req.CompanyID,
		"start_time", req.StartTime,
		"services", len(req.Services),
	)
	return &out, nil
}

func (c *Client) get(ctx context.Context, spanName, path string, query url.Values, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "salonapi."+spanName)
	defer span.End()

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("salonapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("salonapi: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("salonapi: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Message == "" {
			envelope.Message = trimBody(respBody)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("salonapi: unmarshal response: %w", err)
	}
	return nil
}

func trimBody(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
