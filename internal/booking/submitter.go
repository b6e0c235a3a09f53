// Package booking validates a completed booking selection, normalizes it into
// the backend's wire payload and performs the create-booking call.
package booking

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/observability/metrics"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/internal/schedule"
	"github.com/salonkit/bookflow/pkg/logging"
)

// emailPattern is a deliberately loose shape check; the backend does the
// authoritative validation.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Selection is the completed set of booking choices handed to Submit.
type Selection struct {
	CompanyID string
	Services  []catalog.Service
	Staff     catalog.StaffSelection
	Date      string // YYYY-MM-DD, empty = unset
	Slot      *schedule.Slot
}

// ContactInfo is the customer's contact form.
type ContactInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes,omitempty"`
}

// ValidationError reports the first unmet local condition. No network call is
// made when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

// Creator is the backend operation the submitter depends on.
type Creator interface {
	CreateBooking(ctx context.Context, req salonapi.BookingRequest) (*salonapi.BookingConfirmation, error)
}

// Submitter assembles and sends booking payloads.
type Submitter struct {
	api     Creator
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
}

// NewSubmitter creates a Submitter.
func NewSubmitter(api Creator, logger *logging.Logger, m *metrics.BookingMetrics) *Submitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Submitter{
		api:     api,
		logger:  logger.Component("booking"),
		metrics: m,
	}
}

// Submit validates the selection and contact details, normalizes the start
// time and creates the booking. Validation failures return a
// *ValidationError before any network activity; network and backend errors
// pass through unchanged so callers can classify them.
func (s *Submitter) Submit(ctx context.Context, sel Selection, contact ContactInfo) (*salonapi.BookingConfirmation, error) {
	if err := Validate(sel, contact); err != nil {
		s.metrics.ObserveSubmit("validation_error")
		return nil, err
	}

	req, err := BuildPayload(sel, contact)
	if err != nil {
		s.metrics.ObserveSubmit("payload_error")
		return nil, err
	}

	start := time.Now()
	confirmation, err := s.api.CreateBooking(ctx, req)
	s.metrics.ObserveSubmitLatency(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ObserveSubmit("error")
		s.logger.Warn("booking submission failed",
			"company_id", sel.CompanyID,
			"error", err,
		)
		return nil, err
	}

	s.metrics.ObserveSubmit("ok")
	s.logger.Info("booking submitted",
		"company_id", sel.CompanyID,
		"booking_id", confirmation.ID,
		"services", len(sel.Services),
	)
	return confirmation, nil
}

// Validate checks the selection and contact form, returning the first unmet
// condition as a *ValidationError.
func Validate(sel Selection, contact ContactInfo) error {
	if strings.TrimSpace(sel.CompanyID) == "" {
		return &ValidationError{Field: "company_id", Reason: "required"}
	}
	if len(sel.Services) == 0 {
		return &ValidationError{Field: "services", Reason: "at least one service required"}
	}
	if sel.Staff.IsZero() {
		return &ValidationError{Field: "professional", Reason: "required"}
	}
	if sel.Date == "" {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	if sel.Slot == nil {
		return &ValidationError{Field: "time", Reason: "required"}
	}
	if !emailPattern.MatchString(contact.Email) {
		return &ValidationError{Field: "email", Reason: "must look like an email address"}
	}
	if strings.TrimSpace(contact.FirstName) == "" {
		return &ValidationError{Field: "first_name", Reason: "required"}
	}
	if strings.TrimSpace(contact.LastName) == "" {
		return &ValidationError{Field: "last_name", Reason: "required"}
	}
	if strings.TrimSpace(contact.Phone) == "" {
		return &ValidationError{Field: "phone", Reason: "required"}
	}
	return nil
}

// BuildPayload normalizes a validated selection into the wire payload. The
// calendar date and the slot's wall-clock label combine into a UTC instant
// without passing through any timezone offset.
func BuildPayload(sel Selection, contact ContactInfo) (salonapi.BookingRequest, error) {
	date, err := schedule.ParseDate(sel.Date)
	if err != nil {
		return salonapi.BookingRequest{}, err
	}
	startAt, err := schedule.CombineUTC(date, sel.Slot.Label)
	if err != nil {
		return salonapi.BookingRequest{}, err
	}

	var userID *string
	if id, ok := sel.Staff.ProfessionalID(); ok {
		userID = &id
	}

	services := make([]salonapi.BookingService, 0, len(sel.Services))
	for _, svc := range sel.Services {
		services = append(services, salonapi.BookingService{
			CategoryServiceID: svc.ID,
			UserID:            userID,
			Notes:             "",
		})
	}

	return salonapi.BookingRequest{
		CompanyID: sel.CompanyID,
		StartTime: startAt.Format(time.RFC3339),
		CustomerInfo: salonapi.CustomerInfo{
			FirstName: strings.TrimSpace(contact.FirstName),
			LastName:  strings.TrimSpace(contact.LastName),
			Email:     strings.TrimSpace(contact.Email),
			Phone:     strings.TrimSpace(contact.Phone),
		},
		Services: services,
		Notes:    contact.Notes,
	}, nil
}
