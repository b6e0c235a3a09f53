// Package flow owns the booking wizard's step progression and selection
// state. A Flow is a plain state document: transitions mutate it in memory
// and the Store persists it per session. All network work (availability,
// submission) happens outside this package; the flow only records outcomes.
package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/schedule"
)

// Step is a stage of the booking wizard.
type Step string

const (
	StepServices   Step = "selecting_services"
	StepSchedule   Step = "selecting_professional_and_time"
	StepReview     Step = "reviewing_booking"
	StepSubmitting Step = "submitting"
	StepCompleted  Step = "completed"
)

var (
	// ErrInvalidTransition is returned when a step change is not permitted
	// from the current step.
	ErrInvalidTransition = errors.New("flow: invalid transition")
	// ErrIncompleteSelection is returned when a gate condition for advancing
	// is not met.
	ErrIncompleteSelection = errors.New("flow: selection incomplete")
	// ErrPrecondition marks caller errors: operations invoked before their
	// required selections exist.
	ErrPrecondition = errors.New("flow: precondition not met")
)

// Flow is one booking session: current step plus everything the user has
// selected so far.
type Flow struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Step      Step   `json:"step"`

	Services  catalog.SelectionSet   `json:"services"`
	Staff     catalog.StaffSelection `json:"staff"`
	StaffName string                 `json:"staff_name,omitempty"`
	Date      string                 `json:"date,omitempty"` // YYYY-MM-DD, empty = unset
	Slot      *schedule.Slot         `json:"slot,omitempty"`

	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New starts an empty flow for a company.
func New(companyID string) (*Flow, error) {
	if companyID == "" {
		return nil, fmt.Errorf("%w: company id required", ErrPrecondition)
	}
	now := time.Now().UTC()
	return &Flow{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Step:      StepServices,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AddService selects a service. Services can only change on the first step.
func (f *Flow) AddService(svc catalog.Service) error {
	if f.Step != StepServices {
		return fmt.Errorf("%w: services locked after step %s", ErrInvalidTransition, StepServices)
	}
	f.Services.Add(svc)
	f.touch()
	return nil
}

// RemoveService deselects a service by id.
func (f *Flow) RemoveService(serviceID string) error {
	if f.Step != StepServices {
		return fmt.Errorf("%w: services locked after step %s", ErrInvalidTransition, StepServices)
	}
	f.Services.Remove(serviceID)
	f.touch()
	return nil
}

// Advance moves to the next step when its gate conditions hold. Leaving the
// service step clears the professional and time selections so they are
// re-chosen against the new service set.
func (f *Flow) Advance() error {
	switch f.Step {
	case StepServices:
		if f.Services.Empty() {
			return fmt.Errorf("%w: at least one service required", ErrIncompleteSelection)
		}
		f.Staff = catalog.StaffSelection{}
		f.StaffName = ""
		f.Slot = nil
		f.Step = StepSchedule
	case StepSchedule:
		if f.Staff.IsZero() || f.Date == "" || f.Slot == nil {
			return fmt.Errorf("%w: professional, date and time required", ErrIncompleteSelection)
		}
		f.Step = StepReview
	default:
		return fmt.Errorf("%w: cannot advance from %s", ErrInvalidTransition, f.Step)
	}
	f.touch()
	return nil
}

// Retreat moves one step back. Not possible from the first step or while a
// submission is in flight.
func (f *Flow) Retreat() error {
	switch f.Step {
	case StepSchedule:
		f.Step = StepServices
	case StepReview:
		f.Step = StepSchedule
	case StepCompleted:
		f.Step = StepReview
	default:
		return fmt.Errorf("%w: cannot retreat from %s", ErrInvalidTransition, f.Step)
	}
	f.touch()
	return nil
}

// SelectProfessional sets the staff choice and unconditionally clears any
// chosen time; slots are scoped to a (professional, date) pair.
func (f *Flow) SelectProfessional(staff catalog.StaffSelection, name string) error {
	if f.Step != StepSchedule {
		return fmt.Errorf("%w: professional selected outside step %s", ErrInvalidTransition, StepSchedule)
	}
	if staff.IsZero() {
		return fmt.Errorf("%w: staff selection required", ErrPrecondition)
	}
	f.Staff = staff
	f.StaffName = name
	f.Slot = nil
	f.touch()
	return nil
}

// SelectDate sets the date and clears any chosen time. The professional
// selection survives a date change.
func (f *Flow) SelectDate(date time.Time) error {
	if f.Step != StepSchedule {
		return fmt.Errorf("%w: date selected outside step %s", ErrInvalidTransition, StepSchedule)
	}
	f.Date = date.Format(schedule.DateLayout)
	f.Slot = nil
	f.touch()
	return nil
}

// SelectTime sets the time slot. A professional and date must already be
// selected; calling this without them is a caller bug, not a user error.
func (f *Flow) SelectTime(slot schedule.Slot) error {
	if f.Step != StepSchedule {
		return fmt.Errorf("%w: time selected outside step %s", ErrInvalidTransition, StepSchedule)
	}
	if f.Staff.IsZero() || f.Date == "" {
		return fmt.Errorf("%w: professional and date must be selected before a time", ErrPrecondition)
	}
	s := slot
	f.Slot = &s
	f.touch()
	return nil
}

// BeginSubmit transitions into the submitting state. Only valid from review.
func (f *Flow) BeginSubmit() error {
	if f.Step != StepReview {
		return fmt.Errorf("%w: submit only allowed from %s", ErrInvalidTransition, StepReview)
	}
	f.Step = StepSubmitting
	f.LastError = ""
	f.touch()
	return nil
}

// CompleteSubmit records a successful submission and resets the selection.
func (f *Flow) CompleteSubmit() {
	f.Step = StepCompleted
	f.Services.Clear()
	f.Staff = catalog.StaffSelection{}
	f.StaffName = ""
	f.Date = ""
	f.Slot = nil
	f.LastError = ""
	f.touch()
}

// FailSubmit returns to review with the error retained and every selection
// untouched, so the user can retry without re-entering anything.
func (f *Flow) FailSubmit(message string) {
	f.Step = StepReview
	f.LastError = message
	f.touch()
}

// ReadyToSubmit reports whether all booking selections are present.
func (f *Flow) ReadyToSubmit() bool {
	return !f.Services.Empty() && !f.Staff.IsZero() && f.Date != "" && f.Slot != nil
}

// Total is the running price of the selected services.
func (f *Flow) Total() catalog.Money {
	return f.Services.Total()
}

func (f *Flow) touch() {
	f.UpdatedAt = time.Now().UTC()
}
