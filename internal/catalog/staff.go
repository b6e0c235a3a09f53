package catalog

import "encoding/json"

// StaffSelection is the professional choice for a booking: either a specific
// professional or "any professional", which defers staff assignment to the
// backend. The zero value means no selection has been made.
type StaffSelection struct {
	any bool
	id  string
}

// AnyProfessional returns the wildcard selection.
func AnyProfessional() StaffSelection {
	return StaffSelection{any: true}
}

// SpecificProfessional returns a selection pinned to one professional.
func SpecificProfessional(id string) StaffSelection {
	return StaffSelection{id: id}
}

// IsZero reports whether no selection has been made.
func (s StaffSelection) IsZero() bool {
	return !s.any && s.id == ""
}

// IsAny reports whether the wildcard was selected.
func (s StaffSelection) IsAny() bool {
	return s.any
}

// ProfessionalID returns the selected professional id. ok is false for the
// wildcard and for the zero value.
func (s StaffSelection) ProfessionalID() (id string, ok bool) {
	if s.any || s.id == "" {
		return "", false
	}
	return s.id, true
}

// CacheKey returns a stable string for use in cache and log keys.
func (s StaffSelection) CacheKey() string {
	switch {
	case s.any:
		return "any"
	case s.id != "":
		return "staff:" + s.id
	default:
		return "none"
	}
}

type staffSelectionJSON struct {
	Any            bool   `json:"any"`
	ProfessionalID string `json:"professional_id,omitempty"`
}

func (s StaffSelection) MarshalJSON() ([]byte, error) {
	return json.Marshal(staffSelectionJSON{Any: s.any, ProfessionalID: s.id})
}

func (s *StaffSelection) UnmarshalJSON(data []byte) error {
	var raw staffSelectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.any = raw.Any
	s.id = raw.ProfessionalID
	return nil
}
