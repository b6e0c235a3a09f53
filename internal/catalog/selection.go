package catalog

import "encoding/json"

// SelectionSet is an ordered set of selected services, unique by service id.
// Order is selection order.
type SelectionSet struct {
	services []Service
}

// NewSelectionSet builds a set from the given services, dropping duplicates.
func NewSelectionSet(services ...Service) SelectionSet {
	var set SelectionSet
	for _, svc := range services {
		set.Add(svc)
	}
	return set
}

// Add appends a service unless one with the same id is already selected.
// It reports whether the set changed.
func (s *SelectionSet) Add(svc Service) bool {
	if s.Contains(svc.ID) {
		return false
	}
	s.services = append(s.services, svc)
	return true
}

// Remove deletes the service with the given id, preserving order.
// It reports whether the set changed.
func (s *SelectionSet) Remove(serviceID string) bool {
	for i, svc := range s.services {
		if svc.ID == serviceID {
			s.services = append(s.services[:i], s.services[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether a service with the given id is selected.
func (s *SelectionSet) Contains(serviceID string) bool {
	for _, svc := range s.services {
		if svc.ID == serviceID {
			return true
		}
	}
	return false
}

// Services returns the selected services in selection order.
func (s *SelectionSet) Services() []Service {
	out := make([]Service, len(s.services))
	copy(out, s.services)
	return out
}

// Len returns the number of selected services.
func (s *SelectionSet) Len() int {
	return len(s.services)
}

// Empty reports whether nothing is selected.
func (s *SelectionSet) Empty() bool {
	return len(s.services) == 0
}

// Total sums the prices of all selected services.
func (s *SelectionSet) Total() Money {
	var total Money
	for _, svc := range s.services {
		total = total.Add(svc.Price)
	}
	return total
}

// Clear removes all selections.
func (s *SelectionSet) Clear() {
	s.services = nil
}

func (s SelectionSet) MarshalJSON() ([]byte, error) {
	if s.services == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.services)
}

func (s *SelectionSet) UnmarshalJSON(data []byte) error {
	var services []Service
	if err := json.Unmarshal(data, &services); err != nil {
		return err
	}
	*s = NewSelectionSet(services...)
	return nil
}
