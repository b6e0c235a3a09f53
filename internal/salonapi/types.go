package salonapi

// ServiceCategory is one category group from the service catalog endpoint.
type ServiceCategory struct {
	Category string    `json:"category"`
	Services []Service `json:"services"`
}

// Service is a catalog entry as returned by the backend.
type Service struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Duration string `json:"duration"`
	Price    Money  `json:"price"`
	Category string `json:"category"`
}

// Money is a currency-tagged amount in minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Professional is a roster entry as returned by the backend.
type Professional struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"` // "active" or "inactive"
}

// AvailabilityWindow is one contiguous interval of a weekly availability
// response.
type AvailabilityWindow struct {
	Date        string `json:"date"`       // YYYY-MM-DD
	StartTime   string `json:"start_time"` // HH:MM
	EndTime     string `json:"end_time"`   // HH:MM
	IsAvailable bool   `json:"is_available"`
}

// CustomerInfo is the contact block of a booking request.
type CustomerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// BookingService is one line item of a booking request. UserID is null when
// the customer chose "any professional".
type BookingService struct {
	CategoryServiceID string  `json:"category_service_id"`
	UserID            *string `json:"user_id"`
	Notes             string  `json:"notes"`
}

// BookingRequest is the create-booking payload. StartTime is an ISO-8601 UTC
// instant.
type BookingRequest struct {
	CompanyID    string           `json:"company_id"`
	StartTime    string           `json:"start_time"`
	CustomerInfo CustomerInfo     `json:"customer_info"`
	Services     []BookingService `json:"services"`
	Notes        string           `json:"notes"`
}

// BookingConfirmation is the success response of the bookings endpoint.
type BookingConfirmation struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	Message   string `json:"message,omitempty"`
}

// errorEnvelope is the backend's error body.
type errorEnvelope struct {
	Message string `json:"message"`
}
