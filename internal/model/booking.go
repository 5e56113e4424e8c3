package model

// Booking is the flat payload relayed to the external form endpoint.
// Write-only: nothing in this system reads bookings back.
type Booking struct {
	ServiceID   string `json:"serviceId"`
	ServiceName string `json:"serviceName"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Notes       string `json:"notes,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
	Source      string `json:"source,omitempty"`
}
