package models

import "strings"

// Fallback window used whenever a branch's hours cannot be fetched.
const (
	DefaultOpeningTime = "10:00"
	DefaultClosingTime = "22:00"
)

// WorkingHours is a branch's daily open/close boundary.
type WorkingHours struct {
	OpeningTime string `json:"opening_time"`
	ClosingTime string `json:"closing_time"`
}

// DefaultWorkingHours returns the fixed 10:00-22:00 window.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{OpeningTime: DefaultOpeningTime, ClosingTime: DefaultClosingTime}
}

// WithDefaults fills empty fields from def.
func (w WorkingHours) WithDefaults(def WorkingHours) WorkingHours {
	if w.OpeningTime == "" {
		w.OpeningTime = def.OpeningTime
	}
	if w.ClosingTime == "" {
		w.ClosingTime = def.ClosingTime
	}
	return w
}

// Form field names submitted with a booking.
const (
	FieldBranch     = "branch"
	FieldName       = "name"
	FieldEmail      = "email"
	FieldPhone      = "phone"
	FieldGuests     = "no_of_guests"
	FieldDate       = "booking_date"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"
	FieldDuration   = "duration"
	FieldMessage    = "message"
	FieldEndDisplay = "end_time_display"
)

// BookingRequest is the flat key-value body posted to create a booking.
// Every value is a string, as a serialised HTML form would be.
type BookingRequest map[string]string

// BookingResult is the response body of POST /api/booking.
type BookingResult struct {
	ID          int64  `json:"id,omitempty"`
	Status      string `json:"status"`
	Name        string `json:"name"`
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Error       string `json:"error,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// IsBooked reports whether the server confirmed the reservation.
func (r *BookingResult) IsBooked() bool {
	return strings.EqualFold(r.Status, "booked")
}

// Message returns the server supplied failure reason or a generic one.
func (r *BookingResult) Message() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Detail != "":
		return r.Detail
	default:
		return "Please try again."
	}
}

// Branches is the envelope returned by GET /api/booking/branches.
type Branches struct {
	Branches []string `json:"branches"`
}
