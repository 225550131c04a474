package models

import (
	"strings"
	"time"
)

// Time and date layouts used by the reservation API.
const (
	ClockFormat = "15:04"      // HH:MM
	DateFormat  = "2006-01-02" // YYYY-MM-DD
)

// Booking statuses reported by the reservation API.
const (
	StatusPending   = "PENDING"
	StatusBooked    = "BOOKED"
	StatusFailed    = "FAILED"
	StatusCanceled  = "CANCELED"
	StatusCompleted = "COMPLETED"
)

// Booking is a reservation record owned by the server.
type Booking struct {
	ID          int64  `json:"id,omitempty"`
	User        int64  `json:"user,omitempty"`
	Branch      string `json:"branch,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone"`
	BookingDate string `json:"booking_date"` // YYYY-MM-DD
	StartTime   string `json:"start_time"`   // HH:MM[:SS]
	EndTime     string `json:"end_time"`     // HH:MM[:SS]
	NoOfGuests  int    `json:"no_of_guests"`
	Message     string `json:"message,omitempty"`
	Status      string `json:"status"`
}

// Date parses BookingDate. ok is false when the field is not a YYYY-MM-DD date.
func (b *Booking) Date() (t time.Time, ok bool) {
	t, err := time.Parse(DateFormat, b.BookingDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StatusClass is the lowercased status used as a style class.
func (b *Booking) StatusClass() string {
	return strings.ToLower(b.Status)
}

// StatusLabel is the status with only its first letter capitalised.
func (b *Booking) StatusLabel() string {
	class := b.StatusClass()
	if class == "" {
		return ""
	}
	return strings.ToUpper(class[:1]) + class[1:]
}

// Matches reports whether keyword (already trimmed and lowercased) occurs in
// the name, email or phone. An empty keyword matches every record.
func (b *Booking) Matches(keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Name), keyword) ||
		strings.Contains(strings.ToLower(b.Email), keyword) ||
		strings.Contains(strings.ToLower(b.Phone), keyword)
}

// BookingList is the envelope returned by GET /api/booking.
type BookingList struct {
	Count    int       `json:"count,omitempty"`
	Next     *string   `json:"next,omitempty"`
	Previous *string   `json:"previous,omitempty"`
	Results  []Booking `json:"results"`
}
