package widget

import (
	"errors"
	"strconv"
	"time"

	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

var (
	ErrOutsideHours    = errors.New("start time outside working hours")
	ErrPastDate        = errors.New("booking date is in the past")
	ErrUnknownDuration = errors.New("unsupported duration")
	ErrUnknownField    = errors.New("unknown form field")
)

// contactFields can be edited freely with SetField.
var contactFields = map[string]bool{
	models.FieldName:    true,
	models.FieldEmail:   true,
	models.FieldPhone:   true,
	models.FieldGuests:  true,
	models.FieldMessage: true,
}

const defaultGuests = "1"

// Form is a snapshot of the booking form.
type Form struct {
	Branch         string
	Date           time.Time
	Start          slots.Clock
	HasStart       bool
	Duration       int
	ActiveDuration int
	EndTime        string // HH:MM, submitted
	EndDisplay     string // h:mm AM/PM, shown only
	Contact        map[string]string
}

func newForm(branch string, duration int) Form {
	return Form{
		Branch:   branch,
		Duration: duration,
		Contact:  map[string]string{models.FieldGuests: defaultGuests},
	}
}

func (f Form) clone() Form {
	contact := make(map[string]string, len(f.Contact))
	for k, v := range f.Contact {
		contact[k] = v
	}
	f.Contact = contact
	return f
}

// slot is the selected reservation window, valid only when a start is set.
func (f Form) slot() (slots.Slot, bool) {
	if !f.HasStart || f.Duration <= 0 {
		return slots.Slot{}, false
	}
	day := f.Date
	if day.IsZero() {
		day = time.Now()
	}
	return slots.EndTime(f.Start.On(day), f.Duration), true
}

// Request serialises every field into the flat body the API expects. Empty
// fields are sent as empty strings.
func (f Form) Request() models.BookingRequest {
	req := models.BookingRequest{
		models.FieldBranch:    f.Branch,
		models.FieldName:      "",
		models.FieldEmail:     "",
		models.FieldPhone:     "",
		models.FieldGuests:    "",
		models.FieldMessage:   "",
		models.FieldDate:      "",
		models.FieldStartTime: "",
		models.FieldEndTime:   f.EndTime,
		models.FieldDuration:  "",
	}
	for k, v := range f.Contact {
		req[k] = v
	}
	if !f.Date.IsZero() {
		req[models.FieldDate] = f.Date.Format(models.DateFormat)
	}
	if f.HasStart {
		req[models.FieldStartTime] = f.Start.String()
	}
	if f.Duration > 0 {
		req[models.FieldDuration] = strconv.Itoa(f.Duration)
	}
	return req
}
