// Package widget drives the booking form: slot selection and submission.
package widget

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lemonbook/internal/events"
	"lemonbook/internal/hours"
	"lemonbook/internal/lemonapi"
	"lemonbook/internal/metrics"
	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

// User-facing messages.
const (
	MsgLoginRequired = "Please login to make a booking."
	MsgFailedPrefix  = "Booking failed: "
	MsgGenericError  = "Something went wrong. Please try again."
)

// Booker posts reservations.
type Booker interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error)
}

// Publisher announces confirmed bookings.
type Publisher interface {
	Publish(event events.Event) error
}

// View is what the widget needs from a front-end.
type View interface {
	hours.BoundsSink
	Alert(message string)
	Redirect(target string)
	ShowEndTime(display string)
	// SetActiveDuration marks a duration button; 0 clears every button.
	SetActiveDuration(minutes int)
	ResetForm()
}

// Options configure a widget.
type Options struct {
	Branch          string
	Durations       []int
	DefaultDuration int
	LoginPath       string
	PagePath        string
	Now             func() time.Time
}

func (o *Options) normalize() {
	if len(o.Durations) == 0 {
		o.Durations = []int{30, 60, 90}
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = o.Durations[0]
	}
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.PagePath == "" {
		o.PagePath = "/book/"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Widget owns the form state of one visitor.
type Widget struct {
	api    Booker
	hours  *hours.Resolver
	view   View
	bus    Publisher
	opts   Options
	logger *zerolog.Logger

	mu   sync.Mutex
	form Form
}

// New creates a widget. The resolver must push bounds to the same view.
func New(api Booker, resolver *hours.Resolver, view View, bus Publisher, opts Options, logger *zerolog.Logger) *Widget {
	opts.normalize()
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Widget{
		api:    api,
		hours:  resolver,
		view:   view,
		bus:    bus,
		opts:   opts,
		logger: logger,
		form:   newForm(opts.Branch, opts.DefaultDuration),
	}
}

// Form returns a copy of the current form state.
func (w *Widget) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form.clone()
}

// Durations lists the offered slot durations in minutes.
func (w *Widget) Durations() []int {
	return append([]int(nil), w.opts.Durations...)
}

// StartOptions lists the start times the picker currently offers.
func (w *Widget) StartOptions(increment int) []slots.Clock {
	return slots.StartOptions(w.hours.Bounds(), increment)
}

// Load resolves the working hours of the form's branch.
func (w *Widget) Load(ctx context.Context) models.WorkingHours {
	return w.hours.Resolve(ctx, w.Form().Branch)
}

// SelectBranch switches branch and re-resolves its working hours.
func (w *Widget) SelectBranch(ctx context.Context, branch string) models.WorkingHours {
	w.mu.Lock()
	w.form.Branch = branch
	w.mu.Unlock()
	return w.hours.SelectBranch(ctx, branch)
}

// SelectDuration marks a duration active, then recomputes the end time and the
// picker bounds.
func (w *Widget) SelectDuration(minutes int) error {
	if !w.offers(minutes) {
		return fmt.Errorf("%w: %d", ErrUnknownDuration, minutes)
	}

	w.mu.Lock()
	w.form.Duration = minutes
	w.form.ActiveDuration = minutes
	display := w.updateEndLocked()
	w.mu.Unlock()

	w.view.SetActiveDuration(minutes)
	if display != "" {
		w.view.ShowEndTime(display)
	}
	w.hours.SetDuration(minutes)
	return nil
}

// SelectStart sets the start time. It must lie within the picker bounds.
func (w *Widget) SelectStart(start slots.Clock) error {
	bounds := w.hours.Bounds()
	if !bounds.Contains(start) {
		return fmt.Errorf("%w: %s not in %s", ErrOutsideHours, start, bounds)
	}

	w.mu.Lock()
	w.form.Start = start
	w.form.HasStart = true
	display := w.updateEndLocked()
	w.mu.Unlock()

	if display != "" {
		w.view.ShowEndTime(display)
	}
	return nil
}

// SetDate sets the booking date; the earliest accepted date is today.
func (w *Widget) SetDate(date time.Time) error {
	now := w.opts.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if day.Before(today) {
		return fmt.Errorf("%w: %s", ErrPastDate, day.Format(models.DateFormat))
	}

	w.mu.Lock()
	w.form.Date = day
	display := w.updateEndLocked()
	w.mu.Unlock()

	if display != "" {
		w.view.ShowEndTime(display)
	}
	return nil
}

// SetField sets a contact field (name, email, phone, no_of_guests, message).
func (w *Widget) SetField(name, value string) error {
	if !contactFields[name] {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	w.mu.Lock()
	w.form.Contact[name] = value
	w.mu.Unlock()
	return nil
}

func (w *Widget) offers(minutes int) bool {
	for _, d := range w.opts.Durations {
		if d == minutes {
			return true
		}
	}
	return false
}

func (w *Widget) updateEndLocked() string {
	slot, ok := w.form.slot()
	if !ok {
		return ""
	}
	w.form.EndTime = slot.End24()
	w.form.EndDisplay = slot.End12()
	return w.form.EndDisplay
}

// LoginURL is the login page carrying the booking page as return target.
func (w *Widget) LoginURL() string {
	return w.opts.LoginPath + "?next=" + url.QueryEscape(w.opts.PagePath)
}

// SubmitOutcome classifies how a submission ended.
type SubmitOutcome int

const (
	OutcomeBooked SubmitOutcome = iota
	OutcomeRejected
	OutcomeUnauthorized
	OutcomeError
)

func (o SubmitOutcome) String() string {
	switch o {
	case OutcomeBooked:
		return "booked"
	case OutcomeRejected:
		return "rejected"
	case OutcomeUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

// Submit posts the form. Every outcome is reported through the view; nothing
// is returned as an error.
func (w *Widget) Submit(ctx context.Context) SubmitOutcome {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = w.logger
	}

	req := w.Form().Request()
	result, err := w.api.CreateBooking(ctx, req)

	outcome := w.handle(ctx, l, result, err)
	metrics.IncBookingSubmission(outcome.String())
	return outcome
}

func (w *Widget) handle(ctx context.Context, l *zerolog.Logger, result *models.BookingResult, err error) SubmitOutcome {
	switch {
	case errors.Is(err, lemonapi.ErrUnauthorized):
		w.view.Alert(MsgLoginRequired)
		w.view.Redirect(w.LoginURL())
		return OutcomeUnauthorized

	case err != nil:
		l.Error().Err(err).Msg("booking error")
		w.view.Alert(MsgGenericError)
		return OutcomeError

	case result.IsBooked():
		w.view.Alert(SuccessMessage(result))
		w.reset()
		w.announce(ctx, l, result)
		return OutcomeBooked

	default:
		l.Info().Str("status", result.Status).Str("reason", result.Message()).Msg("booking rejected")
		w.view.Alert(MsgFailedPrefix + result.Message())
		return OutcomeRejected
	}
}

// reset clears the form after a confirmed booking. The selected duration is
// kept so the picker bounds stay valid; only the button highlight is cleared.
func (w *Widget) reset() {
	w.mu.Lock()
	duration := w.form.Duration
	w.form = newForm(w.opts.Branch, duration)
	w.mu.Unlock()

	w.view.ResetForm()
	w.view.ShowEndTime("")
	w.view.SetActiveDuration(0)
}

func (w *Widget) announce(ctx context.Context, l *zerolog.Logger, result *models.BookingResult) {
	if w.bus == nil {
		return
	}
	ev, err := events.NewBookingBooked(result)
	if err != nil {
		l.Error().Err(err).Msg("encode booking event")
		return
	}
	if err := w.bus.Publish(ev); err != nil {
		l.Warn().Err(err).Msg("booking event handler failed")
	}
}

// SuccessMessage is the confirmation shown after a booking is accepted.
func SuccessMessage(r *models.BookingResult) string {
	return fmt.Sprintf("Booking successful!\nName: %s\nDate: %s\nFrom %s to %s",
		r.Name, r.BookingDate, r.StartTime, r.EndTime)
}
