package widget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lemonbook/internal/events"
	"lemonbook/internal/hours"
	"lemonbook/internal/lemonapi"
	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

type MockBooker struct {
	mock.Mock
}

func (m *MockBooker) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*models.BookingResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type staticHours struct{ hours models.WorkingHours }

func (s staticHours) WorkingHours(context.Context, string) (*models.WorkingHours, error) {
	h := s.hours
	return &h, nil
}

// fakeView records every call in order.
type fakeView struct {
	bounds    []slots.Bounds
	alerts    []string
	redirects []string
	ends      []string
	active    []int
	resets    int
}

func (v *fakeView) SetStartBounds(b slots.Bounds) { v.bounds = append(v.bounds, b) }
func (v *fakeView) Alert(m string) { v.alerts = append(v.alerts, m) }
func (v *fakeView) Redirect(t string) { v.redirects = append(v.redirects, t) }
func (v *fakeView) ShowEndTime(d string) { v.ends = append(v.ends, d) }
func (v *fakeView) SetActiveDuration(m int) { v.active = append(v.active, m) }
func (v *fakeView) ResetForm() { v.resets++ }

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newWidget(t *testing.T, api Booker, bus Publisher) (*Widget, *fakeView) {
	t.Helper()
	view := &fakeView{}
	resolver := hours.NewResolver(staticHours{models.DefaultWorkingHours()}, view, models.DefaultWorkingHours(), 30, nil)
	w := New(api, resolver, view, bus, Options{
		Branch:    "Vellore",
		Durations: []int{30, 60, 90},
		Now:       func() time.Time { return fixedNow },
	}, nil)
	return w, view
}

func clock(t *testing.T, s string) slots.Clock {
	t.Helper()
	c, err := slots.ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestSelectStartAndDuration(t *testing.T) {
	w, view := newWidget(t, new(MockBooker), nil)

	require.NoError(t, w.SelectStart(clock(t, "18:00")))
	assert.Equal(t, []string{"6:30 PM"}, view.ends)

	require.NoError(t, w.SelectDuration(90))
	form := w.Form()
	assert.Equal(t, "19:30", form.EndTime)
	assert.Equal(t, "7:30 PM", form.EndDisplay)
	assert.Equal(t, 90, form.ActiveDuration)
	assert.Equal(t, []int{90}, view.active)
	require.NotEmpty(t, view.bounds)
	assert.Equal(t, "10:00-20:30", view.bounds[len(view.bounds)-1].String())
}

func TestSelectDuration_BeforeStartOnlyMovesBounds(t *testing.T) {
	w, view := newWidget(t, new(MockBooker), nil)

	require.NoError(t, w.SelectDuration(60))
	assert.Empty(t, view.ends)
	assert.Equal(t, "", w.Form().EndTime)
	assert.Equal(t, "10:00-21:00", view.bounds[len(view.bounds)-1].String())

	err := w.SelectDuration(45)
	assert.ErrorIs(t, err, ErrUnknownDuration)
}

func TestSelectStart_OutsideHours(t *testing.T) {
	w, _ := newWidget(t, new(MockBooker), nil)

	assert.ErrorIs(t, w.SelectStart(clock(t, "09:30")), ErrOutsideHours)
	assert.ErrorIs(t, w.SelectStart(clock(t, "22:00")), ErrOutsideHours)
	assert.NoError(t, w.SelectStart(clock(t, "21:30")))
}

func TestSetDate(t *testing.T) {
	w, _ := newWidget(t, new(MockBooker), nil)

	assert.ErrorIs(t, w.SetDate(fixedNow.AddDate(0, 0, -1)), ErrPastDate)
	assert.NoError(t, w.SetDate(fixedNow))
	assert.NoError(t, w.SetDate(fixedNow.AddDate(0, 0, 3)))
	assert.Equal(t, "2025-03-13", w.Form().Request()[models.FieldDate])
}

func TestSetField(t *testing.T) {
	w, _ := newWidget(t, new(MockBooker), nil)

	require.NoError(t, w.SetField(models.FieldName, "John"))
	assert.ErrorIs(t, w.SetField("status", "BOOKED"), ErrUnknownField)
	assert.Equal(t, "John", w.Form().Contact[models.FieldName])
}

func TestFormRequest(t *testing.T) {
	w, _ := newWidget(t, new(MockBooker), nil)
	require.NoError(t, w.SetDate(fixedNow.AddDate(0, 0, 1)))
	require.NoError(t, w.SelectStart(clock(t, "18:00")))
	require.NoError(t, w.SelectDuration(90))
	require.NoError(t, w.SetField(models.FieldName, "John"))
	require.NoError(t, w.SetField(models.FieldPhone, "9876543210"))

	assert.Equal(t, models.BookingRequest{
		"branch":       "Vellore",
		"name":         "John",
		"email":        "",
		"phone":        "9876543210",
		"no_of_guests": "1",
		"message":      "",
		"booking_date": "2025-03-11",
		"start_time":   "18:00",
		"end_time":     "19:30",
		"duration":     "90",
	}, w.Form().Request())
}

func TestSubmit_Booked(t *testing.T) {
	api := new(MockBooker)
	result := &models.BookingResult{Status: "BOOKED", Name: "John", BookingDate: "2025-03-11", StartTime: "18:00:00", EndTime: "19:30:00"}
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(result, nil)

	bus := events.NewEventBus()
	var published []events.Event
	bus.Subscribe(events.BookingBooked, func(e events.Event) error {
		published = append(published, e)
		return nil
	})

	w, view := newWidget(t, api, bus)
	require.NoError(t, w.SelectStart(clock(t, "18:00")))
	require.NoError(t, w.SelectDuration(90))
	require.NoError(t, w.SetField(models.FieldName, "John"))

	outcome := w.Submit(context.Background())

	assert.Equal(t, OutcomeBooked, outcome)
	assert.Equal(t, []string{"Booking successful!\nName: John\nDate: 2025-03-11\nFrom 18:00:00 to 19:30:00"}, view.alerts)
	assert.Equal(t, 1, view.resets)
	assert.Equal(t, "", view.ends[len(view.ends)-1])
	assert.Equal(t, 0, view.active[len(view.active)-1])
	assert.Empty(t, view.redirects)

	form := w.Form()
	assert.False(t, form.HasStart)
	assert.Equal(t, "", form.Contact[models.FieldName])
	assert.Equal(t, 0, form.ActiveDuration)

	require.Len(t, published, 1)
	got, err := published[0].BookingResult()
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestSubmit_StatusIsCaseInsensitive(t *testing.T) {
	api := new(MockBooker)
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(&models.BookingResult{Status: "booked"}, nil)

	w, _ := newWidget(t, api, nil)
	assert.Equal(t, OutcomeBooked, w.Submit(context.Background()))
}

func TestSubmit_Unauthorized(t *testing.T) {
	api := new(MockBooker)
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, lemonapi.ErrUnauthorized)

	w, view := newWidget(t, api, nil)
	outcome := w.Submit(context.Background())

	assert.Equal(t, OutcomeUnauthorized, outcome)
	assert.Equal(t, []string{MsgLoginRequired}, view.alerts)
	assert.Equal(t, []string{"/login?next=%2Fbook%2F"}, view.redirects)
	assert.Zero(t, view.resets)
}

func TestSubmit_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		result *models.BookingResult
		want   string
	}{
		{
			name:   "server error message",
			result: &models.BookingResult{Error: "One or more slots are already booked. Please try again."},
			want:   "Booking failed: One or more slots are already booked. Please try again.",
		},
		{
			name:   "detail",
			result: &models.BookingResult{Status: "PENDING", Detail: "Not allowed"},
			want:   "Booking failed: Not allowed",
		},
		{
			name:   "generic",
			result: &models.BookingResult{},
			want:   "Booking failed: Please try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBooker)
			api.On("CreateBooking", mock.Anything, mock.Anything).Return(tt.result, nil)

			w, view := newWidget(t, api, nil)
			assert.Equal(t, OutcomeRejected, w.Submit(context.Background()))
			assert.Equal(t, []string{tt.want}, view.alerts)
			assert.Zero(t, view.resets)
		})
	}
}

func TestSubmit_NetworkError(t *testing.T) {
	api := new(MockBooker)
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))

	w, view := newWidget(t, api, nil)
	assert.Equal(t, OutcomeError, w.Submit(context.Background()))
	assert.Equal(t, []string{MsgGenericError}, view.alerts)
}

func TestStartOptions(t *testing.T) {
	w, _ := newWidget(t, new(MockBooker), nil)
	opts := w.StartOptions(30)
	require.NotEmpty(t, opts)
	assert.Equal(t, "10:00", opts[0].String())
	assert.Equal(t, "21:30", opts[len(opts)-1].String())
	assert.Len(t, opts, 24)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "booked", OutcomeBooked.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "unauthorized", OutcomeUnauthorized.String())
	assert.Equal(t, "error", OutcomeError.String())
}
