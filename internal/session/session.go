// Package session wires one visitor's controllers to a front-end view.
package session

import (
	"context"

	"github.com/rs/zerolog"

	"lemonbook/internal/config"
	"lemonbook/internal/events"
	"lemonbook/internal/hours"
	"lemonbook/internal/listing"
	"lemonbook/internal/password"
	"lemonbook/internal/widget"
)

// API is the part of the reservation client a session uses.
type API interface {
	hours.Fetcher
	widget.Booker
	listing.Lister
}

// View is everything a front-end renders.
type View interface {
	widget.View
	listing.View
	password.Indicators
}

// Session holds the controllers of one visitor.
type Session struct {
	Hours    *hours.Resolver
	Widget   *widget.Widget
	Listing  *listing.Pipeline
	Password *password.Validator
	Bus      *events.EventBus

	logger *zerolog.Logger
}

// New builds the controllers. A nil bus gets a private one.
func New(ctx context.Context, cfg *config.Config, api API, view View, bus *events.EventBus, logger *zerolog.Logger) *Session {
	if bus == nil {
		bus = events.NewEventBus()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	durations := cfg.Booking.Durations
	resolver := hours.NewResolver(api, view, cfg.DefaultHours(), durations[0], logger)
	w := widget.New(api, resolver, view, bus, widget.Options{
		Branch:          cfg.Booking.DefaultBranch,
		Durations:       durations,
		DefaultDuration: durations[0],
		LoginPath:       cfg.Booking.LoginPath,
		PagePath:        cfg.Booking.PagePath,
	}, logger)
	pipeline := listing.New(api, view, listing.Options{
		PageSize:       cfg.Listing.PageSize,
		PhonePrefix:    cfg.Booking.PhonePrefix,
		SearchDebounce: cfg.SearchDebounce(),
	}, logger)

	bus.Subscribe(events.BookingBooked, pipeline.OnBooked(ctx))

	return &Session{
		Hours:    resolver,
		Widget:   w,
		Listing:  pipeline,
		Password: password.NewValidator(view, cfg.PanelHideDelay()),
		Bus:      bus,
		logger:   logger,
	}
}

// Load does what a fresh page does: resolve working hours, then fetch page 1.
// A failed fetch is already shown by the view and is not returned.
func (s *Session) Load(ctx context.Context) {
	hrs := s.Widget.Load(ctx)
	s.logger.Debug().
		Str("opening", hrs.OpeningTime).
		Str("closing", hrs.ClosingTime).
		Msg("working hours resolved")
	_ = s.Listing.Fetch(ctx, 1)
}

// Close stops pending timers.
func (s *Session) Close() {
	s.Listing.Close()
	s.Password.Close()
}
