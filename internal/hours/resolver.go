// Package hours resolves a branch's working hours and keeps the time picker's
// start-time bounds in step with them.
package hours

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"lemonbook/internal/metrics"
	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

// Fetcher loads working hours from the reservation API.
type Fetcher interface {
	WorkingHours(ctx context.Context, branch string) (*models.WorkingHours, error)
}

// BoundsSink receives the derived start-time bounds.
type BoundsSink interface {
	SetStartBounds(bounds slots.Bounds)
}

// Resolver owns the current working-hours window. Resolutions never fail:
// any API problem falls back to the default window.
type Resolver struct {
	api      Fetcher
	sink     BoundsSink
	defaults models.WorkingHours
	logger   *zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	branch   string
	current  models.WorkingHours
	duration int
}

// NewResolver starts with the default window and the given slot duration.
func NewResolver(api Fetcher, sink BoundsSink, defaults models.WorkingHours, duration int, logger *zerolog.Logger) *Resolver {
	defaults = defaults.WithDefaults(models.DefaultWorkingHours())
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{
		api:      api,
		sink:     sink,
		defaults: defaults,
		logger:   logger,
		current:  defaults,
		duration: duration,
	}
}

// Resolve fetches the branch's window and replaces the current one. If a newer
// Resolve started while this one was waiting, its result is discarded and the
// newer window is returned instead.
func (r *Resolver) Resolve(ctx context.Context, branch string) models.WorkingHours {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.branch = branch
	r.mu.Unlock()

	fetched := r.fetch(ctx, branch)

	r.mu.Lock()
	if gen != r.gen {
		current := r.current
		r.mu.Unlock()
		r.log(ctx).Debug().Str("branch", branch).Msg("discarding stale working hours")
		return current
	}
	r.current = fetched
	bounds := r.boundsLocked()
	r.mu.Unlock()

	r.sink.SetStartBounds(bounds)
	return fetched
}

// SelectBranch resets the window to the defaults, then resolves the branch.
func (r *Resolver) SelectBranch(ctx context.Context, branch string) models.WorkingHours {
	r.mu.Lock()
	r.current = r.defaults
	r.mu.Unlock()
	return r.Resolve(ctx, branch)
}

// SetDuration changes the slot duration and pushes the recomputed bounds.
func (r *Resolver) SetDuration(duration int) slots.Bounds {
	r.mu.Lock()
	r.duration = duration
	bounds := r.boundsLocked()
	r.mu.Unlock()

	r.sink.SetStartBounds(bounds)
	return bounds
}

// Current returns the active window.
func (r *Resolver) Current() models.WorkingHours {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Branch returns the branch of the most recent resolution.
func (r *Resolver) Branch() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.branch
}

// Bounds returns the start-time bounds for the active window and duration.
func (r *Resolver) Bounds() slots.Bounds {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.boundsLocked()
}

func (r *Resolver) fetch(ctx context.Context, branch string) models.WorkingHours {
	hours, err := r.api.WorkingHours(ctx, branch)
	if err != nil {
		r.fallback(ctx, branch, err)
		return r.defaults
	}
	resolved := hours.WithDefaults(r.defaults)
	if _, err := slots.StartBounds(resolved.OpeningTime, resolved.ClosingTime, 0); err != nil {
		r.fallback(ctx, branch, err)
		return r.defaults
	}
	return resolved
}

func (r *Resolver) fallback(ctx context.Context, branch string, err error) {
	metrics.IncHoursFallback()
	r.log(ctx).Warn().Err(err).
		Str("branch", branch).
		Str("opening", r.defaults.OpeningTime).
		Str("closing", r.defaults.ClosingTime).
		Msg("working hours unavailable, using defaults")
}

func (r *Resolver) boundsLocked() slots.Bounds {
	bounds, err := slots.StartBounds(r.current.OpeningTime, r.current.ClosingTime, r.duration)
	if err != nil {
		// current is always validated by fetch; defaults are validated by config.
		bounds, _ = slots.StartBounds(models.DefaultOpeningTime, models.DefaultClosingTime, r.duration)
	}
	return bounds
}

func (r *Resolver) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return r.logger
}
