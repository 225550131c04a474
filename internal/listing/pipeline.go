// Package listing fetches, filters, paginates and renders the visitor's bookings.
package listing

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lemonbook/internal/events"
	"lemonbook/internal/metrics"
	"lemonbook/internal/models"
)

// User-facing messages.
const (
	MsgLoadError  = "Error loading bookings. Please sign in and Try Again"
	MsgNoBookings = "No bookings found."
)

// Lister loads every booking visible to the visitor.
type Lister interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
}

// View is what the pipeline needs from a front-end.
type View interface {
	ShowBookings(cards []Card)
	ShowMessage(message string)
	ShowError(message string)
	// ShowPagination replaces the whole strip; nil clears it.
	ShowPagination(links []PageLink)
}

// Options configure a pipeline.
type Options struct {
	PageSize       int
	PhonePrefix    string
	SearchDebounce time.Duration
}

// Pipeline owns the cached booking list and the view state.
type Pipeline struct {
	api       Lister
	view      View
	opts      Options
	logger    *zerolog.Logger
	debouncer *Debouncer

	mu      sync.Mutex
	records []models.Booking
	state   State
	gen     uint64

	// renderMu keeps one render's view calls together.
	renderMu sync.Mutex

	// wg counts background fetches, pending debounced searches included.
	wg sync.WaitGroup
}

// New creates a pipeline on page 1 with an empty keyword.
func New(api Lister, view View, opts Options, logger *zerolog.Logger) *Pipeline {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Pipeline{
		api:       api,
		view:      view,
		opts:      opts,
		logger:    logger,
		debouncer: NewDebouncer(opts.SearchDebounce),
		state:     State{CurrentPage: 1, PageSize: opts.PageSize},
	}
}

// Fetch reloads every booking, replaces the cache and renders the page. On
// failure the inline error is shown and the pagination strip is left alone.
// A response overtaken by a newer Fetch is dropped.
func (p *Pipeline) Fetch(ctx context.Context, page int) error {
	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	records, err := p.api.ListBookings(ctx)

	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		p.log(ctx).Debug().Int("page", page).Msg("discarding stale booking list")
		return nil
	}
	if err != nil {
		p.mu.Unlock()
		p.log(ctx).Error().Err(err).Msg("fetch bookings failed")
		p.renderMu.Lock()
		p.view.ShowError(MsgLoadError)
		p.renderMu.Unlock()
		return err
	}
	p.records = records
	p.state.CurrentPage = page
	p.mu.Unlock()

	p.Render()
	return nil
}

// Render rebuilds the cards and the pagination strip from the cache.
func (p *Pipeline) Render() Page {
	p.renderMu.Lock()
	defer p.renderMu.Unlock()

	p.mu.Lock()
	page := Build(p.records, p.state, p.opts.PhonePrefix)
	p.state.CurrentPage = page.CurrentPage
	p.mu.Unlock()

	if page.Empty {
		p.view.ShowMessage(MsgNoBookings)
	} else {
		p.view.ShowBookings(page.Cards)
	}
	p.view.ShowPagination(page.Links)
	metrics.IncListingRender()
	return page
}

// GoToPage switches page without refetching.
func (p *Pipeline) GoToPage(n int) Page {
	p.mu.Lock()
	p.state.CurrentPage = n
	p.mu.Unlock()
	return p.Render()
}

// Search stores the keyword and schedules a debounced refetch of page 1.
func (p *Pipeline) Search(ctx context.Context, keyword string) {
	p.mu.Lock()
	p.state.Keyword = keyword
	p.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	p.wg.Add(1)
	if p.debouncer.Trigger(func() {
		defer p.wg.Done()
		_ = p.Fetch(bg, 1)
	}) {
		p.wg.Done()
	}
}

// SetKeyword stores the keyword without scheduling a fetch. The next Fetch or
// Render applies it.
func (p *Pipeline) SetKeyword(keyword string) {
	p.mu.Lock()
	p.state.Keyword = keyword
	p.mu.Unlock()
}

// State returns a copy of the view state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the cached records sorted and filtered by the keyword,
// across every page.
func (p *Pipeline) Snapshot() []models.Booking {
	p.mu.Lock()
	records, keyword := p.records, p.state.Keyword
	p.mu.Unlock()
	return Filter(Sorted(records), keyword)
}

// OnBooked returns an event handler that refetches page 1 in the background.
func (p *Pipeline) OnBooked(ctx context.Context) events.EventHandler {
	bg := context.WithoutCancel(ctx)
	return func(events.Event) error {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = p.Fetch(bg, 1)
		}()
		return nil
	}
}

// Wait blocks until background fetches and any pending search have finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels a pending search.
func (p *Pipeline) Close() {
	if p.debouncer.Stop() {
		p.wg.Done()
	}
}

func (p *Pipeline) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return p.logger
}
