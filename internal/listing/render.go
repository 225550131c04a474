package listing

import (
	"sort"
	"strings"

	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

const (
	DefaultPageSize    = 5
	DefaultPhonePrefix = "+91-"
)

// State is the listing view state.
type State struct {
	CurrentPage int
	PageSize    int
	Keyword     string
}

// Card is one rendered booking.
type Card struct {
	Day         string // "01"
	Month       string // "Mar"
	Date        string // "01-Mar-2025"
	TimeRange   string // "6:00 PM - 7:30 PM"
	Name        string
	Guests      int
	Phone       string
	StatusClass string
	StatusLabel string
	Booking     models.Booking
}

// PageLink is one entry of the pagination strip.
type PageLink struct {
	Number int
	Active bool
}

// Page is the result of one render pass.
type Page struct {
	Cards       []Card
	Links       []PageLink
	CurrentPage int
	TotalPages  int
	Matched     int
	// Empty is true when the page window holds no records at all. A window of
	// only malformed records renders no cards but is not Empty.
	Empty bool
}

// Sorted returns the records ordered by booking date, newest first. Records
// whose date does not parse keep their relative order at the end.
func Sorted(records []models.Booking) []models.Booking {
	out := append([]models.Booking(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		di, okI := out[i].Date()
		dj, okJ := out[j].Date()
		switch {
		case okI && okJ:
			return di.After(dj)
		case okI:
			return true
		default:
			return false
		}
	})
	return out
}

// Filter keeps the records whose name, email or phone contains keyword,
// ignoring case and surrounding space.
func Filter(records []models.Booking, keyword string) []models.Booking {
	kw := NormalizeKeyword(keyword)
	if kw == "" {
		return records
	}
	var out []models.Booking
	for i := range records {
		if records[i].Matches(kw) {
			out = append(out, records[i])
		}
	}
	return out
}

// NormalizeKeyword trims and lowercases a search keyword.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.TrimSpace(keyword))
}

// TotalPages is ceil(n / pageSize).
func TotalPages(n, pageSize int) int {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return (n + pageSize - 1) / pageSize
}

// Build sorts, filters and paginates records and renders the current window.
func Build(records []models.Booking, state State, phonePrefix string) Page {
	if state.PageSize < 1 {
		state.PageSize = DefaultPageSize
	}
	matched := Filter(Sorted(records), state.Keyword)
	total := TotalPages(len(matched), state.PageSize)

	current := state.CurrentPage
	if current > total {
		current = total
	}
	if current < 1 {
		current = 1
	}

	start := (current - 1) * state.PageSize
	end := start + state.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	window := matched[start:end]

	page := Page{
		CurrentPage: current,
		TotalPages:  total,
		Matched:     len(matched),
		Empty:       len(window) == 0,
		Links:       Links(total, current),
	}
	for _, b := range window {
		if card, ok := NewCard(b, phonePrefix); ok {
			page.Cards = append(page.Cards, card)
		}
	}
	return page
}

// Links builds the pagination strip. A single page gets no strip.
func Links(totalPages, current int) []PageLink {
	if totalPages <= 1 {
		return nil
	}
	links := make([]PageLink, 0, totalPages)
	for i := 1; i <= totalPages; i++ {
		links = append(links, PageLink{Number: i, Active: i == current})
	}
	return links
}

// NewCard renders a booking. ok is false when the booking date is malformed.
func NewCard(b models.Booking, phonePrefix string) (Card, bool) {
	date, ok := b.Date()
	if !ok {
		return Card{}, false
	}
	return Card{
		Day:         date.Format("02"),
		Month:       date.Format("Jan"),
		Date:        date.Format("02-Jan-2006"),
		TimeRange:   slots.Format12String(b.StartTime) + " - " + slots.Format12String(b.EndTime),
		Name:        b.Name,
		Guests:      b.NoOfGuests,
		Phone:       phonePrefix + b.Phone,
		StatusClass: b.StatusClass(),
		StatusLabel: b.StatusLabel(),
		Booking:     b,
	}, true
}
