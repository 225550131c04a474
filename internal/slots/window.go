package slots

import (
	"fmt"
	"time"
)

// Bounds is the selectable start-time range of the time picker.
type Bounds struct {
	Min Clock
	Max Clock
}

// Contains reports whether c lies within [Min, Max].
func (b Bounds) Contains(c Clock) bool {
	return c >= b.Min && c <= b.Max
}

func (b Bounds) String() string {
	return fmt.Sprintf("%s-%s", b.Min, b.Max)
}

// MaxStartTime returns closing minus duration as "HH:MM".
func MaxStartTime(closing string, durationMinutes int) (string, error) {
	c, err := ParseClock(closing)
	if err != nil {
		return "", fmt.Errorf("parse closing time: %w", err)
	}
	return c.Add(-durationMinutes).String(), nil
}

// StartBounds derives the picker bounds for a window and slot duration.
func StartBounds(opening, closing string, durationMinutes int) (Bounds, error) {
	open, err := ParseClock(opening)
	if err != nil {
		return Bounds{}, fmt.Errorf("parse opening time: %w", err)
	}
	closeAt, err := ParseClock(closing)
	if err != nil {
		return Bounds{}, fmt.Errorf("parse closing time: %w", err)
	}
	return Bounds{Min: open, Max: closeAt.Add(-durationMinutes)}, nil
}

// Slot is a reservation window.
type Slot struct {
	Start time.Time
	End   time.Time
}

// EndTime returns the slot that starts at start and lasts durationMinutes.
func EndTime(start time.Time, durationMinutes int) Slot {
	return Slot{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

// End24 is the end time as "HH:MM".
func (s Slot) End24() string {
	return ClockOf(s.End).String()
}

// End12 is the end time as "h:mm AM/PM".
func (s Slot) End12() string {
	return ClockOf(s.End).Format12()
}

// Label formats the slot as "h:mm AM - h:mm PM".
func (s Slot) Label() string {
	return fmt.Sprintf("%s - %s", ClockOf(s.Start).Format12(), s.End12())
}

// StartOptions lists the selectable start times within bounds, stepping by
// increment minutes from bounds.Min.
func StartOptions(bounds Bounds, increment int) []Clock {
	if increment <= 0 {
		increment = 30
	}
	var options []Clock
	for c := int(bounds.Min); c <= int(bounds.Max); c += increment {
		options = append(options, Clock(c))
	}
	return options
}

// FormatDuration formats minutes as a human-readable label.
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	mins := minutes % 60
	unit := "hr"
	if hours > 1 {
		unit = "hrs"
	}
	if mins == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s %d min", hours, unit, mins)
}
