package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"lemonbook/internal/listing"
	"lemonbook/internal/password"
	"lemonbook/internal/slots"
)

// View renders controller output as plain text lines. It is safe for use
// from timer goroutines.
type View struct {
	mu      sync.Mutex
	out     io.Writer
	resolve func(path string) string
}

// NewView writes to out. resolve turns a site path into an absolute URL; nil
// prints paths as they are.
func NewView(out io.Writer, resolve func(string) string) *View {
	if resolve == nil {
		resolve = func(p string) string { return p }
	}
	return &View{out: out, resolve: resolve}
}

func (v *View) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *View) SetStartBounds(b slots.Bounds) {
	v.printf("start time: %s to %s", b.Min.Format12(), b.Max.Format12())
}

func (v *View) Alert(message string) {
	for _, line := range strings.Split(message, "\n") {
		v.printf("! %s", line)
	}
}

func (v *View) Redirect(target string) {
	v.printf("-> sign in at %s", v.resolve(target))
}

func (v *View) ShowEndTime(display string) {
	if display == "" {
		v.printf("end time: -")
		return
	}
	v.printf("end time: %s", display)
}

func (v *View) SetActiveDuration(minutes int) {
	if minutes == 0 {
		return
	}
	v.printf("duration: %s", slots.FormatDuration(minutes))
}

func (v *View) ResetForm() {
	v.printf("form cleared")
}

func (v *View) ShowBookings(cards []listing.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range cards {
		fmt.Fprintf(v.out, "[%s %s] %s | %s | %s | %d guests | %s | %s\n",
			c.Day, c.Month, c.Name, c.Date, c.TimeRange, c.Guests, c.Phone, c.StatusLabel)
	}
}

func (v *View) ShowMessage(message string) {
	v.printf("%s", message)
}

func (v *View) ShowError(message string) {
	v.printf("error: %s", message)
}

func (v *View) ShowPagination(links []listing.PageLink) {
	if len(links) == 0 {
		return
	}
	parts := make([]string, 0, len(links))
	for _, l := range links {
		if l.Active {
			parts = append(parts, fmt.Sprintf("[%d]", l.Number))
		} else {
			parts = append(parts, fmt.Sprintf("%d", l.Number))
		}
	}
	v.printf("pages: %s", strings.Join(parts, " "))
}

func (v *View) SetRule(rule password.Rule, valid bool) {
	mark := " "
	if valid {
		mark = "x"
	}
	v.printf("[%s] %s", mark, rule.Description())
}

func (v *View) ShowPanel(panel password.Panel) {
	v.printf("(%s shown)", panel)
}

func (v *View) HidePanel(panel password.Panel) {
	v.printf("(%s hidden)", panel)
}
