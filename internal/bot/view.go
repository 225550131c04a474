package bot

import (
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"lemonbook/internal/listing"
	"lemonbook/internal/password"
	"lemonbook/internal/slots"
)

// chatView renders a session into one Telegram chat. Alerts, redirects and
// errors are sent at once; form notes are batched until flush; the booking
// list is sent when its pagination strip arrives, which ends every render.
type chatView struct {
	tg      telegramClient
	chatID  int64
	resolve func(string) string
	logger  *zerolog.Logger

	mu      sync.Mutex
	notes   []string
	cards   []listing.Card
	message string
	editID  int
}

func newChatView(tg telegramClient, chatID int64, resolve func(string) string, logger *zerolog.Logger) *chatView {
	return &chatView{tg: tg, chatID: chatID, resolve: resolve, logger: logger}
}

func (v *chatView) send(c tgbotapi.Chattable) {
	if _, err := v.tg.Send(c); err != nil {
		v.logger.Error().Err(err).Int64("chat_id", v.chatID).Msg("telegram send failed")
	}
}

func (v *chatView) note(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notes = append(v.notes, fmt.Sprintf(format, args...))
}

// flush sends batched notes as one message.
func (v *chatView) flush() {
	v.mu.Lock()
	notes := v.notes
	v.notes = nil
	v.mu.Unlock()
	if len(notes) == 0 {
		return
	}
	v.send(tgbotapi.NewMessage(v.chatID, strings.Join(notes, "\n")))
}

// editNext makes the next listing render replace message id instead of
// sending a new one.
func (v *chatView) editNext(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.editID = id
}

func (v *chatView) SetStartBounds(b slots.Bounds) {
	v.note("Start times: %s to %s", b.Min.Format12(), b.Max.Format12())
}

func (v *chatView) Alert(message string) {
	v.send(tgbotapi.NewMessage(v.chatID, message))
}

func (v *chatView) Redirect(target string) {
	link := v.resolve(target)
	msg := tgbotapi.NewMessage(v.chatID, "Sign in: "+link+"\nor send /login <email> <password>")
	if strings.HasPrefix(link, "https://") {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Sign in", link)),
		)
	}
	v.send(msg)
}

func (v *chatView) ShowEndTime(display string) {
	if display == "" {
		return
	}
	v.note("Ends at %s", display)
}

func (v *chatView) SetActiveDuration(minutes int) {
	if minutes == 0 {
		return
	}
	v.note("Duration: %s", slots.FormatDuration(minutes))
}

func (v *chatView) ResetForm() {
	v.note("Form cleared.")
}

func (v *chatView) ShowBookings(cards []listing.Card) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cards = cards
	v.message = ""
}

func (v *chatView) ShowMessage(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cards = nil
	v.message = message
}

func (v *chatView) ShowError(message string) {
	v.send(tgbotapi.NewMessage(v.chatID, message))
}

func (v *chatView) ShowPagination(links []listing.PageLink) {
	v.mu.Lock()
	params := listingParams{
		ChatID:    v.chatID,
		MessageID: v.editID,
		Cards:     v.cards,
		Message:   v.message,
		Links:     links,
	}
	v.editID = 0
	v.mu.Unlock()

	v.send(renderListing(params))
}

func (v *chatView) SetRule(rule password.Rule, valid bool) {
	mark := "❌"
	if valid {
		mark = "✅"
	}
	v.note("%s %s", mark, rule.Description())
}

func (v *chatView) ShowPanel(password.Panel) {}

func (v *chatView) HidePanel(password.Panel) {}
