package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lemonbook/internal/listing"
)

const pagePrefix = "page:"

// pageButtonsPerRow keeps the page strip within what Telegram clients render
// on one keyboard row.
const pageButtonsPerRow = 8

type listingParams struct {
	ChatID    int64
	MessageID int // 0 if new message
	Cards     []listing.Card
	Message   string // shown instead of cards, e.g. "No bookings found."
	Links     []listing.PageLink
}

func renderListing(params listingParams) tgbotapi.Chattable {
	var message strings.Builder
	if params.Message != "" {
		message.WriteString(params.Message)
	} else {
		message.WriteString("Your bookings\n\n")
		for _, c := range params.Cards {
			message.WriteString(fmt.Sprintf("📅 %s %s · %s\n", c.Day, c.Month, c.Name))
			message.WriteString(fmt.Sprintf("   %s\n", c.Date))
			message.WriteString(fmt.Sprintf("   🕒 %s\n", c.TimeRange))
			message.WriteString(fmt.Sprintf("   👥 %d Guests\n", c.Guests))
			message.WriteString(fmt.Sprintf("   📞 %s\n", c.Phone))
			message.WriteString(fmt.Sprintf("   [%s]\n\n", c.StatusLabel))
		}
	}
	text := strings.TrimRight(message.String(), "\n")

	var navButtons []tgbotapi.InlineKeyboardButton
	for _, l := range params.Links {
		label := fmt.Sprintf("%d", l.Number)
		if l.Active {
			label = fmt.Sprintf("• %d •", l.Number)
		}
		navButtons = append(navButtons, tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", pagePrefix, l.Number)))
	}

	if params.MessageID != 0 {
		if len(navButtons) == 0 {
			return tgbotapi.NewEditMessageText(params.ChatID, params.MessageID, text)
		}
		return tgbotapi.NewEditMessageTextAndMarkup(params.ChatID, params.MessageID, text,
			tgbotapi.NewInlineKeyboardMarkup(chunkButtons(navButtons, pageButtonsPerRow)...))
	}

	msg := tgbotapi.NewMessage(params.ChatID, text)
	if len(navButtons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(chunkButtons(navButtons, pageButtonsPerRow)...)
	}
	return msg
}

func chunkButtons(buttons []tgbotapi.InlineKeyboardButton, size int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for len(buttons) > size {
		rows = append(rows, buttons[:size:size])
		buttons = buttons[size:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}
