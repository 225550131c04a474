package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"lemonbook/internal/models"
	"lemonbook/internal/slots"
)

// StartReminders tells every signed-in chat about tomorrow's bookings once a
// day at the given local hour.
func (b *Bot) StartReminders(ctx context.Context, hour int) {
	if b == nil {
		return
	}

	go func() {
		timer := time.NewTimer(timeUntilNextHour(time.Now(), hour))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				n := b.sendTomorrowReminders(ctx, time.Now())
				b.logger.Info().Int("chats", n).Msg("booking reminders sent")
				timer.Reset(timeUntilNextHour(time.Now(), hour))
			}
		}
	}()
}

// sendTomorrowReminders returns the number of chats that got a reminder.
func (b *Bot) sendTomorrowReminders(ctx context.Context, now time.Time) int {
	tomorrow := now.AddDate(0, 0, 1).Format(models.DateFormat)
	sent := 0

	for chatID, st := range b.state.all() {
		if st.client.Tokens() == nil {
			continue
		}
		records, err := st.client.ListBookings(ctx)
		if err != nil {
			b.log(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("reminder: list bookings")
			continue
		}

		var due []models.Booking
		for _, r := range records {
			if r.BookingDate == tomorrow && shouldRemindStatus(r.Status) {
				due = append(due, r)
			}
		}
		if len(due) == 0 {
			continue
		}
		b.reply(chatID, formatReminderMessage(due))
		sent++
	}
	return sent
}

func shouldRemindStatus(status string) bool {
	switch strings.ToUpper(status) {
	case models.StatusBooked, models.StatusPending:
		return true
	default:
		return false
	}
}

func formatReminderMessage(due []models.Booking) string {
	var sb strings.Builder
	sb.WriteString("Reminder: your bookings for tomorrow")
	for _, bk := range due {
		fmt.Fprintf(&sb, "\n🕒 %s - %s", slots.Format12String(bk.StartTime), slots.Format12String(bk.EndTime))
		if bk.Branch != "" {
			fmt.Fprintf(&sb, " at %s", bk.Branch)
		}
		fmt.Fprintf(&sb, ", %d guests", bk.NoOfGuests)
	}
	return sb.String()
}

func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (b *Bot) log(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return b.logger
}
