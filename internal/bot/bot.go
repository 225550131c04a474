// Package bot is the Telegram front-end. Every chat is its own visitor with a
// separate API principal and session.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lemonbook/internal/config"
	"lemonbook/internal/lemonapi"
	"lemonbook/internal/models"
	"lemonbook/internal/service"
	"lemonbook/internal/session"
	"lemonbook/internal/slots"
)

const durationPrefix = "dur:"

const helpText = `Little Lemon bookings
/login <email> <password> - sign in
/branches - list branches
/branch <name> - choose a branch
/date <YYYY-MM-DD> - booking date
/duration [minutes] - slot length
/time [HH:MM] - start time, or list the free ones
/set <field> <value> - name, email, phone, no_of_guests, message
/book - submit the booking
/bookings [query] - your bookings
/password <value> - check a password against the policy`

// Bot routes Telegram updates to per-chat sessions.
type Bot struct {
	tg     telegramClient
	cfg    *config.Config
	api    *lemonapi.Client
	state  *stateStore
	states StateManager
	logger *zerolog.Logger

	baseCtx context.Context
}

func New(token string, cfg *config.Config, apiClient *lemonapi.Client, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Telegram.Debug
	return newBot(&realTelegramClient{api: api}, cfg, apiClient, logger)
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, cfg *config.Config, apiClient *lemonapi.Client, logger *zerolog.Logger) (*Bot, error) {
	return newBot(tg, cfg, apiClient, logger)
}

func newBot(tg telegramClient, cfg *config.Config, apiClient *lemonapi.Client, logger *zerolog.Logger) (*Bot, error) {
	if tg == nil {
		return nil, fmt.Errorf("telegram client is nil")
	}
	if apiClient == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Bot{
		tg:      tg,
		cfg:     cfg,
		api:     apiClient,
		state:   newStateStore(),
		logger:  logger,
		baseCtx: context.Background(),
	}, nil
}

// UseStateManager persists logins and branch choices and enables per-chat
// rate limiting.
func (b *Bot) UseStateManager(states StateManager) {
	b.states = states
}

// Start begins polling updates and handles commands until ctx ends.
func (b *Bot) Start(ctx context.Context) {
	b.baseCtx = ctx
	defer b.state.closeAll()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.SelfUser().UserName).Msg("booking bot authorized")

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			requestID := uuid.New().String()
			l := b.logger.With().Str("request_id", requestID).Logger()
			updateCtx := l.WithContext(ctx)
			b.handleUpdate(updateCtx, &update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update *tgbotapi.Update) {
	l := zerolog.Ctx(ctx)
	if update.CallbackQuery != nil {
		l.Debug().
			Int64("user_id", update.CallbackQuery.From.ID).
			Str("data", update.CallbackQuery.Data).
			Msg("Handling callback query")
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message != nil {
		l.Debug().
			Int64("chat_id", update.Message.Chat.ID).
			Str("command", update.Message.Command()).
			Msg("Handling message")
		b.handleMessage(ctx, update.Message)
	}
}

// chat returns the chat's state, resolving the default branch's hours on
// first contact.
func (b *Bot) chat(ctx context.Context, chatID int64) *chatState {
	var saved *service.ChatState
	st, created := b.state.get(chatID, func() *chatState {
		saved = b.loadState(ctx, chatID)
		var tokens *lemonapi.Tokens
		if saved != nil && saved.Access != "" {
			tokens = &lemonapi.Tokens{Access: saved.Access, Refresh: saved.Refresh}
		}
		client := b.api.WithTokens(tokens)
		view := newChatView(b.tg, chatID, client.URL, b.logger)
		sess := session.New(b.baseCtx, b.cfg, client, view, nil, b.logger)
		return &chatState{client: client, view: view, sess: sess}
	})
	if created {
		if saved != nil && saved.Branch != "" {
			st.sess.Widget.SelectBranch(ctx, saved.Branch)
		} else {
			st.sess.Widget.Load(ctx)
		}
	}
	return st
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	if !b.allow(ctx, chatID) {
		b.reply(chatID, "Too many requests. Please wait a minute.")
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
		return
	case "reset":
		b.state.reset(chatID)
		b.clearState(ctx, chatID)
		b.reply(chatID, "Session cleared.")
		return
	}

	st := b.chat(ctx, chatID)
	defer st.view.flush()

	var err error
	switch msg.Command() {
	case "login":
		b.forget(msg)
		err = b.handleLogin(ctx, st, args)
	case "branches":
		err = b.handleBranches(ctx, chatID)
	case "branch":
		err = b.handleBranch(ctx, st, args)
	case "date":
		err = b.handleDate(st, args)
	case "duration":
		err = b.handleDuration(st, chatID, args)
	case "time":
		err = b.handleTime(st, args)
	case "set":
		err = b.handleSet(st, args)
	case "book":
		st.sess.Widget.Submit(ctx)
	case "bookings":
		st.sess.Listing.Search(ctx, args)
	case "password":
		b.forget(msg)
		st.sess.Password.PasswordInput(args)
	default:
		b.reply(chatID, "Unknown command. Send /help for the list.")
	}

	if err != nil {
		b.reply(chatID, err.Error())
	}
}

func (b *Bot) handleLogin(ctx context.Context, st *chatState, args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return errors.New("Usage: /login <email> <password>")
	}
	tokens, err := st.client.Login(ctx, parts[0], parts[1])
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("login failed")
		if errors.Is(err, lemonapi.ErrUnauthorized) {
			return errors.New("Login failed: wrong email or password.")
		}
		return errors.New("Login failed. Please try again.")
	}
	b.saveState(ctx, st.view.chatID, func(s *service.ChatState) {
		s.Access = tokens.Access
		s.Refresh = tokens.Refresh
	})
	b.reply(st.view.chatID, "Signed in.")
	return nil
}

func (b *Bot) handleBranches(ctx context.Context, chatID int64) error {
	branches, err := b.api.Branches(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("list branches failed")
		return errors.New("Could not load branches.")
	}
	if len(branches) == 0 {
		b.reply(chatID, "No branches available.")
		return nil
	}
	b.reply(chatID, "Branches:\n"+strings.Join(branches, "\n"))
	return nil
}

func (b *Bot) handleBranch(ctx context.Context, st *chatState, name string) error {
	if name == "" {
		return errors.New("Usage: /branch <name>")
	}
	hrs := st.sess.Widget.SelectBranch(ctx, name)
	b.saveState(ctx, st.view.chatID, func(s *service.ChatState) { s.Branch = name })
	st.view.note("%s is open %s to %s", name, slots.Format12String(hrs.OpeningTime), slots.Format12String(hrs.ClosingTime))
	return nil
}

func (b *Bot) handleDate(st *chatState, arg string) error {
	d, err := time.Parse(models.DateFormat, arg)
	if err != nil {
		return errors.New("Usage: /date YYYY-MM-DD")
	}
	if err := st.sess.Widget.SetDate(d); err != nil {
		return errors.New("Please pick today or a later date.")
	}
	st.view.note("Date: %s", d.Format("02-Jan-2006"))
	return nil
}

func (b *Bot) handleDuration(st *chatState, chatID int64, arg string) error {
	if arg == "" {
		b.sendDurationPicker(chatID, st.sess.Widget.Durations())
		return nil
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return errors.New("Usage: /duration <minutes>")
	}
	return b.selectDuration(st, n)
}

func (b *Bot) selectDuration(st *chatState, n int) error {
	if err := st.sess.Widget.SelectDuration(n); err != nil {
		return fmt.Errorf("Choose one of: %s", durationList(st.sess.Widget.Durations()))
	}
	return nil
}

func (b *Bot) sendDurationPicker(chatID int64, durations []int) {
	var row []tgbotapi.InlineKeyboardButton
	for _, d := range durations {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(slots.FormatDuration(d), fmt.Sprintf("%s%d", durationPrefix, d)))
	}
	msg := tgbotapi.NewMessage(chatID, "How long will you stay?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleTime(st *chatState, arg string) error {
	if arg == "" {
		options := st.sess.Widget.StartOptions(b.cfg.Booking.MinuteIncrement)
		labels := make([]string, 0, len(options))
		for _, o := range options {
			labels = append(labels, o.String())
		}
		st.view.note("Available start times:\n%s", strings.Join(labels, " "))
		return nil
	}
	clock, err := slots.ParseClock(arg)
	if err != nil {
		return errors.New("Usage: /time HH:MM")
	}
	if err := st.sess.Widget.SelectStart(clock); err != nil {
		bounds := st.sess.Hours.Bounds()
		return fmt.Errorf("Pick a start time between %s and %s.", bounds.Min.Format12(), bounds.Max.Format12())
	}
	st.view.note("Starts at %s", clock.Format12())
	return nil
}

func (b *Bot) handleSet(st *chatState, args string) error {
	field, value, ok := strings.Cut(args, " ")
	if !ok || strings.TrimSpace(value) == "" {
		return errors.New("Usage: /set <field> <value>")
	}
	if err := st.sess.Widget.SetField(field, strings.TrimSpace(value)); err != nil {
		return errors.New("Fields: name, email, phone, no_of_guests, message")
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq == nil || cq.Message == nil {
		return
	}
	_ = b.answerCallback(cq.ID)

	chatID := cq.Message.Chat.ID
	st := b.chat(ctx, chatID)
	defer st.view.flush()

	data := cq.Data
	switch {
	case strings.HasPrefix(data, pagePrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(data, pagePrefix))
		if err != nil {
			return
		}
		st.view.editNext(cq.Message.MessageID)
		st.sess.Listing.GoToPage(n)
	case strings.HasPrefix(data, durationPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(data, durationPrefix))
		if err != nil {
			return
		}
		if err := b.selectDuration(st, n); err != nil {
			b.reply(chatID, err.Error())
		}
	}
}

func (b *Bot) loadState(ctx context.Context, chatID int64) *service.ChatState {
	if b.states == nil {
		return nil
	}
	saved, err := b.states.GetChatState(ctx, chatID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("load chat state failed")
		return nil
	}
	return saved
}

func (b *Bot) saveState(ctx context.Context, chatID int64, fn func(*service.ChatState)) {
	if b.states == nil {
		return
	}
	if err := b.states.UpdateChatState(ctx, chatID, fn); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("save chat state failed")
	}
}

func (b *Bot) clearState(ctx context.Context, chatID int64) {
	if b.states == nil {
		return
	}
	if err := b.states.ClearChatState(ctx, chatID); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("clear chat state failed")
	}
}

// allow fails open when the state store is unreachable.
func (b *Bot) allow(ctx context.Context, chatID int64) bool {
	if b.states == nil {
		return true
	}
	ok, err := b.states.CheckRateLimit(ctx, chatID, b.cfg.Telegram.RateLimitPerMinute, time.Minute)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("rate limit check failed")
	}
	return ok
}

func (b *Bot) answerCallback(id string) error {
	_, err := b.tg.Request(tgbotapi.NewCallback(id, ""))
	return err
}

// forget deletes a message that carried a secret.
func (b *Bot) forget(msg *tgbotapi.Message) {
	_, _ = b.tg.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID))
}

func (b *Bot) reply(chatID int64, text string) {
	_, _ = b.tg.Send(tgbotapi.NewMessage(chatID, text))
}

func durationList(durations []int) string {
	labels := make([]string, 0, len(durations))
	for _, d := range durations {
		labels = append(labels, strconv.Itoa(d))
	}
	return strings.Join(labels, ", ")
}
