package bot

import (
	"context"
	"time"

	"lemonbook/internal/service"
)

// StateManager persists chat state across restarts and throttles chats.
type StateManager interface {
	GetChatState(ctx context.Context, chatID int64) (*service.ChatState, error)
	UpdateChatState(ctx context.Context, chatID int64, fn func(*service.ChatState)) error
	ClearChatState(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}
