package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statePrefix     = "lemonbook:chat:"
	rateLimitPrefix = "lemonbook:rate:"
)

// ChatState is what survives a bot restart for one chat.
type ChatState struct {
	ChatID    int64     `json:"chat_id"`
	Branch    string    `json:"branch,omitempty"`
	Access    string    `json:"access,omitempty"`
	Refresh   string    `json:"refresh,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StateService keeps chat state in Redis.
type StateService struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStateService stores states for ttl after their last update; zero keeps them forever.
func NewStateService(rdb *redis.Client, ttl time.Duration) *StateService {
	return &StateService{rdb: rdb, ttl: ttl}
}

// GetChatState returns nil and no error when the chat has no saved state.
func (s *StateService) GetChatState(ctx context.Context, chatID int64) (*ChatState, error) {
	raw, err := s.rdb.Get(ctx, stateKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat state %d: %w", chatID, err)
	}
	var st ChatState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode chat state %d: %w", chatID, err)
	}
	return &st, nil
}

func (s *StateService) SetChatState(ctx context.Context, st *ChatState) error {
	st.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(st.ChatID), raw, s.ttl).Err()
}

func (s *StateService) ClearChatState(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, stateKey(chatID)).Err()
}

// UpdateChatState applies fn to the saved state, or to a fresh one.
func (s *StateService) UpdateChatState(ctx context.Context, chatID int64, fn func(*ChatState)) error {
	st, err := s.GetChatState(ctx, chatID)
	if err != nil {
		return err
	}
	if st == nil {
		st = &ChatState{ChatID: chatID}
	}
	fn(st)
	return s.SetChatState(ctx, st)
}

// CheckRateLimit counts a request in the current fixed window and reports
// whether the chat is still within limit.
func (s *StateService) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	key := fmt.Sprintf("%s%d:%d", rateLimitPrefix, chatID, time.Now().UnixNano()/int64(window))

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit %d: %w", chatID, err)
	}
	return incr.Val() <= int64(limit), nil
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("%s%d", statePrefix, chatID)
}
