package bot

import (
	"sync"

	"lemonbook/internal/lemonapi"
	"lemonbook/internal/session"
)

// chatState is one chat's visitor: its own API principal, view and controllers.
type chatState struct {
	client *lemonapi.Client
	view   *chatView
	sess   *session.Session
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*chatState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*chatState)}
}

// get returns the chat's state, building it with create on first use.
func (s *stateStore) get(chatID int64, create func() *chatState) (st *chatState, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st = s.m[chatID]
	if st == nil {
		st = create()
		s.m[chatID] = st
		created = true
	}
	return st, created
}

// all returns a copy of the chats held right now.
func (s *stateStore) all() map[int64]*chatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]*chatState, len(s.m))
	for id, st := range s.m {
		out[id] = st
	}
	return out
}

func (s *stateStore) reset(chatID int64) {
	s.mu.Lock()
	st := s.m[chatID]
	delete(s.m, chatID)
	s.mu.Unlock()
	if st != nil {
		st.sess.Close()
	}
}

func (s *stateStore) closeAll() {
	s.mu.Lock()
	states := s.m
	s.m = make(map[int64]*chatState)
	s.mu.Unlock()
	for _, st := range states {
		st.sess.Close()
	}
}
