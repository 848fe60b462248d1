package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*User
	sessions map[string]*Session
	turns    map[string][]*Turn
	turnByID map[string]*Turn
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:    make(map[string]*User),
		sessions: make(map[string]*Session),
		turns:    make(map[string][]*Turn),
		turnByID: make(map[string]*Turn),
	}
}

func (s *InMemoryStore) CreateUser(_ context.Context, username, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return User{}, ErrDuplicateUser
		}
	}
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[u.ID] = &u
	return u, nil
}

func (s *InMemoryStore) GetUser(_ context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

func (s *InMemoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return *u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryStore) RecordLogin(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	u.LoginCount++
	return nil
}

func (s *InMemoryStore) UpdateProfile(_ context.Context, userID, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range s.users {
		if id == userID {
			continue
		}
		if strings.EqualFold(other.Username, username) || strings.EqualFold(other.Email, email) {
			return ErrDuplicateUser
		}
	}
	u.Username = username
	u.Email = email
	return nil
}

func (s *InMemoryStore) CreateSession(_ context.Context, userID, title string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return Session{}, ErrNotFound
	}
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[sess.ID] = &sess
	return sess, nil
}

func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *sess, nil
}

func (s *InMemoryStore) RenameSession(_ context.Context, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Title = title
	return nil
}

func (s *InMemoryStore) ListSessions(_ context.Context, userID string, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, limit)
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, *sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, sessionID, userID, userMessage, botReply string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return Turn{}, ErrNotFound
	}
	t := Turn{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		UserMessage: userMessage,
		BotReply:    botReply,
		CreatedAt:   time.Now().UTC(),
		Feedback:    FeedbackNone,
	}
	s.turns[sessionID] = append(s.turns[sessionID], &t)
	s.turnByID[t.ID] = &t
	return t, nil
}

func (s *InMemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.turns[sessionID]
	out := make([]Turn, 0, len(arr))
	for _, t := range arr {
		out = append(out, *t)
	}
	return out, nil
}

func (s *InMemoryStore) SetFeedback(_ context.Context, turnID string, tag FeedbackTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.turnByID[turnID]
	if !ok {
		// Missing turn is tolerated so feedback clicks stay idempotent for the UI.
		return nil
	}
	t.Feedback = tag
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
