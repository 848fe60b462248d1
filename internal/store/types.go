package store

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateUser = errors.New("username or email already taken")
)

// FeedbackTag is the per-turn rating a user can attach to a reply.
type FeedbackTag string

const (
	FeedbackNone    FeedbackTag = ""
	FeedbackLike    FeedbackTag = "like"
	FeedbackDislike FeedbackTag = "dislike"
)

// ValidFeedback reports whether tag is one of the accepted values.
func ValidFeedback(tag FeedbackTag) bool {
	switch tag {
	case FeedbackNone, FeedbackLike, FeedbackDislike:
		return true
	default:
		return false
	}
}

// User is a registered account. Users own sessions and are never hard-deleted.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	LoginCount   int        `json:"login_count"`
}

// Session is a named conversation belonging to one user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn is one user-message/bot-reply pair persisted under a session.
type Turn struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id"`
	UserID      string      `json:"user_id"`
	UserMessage string      `json:"user_message"`
	BotReply    string      `json:"bot_reply"`
	CreatedAt   time.Time   `json:"created_at"`
	Feedback    FeedbackTag `json:"feedback,omitempty"`
}
