package store

import "context"

// Store is the durable source of truth for users, sessions and turns.
//
// Writes are atomic: a returned AppendTurn is immediately visible to ListTurns,
// and no partial turn (user half without bot half) is ever observable.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (User, error)
	GetUser(ctx context.Context, userID string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	RecordLogin(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID, username, email string) error

	CreateSession(ctx context.Context, userID, title string) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	RenameSession(ctx context.Context, sessionID, title string) error
	ListSessions(ctx context.Context, userID string, limit int) ([]Session, error)

	AppendTurn(ctx context.Context, sessionID, userID, userMessage, botReply string) (Turn, error)
	ListTurns(ctx context.Context, sessionID string) ([]Turn, error)

	// SetFeedback is a no-op (not an error) when the turn does not exist;
	// callers needing existence confirmation must check first.
	SetFeedback(ctx context.Context, turnID string, tag FeedbackTag) error

	Close() error
}
