package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists users, sessions and turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			last_login_at TIMESTAMPTZ NULL,
			login_count INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_sessions_user_created ON chat_sessions (user_id, created_at DESC);`,
		`CREATE TABLE IF NOT EXISTS chat_turns (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			user_message TEXT NOT NULL,
			bot_reply TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			feedback TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_turns_session_created ON chat_turns (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, passwordHash string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, login_count)
		 VALUES ($1, $2, $3, $4, $5, 0)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at, last_login_at, login_count
		   FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, created_at, last_login_at, login_count
		   FROM users WHERE lower(username)=lower($1)`, username))
}

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.LastLoginAt, &u.LoginCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) RecordLogin(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_login_at=$2, login_count=login_count+1 WHERE id=$1`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID, username, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET username=$2, email=$3 WHERE id=$1`,
		userID, username, email,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, title string) (Session, error) {
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at) VALUES ($1, $2, $3, $4)`,
		sess.ID, sess.UserID, sess.Title, sess.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, created_at FROM chat_sessions WHERE id=$1`, sessionID,
	).Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) RenameSession(ctx context.Context, sessionID, title string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE chat_sessions SET title=$2 WHERE id=$1`, sessionID, title)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, created_at
		   FROM chat_sessions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]Session, 0, limit)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID, userID, userMessage, botReply string) (Turn, error) {
	t := Turn{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		UserMessage: userMessage,
		BotReply:    botReply,
		CreatedAt:   time.Now().UTC(),
		Feedback:    FeedbackNone,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_turns (id, session_id, user_id, user_message, bot_reply, created_at, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.SessionID, t.UserID, t.UserMessage, t.BotReply, t.CreatedAt, string(t.Feedback),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return Turn{}, ErrNotFound
		}
		return Turn{}, fmt.Errorf("append turn: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) ListTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, user_id, user_message, bot_reply, created_at, feedback
		   FROM chat_turns WHERE session_id=$1 ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	out := make([]Turn, 0, 16)
	for rows.Next() {
		var t Turn
		var feedback string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserID, &t.UserMessage, &t.BotReply, &t.CreatedAt, &feedback); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Feedback = FeedbackTag(feedback)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetFeedback(ctx context.Context, turnID string, tag FeedbackTag) error {
	// Zero rows affected means the turn is gone; that is tolerated by contract.
	_, err := s.pool.Exec(ctx,
		`UPDATE chat_turns SET feedback=$2 WHERE id=$1`, turnID, string(tag))
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
