package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amezzi/chatterbox/internal/store"
)

func newTestService() (*Service, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	return NewService(st, "test-secret", time.Hour), st
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if u.PasswordHash == "correct horse battery" {
		t.Fatalf("password stored in clear")
	}

	got, token, err := s.Login(ctx, "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("Login() user = %q, want %q", got.ID, u.ID)
	}
	if token == "" {
		t.Fatalf("Login() returned empty token")
	}

	userID, err := s.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if userID != u.ID {
		t.Fatalf("VerifyToken() = %q, want %q", userID, u.ID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()
	if _, err := s.Register(ctx, "alice", "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, _, err := s.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(unknown user) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRecordsBookkeeping(t *testing.T) {
	s, st := newTestService()
	ctx := context.Background()
	u, _ := s.Register(ctx, "alice", "alice@example.com", "correct horse battery")

	if _, _, err := s.Login(ctx, "alice", "correct horse battery"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	got, _ := st.GetUser(ctx, u.ID)
	if got.LoginCount != 1 || got.LastLoginAt == nil {
		t.Fatalf("bookkeeping not recorded: %+v", got)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "a@b.c", "longenough"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("missing username error = %v", err)
	}
	if _, err := s.Register(ctx, "bob", "not-an-email", "longenough"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email error = %v", err)
	}
	if _, err := s.Register(ctx, "bob", "bob@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("weak password error = %v", err)
	}

	if _, err := s.Register(ctx, "bob", "bob@example.com", "longenough"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := s.Register(ctx, "bob", "other@example.com", "longenough"); !errors.Is(err, store.ErrDuplicateUser) {
		t.Fatalf("duplicate register error = %v, want ErrDuplicateUser", err)
	}
}

func TestVerifyTokenRejectsForgeries(t *testing.T) {
	s, _ := newTestService()
	other := NewService(store.NewInMemoryStore(), "other-secret", time.Hour)

	u, err := s.Register(context.Background(), "alice", "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, token, err := s.Login(context.Background(), "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	_ = u

	if _, err := other.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token verified under a different secret")
	}
	if _, err := s.VerifyToken("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	st := store.NewInMemoryStore()
	s := NewService(st, "test-secret", -time.Minute)

	if _, err := s.Register(context.Background(), "alice", "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, token, err := s.Login(context.Background(), "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := s.VerifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token error = %v, want ErrInvalidToken", err)
	}
}
