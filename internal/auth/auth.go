package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/amezzi/chatterbox/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrMissingFields      = errors.New("username, email and password are required")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service verifies credentials and issues the bearer tokens the HTTP layer
// uses to hand a trusted user identity to the orchestrator.
type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
}

func NewService(st store.Store, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL == 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{store: st, secret: []byte(secret), tokenTTL: tokenTTL}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (store.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return store.User{}, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return store.User{}, ErrInvalidEmail
	}
	if len(password) < 8 {
		return store.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, username, email, string(hash))
}

// Login verifies the password and returns the user plus a signed token.
// Last-login bookkeeping is best-effort; a bookkeeping failure does not block
// the login.
func (s *Service) Login(ctx context.Context, username, password string) (store.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, "", ErrInvalidCredentials
		}
		return store.User{}, "", fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.User{}, "", ErrInvalidCredentials
	}

	if err := s.store.RecordLogin(ctx, u.ID); err != nil {
		log.Printf("login bookkeeping failed for user %s: %v", u.ID, err)
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return store.User{}, "", err
	}
	return u, token, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID, username, email string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return s.store.UpdateProfile(ctx, userID, username, email)
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// VerifyToken returns the user id carried by a valid bearer token.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
