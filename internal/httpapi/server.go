package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/amezzi/chatterbox/internal/auth"
	"github.com/amezzi/chatterbox/internal/chat"
	"github.com/amezzi/chatterbox/internal/config"
	"github.com/amezzi/chatterbox/internal/observability"
	"github.com/amezzi/chatterbox/internal/store"
)

// Orchestrator is the slice of the chat orchestrator the API depends on.
type Orchestrator interface {
	Submit(ctx context.Context, req chat.Request) (chat.Result, error)
	ResetMemory(userID, sessionID string)
	LoadSession(ctx context.Context, userID, sessionID string)
}

type Server struct {
	cfg          config.Config
	store        store.Store
	authService  *auth.Service
	orchestrator Orchestrator
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(cfg config.Config, st store.Store, authService *auth.Service, orchestrator Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		store:        st,
		authService:  authService,
		orchestrator: orchestrator,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections unless explicitly opened
				// up; other websites must not be able to drive a user's chat.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/auth/register", s.handleRegister)
	r.Post("/v1/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Put("/v1/auth/profile", s.handleUpdateProfile)
		r.Post("/v1/chat/message", s.handleChatMessage)
		r.Get("/v1/chat/ws", s.handleChatWS)
		r.Get("/v1/sessions", s.handleListSessions)
		r.Get("/v1/sessions/{id}/turns", s.handleListTurns)
		r.Post("/v1/sessions/{id}/rename", s.handleRenameSession)
		r.Post("/v1/sessions/{id}/reset", s.handleResetSession)
		r.Post("/v1/sessions/{id}/load", s.handleLoadSession)
		r.Post("/v1/turns/{id}/feedback", s.handleFeedback)
		r.Post("/v1/files/extract", s.handleExtractFile)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type ctxKey int

const userIDKey ctxKey = 0

// requireUser resolves the bearer token into a user id; handlers past this
// middleware can trust the identity without re-validating it.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		userID, err := s.authService.VerifyToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("bearer "):])
	}
	// Browsers cannot set headers on websocket dials; accept a query param there.
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
