package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/amezzi/chatterbox/internal/chat"
	"github.com/amezzi/chatterbox/internal/ingest"
	"github.com/amezzi/chatterbox/internal/store"
)

type messageRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type messageResponse struct {
	Reply          string `json:"reply"`
	TurnID         string `json:"turn_id,omitempty"`
	SessionID      string `json:"session_id"`
	SessionTitle   string `json:"session_title,omitempty"`
	SessionCreated bool   `json:"session_created"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := s.orchestrator.Submit(r.Context(), chat.Request{
		UserID:    userIDFrom(r),
		SessionID: strings.TrimSpace(req.SessionID),
		Text:      req.Text,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{
		Reply:          res.Reply,
		TurnID:         res.TurnID,
		SessionID:      res.SessionID,
		SessionTitle:   res.SessionTitle,
		SessionCreated: res.SessionCreated,
	})
}

func writeSubmitError(w http.ResponseWriter, err error) {
	var storeErr *chat.StoreError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(w, http.StatusBadRequest, "empty_message", "Please type a message.")
	case errors.Is(err, chat.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing user identity")
	case errors.Is(err, chat.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
	case errors.As(err, &storeErr):
		respondError(w, http.StatusInternalServerError, "store_error", "An error occurred while processing your message.")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "An error occurred while processing your message.")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.SessionListLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(r.Context(), userIDFrom(r), limit)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("list_sessions").Inc()
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to load chat sessions.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleListTurns(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}

	turns, err := s.store.ListTurns(r.Context(), sess.ID)
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("list_turns").Inc()
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to load chat history.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

type renameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}

	if err := s.store.RenameSession(r.Context(), sess.ID, title); err != nil {
		s.metrics.StoreErrors.WithLabelValues("rename_session").Inc()
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to rename session.")
		return
	}
	s.metrics.SessionEvents.WithLabelValues("renamed").Inc()
	respondJSON(w, http.StatusOK, map[string]any{"status": "renamed"})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	s.orchestrator.ResetMemory(userIDFrom(r), sess.ID)
	respondJSON(w, http.StatusOK, map[string]any{"status": "reset"})
}

func (s *Server) handleLoadSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.ownedSession(w, r)
	if !ok {
		return
	}
	s.orchestrator.LoadSession(r.Context(), userIDFrom(r), sess.ID)
	respondJSON(w, http.StatusOK, map[string]any{"status": "loaded"})
}

type feedbackRequest struct {
	Tag string `json:"tag"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	turnID := strings.TrimSpace(chi.URLParam(r, "id"))
	if turnID == "" {
		respondError(w, http.StatusBadRequest, "invalid_turn_id", "missing turn id")
		return
	}

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	tag := store.FeedbackTag(strings.ToLower(strings.TrimSpace(req.Tag)))
	if !store.ValidFeedback(tag) {
		respondError(w, http.StatusBadRequest, "invalid_feedback", `feedback must be "like", "dislike" or empty`)
		return
	}

	if err := s.store.SetFeedback(r.Context(), turnID, tag); err != nil {
		s.metrics.StoreErrors.WithLabelValues("set_feedback").Inc()
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to record feedback.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "recorded"})
}

func (s *Server) handleExtractFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.UploadMaxBytes + (1 << 20)); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "could not parse upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "missing file field")
		return
	}
	defer file.Close()

	content := ingest.Extract(header.Filename, file, s.cfg.UploadMaxBytes)
	respondJSON(w, http.StatusOK, map[string]any{
		"filename": header.Filename,
		"text":     ingest.AsUtterance(header.Filename, content),
	})
}

// ownedSession loads the {id} session and rejects callers that do not own it.
func (s *Server) ownedSession(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return store.Session{}, false
	}

	sess, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "session not found")
			return store.Session{}, false
		}
		s.metrics.StoreErrors.WithLabelValues("get_session").Inc()
		respondError(w, http.StatusInternalServerError, "store_error", "Failed to load session.")
		return store.Session{}, false
	}
	if sess.UserID != userIDFrom(r) {
		// Ownership violations look identical to missing sessions.
		respondError(w, http.StatusNotFound, "session_not_found", "session not found")
		return store.Session{}, false
	}
	return sess, true
}
