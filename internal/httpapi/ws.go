package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amezzi/chatterbox/internal/chat"
)

type wsClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
}

type wsServerMessage struct {
	Type           string `json:"type"`
	SessionID      string `json:"session_id,omitempty"`
	TurnID         string `json:"turn_id,omitempty"`
	Text           string `json:"text,omitempty"`
	SessionCreated bool   `json:"session_created,omitempty"`
	Code           string `json:"code,omitempty"`
}

// handleChatWS runs a message/reply loop over one websocket connection.
// Exchanges are sequential per connection; each reply is produced by the same
// orchestrator path as the REST endpoint.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		return nil
	})

	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))

		switch strings.ToLower(strings.TrimSpace(msg.Type)) {
		case "message":
			res, err := s.orchestrator.Submit(r.Context(), chat.Request{
				UserID:    userID,
				SessionID: strings.TrimSpace(msg.SessionID),
				Text:      msg.Text,
			})
			if err != nil {
				s.writeWS(conn, wsServerMessage{Type: "error", Code: submitErrorCode(err), Text: "An error occurred while processing your message."})
				continue
			}
			s.writeWS(conn, wsServerMessage{
				Type:           "reply",
				SessionID:      res.SessionID,
				TurnID:         res.TurnID,
				Text:           res.Reply,
				SessionCreated: res.SessionCreated,
			})
		case "reset":
			if strings.TrimSpace(msg.SessionID) == "" {
				s.writeWS(conn, wsServerMessage{Type: "error", Code: "invalid_session_id", Text: "session_id is required"})
				continue
			}
			s.orchestrator.ResetMemory(userID, msg.SessionID)
			s.writeWS(conn, wsServerMessage{Type: "reset_done", SessionID: msg.SessionID})
		default:
			s.writeWS(conn, wsServerMessage{Type: "error", Code: "invalid_client_message", Text: "unknown message type"})
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg wsServerMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = conn.WriteJSON(msg)
}

func submitErrorCode(err error) string {
	var storeErr *chat.StoreError
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, chat.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, chat.ErrSessionNotFound):
		return "session_not_found"
	case errors.As(err, &storeErr):
		return "store_error"
	default:
		return "internal_error"
	}
}
