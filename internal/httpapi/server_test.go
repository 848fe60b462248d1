package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amezzi/chatterbox/internal/auth"
	"github.com/amezzi/chatterbox/internal/chat"
	"github.com/amezzi/chatterbox/internal/config"
	"github.com/amezzi/chatterbox/internal/memory"
	"github.com/amezzi/chatterbox/internal/model"
	"github.com/amezzi/chatterbox/internal/observability"
	"github.com/amezzi/chatterbox/internal/store"
)

var testNamespaceSeq atomic.Int64

type testEnv struct {
	ts    *httptest.Server
	store *store.InMemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Config{
		AuthSecret:       "test-secret",
		TokenTTL:         time.Hour,
		SessionListLimit: 20,
		UploadMaxBytes:   64 << 10,
		AllowAnyOrigin:   true,
	}
	st := store.NewInMemoryStore()
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", testNamespaceSeq.Add(1)))
	authService := auth.NewService(st, cfg.AuthSecret, cfg.TokenTTL)
	client, err := model.NewClient(model.Config{Mode: "mock"})
	if err != nil {
		t.Fatalf("model client: %v", err)
	}
	orch, err := chat.NewOrchestrator(st, memory.NewRegistry(), client, metrics, 2, time.Second)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	t.Cleanup(orch.Close)

	srv := New(cfg, st, authService, orch, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, store: st}
}

func (e *testEnv) postJSON(t *testing.T, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	defer res.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(res.Body).Decode(&decoded)
	return res, decoded
}

func (e *testEnv) getJSON(t *testing.T, path, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer res.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(res.Body).Decode(&decoded)
	return res, decoded
}

func (e *testEnv) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	res, _ := e.postJSON(t, "/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	res, decoded := e.postJSON(t, "/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	token, _ := decoded["token"].(string)
	if token == "" {
		t.Fatalf("missing token in login response: %+v", decoded)
	}
	return token
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice")

	res, msg := env.postJSON(t, "/v1/chat/message", token, map[string]string{
		"text": "Hello there",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("message status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if created, _ := msg["session_created"].(bool); !created {
		t.Fatalf("first message did not create a session: %+v", msg)
	}
	sessionID, _ := msg["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session_id: %+v", msg)
	}
	if title, _ := msg["session_title"].(string); title != "Hello there" {
		t.Fatalf("session_title = %q, want %q", title, "Hello there")
	}
	if reply, _ := msg["reply"].(string); reply == "" {
		t.Fatalf("empty reply: %+v", msg)
	}

	res, msg = env.postJSON(t, "/v1/chat/message", token, map[string]string{
		"session_id": sessionID,
		"text":       "How are you?",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second message status = %d", res.StatusCode)
	}
	if created, _ := msg["session_created"].(bool); created {
		t.Fatalf("second message created a new session")
	}

	res, listed := env.getJSON(t, "/v1/sessions", token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list sessions status = %d", res.StatusCode)
	}
	sessions, _ := listed["sessions"].([]any)
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}

	res, listed = env.getJSON(t, "/v1/sessions/"+sessionID+"/turns", token)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list turns status = %d", res.StatusCode)
	}
	turns, _ := listed["turns"].([]any)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	first, _ := turns[0].(map[string]any)
	if got, _ := first["user_message"].(string); got != "Hello there" {
		t.Fatalf("first persisted message = %q, want %q", got, "Hello there")
	}
	turnID, _ := first["id"].(string)
	if turnID == "" {
		t.Fatalf("missing turn id: %+v", first)
	}

	res, _ = env.postJSON(t, "/v1/turns/"+turnID+"/feedback", token, map[string]string{"tag": "like"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("feedback status = %d", res.StatusCode)
	}
	res, _ = env.postJSON(t, "/v1/turns/"+turnID+"/feedback", token, map[string]string{"tag": "meh"})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid feedback status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	res, _ = env.postJSON(t, "/v1/sessions/"+sessionID+"/rename", token, map[string]string{"title": "Greetings"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("rename status = %d", res.StatusCode)
	}

	res, _ = env.postJSON(t, "/v1/sessions/"+sessionID+"/reset", token, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reset status = %d", res.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	res, _ := env.postJSON(t, "/v1/chat/message", "", map[string]string{"text": "hi"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}

	res, _ = env.postJSON(t, "/v1/chat/message", "not-a-token", map[string]string{"text": "hi"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestSessionOwnership(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.registerAndLogin(t, "alice")
	bobToken := env.registerAndLogin(t, "bob")

	_, msg := env.postJSON(t, "/v1/chat/message", aliceToken, map[string]string{"text": "private note"})
	sessionID, _ := msg["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("missing session_id: %+v", msg)
	}

	res, _ := env.getJSON(t, "/v1/sessions/"+sessionID+"/turns", bobToken)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user turns status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
	res, _ = env.postJSON(t, "/v1/sessions/"+sessionID+"/rename", bobToken, map[string]string{"title": "mine now"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user rename status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}

	res, decoded := env.postJSON(t, "/v1/chat/message", bobToken, map[string]string{
		"session_id": sessionID,
		"text":       "what did alice write?",
	})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user message status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
	if code, _ := decoded["code"].(string); code != "session_not_found" {
		t.Fatalf("cross-user message code = %q, want %q", code, "session_not_found")
	}

	turns, err := env.store.ListTurns(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ListTurns() error = %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("len(turns) = %d, want 1 (no foreign turn appended)", len(turns))
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice")

	res, decoded := env.postJSON(t, "/v1/chat/message", token, map[string]string{"text": "   "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty message status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if code, _ := decoded["code"].(string); code != "empty_message" {
		t.Fatalf("code = %q, want %q", code, "empty_message")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	res, decoded := env.postJSON(t, "/v1/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "not-an-email",
		"password": "password123",
	})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad email status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
	if code, _ := decoded["code"].(string); code == "" {
		t.Fatalf("missing error code: %+v", decoded)
	}

	env.registerAndLogin(t, "carol")
	res, _ = env.postJSON(t, "/v1/auth/register", "", map[string]string{
		"username": "carol",
		"email":    "carol2@example.com",
		"password": "password123",
	})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestFileExtract(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t, "alice")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, "meeting at noon"); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/files/extract", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("extract request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("extract status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode extract response: %v", err)
	}
	text, _ := decoded["text"].(string)
	if !strings.Contains(text, "[File: notes.txt]") || !strings.Contains(text, "meeting at noon") {
		t.Fatalf("extract text = %q", text)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		res, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}
