package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/csml-dev/csml-engine/internal/bot"
	"github.com/csml-dev/csml-engine/internal/engine"
	"github.com/csml-dev/csml-engine/internal/events"
	"github.com/csml-dev/csml-engine/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	f, err := os.CreateTemp("", "csml-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	t.Cleanup(func() { os.Remove(path) })

	store, err := storage.NewSQLiteStore(path, storage.Options{DisableEncryption: true})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	eng := engine.New(store, events.New(), nil)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewServer("127.0.0.1", 0, eng, logger)
}

func testBot() *bot.Bot {
	return &bot.Bot{
		ID:          "bot1",
		DefaultFlow: "default",
		Flows: map[string]string{
			"default": `
step start {
	say "hello"
}`,
		},
	}
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.routes().ServeHTTP(w, r)
	return w
}

func TestHandleHealthAndVersion(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "GET", "/health", nil)
	if w.Code != 200 {
		t.Fatalf("got %d, want 200", w.Code)
	}

	w = doRequest(t, s, "GET", "/v1/version", nil)
	if w.Code != 200 {
		t.Fatalf("got %d, want 200", w.Code)
	}
}

func TestHandleRun_WithInlineBot(t *testing.T) {
	s := newTestServer(t)

	req := runRequest{
		Request: engine.Request{
			RequestID: "req-1",
			Client:    storage.Client{BotID: "bot1", ChannelID: "web", UserID: "user1"},
			Payload:   engine.Payload{ContentType: "text", Content: engine.PayloadContent{Text: "hi"}},
		},
		Bot: testBot(),
	}

	w := doRequest(t, s, "POST", "/v1/run", req)
	if w.Code != 200 {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp runResponseDTO
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatalf("got Success=false, want true")
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ContentType != "text" {
		t.Fatalf("got messages %+v, want a single text message", resp.Messages)
	}
	var payload string
	if err := json.Unmarshal(resp.Messages[0].Payload, &payload); err != nil {
		t.Fatalf("decode message payload: %v", err)
	}
	if payload != "hello" {
		t.Fatalf("got payload %q, want hello", payload)
	}
}

func TestHandleRun_FallsBackToLastBotVersion(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.store.CreateBotVersion(testBot()); err != nil {
		t.Fatalf("CreateBotVersion: %v", err)
	}

	req := runRequest{
		Request: engine.Request{
			RequestID: "req-1",
			Client:    storage.Client{BotID: "bot1", ChannelID: "web", UserID: "user1"},
			Payload:   engine.Payload{ContentType: "text", Content: engine.PayloadContent{Text: "hi"}},
		},
	}

	w := doRequest(t, s, "POST", "/v1/run", req)
	if w.Code != 200 {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestHandleRun_NoBotVersionIsNotFound(t *testing.T) {
	s := newTestServer(t)

	req := runRequest{
		Request: engine.Request{
			RequestID: "req-1",
			Client:    storage.Client{BotID: "missing", ChannelID: "web", UserID: "user1"},
			Payload:   engine.Payload{ContentType: "text", Content: engine.PayloadContent{Text: "hi"}},
		},
	}

	w := doRequest(t, s, "POST", "/v1/run", req)
	if w.Code != 404 {
		t.Fatalf("got %d, want 404", w.Code)
	}
}

func TestBotVersionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "POST", "/v1/bots/bot1/versions", testBot())
	if w.Code != 201 {
		t.Fatalf("create: got %d, want 201: %s", w.Code, w.Body.String())
	}
	var created storage.BotVersion
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created version: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created version has empty ID")
	}

	w = doRequest(t, s, "GET", "/v1/bots/versions/"+created.ID, nil)
	if w.Code != 200 {
		t.Fatalf("get: got %d, want 200", w.Code)
	}

	w = doRequest(t, s, "GET", "/v1/bots/bot1/versions/last", nil)
	if w.Code != 200 {
		t.Fatalf("last: got %d, want 200", w.Code)
	}

	w = doRequest(t, s, "GET", "/v1/bots/bot1/versions", nil)
	if w.Code != 200 {
		t.Fatalf("list: got %d, want 200", w.Code)
	}

	w = doRequest(t, s, "DELETE", "/v1/bots/versions/"+created.ID, nil)
	if w.Code != 204 {
		t.Fatalf("delete: got %d, want 204", w.Code)
	}

	w = doRequest(t, s, "GET", "/v1/bots/versions/"+created.ID, nil)
	if w.Code != 404 {
		t.Fatalf("get after delete: got %d, want 404", w.Code)
	}
}

func TestMemoryCRUD(t *testing.T) {
	s := newTestServer(t)
	client := "/v1/clients/bot1/web/user1"

	create := []createMemoryRequest{
		{Key: "name", Value: json.RawMessage(`"alice"`)},
		{Key: "age", Value: json.RawMessage(`30`)},
	}
	w := doRequest(t, s, "POST", client+"/memories", create)
	if w.Code != 201 {
		t.Fatalf("create: got %d, want 201: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, s, "GET", client+"/memories", nil)
	if w.Code != 200 {
		t.Fatalf("list: got %d, want 200", w.Code)
	}
	var listed struct {
		Memories []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		} `json:"memories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode memories: %v", err)
	}
	if len(listed.Memories) != 2 {
		t.Fatalf("got %d memories, want 2", len(listed.Memories))
	}

	w = doRequest(t, s, "DELETE", client+"/memories/name", nil)
	if w.Code != 204 {
		t.Fatalf("delete one: got %d, want 204", w.Code)
	}

	w = doRequest(t, s, "GET", client+"/memories", nil)
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Memories) != 1 || listed.Memories[0].Key != "age" {
		t.Fatalf("got %+v, want only age remaining", listed.Memories)
	}

	w = doRequest(t, s, "DELETE", client+"/memories", nil)
	if w.Code != 204 {
		t.Fatalf("delete all: got %d, want 204", w.Code)
	}

	w = doRequest(t, s, "GET", client+"/memories", nil)
	json.Unmarshal(w.Body.Bytes(), &listed)
	if len(listed.Memories) != 0 {
		t.Fatalf("got %d memories after delete all, want 0", len(listed.Memories))
	}
}

func TestHandleValidateBot(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "POST", "/v1/bots/validate", testBot())
	if w.Code != 200 {
		t.Fatalf("got %d, want 200", w.Code)
	}
	var resp struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("got valid=false, want true")
	}
}

func TestHandleDeleteExpired(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "POST", "/v1/maintenance/delete_expired", nil)
	if w.Code != 200 {
		t.Fatalf("got %d, want 200", w.Code)
	}
}
