package storage

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/csml-dev/csml-engine/internal/primitive"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	f, err := os.CreateTemp("", "csml-storage-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.Close()
	os.Remove(path)
	t.Cleanup(func() { os.Remove(path) })

	s, err := NewSQLiteStore(path, Options{DisableEncryption: true})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testClient() Client {
	return Client{BotID: "bot1", ChannelID: "web", UserID: "user1"}
}

func TestCreateConversation_SingleOpenInvariant(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	if _, err := s.CreateConversation(client, "default", "start", nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := s.CreateConversation(client, "default", "start", nil); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second create: got %v, want ErrAlreadyOpen", err)
	}
}

func TestGetLatestOpen_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetLatestOpen(testClient()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestCloseConversation_Idempotent(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	conv, err := s.CreateConversation(client, "default", "start", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CloseConversation(conv.ID, client, StatusClosed); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.CloseConversation(conv.ID, client, StatusClosed); err != nil {
		t.Fatalf("second close should be a no-op, got: %v", err)
	}
	// Conversation is closed, so a new one can be opened.
	if _, err := s.CreateConversation(client, "default", "start", nil); err != nil {
		t.Fatalf("create after close: %v", err)
	}
}

func TestAddMemories_UpsertLongTermInsertShortTerm(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	err := s.AddMemories(client, []Memory{
		{Client: client, Key: "name", Value: primitive.Str("alice")},
	}, nil)
	if err != nil {
		t.Fatalf("initial add: %v", err)
	}

	err = s.AddMemories(client, []Memory{
		{Client: client, Key: "name", Value: primitive.Str("bob")},
	}, nil)
	if err != nil {
		t.Fatalf("upsert add: %v", err)
	}

	memories, err := s.GetMemories(client)
	if err != nil {
		t.Fatal(err)
	}
	if len(memories) != 1 {
		t.Fatalf("got %d memories, want 1 (upsert by key)", len(memories))
	}
	if got, ok := memories[0].Value.(primitive.Str); !ok || string(got) != "bob" {
		t.Fatalf("got %v, want Str(bob)", memories[0].Value)
	}

	// Short-term memories (carrying a ConversationID) are inserted fresh
	// each time, not upserted, and never returned by GetMemories.
	err = s.AddMemories(client, []Memory{
		{Client: client, Key: "name", Value: primitive.Str("carol"), ConversationID: "conv-1"},
	}, nil)
	if err != nil {
		t.Fatalf("short-term add: %v", err)
	}
	memories, err = s.GetMemories(client)
	if err != nil {
		t.Fatal(err)
	}
	if len(memories) != 1 {
		t.Fatalf("got %d long-term memories after short-term write, want 1", len(memories))
	}
}

func TestDeleteMemory_RemovesOnlyThatKey(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	err := s.AddMemories(client, []Memory{
		{Client: client, Key: "a", Value: primitive.Int(1)},
		{Client: client, Key: "b", Value: primitive.Int(2)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteMemory(client, "a"); err != nil {
		t.Fatalf("DeleteMemory: %v", err)
	}

	memories, err := s.GetMemories(client)
	if err != nil {
		t.Fatal(err)
	}
	if len(memories) != 1 || memories[0].Key != "b" {
		t.Fatalf("got %+v, want only key b remaining", memories)
	}
}

func TestDeleteMemories_RemovesAllLongTerm(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	err := s.AddMemories(client, []Memory{
		{Client: client, Key: "a", Value: primitive.Int(1)},
		{Client: client, Key: "b", Value: primitive.Int(2)},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteMemories(client); err != nil {
		t.Fatalf("DeleteMemories: %v", err)
	}

	memories, err := s.GetMemories(client)
	if err != nil {
		t.Fatal(err)
	}
	if len(memories) != 0 {
		t.Fatalf("got %d memories after DeleteMemories, want 0", len(memories))
	}
}

func TestAddMessages_StampsOrdering(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	conv, err := s.CreateConversation(client, "default", "start", nil)
	if err != nil {
		t.Fatal(err)
	}
	interaction, err := s.AddInteraction(client, map[string]any{"content_type": "text"})
	if err != nil {
		t.Fatal(err)
	}

	msgs, err := s.AddMessages(client, conv.ID, interaction.ID, []Message{
		{ContentType: "text", Payload: primitive.Str("hi")},
		{ContentType: "text", Payload: primitive.Str("there")},
	}, DirectionSend)
	if err != nil {
		t.Fatalf("AddMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].MessageOrder >= msgs[1].MessageOrder {
		t.Fatalf("message order not increasing: %d, %d", msgs[0].MessageOrder, msgs[1].MessageOrder)
	}
}

func TestCommitInteraction_ClosesConversationAndPersistsMemory(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	conv, err := s.CreateConversation(client, "default", "start", nil)
	if err != nil {
		t.Fatal(err)
	}
	interaction, err := s.AddInteraction(client, map[string]any{"content_type": "text"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.CommitInteraction(CommitParams{
		Client:         client,
		ConversationID: conv.ID,
		InteractionID:  interaction.ID,
		FlowID:         "default",
		StepID:         "end",
		Status:         StatusClosed,
		Success:        true,
		Messages:       []Message{{ContentType: "text", Payload: primitive.Str("bye")}},
		MemoryWrites:   []Memory{{Client: client, Key: "farewell", Value: primitive.Bool(true)}},
	})
	if err != nil {
		t.Fatalf("CommitInteraction: %v", err)
	}

	if _, err := s.GetLatestOpen(client); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conversation should be closed, GetLatestOpen got: %v", err)
	}
	memories, err := s.GetMemories(client)
	if err != nil {
		t.Fatal(err)
	}
	if len(memories) != 1 || memories[0].Key != "farewell" {
		t.Fatalf("got %+v, want farewell memory committed", memories)
	}
}

func TestCommitInteraction_HoldLeavesConversationOpen(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	conv, err := s.CreateConversation(client, "default", "start", nil)
	if err != nil {
		t.Fatal(err)
	}
	interaction, err := s.AddInteraction(client, map[string]any{"content_type": "text"})
	if err != nil {
		t.Fatal(err)
	}

	hold := HoldFrame{FlowID: "default", StepID: "start", StatementIdx: 1, Scope: primitive.Scope{}}
	_, err = s.CommitInteraction(CommitParams{
		Client:         client,
		ConversationID: conv.ID,
		InteractionID:  interaction.ID,
		FlowID:         "default",
		StepID:         "start",
		Status:         "",
		Success:        true,
		HoldFrame:      hold.ToValue(),
	})
	if err != nil {
		t.Fatalf("CommitInteraction: %v", err)
	}

	if _, err := s.GetLatestOpen(client); err != nil {
		t.Fatalf("conversation should remain open, got: %v", err)
	}
	v, err := s.GetHoldFrame(client)
	if err != nil {
		t.Fatalf("GetHoldFrame: %v", err)
	}
	got, err := HoldFrameFromValue(v)
	if err != nil {
		t.Fatalf("HoldFrameFromValue: %v", err)
	}
	if got.StepID != "start" || got.StatementIdx != 1 {
		t.Fatalf("got %+v, want resumed at start statement 1", got)
	}
}

func TestDeleteExpired_RemovesPastExpiry(t *testing.T) {
	s := newTestStore(t)
	client := testClient()

	past := time.Now().Add(-time.Hour)
	if _, err := s.CreateConversation(client, "default", "start", &past); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n == 0 {
		t.Fatalf("got 0 deleted, want at least 1 expired conversation removed")
	}
	if _, err := s.GetLatestOpen(client); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired conversation should be gone, got: %v", err)
	}
}
