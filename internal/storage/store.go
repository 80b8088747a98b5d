package storage

import (
	"time"

	"github.com/csml-dev/csml-engine/internal/bot"
	"github.com/csml-dev/csml-engine/internal/primitive"
)

// Store is the full C8 contract (spec §4.8): everything the engine (C7)
// and the §6 external API need to persist and query conversations,
// interactions, messages, memories, hold-frame state, and bot versions.
// SQLiteStore is the only implementation; the interface exists so the
// engine depends on behavior, not on sql.DB (internal/primitive.EffectHost
// is the same pattern one layer down).
type Store interface {
	// CreateConversation opens a new conversation at (flowID, stepID)
	// for client, failing with ErrAlreadyOpen if one is already open
	// (spec §4.8 single-open invariant). expiresAt is optional.
	CreateConversation(client Client, flowID, stepID string, expiresAt *time.Time) (*Conversation, error)
	// GetLatestOpen returns client's open conversation, or ErrNotFound.
	GetLatestOpen(client Client) (*Conversation, error)
	// CloseConversation marks a conversation closed. Idempotent: closing
	// an already-closed conversation is not an error.
	CloseConversation(id string, client Client, status Status) error
	// CloseAllConversations closes every open conversation for client.
	CloseAllConversations(client Client) error
	// UpdateConversation moves a conversation to a new flow/step. A nil
	// pointer leaves that field unchanged.
	UpdateConversation(id string, client Client, flowID, stepID *string) error

	// AddInteraction records one inbound event's processing record.
	AddInteraction(client Client, event map[string]any) (*Interaction, error)
	// FinishInteraction marks an interaction's outcome.
	FinishInteraction(id string, success bool) error

	// AddMessages appends messages to conversationID/interactionID,
	// stamping InteractionOrder/MessageOrder per spec §5's ordering
	// rule. Returns the stamped messages (with IDs/orders filled in).
	AddMessages(client Client, conversationID, interactionID string, messages []Message, direction Direction) ([]Message, error)

	// AddMemories upserts long-term memories (by key) and inserts
	// short-term ones (spec §4.8). expiresAt, if non-nil, resets TTL
	// for every memory in the call.
	AddMemories(client Client, memories []Memory, expiresAt *time.Time) error
	// GetMemories returns every non-expired long-term memory for client.
	GetMemories(client Client) ([]Memory, error)
	// DeleteMemory removes a single long-term memory by key (spec §6
	// delete_client_memory).
	DeleteMemory(client Client, key string) error
	// DeleteMemories removes every long-term memory for client (spec §6
	// delete_client_memories).
	DeleteMemories(client Client) error

	// SetState/GetState/DeleteState persist the engine's hold-frame and
	// any other client-scoped key/value state (spec §3 State).
	SetState(client Client, typ, key string, value primitive.Value, expiresAt *time.Time) error
	GetState(client Client, typ, key string) (*State, error)
	DeleteState(client Client, typ, key string) error

	// CommitInteraction performs the engine's end-of-step-loop commit
	// atomically (spec §4.7 step 5).
	CommitInteraction(p CommitParams) ([]Message, error)
	// GetHoldFrame returns the client's persisted hold frame, or
	// ErrNotFound if none is set.
	GetHoldFrame(client Client) (primitive.Value, error)

	// CreateBotVersion persists a new immutable bot version.
	CreateBotVersion(b *bot.Bot) (*BotVersion, error)
	GetBotByVersionID(versionID string) (*BotVersion, error)
	GetLastBotVersion(botID string) (*BotVersion, error)
	ListVersions(botID string, limit int, paginationKey string) ([]*BotVersion, string, error)
	DeleteVersion(versionID string) error

	// DeleteClient/DeleteAllBotData/DeleteExpired are the bulk-purge
	// operations of spec §4.8/§6.
	DeleteClient(client Client) error
	DeleteAllBotData(botID string) error
	DeleteExpired() (int, error)

	// GetClientConversations/GetClientMessages back spec §6's per-client
	// history queries, both opaque-cursor paginated.
	GetClientConversations(client Client, limit int, paginationKey string) ([]*Conversation, string, error)
	GetClientMessages(client Client, limit int, paginationKey string) ([]*Message, string, error)

	Close() error
}
