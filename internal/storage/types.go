// Package storage implements C8: the storage contract spec §4.8
// describes as an interface any conversation-store backend can satisfy,
// plus a sqlite-backed implementation following the same raw-SQL
// migrate-in-constructor, WAL mode, UUIDv7 identifier persistence
// pattern used throughout this codebase.
package storage

import (
	"errors"
	"time"

	"github.com/csml-dev/csml-engine/internal/bot"
	"github.com/csml-dev/csml-engine/internal/primitive"
)

// ErrAlreadyOpen is returned by CreateConversation when the client
// already has an open conversation (spec §4.8's single-open invariant).
var ErrAlreadyOpen = errors.New("storage: client already has an open conversation")

// ErrNotFound is returned by lookups that found nothing matching.
var ErrNotFound = errors.New("storage: not found")

// Status is a conversation's lifecycle state (spec §3 Conversation).
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Direction marks which way a message travelled (spec §3 Message).
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Client identifies the (bot, channel, user) triple a conversation,
// interaction, message, memory, or state row belongs to (spec §3
// Client).
type Client struct {
	BotID     string
	ChannelID string
	UserID    string
}

// Conversation is a single open-or-closed run through a bot's flows for
// one client (spec §3 Conversation).
type Conversation struct {
	ID                string
	Client            Client
	FlowID            string
	StepID            string
	Status            Status
	Metadata          map[string]any
	ExpiresAt         *time.Time
	LastInteractionAt time.Time
	UpdatedAt         time.Time
	CreatedAt         time.Time
}

// Interaction is a single inbound event's processing record (spec §3
// Interaction). Success is set by FinishInteraction once the engine
// knows whether the step loop ended cleanly or with a runtime error.
type Interaction struct {
	ID        string
	Client    Client
	Success   bool
	Event     map[string]any
	CreatedAt time.Time
}

// Message is one outbound or inbound message logged against a
// conversation/interaction (spec §3 Message). InteractionOrder is the
// owning interaction's ordinal position within the conversation;
// MessageOrder is this message's ordinal position within that
// interaction — together they give the total order spec §5 requires.
type Message struct {
	ID               string
	Client           Client
	ConversationID   string
	InteractionID    string
	FlowID           string
	StepID           string
	Direction        Direction
	InteractionOrder int
	MessageOrder     int
	ContentType      string
	Payload          primitive.Value
	CreatedAt        time.Time
}

// Memory is one remembered key/value pair (spec §3 Memory). A long-term
// memory has no ConversationID/InteractionID and is upserted by key; a
// short-term memory carries them and is inserted fresh each time (spec
// §4.8 add_memories).
type Memory struct {
	ID               string
	Client           Client
	Key              string
	Value            primitive.Value
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	ConversationID   string
	InteractionID    string
	FlowID           string
	StepID           string
	InteractionOrder int
	MemoryOrder      int
}

// IsLongTerm reports whether m is a long-term memory (no owning
// conversation), per spec §4.8's "distinguished by presence of
// conversation_id" rule.
func (m Memory) IsLongTerm() bool { return m.ConversationID == "" }

// State is a single client-scoped key/value row (spec §3 State), used by
// the engine to persist a hold frame's resume point and local scope
// between events.
type State struct {
	Client    Client
	Type      string
	Key       string
	Value     primitive.Value
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

// BotVersion is one immutable bot version (spec §3 Bot: "versioned ...
// 'current' = most recent"). ID is a fresh UUIDv7 per CreateBotVersion
// call, not derived from the bot's content.
type BotVersion struct {
	ID        string
	Bot       *bot.Bot
	CreatedAt time.Time
}

// HoldFrame is the payload stored in a State row of Type
// StateTypeHoldFrame: exactly enough to resume a held step at its next
// statement with its local scope intact (spec §4.7 "hold frame").
type HoldFrame struct {
	FlowID       string
	StepID       string
	StatementIdx int
	Scope        primitive.Scope
}

// StateTypeHoldFrame is the State.Type value the engine uses for
// hold-frame persistence.
const StateTypeHoldFrame = "hold_frame"

// holdFrameKey is the single State.Key a conversation's hold frame is
// stored under within StateTypeHoldFrame (one hold frame per client, not
// per conversation, since only one conversation can be open at a time).
const holdFrameKey = "current"

// CommitParams bundles everything CommitInteraction writes atomically at
// the end of an engine step loop (spec §4.7 step 5).
type CommitParams struct {
	Client         Client
	ConversationID string
	InteractionID  string
	FlowID         string
	StepID         string
	// Status closes the conversation when non-empty; left open otherwise
	// (e.g. on Hold).
	Status       Status
	Success      bool
	Messages     []Message
	MemoryWrites []Memory
	// HoldFrame, when non-nil, is persisted as the client's hold-frame
	// state; nil clears any previously stored hold frame.
	HoldFrame primitive.Value
}

// ToValue converts h into the primitive.Value SetState persists.
// primitive.Scope holds the Value interface, which encoding/json cannot
// decode back into on its own, so the hold frame travels through
// SetState/GetState as a primitive.Object rather than a plain Go struct.
func (h HoldFrame) ToValue() primitive.Value {
	scope := primitive.NewObject()
	for k, v := range h.Scope {
		scope.Set(k, v)
	}
	o := primitive.NewObject()
	o.Set("flow_id", primitive.Str(h.FlowID))
	o.Set("step_id", primitive.Str(h.StepID))
	o.Set("statement_idx", primitive.Int(h.StatementIdx))
	o.Set("scope", scope)
	return o
}

// HoldFrameFromValue reverses ToValue.
func HoldFrameFromValue(v primitive.Value) (HoldFrame, error) {
	o, ok := v.(*primitive.Object)
	if !ok {
		return HoldFrame{}, errors.New("storage: hold frame value is not an object")
	}
	get := func(key string) (primitive.Value, bool) { return o.Get(key) }

	flowID, _ := get("flow_id")
	stepID, _ := get("step_id")
	idx, _ := get("statement_idx")
	scopeVal, _ := get("scope")

	h := HoldFrame{
		FlowID: asString(flowID),
		StepID: asString(stepID),
	}
	if i, ok := idx.(primitive.Int); ok {
		h.StatementIdx = int(i)
	}
	if scopeObj, ok := scopeVal.(*primitive.Object); ok {
		h.Scope = make(primitive.Scope, len(scopeObj.Keys()))
		for _, k := range scopeObj.Keys() {
			v, _ := scopeObj.Get(k)
			h.Scope[k] = v
		}
	}
	return h, nil
}

func asString(v primitive.Value) string {
	if s, ok := v.(primitive.Str); ok {
		return string(s)
	}
	return ""
}
