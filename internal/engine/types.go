package engine

import "github.com/csml-dev/csml-engine/internal/storage"

// PayloadContent is the inbound event's typed body (spec §6 event
// format). Only the fields relevant to ContentType are populated.
type PayloadContent struct {
	Text    string `json:"text,omitempty"`
	Payload any    `json:"payload,omitempty"`
	FlowID  string `json:"flow_id,omitempty"`
	StepID  string `json:"step_id,omitempty"`
}

// Payload is the event's content_type/content pair.
type Payload struct {
	ContentType string         `json:"content_type"`
	Content     PayloadContent `json:"content"`
}

// Request is one inbound event, exactly the shape spec §6 names: a
// client triple, a typed payload, and free-form metadata.
type Request struct {
	RequestID string            `json:"request_id"`
	Client    storage.Client    `json:"client"`
	Payload   Payload           `json:"payload"`
	Metadata  map[string]any    `json:"metadata"`
}

// Response is run's return value (spec §6): the messages emitted during
// this interaction plus the conversation/interaction identifiers and
// whether the interaction completed without a runtime error.
type Response struct {
	Messages       []storage.Message `json:"messages"`
	ConversationID string            `json:"conversation_id"`
	InteractionID  string            `json:"interaction_id"`
	Success        bool              `json:"success"`
}
