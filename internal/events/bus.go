// Package events provides a publish/subscribe event bus for engine
// observability. Events flow from the conversation engine (C7) and
// storage sweeper to subscribers (a future admin/metrics endpoint). The
// bus is nil-safe: calling Publish on a nil *Bus is a no-op, so callers
// do not need guard checks.
package events

import (
	"sync"
	"time"
)

// Source constants identify which component published an event.
const (
	// SourceEngine identifies events from the conversation engine (C7).
	SourceEngine = "engine"
	// SourceSweeper identifies events from the expired-data sweeper.
	SourceSweeper = "sweeper"
	// SourceStorage identifies events from the storage layer (C8).
	SourceStorage = "storage"
)

// Kind constants describe the type of event within a source.
const (
	// KindInteractionStart signals the engine began processing an
	// inbound event. Data: request_id, bot_id, channel_id, user_id.
	KindInteractionStart = "interaction_start"
	// KindStepExecuted signals one flow/step invocation completed.
	// Data: request_id, flow, step, outcome.
	KindStepExecuted = "step_executed"
	// KindHold signals the engine suspended a conversation at a hold
	// statement. Data: request_id, conversation_id, flow, step.
	KindHold = "hold"
	// KindInfiniteLoop signals the goto-counter limit tripped.
	// Data: request_id, flow, step, transitions.
	KindInfiniteLoop = "infinite_loop"
	// KindInteractionComplete signals the engine finished an inbound
	// event, success or failure. Data: request_id, conversation_id,
	// interaction_id, success, elapsed_ms.
	KindInteractionComplete = "interaction_complete"

	// KindSweepStart signals the expired-data sweeper began a pass.
	KindSweepStart = "sweep_start"
	// KindSweepComplete signals a sweep pass finished.
	// Data: deleted, elapsed_ms, and error when the pass failed.
	KindSweepComplete = "sweep_complete"
)

// Event represents a single operational event published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Source identifies the component that published the event.
	Source string `json:"source"`
	// Kind describes the type of event within the source.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full — drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default for
// WebSocket consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
