// Package opsserver streams the engine's operational event bus to
// connected dev/ops dashboards over a WebSocket: a server pushing
// conversation-engine events out to each connected client over its own
// read/write pump.
package opsserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/csml-dev/csml-engine/internal/events"
)

// subscriberBufSize matches events.Bus.Subscribe's own doc comment
// recommendation for WebSocket consumers.
const subscriberBufSize = 64

const writeTimeout = 10 * time.Second

// Server upgrades HTTP connections to WebSockets and fans out every
// events.Bus publication to each connected client as JSON.
type Server struct {
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New builds an opsserver Server streaming bus's events. logger may be
// nil, in which case slog.Default() is used.
func New(bus *events.Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		bus:    bus,
		logger: logger,
		// CheckOrigin always allows: this is a same-origin dev/ops
		// dashboard, not a public endpoint meant to sit behind a
		// browser's cross-origin checks.
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the http.HandlerFunc to mount at the events stream
// route (e.g. "GET /v1/events/stream").
func (s *Server) Handler() http.HandlerFunc {
	return s.handleStream
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("opsserver: upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	sub := s.bus.Subscribe(subscriberBufSize)
	s.logger.Debug("opsserver: client connected", "subscribers", s.bus.SubscriberCount())

	defer func() {
		s.bus.Unsubscribe(sub)
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain client reads so a closed connection is detected promptly;
	// the dashboard never sends anything meaningful back. done is
	// closed the moment that happens, so the write loop below doesn't
	// sit blocked on sub waiting for an event that may never come.
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				close(done)
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// ClientCount returns the number of currently connected dashboards.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
