// Package api exposes spec §6's external interface over HTTP: one
// *http.Server, one mux built in Start, JSON in/out via
// writeJSON/errorResponse, and a withLogging wrapper around every route.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/csml-dev/csml-engine/internal/bot"
	"github.com/csml-dev/csml-engine/internal/buildinfo"
	"github.com/csml-dev/csml-engine/internal/engine"
	"github.com/csml-dev/csml-engine/internal/opsserver"
	"github.com/csml-dev/csml-engine/internal/primitive"
	"github.com/csml-dev/csml-engine/internal/storage"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP front end for run, bot-version management, and the
// per-client/global storage operations of spec §6.
type Server struct {
	address string
	port    int

	store  storage.Store
	engine *engine.Engine
	ops    *opsserver.Server
	logger *slog.Logger
	server *http.Server
}

// NewServer builds a Server. eng.Store is used directly for the
// non-run operations (bot versions, client queries, maintenance); the
// engine's event bus feeds the live /v1/events/stream WebSocket.
func NewServer(address string, port int, eng *engine.Engine, logger *slog.Logger) *Server {
	return &Server{
		address: address, port: port,
		store: eng.Store, engine: eng,
		ops:    opsserver.New(eng.Bus, logger),
		logger: logger,
	}
}

// routes builds the spec §6 route table. Split out of Start so tests can
// drive it directly through httptest without binding a listener.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/version", s.handleVersion)

	mux.HandleFunc("POST /v1/run", s.handleRun)

	mux.HandleFunc("POST /v1/bots/validate", s.handleValidateBot)
	mux.HandleFunc("POST /v1/bots/steps", s.handleGetSteps)
	mux.HandleFunc("POST /v1/bots/fold", s.handleFoldBot)

	mux.HandleFunc("POST /v1/bots/{botId}/versions", s.handleCreateVersion)
	mux.HandleFunc("GET /v1/bots/{botId}/versions", s.handleListVersions)
	mux.HandleFunc("GET /v1/bots/{botId}/versions/last", s.handleLastVersion)
	mux.HandleFunc("GET /v1/bots/versions/{versionId}", s.handleGetVersion)
	mux.HandleFunc("DELETE /v1/bots/versions/{versionId}", s.handleDeleteVersion)
	mux.HandleFunc("DELETE /v1/bots/{botId}/data", s.handleDeleteAllBotData)

	mux.HandleFunc("GET /v1/clients/{botId}/{channelId}/{userId}/conversation", s.handleGetOpenConversation)
	mux.HandleFunc("GET /v1/clients/{botId}/{channelId}/{userId}/state", s.handleGetCurrentState)
	mux.HandleFunc("POST /v1/clients/{botId}/{channelId}/{userId}/close", s.handleCloseAllConversations)
	mux.HandleFunc("GET /v1/clients/{botId}/{channelId}/{userId}/conversations", s.handleGetClientConversations)
	mux.HandleFunc("GET /v1/clients/{botId}/{channelId}/{userId}/messages", s.handleGetClientMessages)
	mux.HandleFunc("GET /v1/clients/{botId}/{channelId}/{userId}/memories", s.handleGetMemories)
	mux.HandleFunc("POST /v1/clients/{botId}/{channelId}/{userId}/memories", s.handleCreateMemories)
	mux.HandleFunc("DELETE /v1/clients/{botId}/{channelId}/{userId}/memories", s.handleDeleteMemories)
	mux.HandleFunc("DELETE /v1/clients/{botId}/{channelId}/{userId}/memories/{key}", s.handleDeleteMemory)
	mux.HandleFunc("DELETE /v1/clients/{botId}/{channelId}/{userId}", s.handleDeleteClient)

	mux.HandleFunc("POST /v1/maintenance/delete_expired", s.handleDeleteExpired)

	mux.HandleFunc("GET /v1/events/stream", s.ops.Handler())

	return s.withLogging(mux)
}

// Start begins serving HTTP requests; it blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]any{"error": message}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

// --- run ---------------------------------------------------------------

type runRequest struct {
	Request engine.Request `json:"request"`
	Bot     *bot.Bot       `json:"bot,omitempty"`
}

// handleRun implements spec §6's run(request, bot_opt). When bot is
// omitted, the client's last created bot version is compiled instead.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b := req.Bot
	if b == nil {
		v, err := s.store.GetLastBotVersion(req.Request.Client.BotID)
		if err != nil {
			s.errorResponse(w, http.StatusNotFound, "no bot version found for client.bot_id: "+err.Error())
			return
		}
		b = v.Bot
	}

	compiled, errs, _ := bot.Compile(b)
	if compiled == nil {
		s.errorResponse(w, http.StatusUnprocessableEntity, "bot failed to compile: "+errs[0].Error())
		return
	}

	resp, err := s.engine.Run(compiled.Program, req.Request)
	if err != nil {
		s.logger.Error("engine run failed", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}

	writeJSON(w, toRunResponse(resp), s.logger)
}

// messageDTO mirrors storage.Message with Payload serialized through
// primitive.MarshalJSON's spec §4.4 shape rule rather than Go's default
// struct reflection, which primitive.Value (an interface) can't satisfy.
type messageDTO struct {
	ID          string          `json:"id"`
	FlowID      string          `json:"flow_id"`
	StepID      string          `json:"step_id"`
	ContentType string          `json:"content_type"`
	Payload     json.RawMessage `json:"payload"`
}

type runResponseDTO struct {
	Messages       []messageDTO `json:"messages"`
	ConversationID string       `json:"conversation_id"`
	InteractionID  string       `json:"interaction_id"`
	Success        bool         `json:"success"`
}

func toRunResponse(resp *engine.Response) runResponseDTO {
	out := runResponseDTO{
		Messages:       make([]messageDTO, len(resp.Messages)),
		ConversationID: resp.ConversationID,
		InteractionID:  resp.InteractionID,
		Success:        resp.Success,
	}
	for i, m := range resp.Messages {
		out.Messages[i] = toMessageDTO(m)
	}
	return out
}

func toMessageDTO(m storage.Message) messageDTO {
	payload, err := primitive.MarshalJSON(m.Payload)
	if err != nil {
		payload = []byte("null")
	}
	return messageDTO{
		ID: m.ID, FlowID: m.FlowID, StepID: m.StepID,
		ContentType: m.ContentType, Payload: payload,
	}
}

// --- bot packaging -------------------------------------------------------

func (s *Server) handleValidateBot(w http.ResponseWriter, r *http.Request) {
	var b bot.Bot
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid bot body")
		return
	}
	valid, errs, warns := bot.ValidateBot(&b)
	writeJSON(w, map[string]any{"valid": valid, "errors": errs, "warnings": warns}, s.logger)
}

func (s *Server) handleGetSteps(w http.ResponseWriter, r *http.Request) {
	var b bot.Bot
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid bot body")
		return
	}
	steps, errs := bot.GetStepsFromFlow(&b)
	if errs != nil {
		writeJSON(w, map[string]any{"errors": errs}, s.logger)
		return
	}
	writeJSON(w, map[string]any{"steps": steps}, s.logger)
}

func (s *Server) handleFoldBot(w http.ResponseWriter, r *http.Request) {
	var b bot.Bot
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid bot body")
		return
	}
	flows, errs := bot.FoldBot(&b)
	if errs != nil {
		writeJSON(w, map[string]any{"errors": errs}, s.logger)
		return
	}
	writeJSON(w, map[string]any{"flows": flows}, s.logger)
}

// --- bot versions ----------------------------------------------------------

func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	var b bot.Bot
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid bot body")
		return
	}
	b.ID = r.PathValue("botId")

	if valid, errs, _ := bot.ValidateBot(&b); !valid {
		writeJSON(w, map[string]any{"errors": errs}, s.logger)
		return
	}

	v, err := s.store.CreateBotVersion(&b)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "create version: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, v, s.logger)
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetBotByVersionID(r.PathValue("versionId"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "version not found")
		return
	}
	writeJSON(w, v, s.logger)
}

func (s *Server) handleLastVersion(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetLastBotVersion(r.PathValue("botId"))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "no version found")
		return
	}
	writeJSON(w, v, s.logger)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)
	key := r.URL.Query().Get("pagination_key")
	versions, next, err := s.store.ListVersions(r.PathValue("botId"), limit, key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "list versions: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"versions": versions, "pagination_key": next}, s.logger)
}

func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVersion(r.PathValue("versionId")); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete version: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllBotData(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAllBotData(r.PathValue("botId")); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete bot data: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- per-client operations ---------------------------------------------

func clientFromPath(r *http.Request) storage.Client {
	return storage.Client{
		BotID:     r.PathValue("botId"),
		ChannelID: r.PathValue("channelId"),
		UserID:    r.PathValue("userId"),
	}
}

func (s *Server) handleGetOpenConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetLatestOpen(clientFromPath(r))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "no open conversation")
		return
	}
	writeJSON(w, conv, s.logger)
}

func (s *Server) handleGetCurrentState(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetHoldFrame(clientFromPath(r))
	if err != nil {
		s.errorResponse(w, http.StatusNotFound, "no state held")
		return
	}
	payload, err := primitive.MarshalJSON(v)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "marshal state: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleCloseAllConversations(w http.ResponseWriter, r *http.Request) {
	if err := s.store.CloseAllConversations(clientFromPath(r)); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "close conversations: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"status": "ok"}, s.logger)
}

func (s *Server) handleGetClientConversations(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20)
	key := r.URL.Query().Get("pagination_key")
	convs, next, err := s.store.GetClientConversations(clientFromPath(r), limit, key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "list conversations: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"conversations": convs, "pagination_key": next}, s.logger)
}

func (s *Server) handleGetClientMessages(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 50)
	key := r.URL.Query().Get("pagination_key")
	messages, next, err := s.store.GetClientMessages(clientFromPath(r), limit, key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "list messages: "+err.Error())
		return
	}
	dtos := make([]messageDTO, len(messages))
	for i, m := range messages {
		dtos[i] = toMessageDTO(*m)
	}
	writeJSON(w, map[string]any{"messages": dtos, "pagination_key": next}, s.logger)
}

func (s *Server) handleGetMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.store.GetMemories(clientFromPath(r))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "get memories: "+err.Error())
		return
	}
	type memoryDTO struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	out := make([]memoryDTO, len(memories))
	for i, m := range memories {
		payload, err := primitive.MarshalJSON(m.Value)
		if err != nil {
			payload = []byte("null")
		}
		out[i] = memoryDTO{Key: m.Key, Value: payload}
	}
	writeJSON(w, map[string]any{"memories": out}, s.logger)
}

type createMemoryRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (s *Server) handleCreateMemories(w http.ResponseWriter, r *http.Request) {
	var reqs []createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid memories body")
		return
	}
	client := clientFromPath(r)
	memories := make([]storage.Memory, len(reqs))
	for i, m := range reqs {
		v, err := primitive.UnmarshalJSON(m.Value)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "invalid memory value: "+err.Error())
			return
		}
		memories[i] = storage.Memory{Client: client, Key: m.Key, Value: v}
	}
	if err := s.store.AddMemories(client, memories, nil); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "add memories: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"status": "ok"}, s.logger)
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMemory(clientFromPath(r), r.PathValue("key")); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete memory: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteMemories(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMemories(clientFromPath(r)); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete memories: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteClient(clientFromPath(r)); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete client: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- maintenance ---------------------------------------------------------

func (s *Server) handleDeleteExpired(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteExpired()
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "delete expired: "+err.Error())
		return
	}
	writeJSON(w, map[string]any{"deleted": n}, s.logger)
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
