package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/surface"
	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/internal/validator"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/history"
	"github.com/aretw0/surface/pkg/livechat"
	"github.com/aretw0/surface/pkg/node"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/aretw0/surface/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Publisher publishes a raw request from a workflow node.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) (publisher.Result, error)
}

// Executor runs a component-publishing node.
type Executor interface {
	Execute(ctx context.Context, ec node.ExecutionContext, params map[string]any) (publisher.Result, error)
}

// Ingestor delivers live-chat transcript messages.
type Ingestor interface {
	Ingest(ctx context.Context, userID, conversationID string, msg livechat.Message) (session.IngestResult, error)
}

// Conversations reads the turns of a conversation.
type Conversations interface {
	Conversation(ctx context.Context, userID, conversationID string) ([]domain.AssistantResponse, error)
}

// Server holds the handlers' dependencies. Nil dependencies leave their routes unmounted.
type Server struct {
	Publisher     Publisher
	Executor      Executor
	Ingestor      Ingestor
	Conversations Conversations
	Catalog       *catalog.Catalog

	// Sockets serves GET /ws.
	Sockets http.Handler
	// Gatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// ExecuteRequest is the body of POST /v1/nodes/{nodeId}/execute.
type ExecuteRequest struct {
	ExecutionID       string                    `json:"executionId"`
	WorkflowID        string                    `json:"workflowId"`
	WorkflowRunID     string                    `json:"workflowRunId"`
	PublishingContext *domain.PublishingContext `json:"publishingContext"`
	Params            map[string]any            `json:"params" validate:"required"`
}

// ConversationResponse is the body of GET /v1/conversations/{userId}/{conversationId}.
type ConversationResponse struct {
	UserID         string                     `json:"userId"`
	ConversationID string                     `json:"conversationId"`
	Responses      []domain.AssistantResponse `json:"responses"`
}

// IngestResponse is the body of POST /v1/livechat/{userId}/{conversationId}.
type IngestResponse struct {
	Ignored    bool   `json:"ignored,omitempty"`
	ResponseID string `json:"responseId,omitempty"`
	Published  int    `json:"published"`
}

// NewHandler creates the HTTP handler of the server.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.Gatherer == nil {
		s.Gatherer = prometheus.DefaultGatherer
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	r.Use(enableCORS(s.AllowedOrigins))

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))

	// The socket outlives any request timeout.
	if s.Sockets != nil {
		r.Handle("/ws", s.Sockets)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.RequestTimeout))

		if s.Publisher != nil {
			r.Post("/publish", s.Publish)
		}
		if s.Executor != nil {
			r.Post("/nodes/{nodeId}/execute", s.ExecuteNode)
		}
		if s.Ingestor != nil {
			r.Post("/livechat/{userId}/{conversationId}", s.IngestLiveChat)
		}
		if s.Conversations != nil {
			r.Get("/conversations/{userId}/{conversationId}", s.GetConversation)
		}
		if s.Catalog != nil {
			r.Get("/catalog", s.GetCatalog)
		}
	})
	return r
}

func enableCORS(origins []string) func(http.Handler) http.Handler {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// Publish handles POST /v1/publish.
func (s *Server) Publish(w http.ResponseWriter, r *http.Request) {
	var req domain.PublishRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		s.respondWithError(w, err)
		return
	}
	if s.Catalog != nil {
		resolved, err := s.Catalog.ResolveUpdate(req.Component)
		if err != nil {
			s.respondWithError(w, err)
			return
		}
		req.Component = resolved
	}

	res, err := s.Publisher.Publish(r.Context(), req)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	respondWithJSON(w, s.Logger, http.StatusOK, res)
}

// ExecuteNode handles POST /v1/nodes/{nodeId}/execute.
func (s *Server) ExecuteNode(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := validator.Struct(req); err != nil {
		s.respondWithError(w, err)
		return
	}

	ec := node.ExecutionContext{
		NodeID:        chi.URLParam(r, "nodeId"),
		ExecutionID:   req.ExecutionID,
		WorkflowID:    req.WorkflowID,
		WorkflowRunID: req.WorkflowRunID,
		Publishing:    req.PublishingContext,
	}
	res, err := s.Executor.Execute(r.Context(), ec, req.Params)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	respondWithJSON(w, s.Logger, http.StatusOK, res)
}

// IngestLiveChat handles POST /v1/livechat/{userId}/{conversationId}.
func (s *Server) IngestLiveChat(w http.ResponseWriter, r *http.Request) {
	var msg livechat.Message
	if !s.decode(w, r, &msg) {
		return
	}

	res, err := s.Ingestor.Ingest(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "conversationId"), msg)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	out := IngestResponse{Ignored: res.Ignored, Published: res.Published}
	if res.Response != nil {
		out.ResponseID = res.Response.ID
	}
	respondWithJSON(w, s.Logger, http.StatusOK, out)
}

// GetConversation handles GET /v1/conversations/{userId}/{conversationId}.
// Query parameters include and exclude take comma separated component types;
// order=true sorts each turn's components by the include list.
func (s *Server) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	conversationID := chi.URLParam(r, "conversationId")

	responses, err := s.Conversations.Conversation(r.Context(), userID, conversationID)
	if err != nil {
		s.respondWithError(w, err)
		return
	}

	q := r.URL.Query()
	opts := history.FilterOptions{
		Include: splitList(q.Get("include")),
		Exclude: splitList(q.Get("exclude")),
		Order:   q.Get("order") == "true",
	}
	for i := range responses {
		responses[i].Components = history.FilterComponents(responses[i].Components, opts)
	}

	respondWithJSON(w, s.Logger, http.StatusOK, ConversationResponse{
		UserID:         userID,
		ConversationID: conversationID,
		Responses:      history.Renderable(responses),
	})
}

// GetCatalog handles GET /v1/catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, s.Logger, http.StatusOK, s.Catalog.Entries())
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, s.Logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, s.Logger, http.StatusOK, map[string]string{
		"app":     "surface-http",
		"version": strings.TrimSpace(surface.Version),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.Logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		respondWithJSON(w, s.Logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
