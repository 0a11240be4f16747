package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/surface"
	"github.com/aretw0/surface/internal/logging"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
	"github.com/aretw0/surface/pkg/node"
	"github.com/aretw0/surface/pkg/publisher"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI is the resource exposing the component catalog.
const CatalogURI = "surface://catalog"

// PublishResponse is the structured result of publish_component.
type PublishResponse struct {
	Success bool   `json:"success" jsonschema_description:"True when the component reached a live connection"`
	Channel string `json:"channel,omitempty" jsonschema_description:"Connection key the message was sent to"`
}

// Executor runs component-publishing nodes.
type Executor interface {
	Execute(ctx context.Context, ec node.ExecutionContext, params map[string]any) (publisher.Result, error)
}

// Conversations reads the turns of a conversation.
type Conversations interface {
	Conversation(ctx context.Context, userID, conversationID string) ([]domain.AssistantResponse, error)
}

// Server exposes publishing and the catalog to agents over MCP.
type Server struct {
	executor      Executor
	catalog       *catalog.Catalog
	conversations Conversations
	logger        *slog.Logger
	mcpServer     *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithConversations enables the get_conversation tool.
func WithConversations(c Conversations) Option {
	return func(s *Server) {
		s.conversations = c
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(executor Executor, cat *catalog.Catalog, opts ...Option) *Server {
	s := &Server{
		executor:  executor,
		catalog:   cat,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("surface-mcp", strings.TrimSpace(surface.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, mostly for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	// TOOL: publish_component
	publishTool := mcp.NewTool("publish_component",
		mcp.WithDescription("Publish a component to a user's conversation. The first publish to a (chat_id, node_id) slot mounts it; later publishes update it."),
		mcp.WithString("component_type", mcp.Required(), mcp.Description("Catalog type of the component, e.g. text or list-picker")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Workflow node that owns the slot")),
		mcp.WithString("chat_id", mcp.Required(), mcp.Description("Chat (turn) id the slot belongs to")),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("props", mcp.Description("JSON object of component props")),
		mcp.WithString("component_url", mcp.Description("Explicit component bundle URL for types missing from the catalog")),
		mcp.WithString("target_trigger_node", mcp.Description("Node that receives user input while the component is focused")),
		mcp.WithOutputSchema[PublishResponse](),
	)
	s.mcpServer.AddTool(publishTool, mcp.NewStructuredToolHandler(s.handlePublish))

	// TOOL: list_component_types
	s.mcpServer.AddTool(mcp.NewTool("list_component_types",
		mcp.WithDescription("List the component types known to the catalog."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(strings.Join(s.catalog.Types(), "\n")), nil
	})

	if s.conversations == nil {
		return
	}

	// TOOL: get_conversation
	s.mcpServer.AddTool(mcp.NewTool("get_conversation",
		mcp.WithDescription("Get the assistant turns of a conversation with their components."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("conversation_id", mcp.Required(), mcp.Description("Conversation id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		userID, _ := args["user_id"].(string)
		conversationID, _ := args["conversation_id"].(string)

		turns, err := s.conversations.Conversation(ctx, userID, conversationID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("conversation lookup failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(turns)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handlePublish(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PublishResponse, error) {
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}

	props := map[string]any{}
	if raw := str("props"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &props); err != nil {
			return PublishResponse{}, fmt.Errorf("props must be a JSON object: %w", err)
		}
	}

	ec := node.ExecutionContext{
		NodeID: str("node_id"),
		Publishing: &domain.PublishingContext{
			ChatID:            str("chat_id"),
			ConversationID:    str("conversation_id"),
			UserID:            str("user_id"),
			ProviderID:        "mcp",
			TargetTriggerNode: str("target_trigger_node"),
		},
	}
	params := map[string]any{
		"componentType": str("component_type"),
		"componentUrl":  str("component_url"),
		"props":         props,
	}

	res, err := s.executor.Execute(ctx, ec, params)
	if err != nil {
		s.logger.Warn("MCP publish rejected", "node_id", ec.NodeID, "err", err)
		return PublishResponse{}, fmt.Errorf("publish failed: %w", err)
	}
	return PublishResponse{Success: res.Success, Channel: res.Channel}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: surface://catalog
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Component Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.catalog.Entries())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
