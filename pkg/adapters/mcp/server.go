// Package mcp exposes the turn engine as a Model Context Protocol server, so
// an agent can drive conversations through tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/internal/presentation/graph"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName = "turnstile-mcp"

	// DefaultChannelID is used when a tool call does not name its channel.
	DefaultChannelID = "mcp"

	// Resource URIs.
	DialogsURI = "turnstile://dialogs"
	GraphURI   = "turnstile://graph"
)

// Engine defines what the MCP server needs from the turn engine.
type Engine interface {
	ports.TurnEngine
	Dialogs() ports.DialogSource
	RootDialog() string
}

// ConversationInput addresses a conversation.
type ConversationInput struct {
	ChannelID      string `json:"channel_id,omitempty" jsonschema_description:"Channel of the conversation (defaults to mcp)"`
	ConversationID string `json:"conversation_id" jsonschema:"required" jsonschema_description:"Conversation id"`
	UserID         string `json:"user_id" jsonschema:"required" jsonschema_description:"User id"`
}

func (c ConversationInput) identity() domain.Identity {
	channel := c.ChannelID
	if channel == "" {
		channel = DefaultChannelID
	}
	return domain.Identity{ChannelID: channel, ConversationID: c.ConversationID, UserID: c.UserID}
}

// SendActivityInput is the input of the send_activity tool.
type SendActivityInput struct {
	ConversationInput
	Type string `json:"type,omitempty" jsonschema_description:"Activity type: message (default) or membersAdded"`
	Text string `json:"text,omitempty" jsonschema_description:"Message text"`
}

// SendActivityResult is the output of the send_activity tool.
type SendActivityResult struct {
	Replies []domain.Reply `json:"replies" jsonschema_description:"Replies produced by the turn, in order"`
}

// StackResult is the output of the inspect_stack tool.
type StackResult struct {
	Identity domain.Identity     `json:"identity"`
	Stack    *domain.DialogStack `json:"stack,omitempty"`
	Found    bool                `json:"found"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer(serverName, strings.TrimSpace(turnstile.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// ServeSSE starts the server on the given port using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_activity",
		mcp.WithDescription("Send one activity to a conversation and return the bot replies of that turn."),
		mcp.WithInputSchema[SendActivityInput](),
		mcp.WithOutputSchema[SendActivityResult](),
	), s.handleSendActivity)

	s.mcpServer.AddTool(mcp.NewTool("reset_conversation",
		mcp.WithDescription("Discard the dialog stack of a conversation."),
		mcp.WithInputSchema[ConversationInput](),
	), s.handleReset)

	s.mcpServer.AddTool(mcp.NewTool("inspect_stack",
		mcp.WithDescription("Return the persisted dialog stack of a conversation."),
		mcp.WithInputSchema[ConversationInput](),
		mcp.WithOutputSchema[StackResult](),
	), s.handleInspect)
}

func (s *Server) handleSendActivity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SendActivityInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid send_activity arguments", err), nil
	}

	id := input.identity()
	var act domain.Activity
	switch domain.ActivityKind(input.Type) {
	case "", domain.ActivityMessage:
		act = domain.NewMessage(input.Text)
	case domain.ActivityMembersAdded:
		act = domain.NewMembersAdded(domain.Account{ID: input.UserID})
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unsupported activity type %q", input.Type)), nil
	}
	act.From = domain.Account{ID: input.UserID}

	act, err := runner.SanitizeActivity(act)
	if err != nil {
		s.logger.Warn("MCP send_activity: input rejected", "err", err, "size", len(input.Text))
		return mcp.NewToolResultErrorFromErr("input rejected", err), nil
	}

	replies, err := s.engine.ProcessTurn(ctx, id, act)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("turn failed", err), nil
	}
	if replies == nil {
		replies = []domain.Reply{}
	}
	return mcp.NewToolResultStructuredOnly(SendActivityResult{Replies: replies}), nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ConversationInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid reset_conversation arguments", err), nil
	}
	id := input.identity()
	if err := id.Validate(); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid conversation", err), nil
	}
	if err := s.engine.Reset(ctx, id); err != nil {
		return mcp.NewToolResultErrorFromErr("reset failed", err), nil
	}
	return mcp.NewToolResultText("conversation reset"), nil
}

func (s *Server) handleInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ConversationInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid inspect_stack arguments", err), nil
	}
	id := input.identity()
	stack, err := s.engine.Inspect(ctx, id)
	switch {
	case err == nil:
		return mcp.NewToolResultStructuredOnly(StackResult{Identity: id, Stack: stack, Found: true}), nil
	case errors.Is(err, domain.ErrStackNotFound):
		return mcp.NewToolResultStructuredOnly(StackResult{Identity: id}), nil
	default:
		return mcp.NewToolResultErrorFromErr("inspect failed", err), nil
	}
}

// dialogSummary is one entry of the dialogs resource.
type dialogSummary struct {
	ID      string   `json:"id"`
	Steps   []string `json:"steps"`
	Prompts []string `json:"prompts,omitempty"`
	Root    bool     `json:"root,omitempty"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DialogsURI, "Registered dialogs",
		mcp.WithMIMEType("application/json"),
	), s.readDialogs)

	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Dialog graph (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), s.readGraph)
}

func (s *Server) readDialogs(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root := s.engine.RootDialog()
	var out []dialogSummary
	for _, d := range s.engine.Dialogs().Dialogs() {
		sum := dialogSummary{ID: d.ID, Root: d.ID == root}
		for _, st := range d.Steps {
			sum.Steps = append(sum.Steps, st.Name)
		}
		for id := range d.Prompts {
			sum.Prompts = append(sum.Prompts, id)
		}
		sort.Strings(sum.Prompts)
		out = append(out, sum)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dialogs: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: DialogsURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text := graph.GenerateMermaid(s.engine.Dialogs().Dialogs(), s.engine.RootDialog(), nil)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: GraphURI, MIMEType: "text/plain", Text: text},
	}, nil
}
