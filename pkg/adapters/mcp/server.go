package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	GroupsURI = "lattice://groups"
	LLMsURI   = "lattice://llms.txt"
)

// DispatchResponse is the structured result of dispatch and reset_session.
type DispatchResponse struct {
	Changes  domain.ChangeSet `json:"changes" jsonschema_description:"Machines that changed with their prior and next paths"`
	Snapshot *domain.Snapshot `json:"snapshot" jsonschema_description:"The session after the message was applied"`
	Error    string           `json:"error,omitempty" jsonschema_description:"Set when an epsilon cycle aborted the dispatch after committing"`
}

// Engine is the part of the lattice engine the MCP server reads definitions from.
type Engine interface {
	Definitions() ([]domain.GroupDefinition, error)
	Definition(name string) (domain.GroupDefinition, error)
	Chart(name string) (*compiler.Chart, error)
}

// Server exposes groups and sessions as MCP tools and resources.
type Server struct {
	engine    Engine
	sessions  *session.Manager
	texts     ports.TextStore
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. texts may be nil.
func NewServer(engine Engine, sessions *session.Manager, texts ports.TextStore) *Server {
	s := &Server{
		engine:    engine,
		sessions:  sessions,
		texts:     texts,
		mcpServer: server.NewMCPServer("lattice-mcp", strings.TrimSpace(lattice.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
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
		slog.Info("MCP Server listening (SSE)", "address", addr)
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type groupArgs struct {
	Group   string `json:"group"`
	Session string `json:"session,omitempty"`
}

type sessionArgs struct {
	Session string `json:"session"`
}

type createArgs struct {
	Group   string `json:"group"`
	Session string `json:"session,omitempty"`
}

type dispatchArgs struct {
	Session string         `json:"session"`
	Kind    string         `json:"kind"`
	Context map[string]any `json:"context,omitempty"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_groups",
		mcp.WithDescription("List the machine groups that sessions can be created from."),
	), s.handleListGroups)

	s.mcpServer.AddTool(mcp.NewTool("describe_group",
		mcp.WithDescription("Get the full definition of a group: machines, states, transitions and guards."),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group name")),
	), mcp.NewTypedToolHandler(s.handleDescribeGroup))

	s.mcpServer.AddTool(mcp.NewTool("graph_group",
		mcp.WithDescription("Render a group as a Mermaid state diagram, optionally highlighting a session's current states."),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group name")),
		mcp.WithString("session", mcp.Description("Session whose vector is highlighted (optional)")),
	), mcp.NewTypedToolHandler(s.handleGraphGroup))

	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Start a session of a group at its initial vector."),
		mcp.WithString("group", mcp.Required(), mcp.Description("Group name")),
		mcp.WithString("session", mcp.Description("Session ID (optional, generated when omitted)")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the stored snapshot of a session."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("dispatch",
		mcp.WithDescription("Deliver a message to a session and report which machines changed."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Message kind, e.g. OPEN")),
		mcp.WithObject("context", mcp.Description("Message context, e.g. {\"skipOpening\": true}")),
		mcp.WithOutputSchema[DispatchResponse](),
	), mcp.NewStructuredToolHandler(s.handleDispatch))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Return every machine of a session to its initial state."),
		mcp.WithString("session", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[DispatchResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))
}

func (s *Server) handleListGroups(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs, err := s.engine.Definitions()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}
	var sb strings.Builder
	for _, def := range defs {
		sb.WriteString(def.Name)
		if def.Description != "" {
			sb.WriteString(": " + def.Description)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleDescribeGroup(ctx context.Context, request mcp.CallToolRequest, args groupArgs) (*mcp.CallToolResult, error) {
	def, err := s.engine.Definition(args.Group)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, _ := json.MarshalIndent(def, "", "  ")
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGraphGroup(ctx context.Context, request mcp.CallToolRequest, args groupArgs) (*mcp.CallToolResult, error) {
	chart, err := s.engine.Chart(args.Group)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var overlay *graph.GraphOverlay
	if args.Session != "" {
		snap, err := s.sessions.Load(ctx, args.Session)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		overlay = &graph.GraphOverlay{Vector: snap.Vector}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(chart, overlay)), nil
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest, args createArgs) (domain.Snapshot, error) {
	snap, err := s.sessions.Create(ctx, args.Group, args.Session)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return *snap, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (domain.Snapshot, error) {
	snap, err := s.sessions.Load(ctx, args.Session)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return *snap, nil
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args dispatchArgs) (DispatchResponse, error) {
	cs, snap, err := s.sessions.Dispatch(ctx, args.Session, domain.Message{Kind: args.Kind, Context: args.Context})
	return respond(cs, snap, err)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (DispatchResponse, error) {
	cs, snap, err := s.sessions.Reset(ctx, args.Session)
	return respond(cs, snap, err)
}

func respond(cs domain.ChangeSet, snap *domain.Snapshot, err error) (DispatchResponse, error) {
	var cycle *domain.EpsilonCycleError
	if errors.As(err, &cycle) {
		slog.Warn("MCP Dispatch: epsilon cycle", "error", err)
		return DispatchResponse{Changes: cs, Snapshot: snap, Error: err.Error()}, nil
	}
	if err != nil {
		return DispatchResponse{}, err
	}
	return DispatchResponse{Changes: cs, Snapshot: snap}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GroupsURI, "Group Definitions",
		mcp.WithMIMEType("application/json"),
	), s.readGroups)

	if s.texts != nil {
		s.mcpServer.AddResource(mcp.NewResource(LLMsURI, "Site llms.txt",
			mcp.WithMIMEType("text/plain"),
		), s.readLLMs)
	}
}

func (s *Server) readGroups(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	defs, err := s.engine.Definitions()
	if err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	jsonBytes, _ := json.Marshal(defs)
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GroupsURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (s *Server) readLLMs(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	content, err := s.texts.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrTextNotSet) {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LLMsURI,
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}
