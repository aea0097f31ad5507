package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/internal/validator"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/runner"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FlowsURI is the resource listing saved flows.
const FlowsURI = "chatflow://flows"

// FlowList is the outcome of list_flows.
type FlowList struct {
	Owners []string `json:"owners" jsonschema_description:"Owners with a saved flow"`
}

// FlowResponse describes a saved flow.
type FlowResponse struct {
	Owner    string            `json:"owner" jsonschema_description:"Owner the flow is saved under"`
	Document codec.Document    `json:"document" jsonschema_description:"Snapshot document of the flow"`
	Mermaid  string            `json:"mermaid" jsonschema_description:"Mermaid diagram of the flow"`
	Issues   []validator.Issue `json:"issues" jsonschema_description:"Errors and warnings found in the flow"`
}

// ValidationResponse is the outcome of validate_flow.
type ValidationResponse struct {
	Valid  bool              `json:"valid" jsonschema_description:"False when the flow has error-level issues"`
	Issues []validator.Issue `json:"issues"`
}

// PreviewResponse is the state of a preview after a tool call.
type PreviewResponse struct {
	ID         string           `json:"id" jsonschema_description:"Preview id to pass to reply_preview"`
	Status     domain.RunStatus `json:"status" jsonschema_description:"idle, suspended or terminal"`
	Current    string           `json:"current,omitempty"`
	Transcript []domain.Event   `json:"transcript"`
	Error      string           `json:"error,omitempty"`
}

// Server exposes flows and previews as MCP tools.
type Server struct {
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:  sessions,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		mcpServer: server.NewMCPServer("chatflow-mcp", strings.TrimSpace(chatflow.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
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

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_flows",
		mcp.WithDescription("List the owners of every saved flow."),
		mcp.WithOutputSchema[FlowList](),
	), mcp.NewStructuredToolHandler(s.handleListFlows))

	s.mcpServer.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Get a saved flow with its Mermaid diagram and validation issues."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner the flow is saved under")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleGetFlow))

	s.mcpServer.AddTool(mcp.NewTool("save_flow",
		mcp.WithDescription("Save a flow snapshot document, replacing the previous one."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner to save the flow under")),
		mcp.WithString("document", mcp.Required(), mcp.Description("Snapshot document as a JSON object string")),
		mcp.WithOutputSchema[FlowResponse](),
	), mcp.NewStructuredToolHandler(s.handleSaveFlow))

	s.mcpServer.AddTool(mcp.NewTool("validate_flow",
		mcp.WithDescription("Check a saved flow for missing start steps, dangling connections, unreachable steps and silent cycles."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner the flow is saved under")),
		mcp.WithOutputSchema[ValidationResponse](),
	), mcp.NewStructuredToolHandler(s.handleValidateFlow))

	s.mcpServer.AddTool(mcp.NewTool("start_preview",
		mcp.WithDescription("Start a conversation preview of a saved flow. Returns the transcript up to the first question."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Owner the flow is saved under")),
		mcp.WithOutputSchema[PreviewResponse](),
	), mcp.NewStructuredToolHandler(s.handleStartPreview))

	s.mcpServer.AddTool(mcp.NewTool("reply_preview",
		mcp.WithDescription("Answer the question a preview is waiting on."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Preview id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User reply")),
		mcp.WithOutputSchema[PreviewResponse](),
	), mcp.NewStructuredToolHandler(s.handleReplyPreview))

	s.mcpServer.AddTool(mcp.NewTool("reset_preview",
		mcp.WithDescription("Restart a preview from the start step."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Preview id")),
		mcp.WithOutputSchema[PreviewResponse](),
	), mcp.NewStructuredToolHandler(s.handleResetPreview))

	s.mcpServer.AddTool(mcp.NewTool("close_preview",
		mcp.WithDescription("Discard a preview."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Preview id")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := request.GetArguments()["id"].(string)
		if err := s.sessions.ClosePreview(id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("closed " + id), nil
	})
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FlowList, error) {
	owners, err := s.sessions.List(ctx)
	if err != nil {
		return FlowList{}, fmt.Errorf("list failed: %w", err)
	}
	if owners == nil {
		owners = []string{}
	}
	return FlowList{Owners: owners}, nil
}

func (s *Server) handleGetFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FlowResponse, error) {
	owner, _ := args["owner"].(string)
	g, err := s.sessions.Load(ctx, owner)
	if err != nil {
		return FlowResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return describe(owner, g), nil
}

func (s *Server) handleSaveFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (FlowResponse, error) {
	owner, _ := args["owner"].(string)
	raw, _ := args["document"].(string)

	g, err := codec.Unmarshal([]byte(raw))
	if err != nil {
		return FlowResponse{}, err
	}
	if err := s.sessions.Save(ctx, owner, codec.Encode(g)); err != nil {
		return FlowResponse{}, fmt.Errorf("save failed: %w", err)
	}
	s.logger.Info("MCP save_flow", "owner", owner, "nodes", len(g.Nodes))
	return describe(owner, g), nil
}

func (s *Server) handleValidateFlow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	owner, _ := args["owner"].(string)
	g, err := s.sessions.Load(ctx, owner)
	if err != nil {
		return ValidationResponse{}, fmt.Errorf("load failed: %w", err)
	}
	report := validator.ValidateGraph(g)
	return ValidationResponse{Valid: report.Err() == nil, Issues: issues(report)}, nil
}

func (s *Server) handleStartPreview(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PreviewResponse, error) {
	owner, _ := args["owner"].(string)
	g, err := s.sessions.Load(ctx, owner)
	if err != nil {
		return PreviewResponse{}, fmt.Errorf("load failed: %w", err)
	}
	return view(s.sessions.StartPreview(ctx, g))
}

func (s *Server) handleReplyPreview(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PreviewResponse, error) {
	id, _ := args["id"].(string)
	text, _ := args["text"].(string)

	clean, err := runner.SanitizeInput(text)
	if err != nil {
		s.logger.Warn("MCP reply_preview: input rejected", "err", err, "size", len(text))
		return PreviewResponse{}, fmt.Errorf("input rejected: %w", err)
	}
	return view(s.sessions.Reply(ctx, id, clean))
}

func (s *Server) handleResetPreview(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (PreviewResponse, error) {
	id, _ := args["id"].(string)
	return view(s.sessions.Reset(ctx, id))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FlowsURI, "Saved flows",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		owners, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list flows: %w", err)
		}
		jsonBytes, _ := json.Marshal(owners)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FlowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func describe(owner string, g domain.Graph) FlowResponse {
	return FlowResponse{
		Owner:    owner,
		Document: codec.Encode(g),
		Mermaid:  graph.GenerateMermaid(g, nil),
		Issues:   issues(validator.ValidateGraph(g)),
	}
}

func issues(r validator.Report) []validator.Issue {
	if r.Issues == nil {
		return []validator.Issue{}
	}
	return r.Issues
}

// view reports a runaway flow as part of the preview rather than as a failed call.
func view(p *chatflow.Preview, err error) (PreviewResponse, error) {
	if err != nil && (p == nil || !errors.Is(err, domain.ErrRunawayFlow)) {
		return PreviewResponse{}, err
	}
	resp := PreviewResponse{
		ID:         p.ID(),
		Status:     p.Status(),
		Current:    p.Current(),
		Transcript: p.Transcript(),
	}
	if resp.Transcript == nil {
		resp.Transcript = []domain.Event{}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}
