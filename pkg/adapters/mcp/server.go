package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// graphURI names the graph resource.
const graphURI = "lattice://graph"

// Engine defines the editor operations exposed as MCP tools.
type Engine interface {
	AddLayer(ctx context.Context, id, layerType string, x, y float64) (string, error)
	MoveVertex(ctx context.Context, id string, x, y float64) error
	CloneVertex(ctx context.Context, newID, sourceID string, x, y float64) (string, error)
	DeleteVertices(ctx context.Context, ids []string) error
	CreateEdge(ctx context.Context, id, source, sourcePort, target, targetPort string) (string, error)
	DeleteEdge(ctx context.Context, id string) error
	SetLayerFields(ctx context.Context, vertexID string, fields map[string]string) error
	RemoteCompute(ctx context.Context, vertexID string) error
	ValidateEdge(source, sourcePort, target, targetPort string) lattice.EdgeValidity
	ListLayers() []lattice.LayerInfo
	View() lattice.View
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	SaveFile(ctx context.Context, name string) error
	OpenFile(ctx context.Context, name string) error
	SavedFileNames(ctx context.Context) ([]string, error)
}

// EdgeArgs are the arguments of the edge tools.
type EdgeArgs struct {
	ID         string `json:"id,omitempty"`
	Source     string `json:"source"`
	SourcePort string `json:"source_port"`
	Target     string `json:"target"`
	TargetPort string `json:"target_port"`
}

// Server wraps the Lattice Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
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

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
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

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("add_layer",
		mcp.WithDescription("Add a layer of the given type as a new vertex."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Layer type, see list_layers")),
		mcp.WithString("id", mcp.Description("Vertex id (generated when omitted)")),
		mcp.WithNumber("x", mcp.Description("Horizontal position")),
		mcp.WithNumber("y", mcp.Description("Vertical position")),
	), s.handleAddLayer)

	s.mcpServer.AddTool(mcp.NewTool("move_vertex",
		mcp.WithDescription("Move a vertex."),
		mcp.WithString("id", mcp.Required()),
		mcp.WithNumber("x", mcp.Required()),
		mcp.WithNumber("y", mcp.Required()),
	), s.handleMoveVertex)

	s.mcpServer.AddTool(mcp.NewTool("clone_vertex",
		mcp.WithDescription("Copy a vertex's layer to a new vertex. Edges are not copied."),
		mcp.WithString("source_id", mcp.Required()),
		mcp.WithString("id", mcp.Description("New vertex id (generated when omitted)")),
		mcp.WithNumber("x"),
		mcp.WithNumber("y"),
	), s.handleCloneVertex)

	s.mcpServer.AddTool(mcp.NewTool("delete_vertices",
		mcp.WithDescription("Delete vertices and every edge touching them, as one undoable step."),
		mcp.WithArray("ids", mcp.Required(), mcp.WithStringItems()),
	), s.handleDeleteVertices)

	s.mcpServer.AddTool(mcp.NewTool("set_layer_fields",
		mcp.WithDescription("Write writable fields of a vertex's layer. All or nothing."),
		mcp.WithString("vertex_id", mcp.Required()),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Field id to value string")),
	), s.handleSetLayerFields)

	s.mcpServer.AddTool(mcp.NewTool("create_edge",
		mcp.WithDescription("Connect an output port to an input port."),
		mcp.WithString("source", mcp.Required()),
		mcp.WithString("source_port", mcp.Required()),
		mcp.WithString("target", mcp.Required()),
		mcp.WithString("target_port", mcp.Required()),
		mcp.WithString("id", mcp.Description("Edge id (generated when omitted)")),
	), mcp.NewTypedToolHandler(s.handleCreateEdge))

	s.mcpServer.AddTool(mcp.NewTool("validate_edge",
		mcp.WithDescription("Check whether an edge could be created, without creating it."),
		mcp.WithString("source", mcp.Required()),
		mcp.WithString("source_port", mcp.Required()),
		mcp.WithString("target", mcp.Required()),
		mcp.WithString("target_port", mcp.Required()),
		mcp.WithOutputSchema[lattice.EdgeValidity](),
	), mcp.NewStructuredToolHandler(s.handleValidateEdge))

	s.mcpServer.AddTool(mcp.NewTool("delete_edge",
		mcp.WithDescription("Delete an edge."),
		mcp.WithString("id", mcp.Required()),
	), s.handleDeleteEdge)

	s.mcpServer.AddTool(mcp.NewTool("remote_compute",
		mcp.WithDescription("Recompute a vertex's layer with the remote computer."),
		mcp.WithString("vertex_id", mcp.Required()),
	), s.handleRemoteCompute)

	s.mcpServer.AddTool(mcp.NewTool("list_layers",
		mcp.WithDescription("List the layer types and why any of them is unavailable."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.engine.ListLayers())
	})

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the graph document, edge consistency and history status."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.engine.View())
	})

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Revert the latest change."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.result(s.engine.Undo(ctx))
	})

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Re-apply the latest undone change."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return s.result(s.engine.Redo(ctx))
	})

	s.mcpServer.AddTool(mcp.NewTool("save_file",
		mcp.WithDescription("Save the graph under a name."),
		mcp.WithString("name", mcp.Required()),
	), s.handleFile(s.engine.SaveFile))

	s.mcpServer.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Replace the graph with a saved file. Undoable."),
		mcp.WithString("name", mcp.Required()),
	), s.handleFile(s.engine.OpenFile))

	s.mcpServer.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the saved files."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.engine.SavedFileNames(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list files failed: %v", err)), nil
		}
		return jsonResult(names)
	})
}

func (s *Server) handleAddLayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layerType, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.engine.AddLayer(ctx, request.GetString("id", ""), layerType, request.GetFloat("x", 0), request.GetFloat("y", 0))
	if err != nil {
		return s.result(err)
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) handleMoveVertex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.engine.MoveVertex(ctx, id, request.GetFloat("x", 0), request.GetFloat("y", 0)))
}

func (s *Server) handleCloneVertex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.engine.CloneVertex(ctx, request.GetString("id", ""), source, request.GetFloat("x", 0), request.GetFloat("y", 0))
	if err != nil {
		return s.result(err)
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) handleDeleteVertices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := request.RequireStringSlice("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.engine.DeleteVertices(ctx, ids))
}

func (s *Server) handleSetLayerFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	vertexID, err := request.RequireString("vertex_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, ok := request.GetArguments()["fields"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError(`required argument "fields" is not an object`), nil
	}
	fields := make(map[string]string, len(raw))
	for id, v := range raw {
		fields[id] = fieldString(v)
	}
	return s.result(s.engine.SetLayerFields(ctx, vertexID, fields))
}

// fieldString accepts strings as given and renders JSON numbers without exponent.
func fieldString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (s *Server) handleCreateEdge(ctx context.Context, request mcp.CallToolRequest, args EdgeArgs) (*mcp.CallToolResult, error) {
	id, err := s.engine.CreateEdge(ctx, args.ID, args.Source, args.SourcePort, args.Target, args.TargetPort)
	if err != nil {
		return s.result(err)
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) handleValidateEdge(ctx context.Context, request mcp.CallToolRequest, args EdgeArgs) (lattice.EdgeValidity, error) {
	return s.engine.ValidateEdge(args.Source, args.SourcePort, args.Target, args.TargetPort), nil
}

func (s *Server) handleDeleteEdge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.engine.DeleteEdge(ctx, id))
}

func (s *Server) handleRemoteCompute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("vertex_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(s.engine.RemoteCompute(ctx, id))
}

func (s *Server) handleFile(fn func(context.Context, string) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return s.result(fn(ctx, name))
	}
}

// result reports engine errors to the model as tool errors rather than protocol errors.
func (s *Server) result(err error) (*mcp.CallToolResult, error) {
	if err != nil {
		s.logger.Debug("MCP tool rejected", "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Document",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc := s.engine.View().Document
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
