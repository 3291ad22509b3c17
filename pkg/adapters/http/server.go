package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/layer"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Engine defines the editor operations served over HTTP.
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
	EdgesBetweenVertices(ids []string) []string
	ValidateLayerFields(vertexID string, fields map[string]string) (layer.Report, error)
	ListLayers() []lattice.LayerInfo
	View() lattice.View

	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	SaveFile(ctx context.Context, name string) error
	OpenFile(ctx context.Context, name string) error
	DeleteFile(ctx context.Context, name string) error
	SavedFileNames(ctx context.Context) ([]string, error)

	Subscribe() (<-chan domain.ChangeEvent, func())
}

// Server serves an Engine.
type Server struct {
	Engine  Engine
	logger  *slog.Logger
	metrics http.Handler
	compute http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithComputeHandler mounts h at POST /compute, making the server a remote
// layer computer for other editors.
func WithComputeHandler(h http.Handler) Option {
	return func(s *Server) {
		s.compute = h
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	return enableCORS(s.routes())
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/vertices", func(r chi.Router) {
		r.Post("/", s.AddLayer)
		r.Post("/delete", s.DeleteVertices)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.DeleteVertex)
			r.Post("/move", s.MoveVertex)
			r.Post("/clone", s.CloneVertex)
			r.Put("/fields", s.SetLayerFields)
			r.Post("/fields/validate", s.ValidateLayerFields)
			r.Post("/compute", s.RemoteCompute)
		})
	})
	r.Route("/edges", func(r chi.Router) {
		r.Post("/", s.CreateEdge)
		r.Post("/validate", s.ValidateEdge)
		r.Post("/between", s.EdgesBetween)
		r.Delete("/{id}", s.DeleteEdge)
	})
	r.Get("/layers", s.ListLayers)
	r.Get("/graph", s.GetGraph)
	r.Post("/undo", s.Undo)
	r.Post("/redo", s.Redo)
	r.Route("/files", func(r chi.Router) {
		r.Get("/", s.ListFiles)
		r.Put("/{name}", s.SaveFile)
		r.Post("/{name}/open", s.OpenFile)
		r.Delete("/{name}", s.DeleteFile)
	})
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.compute != nil {
		r.Method(http.MethodPost, "/compute", s.compute)
	}
	r.Get("/openapi.yaml", serveOpenAPI)
	r.Get("/swagger", serveSwagger)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type addLayerRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	position
}

type cloneRequest struct {
	ID string `json:"id"`
	position
}

type edgeRequest struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SourcePort string `json:"sourcePort"`
	Target     string `json:"target"`
	TargetPort string `json:"targetPort"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type fieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// AddLayer handles POST /vertices.
func (s *Server) AddLayer(w http.ResponseWriter, r *http.Request) {
	var body addLayerRequest
	if !s.decode(w, r, &body) {
		return
	}
	id, err := s.Engine.AddLayer(r.Context(), body.ID, body.Type, body.X, body.Y)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, idResponse{ID: id})
}

// MoveVertex handles POST /vertices/{id}/move.
func (s *Server) MoveVertex(w http.ResponseWriter, r *http.Request) {
	var body position
	if !s.decode(w, r, &body) {
		return
	}
	s.done(w, r, s.Engine.MoveVertex(r.Context(), chi.URLParam(r, "id"), body.X, body.Y))
}

// CloneVertex handles POST /vertices/{id}/clone.
func (s *Server) CloneVertex(w http.ResponseWriter, r *http.Request) {
	var body cloneRequest
	if !s.decode(w, r, &body) {
		return
	}
	id, err := s.Engine.CloneVertex(r.Context(), body.ID, chi.URLParam(r, "id"), body.X, body.Y)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, idResponse{ID: id})
}

// DeleteVertex handles DELETE /vertices/{id}.
func (s *Server) DeleteVertex(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.DeleteVertices(r.Context(), []string{chi.URLParam(r, "id")}))
}

// DeleteVertices handles POST /vertices/delete.
func (s *Server) DeleteVertices(w http.ResponseWriter, r *http.Request) {
	var body idsRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.done(w, r, s.Engine.DeleteVertices(r.Context(), body.IDs))
}

// SetLayerFields handles PUT /vertices/{id}/fields.
func (s *Server) SetLayerFields(w http.ResponseWriter, r *http.Request) {
	var body fieldsRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.done(w, r, s.Engine.SetLayerFields(r.Context(), chi.URLParam(r, "id"), body.Fields))
}

// ValidateLayerFields handles POST /vertices/{id}/fields/validate.
func (s *Server) ValidateLayerFields(w http.ResponseWriter, r *http.Request) {
	var body fieldsRequest
	if !s.decode(w, r, &body) {
		return
	}
	report, err := s.Engine.ValidateLayerFields(chi.URLParam(r, "id"), body.Fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, report)
}

// RemoteCompute handles POST /vertices/{id}/compute.
func (s *Server) RemoteCompute(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.RemoteCompute(r.Context(), chi.URLParam(r, "id")))
}

// CreateEdge handles POST /edges.
func (s *Server) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var body edgeRequest
	if !s.decode(w, r, &body) {
		return
	}
	id, err := s.Engine.CreateEdge(r.Context(), body.ID, body.Source, body.SourcePort, body.Target, body.TargetPort)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, idResponse{ID: id})
}

// DeleteEdge handles DELETE /edges/{id}.
func (s *Server) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.DeleteEdge(r.Context(), chi.URLParam(r, "id")))
}

// ValidateEdge handles POST /edges/validate.
func (s *Server) ValidateEdge(w http.ResponseWriter, r *http.Request) {
	var body edgeRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.respond(w, http.StatusOK, s.Engine.ValidateEdge(body.Source, body.SourcePort, body.Target, body.TargetPort))
}

// EdgesBetween handles POST /edges/between.
func (s *Server) EdgesBetween(w http.ResponseWriter, r *http.Request) {
	var body idsRequest
	if !s.decode(w, r, &body) {
		return
	}
	edges := s.Engine.EdgesBetweenVertices(body.IDs)
	if edges == nil {
		edges = []string{}
	}
	s.respond(w, http.StatusOK, map[string][]string{"edges": edges})
}

// ListLayers handles GET /layers.
func (s *Server) ListLayers(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Engine.ListLayers())
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, s.Engine.View())
}

// Undo handles POST /undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.Undo(r.Context()))
}

// Redo handles POST /redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.Redo(r.Context()))
}

// ListFiles handles GET /files.
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.Engine.SavedFileNames(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respond(w, http.StatusOK, map[string][]string{"files": names})
}

// SaveFile handles PUT /files/{name}.
func (s *Server) SaveFile(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.SaveFile(r.Context(), chi.URLParam(r, "name")))
}

// OpenFile handles POST /files/{name}/open.
func (s *Server) OpenFile(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.OpenFile(r.Context(), chi.URLParam(r, "name")))
}

// DeleteFile handles DELETE /files/{name}.
func (s *Server) DeleteFile(w http.ResponseWriter, r *http.Request) {
	s.done(w, r, s.Engine.DeleteFile(r.Context(), chi.URLParam(r, "name")))
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"app":     "lattice-http",
		"version": strings.TrimSpace(lattice.Version),
	})
}

// SubscribeEvents handles the GET /events request (SSE).
// The optional watch parameter is a comma-separated list of change kinds.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	var watch []string
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &watch); err != nil {
		s.respond(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid format for parameter watch: %s", err)})
		return
	}
	var watchList []domain.ChangeKind
	for _, kind := range watch {
		watchList = append(watchList, domain.ChangeKind(strings.TrimSpace(kind)))
	}

	events, cancel := s.Engine.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if len(watchList) > 0 && !slices.Contains(watchList, ev.Kind) {
				continue
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: encode event", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) done(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	s.respond(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, lattice.ErrStale):
		return http.StatusConflict
	case errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrStructural),
		errors.Is(err, domain.ErrUnknownType),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, domain.ErrReadonlyField),
		errors.Is(err, domain.ErrCompute),
		errors.Is(err, lattice.ErrUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lattice.ErrNoFiles), errors.Is(err, lattice.ErrNoComputer):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
