package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/editor"
	"github.com/aretw0/chatflow/pkg/runner"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes saved flows and live previews over HTTP.
type Server struct {
	Sessions *session.Manager
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.Metrics = h
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Route("/{owner}", func(r chi.Router) {
			r.Get("/", s.GetFlow)
			r.Put("/", s.PutFlow)
			r.Delete("/", s.DeleteFlow)
			r.Get("/export", s.ExportFlow)
			r.Get("/graph", s.GetMermaid)
			r.Post("/steps", s.AddStep)
			r.Post("/connections", s.Connect)
		})
	})

	r.Route("/previews", func(r chi.Router) {
		r.Post("/", s.StartPreview)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetPreview)
			r.Delete("/", s.DeletePreview)
			r.Post("/reply", s.Reply)
			r.Post("/reset", s.Reset)
			r.Get("/transcript", s.GetTranscript)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PreviewView is the JSON shape of a preview.
type PreviewView struct {
	ID         string           `json:"id"`
	Status     domain.RunStatus `json:"status"`
	Current    string           `json:"current,omitempty"`
	Transcript []domain.Event   `json:"transcript"`
	Error      string           `json:"error,omitempty"`
}

// StartPreviewRequest names the flow to preview: a saved owner or an inline document.
type StartPreviewRequest struct {
	Owner    string          `json:"owner,omitempty"`
	Document *codec.Document `json:"document,omitempty"`
}

// ReplyRequest carries a user reply.
type ReplyRequest struct {
	Text string `json:"text"`
}

// AddStepRequest names the kind of step to add.
type AddStepRequest struct {
	Kind string `json:"kind"`
}

// ConnectRequest names the endpoints of a new connection.
type ConnectRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	owners, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if owners == nil {
		owners = []string{}
	}
	s.writeJSON(w, http.StatusOK, owners)
}

func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	g, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, codec.Encode(g))
}

func (s *Server) PutFlow(w http.ResponseWriter, r *http.Request) {
	var doc codec.Document
	if !s.decode(w, r, &doc) {
		return
	}
	if err := s.Sessions.Save(r.Context(), chi.URLParam(r, "owner"), doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "owner")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ExportFlow(w http.ResponseWriter, r *http.Request) {
	g, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		data, err = codec.Marshal(g)
		contentType = "application/json"
	case "yaml":
		data, err = codec.MarshalYAML(g)
		contentType = "application/yaml"
	default:
		http.Error(w, fmt.Sprintf("unsupported format %q", format), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", chi.URLParam(r, "owner")+"."+extension(contentType)))
	_, _ = w.Write(data)
}

func extension(contentType string) string {
	if contentType == "application/yaml" {
		return "yaml"
	}
	return "json"
}

func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph.GenerateMermaid(g, nil))
}

func (s *Server) AddStep(w http.ResponseWriter, r *http.Request) {
	var req AddStepRequest
	if !s.decode(w, r, &req) {
		return
	}
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var added domain.Node
	_, err = s.Sessions.Edit(r.Context(), chi.URLParam(r, "owner"), func(ed *editor.Editor) error {
		n, ok := ed.AddStep(kind)
		if !ok {
			return errStepRefused
		}
		added = n
		return nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, added)
}

func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}

	var conn domain.Connection
	_, err := s.Sessions.Edit(r.Context(), chi.URLParam(r, "owner"), func(ed *editor.Editor) error {
		c, err := ed.Connect(req.From, req.To)
		conn = c
		return err
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, conn)
}

func (s *Server) StartPreview(w http.ResponseWriter, r *http.Request) {
	var req StartPreviewRequest
	if !s.decode(w, r, &req) {
		return
	}

	var (
		g   domain.Graph
		err error
	)
	switch {
	case req.Document != nil:
		g, err = codec.Decode(*req.Document)
	case req.Owner != "":
		g, err = s.Sessions.Load(r.Context(), req.Owner)
	default:
		http.Error(w, "either owner or document is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.Sessions.StartPreview(r.Context(), g)
	s.writePreview(w, r, http.StatusCreated, p, err)
}

func (s *Server) GetPreview(w http.ResponseWriter, r *http.Request) {
	p, err := s.Sessions.Preview(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writePreview(w, r, http.StatusOK, p, nil)
}

func (s *Server) DeletePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.ClosePreview(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if !s.decode(w, r, &req) {
		return
	}
	text, err := runner.SanitizeInput(req.Text)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid reply: %v", err), http.StatusBadRequest)
		s.Logger.Warn("reply rejected", "err", err, "size", len(req.Text))
		return
	}

	p, err := s.Sessions.Reply(r.Context(), chi.URLParam(r, "id"), text)
	s.writePreview(w, r, http.StatusOK, p, err)
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	p, err := s.Sessions.Reset(r.Context(), chi.URLParam(r, "id"))
	s.writePreview(w, r, http.StatusOK, p, err)
}

// GetTranscript returns every appended event, or only visible ones with ?visible=true.
func (s *Server) GetTranscript(w http.ResponseWriter, r *http.Request) {
	p, err := s.Sessions.Preview(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	events := p.Transcript()
	if r.URL.Query().Get("visible") == "true" {
		events = p.Visible()
	}
	if events == nil {
		events = []domain.Event{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

// writePreview reports a preview after an operation. A runaway flow still yields the
// preview, with the error attached; any other error is written as such.
func (s *Server) writePreview(w http.ResponseWriter, r *http.Request, status int, p *chatflow.Preview, err error) {
	if err != nil && (p == nil || !errors.Is(err, domain.ErrRunawayFlow)) {
		s.writeError(w, r, err)
		return
	}
	view := PreviewView{
		ID:         p.ID(),
		Status:     p.Status(),
		Current:    p.Current(),
		Transcript: p.Transcript(),
	}
	if view.Transcript == nil {
		view.Transcript = []domain.Event{}
	}
	if err != nil {
		view.Error = err.Error()
	}
	s.writeJSON(w, status, view)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
