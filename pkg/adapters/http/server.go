package http

import (
	"context"
	"crypto/subtle"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/compiler"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/observability"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Engine is the part of the lattice engine the API reads definitions from.
type Engine interface {
	Definitions() ([]domain.GroupDefinition, error)
	Definition(name string) (domain.GroupDefinition, error)
	Chart(name string) (*compiler.Chart, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves groups, sessions and the site-level resources over HTTP.
type Server struct {
	Engine   Engine
	Sessions *session.Manager

	texts         ports.TextStore
	notifications ports.NotificationQuery
	broker        *observability.Broker
	metrics       http.Handler
	adminToken    string
	logger        *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithTextStore enables /llms.txt and its admin endpoint.
func WithTextStore(store ports.TextStore) Option {
	return func(s *Server) {
		s.texts = store
	}
}

// WithNotifications enables the admin notification endpoints.
func WithNotifications(q ports.NotificationQuery) Option {
	return func(s *Server) {
		s.notifications = q
	}
}

// WithBroker enables the dispatch event stream on /events.
func WithBroker(b *observability.Broker) Option {
	return func(s *Server) {
		s.broker = b
	}
}

// WithMetricsHandler mounts h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithAdminToken sets the bearer token of the /admin endpoints. Without a token
// every /admin route answers 404.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler. Requests are validated against the embedded
// OpenAPI document before they reach a handler.
func NewHandler(engine Engine, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s := &Server{
		Engine:   engine,
		Sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	validate, err := newValidator(openAPISpec)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)
	r.Use(s.adminOnly)
	r.Use(validate)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openAPISpec)
	})
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Get("/groups", s.ListGroups)
	r.Get("/groups/{group}", s.GetGroup)
	r.Get("/groups/{group}/graph", s.GetGroupGraph)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.CreateSession)
		r.Get("/{id}", s.GetSession)
		r.Delete("/{id}", s.DeleteSession)
		r.Post("/{id}/dispatch", s.Dispatch)
		r.Post("/{id}/reset", s.ResetSession)
	})

	r.Get("/events", s.SubscribeEvents)

	if s.texts != nil {
		r.Get("/llms.txt", s.GetLLMsText)
		r.Get("/admin/customize/llms.json", s.GetLLMsConfig)
		r.Put("/admin/customize/llms.json", s.PutLLMsConfig)
		r.Delete("/admin/customize/llms.json", s.DeleteLLMsConfig)
	}
	if s.notifications != nil {
		r.Get("/admin/notifications", s.ListNotifications)
		r.Get("/admin/notifications/counts", s.CountNotifications)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly hides /admin routes from anyone without the admin token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/admin/") && !s.isAdmin(r) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) isAdmin(r *http.Request) bool {
	if s.adminToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "lattice-http",
		"version": strings.TrimSpace(lattice.Version),
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusOf maps engine errors to HTTP status codes.
func statusOf(err error) int {
	var (
		unknownKind *domain.UnknownKindError
		invalidCtx  *domain.ContextValidationError
		tooLong     *domain.TextTooLongError
		invalidVec  *domain.InvalidVectorError
	)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrTextNotSet):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrEmptyKind),
		errors.As(err, &unknownKind),
		errors.As(err, &invalidCtx),
		errors.As(err, &tooLong):
		return http.StatusUnprocessableEntity
	case errors.As(err, &invalidVec):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err)
}
