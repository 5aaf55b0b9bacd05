package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/turnstile"
	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/internal/presentation/graph"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/aretw0/turnstile/pkg/ports"
	"github.com/aretw0/turnstile/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultChannelID is used when an activity does not name its channel.
const DefaultChannelID = "http"

// MaxBodyBytes caps the size of a POST /api/messages body.
const MaxBodyBytes = 64 << 10

// Engine defines what the HTTP transport needs from the turn engine.
type Engine interface {
	ports.TurnEngine
	Conversations(ctx context.Context) ([]domain.Identity, error)
	Dialogs() ports.DialogSource
	RootDialog() string
}

// Server exposes the engine over HTTP.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger      *slog.Logger
	authToken   string
	corsOrigins []string
	metrics     http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithAuthToken requires "Authorization: Bearer <token>" on /api routes.
// An empty token disables authentication.
func WithAuthToken(token string) Option {
	return func(s *Server) {
		s.authToken = token
	}
}

// WithCORSOrigins sets the allowed origins. Defaults to "*".
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMetricsHandler mounts a Prometheus handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// ActivityRequest is the body of POST /api/messages.
// The identity is (channel_id, conversation.id, from.id).
type ActivityRequest struct {
	domain.Activity
	ChannelID    string       `json:"channel_id"`
	Conversation Conversation `json:"conversation"`
}

// Conversation names the conversation of an activity.
type Conversation struct {
	ID string `json:"id"`
}

// Identity returns the identity the activity belongs to.
func (a ActivityRequest) Identity() domain.Identity {
	channel := a.ChannelID
	if channel == "" {
		channel = DefaultChannelID
	}
	return domain.Identity{ChannelID: channel, ConversationID: a.Conversation.ID, UserID: a.From.ID}
}

// ActivityResponse is the body returned for a processed activity.
type ActivityResponse struct {
	Replies []domain.Reply `json:"replies"`
}

// DialogInfo summarizes a registered dialog.
type DialogInfo struct {
	ID    string   `json:"id"`
	Steps []string `json:"steps"`
	Root  bool     `json:"root,omitempty"`
}

// StackResponse is the body of the inspect route.
type StackResponse struct {
	Identity domain.Identity     `json:"identity"`
	Stack    *domain.DialogStack `json:"stack"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/messages", s.PostMessage)
		r.Get("/dialogs", s.ListDialogs)
		r.Get("/dialogs/graph", s.GetGraph)
		r.Get("/conversations", s.ListConversations)
		r.Route("/conversations/{channel}/{conversation}/{user}", func(r chi.Router) {
			r.Get("/", s.InspectConversation)
			r.Delete("/", s.ResetConversation)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.corsOrigins) > 0 {
			origin = ""
			requested := r.Header.Get("Origin")
			for _, o := range s.corsOrigins {
				if o == "*" || o == requested {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /api/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body ActivityRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			s.logger.Warn("PostMessage: request body too large", "limit", tooLarge.Limit)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "err", err)
		return
	}

	act, err := runner.SanitizeActivity(body.Activity)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		s.logger.Warn("PostMessage: input rejected", "err", err, "size", len(body.Text))
		return
	}

	id := body.Identity()
	replies, err := s.Engine.ProcessTurn(r.Context(), id, act)
	if err != nil {
		s.fail(w, "PostMessage", err)
		return
	}
	if replies == nil {
		replies = []domain.Reply{}
	}

	if len(replies) > 0 {
		if data, err := json.Marshal(replies); err == nil {
			s.Streams.Broadcast(id.Key(), string(data))
		}
	}

	writeJSON(w, http.StatusOK, ActivityResponse{Replies: replies})
}

// ListDialogs handles GET /api/dialogs.
func (s *Server) ListDialogs(w http.ResponseWriter, r *http.Request) {
	dialogs := s.Engine.Dialogs().Dialogs()
	root := s.Engine.RootDialog()

	out := make([]DialogInfo, len(dialogs))
	for i, d := range dialogs {
		steps := make([]string, len(d.Steps))
		for j, st := range d.Steps {
			steps[j] = st.Name
		}
		out[i] = DialogInfo{ID: d.ID, Steps: steps, Root: d.ID == root}
	}
	writeJSON(w, http.StatusOK, out)
}

// GetGraph handles GET /api/dialogs/graph and returns a Mermaid flowchart.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(s.Engine.Dialogs().Dialogs(), s.Engine.RootDialog(), nil)))
}

// ListConversations handles GET /api/conversations.
func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Conversations(r.Context())
	if err != nil {
		s.fail(w, "ListConversations", err)
		return
	}
	if ids == nil {
		ids = []domain.Identity{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// InspectConversation handles GET /api/conversations/{channel}/{conversation}/{user}.
func (s *Server) InspectConversation(w http.ResponseWriter, r *http.Request) {
	id := identityFromPath(r)
	stack, err := s.Engine.Inspect(r.Context(), id)
	if err != nil {
		s.fail(w, "InspectConversation", err)
		return
	}
	writeJSON(w, http.StatusOK, StackResponse{Identity: id, Stack: stack})
}

// ResetConversation handles DELETE /api/conversations/{channel}/{conversation}/{user}.
func (s *Server) ResetConversation(w http.ResponseWriter, r *http.Request) {
	id := identityFromPath(r)
	if err := id.Validate(); err != nil {
		s.fail(w, "ResetConversation", err)
		return
	}
	if err := s.Engine.Reset(r.Context(), id); err != nil {
		s.fail(w, "ResetConversation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "turnstile-http",
		"version":     strings.TrimSpace(turnstile.Version),
		"root_dialog": s.Engine.RootDialog(),
	})
}

// fail maps engine errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor returns the HTTP status for an engine error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStackNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTurnTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func identityFromPath(r *http.Request) domain.Identity {
	return domain.Identity{
		ChannelID:      chi.URLParam(r, "channel"),
		ConversationID: chi.URLParam(r, "conversation"),
		UserID:         chi.URLParam(r, "user"),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
