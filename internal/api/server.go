// Package api exposes the quiz workflow over JSON HTTP and streams compose
// notices over a websocket. Every route except login requires a bearer token.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/generation"
	"github.com/p-n-ai/pai-quiz/internal/library"
	"github.com/p-n-ai/pai-quiz/internal/session"
	"github.com/p-n-ai/pai-quiz/internal/workflow"
)

// Config holds dependencies for the API server.
type Config struct {
	Sessions     *session.Manager
	Source       curriculum.Source
	Generator    generation.Generator
	Library      library.Store
	Events       library.EventLogger
	FetchTimeout time.Duration
}

// Server routes API requests to per-session workflows.
type Server struct {
	cfg Config
	hub *Hub

	mu         sync.Mutex
	workspaces map[string]*workspace // keyed by session token
}

// workspace is the server-side state of one logged-in session.
type workspace struct {
	id      string
	session session.Session
	wf      *workflow.Workflow
}

// New creates an API server.
func New(cfg Config) *Server {
	if cfg.Events == nil {
		cfg.Events = library.NopEventLogger{}
	}
	return &Server{
		cfg:        cfg,
		hub:        NewHub(),
		workspaces: make(map[string]*workspace),
	}
}

// Register mounts the API routes on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET /api/v1/state", s.authed(s.handleState))

	mux.HandleFunc("POST /api/v1/compose", s.authed(s.handleStartCompose))
	mux.HandleFunc("POST /api/v1/compose/outcome", s.authed(s.handleToggleOutcome))
	mux.HandleFunc("POST /api/v1/compose/generate", s.authed(s.handleGenerate))
	mux.HandleFunc("POST /api/v1/compose/{level}", s.authed(s.handleSelect))

	mux.HandleFunc("POST /api/v1/review/back", s.authed(s.handleBackToCompose))
	mux.HandleFunc("POST /api/v1/review/edit", s.authed(s.handleRequestEdit))
	mux.HandleFunc("PUT /api/v1/quiz", s.authed(s.handleReplaceQuiz))
	mux.HandleFunc("POST /api/v1/dashboard", s.authed(s.handleDashboard))

	mux.HandleFunc("GET /api/v1/quiz/teacher", s.authed(s.handleTeacherView))
	mux.HandleFunc("GET /api/v1/quiz/student", s.authed(s.handleStudentView))
	mux.HandleFunc("GET /api/v1/quiz/export", s.authed(s.handleExport))

	mux.HandleFunc("POST /api/v1/library", s.authed(s.handleSave))
	mux.HandleFunc("GET /api/v1/library", s.authed(s.handleListSaved))
	mux.HandleFunc("GET /api/v1/library/{id}", s.authed(s.handleGetSaved))

	mux.HandleFunc("GET /api/v1/events", s.authed(s.handleEvents))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, ws *workspace)

// authed restores the session from the bearer token (or the token query
// parameter, for websocket clients) and attaches its workspace.
func (s *Server) authed(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		sess, err := s.cfg.Sessions.Restore(r.Context(), token)
		if err != nil {
			if token != "" {
				s.dropWorkspace(token)
			}
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r, s.workspaceFor(*sess))
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

func (s *Server) workspaceFor(sess session.Session) *workspace {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ws, ok := s.workspaces[sess.Token]; ok {
		return ws
	}

	token := sess.Token
	ws := &workspace{id: uuid.NewString(), session: sess}
	ws.wf = workflow.New(workflow.Config{
		Source:        s.cfg.Source,
		Generator:     s.cfg.Generator,
		Authenticated: func() bool { return s.active(token) },
		FetchTimeout:  s.cfg.FetchTimeout,
		Events:        s.cfg.Events,
		SessionID:     ws.id,
		UserID:        sess.OwnerID(),
		Notify: func(ev compose.Event) {
			s.hub.Publish(token, Message{Type: MessageCompose, Compose: &ev})
		},
	})
	s.workspaces[token] = ws
	slog.Debug("workspace created", "workspace_id", ws.id, "user", sess.OwnerID())
	return ws
}

func (s *Server) active(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workspaces[token]
	return ok
}

func (s *Server) dropWorkspace(token string) {
	s.mu.Lock()
	ws, ok := s.workspaces[token]
	delete(s.workspaces, token)
	s.mu.Unlock()

	if ok {
		ws.wf.Close()
		s.hub.CloseTopic(token)
	}
}

// Shutdown closes every workspace and websocket subscription.
func (s *Server) Shutdown(_ context.Context) {
	s.mu.Lock()
	tokens := make([]string, 0, len(s.workspaces))
	for token := range s.workspaces {
		tokens = append(tokens, token)
	}
	s.mu.Unlock()

	for _, token := range tokens {
		s.dropWorkspace(token)
	}
}
