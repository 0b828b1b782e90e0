package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/generation"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/review"
	"github.com/p-n-ai/pai-quiz/internal/session"
	"github.com/p-n-ai/pai-quiz/internal/workflow"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	User      session.User `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type modeView struct {
	Value     generation.QuantityMode `json:"value"`
	Label     string                  `json:"label"`
	Questions int                     `json:"questions"`
}

type stateResponse struct {
	workflow.Snapshot
	Pending      map[string]bool `json:"pending,omitempty"`
	Duplicates   []string        `json:"duplicates,omitempty"`
	Modes        []modeView      `json:"modes"`
	SavedQuizzes int             `json:"saved_quizzes"`
	Notice       string          `json:"notice,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := s.cfg.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, User: sess.User, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := s.cfg.Sessions.Logout(r.Context(), ws.session.Token); err != nil {
		writeFailure(w, err)
		return
	}
	s.dropWorkspace(ws.session.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request, ws *workspace) {
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

func (s *Server) handleStartCompose(w http.ResponseWriter, r *http.Request, ws *workspace) {
	fetch, err := ws.wf.StartCompose(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.publishStage(ws)
	writeJSON(w, http.StatusOK, s.state(ws, await(r, fetch)))
}

type selectRequest struct {
	ID int `json:"id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req selectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c := ws.wf.Composer()
	if c == nil {
		writeFailure(w, fmt.Errorf("%w: not composing", workflow.ErrInvalidTransition))
		return
	}

	var fetch *compose.Fetch
	var err error
	switch level := r.PathValue("level"); level {
	case curriculum.LevelGrade.String():
		fetch, err = c.SelectGrade(r.Context(), req.ID)
	case curriculum.LevelSubject.String():
		fetch, err = c.SelectSubject(r.Context(), req.ID)
	case curriculum.LevelChapter.String():
		fetch, err = c.SelectChapter(r.Context(), req.ID)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown level %q", level))
		return
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state(ws, await(r, fetch)))
}

type toggleRequest struct {
	Text     string `json:"text"`
	Included *bool  `json:"included"`
}

func (s *Server) handleToggleOutcome(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Included == nil {
		writeError(w, http.StatusBadRequest, "included is required")
		return
	}
	c := ws.wf.Composer()
	if c == nil {
		writeFailure(w, fmt.Errorf("%w: not composing", workflow.ErrInvalidTransition))
		return
	}
	if err := c.ToggleOutcome(req.Text, *req.Included); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

type generateRequest struct {
	Name string                  `json:"name"`
	Mode generation.QuantityMode `json:"mode"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := ws.wf.Generate(r.Context(), req.Name, req.Mode); err != nil {
		writeFailure(w, err)
		return
	}
	s.publishStage(ws)
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

func (s *Server) handleBackToCompose(w http.ResponseWriter, r *http.Request, ws *workspace) {
	fetch, err := ws.wf.BackToCompose(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	s.publishStage(ws)
	writeJSON(w, http.StatusOK, s.state(ws, await(r, fetch)))
}

func (s *Server) handleRequestEdit(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.wf.RequestEdit(); err != nil {
		writeFailure(w, err)
		return
	}
	s.publishStage(ws)
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

func (s *Server) handleReplaceQuiz(w http.ResponseWriter, r *http.Request, ws *workspace) {
	var q quiz.Quiz
	if !decodeJSON(w, r, &q) {
		return
	}
	if err := ws.wf.ReplaceQuiz(&q); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.wf.ReturnToDashboard(); err != nil {
		writeFailure(w, err)
		return
	}
	s.publishStage(ws)
	writeJSON(w, http.StatusOK, s.state(ws, ""))
}

func (s *Server) handleTeacherView(w http.ResponseWriter, r *http.Request, ws *workspace) {
	q := ws.wf.Quiz()
	if q == nil {
		writeFailure(w, errNoQuiz)
		return
	}
	writeJSON(w, http.StatusOK, review.TeacherView(q))
}

func (s *Server) handleStudentView(w http.ResponseWriter, r *http.Request, ws *workspace) {
	q := ws.wf.Quiz()
	if q == nil {
		writeFailure(w, errNoQuiz)
		return
	}
	writeJSON(w, http.StatusOK, review.StudentView(q))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, ws *workspace) {
	q := ws.wf.Quiz()
	if q == nil {
		writeFailure(w, errNoQuiz)
		return
	}

	var buf bytes.Buffer
	if err := review.WriteWorkbook(&buf, q); err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, fileName(q.Name)))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write export", "error", err)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, ws *workspace) {
	q := ws.wf.Quiz()
	if q == nil {
		writeFailure(w, errNoQuiz)
		return
	}
	saved, err := s.cfg.Library.Save(ws.session.OwnerID(), q)
	if err != nil {
		writeFailure(w, err)
		return
	}
	ws.wf.RecordSaved(saved.ID)
	slog.Info("quiz saved", "quiz_id", saved.ID, "owner", saved.OwnerID, "questions", len(q.Questions))
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request, ws *workspace) {
	list, err := s.cfg.Library.List(ws.session.OwnerID())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": list})
}

func (s *Server) handleGetSaved(w http.ResponseWriter, r *http.Request, ws *workspace) {
	saved, err := s.cfg.Library.Get(ws.session.OwnerID(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// await waits for fetch when the client asked for ?wait=true and returns the
// failure notice, if any. Fetch failures are notices, not request errors.
func await(r *http.Request, fetch *compose.Fetch) string {
	if fetch == nil || r.URL.Query().Get("wait") != "true" {
		return ""
	}
	if err := fetch.Wait(r.Context()); err != nil && r.Context().Err() == nil {
		return err.Error()
	}
	return ""
}

func (s *Server) state(ws *workspace, notice string) stateResponse {
	resp := stateResponse{Snapshot: ws.wf.State(), Notice: notice}

	var sel compose.Selection
	if c := ws.wf.Composer(); c != nil {
		sel = c.Selection()
		resp.Pending = make(map[string]bool, len(curriculum.Levels))
		for _, level := range curriculum.Levels {
			resp.Pending[level.String()] = c.Pending(level)
		}
		resp.Duplicates = c.Duplicates()
	}
	for _, m := range generation.Modes {
		resp.Modes = append(resp.Modes, modeView{Value: m, Label: m.Label(), Questions: generation.Preview(sel, m)})
	}

	n, err := s.cfg.Library.Count(ws.session.OwnerID())
	if err != nil {
		slog.Warn("failed to count saved quizzes", "error", err)
	}
	resp.SavedQuizzes = n
	return resp
}

func fileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSpace(name))
	if clean == "" {
		return "quiz"
	}
	return clean
}
