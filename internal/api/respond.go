package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/generation"
	"github.com/p-n-ai/pai-quiz/internal/library"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
	"github.com/p-n-ai/pai-quiz/internal/session"
	"github.com/p-n-ai/pai-quiz/internal/workflow"
)

const maxBodyBytes = 1 << 20

var errNoQuiz = errors.New("no active quiz")

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps domain errors to HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	var incomplete *generation.IncompleteSelectionError
	var genErr *generation.GenerationError

	switch {
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Missing: incomplete.Missing})
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, workflow.ErrNotAuthenticated), errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, session.ErrLoginFailed):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, workflow.ErrSuperseded),
		errors.Is(err, workflow.ErrGenerationInFlight),
		errors.Is(err, compose.ErrInvalidCascadeState),
		errors.Is(err, compose.ErrUnknownOption),
		errors.Is(err, compose.ErrClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quiz.ErrAnswerNotInOptions), errors.Is(err, generation.ErrNoQuestions):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, library.ErrNotFound), errors.Is(err, errNoQuiz):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
