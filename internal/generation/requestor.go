package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// ErrNoQuestions is the cause when the service answers with an empty list.
var ErrNoQuestions = errors.New("no questions generated")

// Generator produces questions for a request. examprep.Client implements it.
type Generator interface {
	GenerateQuestions(ctx context.Context, req quiz.GenerationRequest) ([]quiz.Question, error)
}

// GenerationError is a retryable failure of a single submission.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate quiz: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Requestor submits generation requests.
type Requestor struct {
	gen Generator
}

// NewRequestor creates a requestor backed by gen.
func NewRequestor(gen Generator) *Requestor {
	return &Requestor{gen: gen}
}

// Submit generates a new quiz for req. Each call is a fresh generation; results
// are never cached. On failure no quiz is returned.
func (r *Requestor) Submit(ctx context.Context, req quiz.GenerationRequest) (*quiz.Quiz, error) {
	start := time.Now()
	questions, err := r.gen.GenerateQuestions(ctx, req)
	if err != nil {
		slog.Warn("quiz generation failed", "scope", describe(req), "error", err)
		return nil, &GenerationError{Cause: err}
	}
	if len(questions) == 0 {
		slog.Warn("quiz generation returned no questions", "scope", describe(req))
		return nil, &GenerationError{Cause: ErrNoQuestions}
	}

	q := &quiz.Quiz{
		Name:      req.QuizName,
		Grade:     req.Grade,
		Subject:   req.Subject,
		Chapter:   req.Chapter,
		Questions: make([]quiz.Question, len(questions)),
	}
	for i, question := range questions {
		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		q.Questions[i] = question
	}
	if err := q.Validate(); err != nil {
		slog.Warn("generated quiz rejected", "scope", describe(req), "error", err)
		return nil, &GenerationError{Cause: err}
	}

	slog.Info("quiz generated",
		"scope", describe(req),
		"requested", req.QuestionCount,
		"received", len(q.Questions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return q, nil
}
