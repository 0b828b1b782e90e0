// Package workflow drives one user's Dashboard → Compose → Review → Edit
// journey. Each workflow owns at most one selection and one quiz.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/generation"
	"github.com/p-n-ai/pai-quiz/internal/library"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

var (
	// ErrInvalidTransition is returned for any action the current stage does not allow.
	ErrInvalidTransition = errors.New("invalid workflow transition")
	// ErrNotAuthenticated gates entry into Compose.
	ErrNotAuthenticated = errors.New("authenticated session required")
	// ErrSuperseded means the user left the compose cycle that issued a
	// generation before it finished; its result was dropped.
	ErrSuperseded = errors.New("generation superseded")
	// ErrGenerationInFlight rejects a second submission from the same compose cycle.
	ErrGenerationInFlight = errors.New("generation already in progress")
)

// Config holds dependencies for a Workflow.
type Config struct {
	Source        curriculum.Source
	Generator     generation.Generator
	Authenticated func() bool // nil means always authenticated
	FetchTimeout  time.Duration
	Events        library.EventLogger
	SessionID     string
	UserID        string
	Notify        func(compose.Event) // forwarded to every compose cycle
}

// Snapshot is a read-only view of the workflow.
type Snapshot struct {
	Stage      Stage              `json:"stage"`
	Cycle      uint64             `json:"cycle"`
	Generating bool               `json:"generating"`
	Selection  *compose.Selection `json:"selection,omitempty"`
	Options    *compose.Options   `json:"options,omitempty"`
	Quiz       *quiz.Quiz         `json:"quiz,omitempty"`
}

// Workflow is the per-session view-state machine.
type Workflow struct {
	cfg       Config
	requestor *generation.Requestor
	events    library.EventLogger

	mu         sync.Mutex
	stage      Stage
	cycle      uint64
	composer   *compose.Controller
	generating bool
	quiz       *quiz.Quiz
}

// New creates a workflow on the Dashboard.
func New(cfg Config) *Workflow {
	events := cfg.Events
	if events == nil {
		events = library.NopEventLogger{}
	}
	return &Workflow{
		cfg:       cfg,
		requestor: generation.NewRequestor(cfg.Generator),
		events:    events,
		stage:     StageDashboard,
	}
}

// StartCompose moves Dashboard → Compose with a fresh, empty selection and
// starts loading grades.
func (w *Workflow) StartCompose(ctx context.Context) (*compose.Fetch, error) {
	return w.enterCompose(ctx, ActionStartCompose)
}

// BackToCompose discards the reviewed quiz and starts a new compose cycle.
// Earlier selections are not restored.
func (w *Workflow) BackToCompose(ctx context.Context) (*compose.Fetch, error) {
	return w.enterCompose(ctx, ActionBackToCompose)
}

func (w *Workflow) enterCompose(ctx context.Context, action Action) (*compose.Fetch, error) {
	if w.cfg.Authenticated != nil && !w.cfg.Authenticated() {
		return nil, ErrNotAuthenticated
	}

	w.mu.Lock()
	if err := w.apply(action); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.quiz = nil
	w.resetCycle()
	w.composer = compose.NewController(compose.Config{
		Source:       w.cfg.Source,
		FetchTimeout: w.cfg.FetchTimeout,
		Notify:       w.cfg.Notify,
	})
	composer, cycle := w.composer, w.cycle
	w.mu.Unlock()

	w.record(library.EventComposeStarted, map[string]any{"cycle": cycle, "via": action.String()})
	return composer.LoadGrades(ctx), nil
}

// Composer returns the active cascade controller, or nil outside Compose.
func (w *Workflow) Composer() *compose.Controller {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.composer
}

// Generate builds a request from the current selection and submits it. On
// success the workflow moves to Review with the new quiz. On failure it stays
// in Compose and the selection is untouched.
func (w *Workflow) Generate(ctx context.Context, name string, mode generation.QuantityMode) (*quiz.Quiz, error) {
	w.mu.Lock()
	if w.stage != StageCompose {
		stage := w.stage
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: generate from %s", ErrInvalidTransition, stage)
	}
	if w.generating {
		w.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	req, err := generation.BuildRequest(name, w.composer.Selection(), mode)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.generating = true
	cycle := w.cycle
	w.mu.Unlock()

	w.record(library.EventGenerationStarted, map[string]any{
		"cycle":          cycle,
		"question_count": req.QuestionCount,
		"outcomes":       len(req.Outcomes),
		"mode":           mode.String(),
	})

	q, err := w.requestor.Submit(ctx, req)

	w.mu.Lock()
	if w.cycle != cycle {
		w.mu.Unlock()
		slog.Info("dropping generation result for abandoned compose cycle", "cycle", cycle, "session_id", w.cfg.SessionID)
		w.record(library.EventGenerationDropped, map[string]any{"cycle": cycle})
		return nil, ErrSuperseded
	}
	w.generating = false
	if err != nil {
		w.mu.Unlock()
		w.record(library.EventGenerationFailed, map[string]any{"cycle": cycle, "error": err.Error()})
		return nil, err
	}
	if err := w.apply(ActionGenerationSucceeded); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	w.quiz = q
	w.closeComposer()
	w.mu.Unlock()

	w.record(library.EventGenerationSuccess, map[string]any{"cycle": cycle, "questions": len(q.Questions)})
	return q.Clone(), nil
}

// RequestEdit moves Review → Edit carrying the current quiz.
func (w *Workflow) RequestEdit() error {
	w.mu.Lock()
	err := w.apply(ActionRequestEdit)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.record(library.EventEditRequested, nil)
	return nil
}

// ReturnToDashboard discards the active quiz and selection. Any generation
// still in flight is superseded.
func (w *Workflow) ReturnToDashboard() error {
	w.mu.Lock()
	from := w.stage
	if err := w.apply(ActionReturnToDashboard); err != nil {
		w.mu.Unlock()
		return err
	}
	w.quiz = nil
	w.resetCycle()
	w.mu.Unlock()

	w.record(library.EventReturnedToDashboard, map[string]any{"from": from.String()})
	return nil
}

// ReplaceQuiz swaps in an edited quiz. It is allowed in Review and Edit only;
// the quiz is replaced as a whole, never patched.
func (w *Workflow) ReplaceQuiz(q *quiz.Quiz) error {
	if q == nil {
		return fmt.Errorf("replace quiz: nil quiz")
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("replace quiz: %w", generation.ErrNoQuestions)
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("replace quiz: %w", err)
	}

	w.mu.Lock()
	if w.stage != StageReview && w.stage != StageEdit {
		stage := w.stage
		w.mu.Unlock()
		return fmt.Errorf("%w: replace quiz in %s", ErrInvalidTransition, stage)
	}
	w.quiz = q.Clone()
	w.mu.Unlock()

	w.record(library.EventQuizReplaced, map[string]any{"questions": len(q.Questions)})
	return nil
}

// Quiz returns a copy of the active quiz, or nil.
func (w *Workflow) Quiz() *quiz.Quiz {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.quiz == nil {
		return nil
	}
	return w.quiz.Clone()
}

// Stage returns the current stage.
func (w *Workflow) Stage() Stage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stage
}

// State returns a snapshot of the workflow.
func (w *Workflow) State() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{Stage: w.stage, Cycle: w.cycle, Generating: w.generating}
	if w.composer != nil {
		sel, opts := w.composer.Selection(), w.composer.Options()
		snap.Selection, snap.Options = &sel, &opts
	}
	if w.quiz != nil {
		snap.Quiz = w.quiz.Clone()
	}
	return snap
}

// RecordSaved logs that the active quiz was stored in the library.
func (w *Workflow) RecordSaved(id string) {
	w.record(library.EventQuizSaved, map[string]any{"quiz_id": id})
}

// Close releases the active compose cycle.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetCycle()
}

// apply performs a table transition. Caller holds w.mu.
func (w *Workflow) apply(action Action) error {
	next, ok := Next(w.stage, action)
	if !ok {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, w.stage)
	}
	slog.Debug("workflow transition", "session_id", w.cfg.SessionID, "from", w.stage, "action", action, "to", next)
	w.stage = next
	return nil
}

// resetCycle ends the current compose cycle. Caller holds w.mu.
func (w *Workflow) resetCycle() {
	w.closeComposer()
	w.cycle++
	w.generating = false
}

// closeComposer discards the controller. Caller holds w.mu.
func (w *Workflow) closeComposer() {
	if w.composer != nil {
		w.composer.Close()
		w.composer = nil
	}
}

func (w *Workflow) record(eventType string, data map[string]any) {
	err := w.events.LogEvent(library.Event{
		SessionID: w.cfg.SessionID,
		UserID:    w.cfg.UserID,
		EventType: eventType,
		Data:      data,
	})
	if err != nil {
		slog.Warn("failed to record workflow event", "type", eventType, "error", err)
	}
}
