// Package generation turns a completed selection into a question-generation
// request and submits it.
package generation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// IncompleteSelectionError blocks submission until every part of the
// selection is filled in.
type IncompleteSelectionError struct {
	Missing []string
}

func (e *IncompleteSelectionError) Error() string {
	return "incomplete selection: missing " + strings.Join(e.Missing, ", ")
}

// BuildRequest assembles the generation request for sel. It fails only with
// *IncompleteSelectionError. An empty name falls back to the chapter name.
func BuildRequest(name string, sel compose.Selection, mode QuantityMode) (quiz.GenerationRequest, error) {
	var missing []string
	if sel.Grade == nil {
		missing = append(missing, "grade")
	}
	if sel.Subject == nil {
		missing = append(missing, "subject")
	}
	if sel.Chapter == nil {
		missing = append(missing, "chapter")
	}
	if len(sel.Outcomes) == 0 {
		missing = append(missing, "learning outcomes")
	}
	if !mode.IsSet() {
		missing = append(missing, "question quantity")
	}
	if len(missing) > 0 {
		return quiz.GenerationRequest{}, &IncompleteSelectionError{Missing: missing}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = sel.Chapter.Name
	}

	return quiz.GenerationRequest{
		QuizName:      name,
		Grade:         sel.Grade.Name,
		Subject:       sel.Subject.Name,
		Chapter:       sel.Chapter.Name,
		QuestionCount: mode.QuestionCount(len(sel.Outcomes)),
		Outcomes:      slices.Clone(sel.Outcomes),
	}, nil
}

// Preview returns the question count the current selection would request,
// or 0 when no mode is chosen.
func Preview(sel compose.Selection, mode QuantityMode) int {
	if !mode.IsSet() {
		return 0
	}
	return mode.QuestionCount(len(sel.Outcomes))
}

func describe(req quiz.GenerationRequest) string {
	return fmt.Sprintf("%s / %s / %s", req.Grade, req.Subject, req.Chapter)
}
