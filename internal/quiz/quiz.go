// Package quiz defines the generated quiz entity and the request that produces it.
package quiz

import (
	"errors"
	"fmt"
	"slices"
)

// ErrAnswerNotInOptions means a question's correct answer is not exactly one of its options.
var ErrAnswerNotInOptions = errors.New("correct answer does not match exactly one option")

// Question is a single generated question. Option order is significant.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	ELO           string   `json:"elo"`
	Taxonomy      string   `json:"taxonomy"`
}

// Validate checks that CorrectAnswer equals exactly one element of Options.
func (q Question) Validate() error {
	matches := 0
	for _, opt := range q.Options {
		if opt == q.CorrectAnswer {
			matches++
		}
	}
	if matches != 1 {
		return fmt.Errorf("question %q: %w (%d matches)", q.ID, ErrAnswerNotInOptions, matches)
	}
	return nil
}

// CorrectIndex returns the position of the correct answer in Options, or -1.
func (q Question) CorrectIndex() int {
	return slices.Index(q.Options, q.CorrectAnswer)
}

// Quiz is a named, curriculum-scoped list of questions. A Quiz is treated as
// immutable: edits produce a new value via Clone.
type Quiz struct {
	Name      string     `json:"name"`
	Grade     string     `json:"grade"`
	Subject   string     `json:"subject"`
	Chapter   string     `json:"chapter"`
	Questions []Question `json:"questions"`
}

// Validate checks every question's answer invariant.
func (q *Quiz) Validate() error {
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the quiz.
func (q *Quiz) Clone() *Quiz {
	out := *q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = slices.Clone(question.Options)
		out.Questions[i] = question
	}
	return &out
}

// GenerationRequest asks the remote service for questions covering the given
// scope. QuizName is carried alongside but never sent on the wire.
type GenerationRequest struct {
	QuizName      string   `json:"-"`
	Grade         string   `json:"grade"`
	Subject       string   `json:"subject"`
	Chapter       string   `json:"chapter"`
	QuestionCount int      `json:"questionCount"`
	Outcomes      []string `json:"selectedELOs"`
}
