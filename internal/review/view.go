// Package review projects a quiz into teacher and student views and exports
// it as a workbook. Question and option order always follow the quiz.
package review

import (
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// Tone drives the colour of the difficulty badge.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneNeutral Tone = "neutral"
)

// Difficulty is a display-ready difficulty badge.
type Difficulty struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}

// Header describes the quiz scope.
type Header struct {
	Name    string `json:"name"`
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
	Chapter string `json:"chapter"`
	Total   int    `json:"total"`
}

// TeacherOption is one answer choice with its correctness flag.
type TeacherOption struct {
	Letter  string `json:"letter"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// TeacherQuestion carries everything needed to review a question.
type TeacherQuestion struct {
	Number        int             `json:"number"`
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Type          string          `json:"type"`
	Options       []TeacherOption `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	CorrectLetter string          `json:"correct_letter"`
	Explanation   string          `json:"explanation"`
	Difficulty    Difficulty      `json:"difficulty"`
	ELO           string          `json:"elo"`
	Taxonomy      string          `json:"taxonomy"`
}

// TeacherSheet is the annotated view of a quiz.
type TeacherSheet struct {
	Header    Header            `json:"header"`
	Questions []TeacherQuestion `json:"questions"`
}

// StudentOption is an unannotated answer choice.
type StudentOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// StudentQuestion shows a question with its options only.
type StudentQuestion struct {
	Number  int             `json:"number"`
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Options []StudentOption `json:"options"`
}

// StudentSheet is the answer-free view of a quiz.
type StudentSheet struct {
	Header    Header            `json:"header"`
	Questions []StudentQuestion `json:"questions"`
}

// TeacherView annotates every question with correctness and explanation.
func TeacherView(q *quiz.Quiz) TeacherSheet {
	sheet := TeacherSheet{Header: header(q), Questions: make([]TeacherQuestion, len(q.Questions))}
	for i, question := range q.Questions {
		tq := TeacherQuestion{
			Number:        i + 1,
			ID:            question.ID,
			Text:          question.Text,
			Type:          question.Type,
			Options:       make([]TeacherOption, len(question.Options)),
			CorrectAnswer: question.CorrectAnswer,
			Explanation:   question.Explanation,
			Difficulty:    DifficultyBadge(question.Difficulty),
			ELO:           question.ELO,
			Taxonomy:      question.Taxonomy,
		}
		for j, opt := range question.Options {
			correct := opt == question.CorrectAnswer
			tq.Options[j] = TeacherOption{Letter: OptionLetter(j), Text: opt, Correct: correct}
			if correct && tq.CorrectLetter == "" {
				tq.CorrectLetter = OptionLetter(j)
			}
		}
		sheet.Questions[i] = tq
	}
	return sheet
}

// StudentView lists the questions and their options without answers.
func StudentView(q *quiz.Quiz) StudentSheet {
	sheet := StudentSheet{Header: header(q), Questions: make([]StudentQuestion, len(q.Questions))}
	for i, question := range q.Questions {
		sq := StudentQuestion{
			Number:  i + 1,
			ID:      question.ID,
			Text:    question.Text,
			Options: make([]StudentOption, len(question.Options)),
		}
		for j, opt := range question.Options {
			sq.Options[j] = StudentOption{Letter: OptionLetter(j), Text: opt}
		}
		sheet.Questions[i] = sq
	}
	return sheet
}

// OptionLetter labels the i-th option A, B, ... Z, AA, AB, ...
func OptionLetter(i int) string {
	letter, err := excelize.ColumnNumberToName(i + 1)
	if err != nil {
		return ""
	}
	return letter
}

// DifficultyBadge title-cases the difficulty and picks its tone.
func DifficultyBadge(difficulty string) Difficulty {
	d := strings.ToLower(strings.TrimSpace(difficulty))
	if d == "" {
		return Difficulty{Label: "Unrated", Tone: ToneNeutral}
	}

	tone := ToneNeutral
	switch d {
	case "easy":
		tone = ToneSuccess
	case "medium":
		tone = ToneWarning
	case "hard":
		tone = ToneDanger
	}
	return Difficulty{Label: cases.Title(language.English).String(d), Tone: tone}
}

func header(q *quiz.Quiz) Header {
	return Header{
		Name:    q.Name,
		Grade:   q.Grade,
		Subject: q.Subject,
		Chapter: q.Chapter,
		Total:   len(q.Questions),
	}
}
