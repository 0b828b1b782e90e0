package review

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

const (
	sheetTeacher = "Teacher"
	sheetStudent = "Student"
	headerRow    = 4
)

var (
	teacherColumns = []any{"No.", "Question", "Options", "Answer", "Explanation", "Difficulty", "Learning outcome", "Taxonomy"}
	studentColumns = []any{"No.", "Question", "Options"}
)

// WriteWorkbook writes the quiz as an XLSX workbook with a Teacher sheet
// (answers and explanations) and a Student sheet (questions and options).
func WriteWorkbook(w io.Writer, q *quiz.Quiz) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTeacher); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetStudent); err != nil {
		return fmt.Errorf("create student sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	teacher := TeacherView(q)
	teacherRows := make([][]any, len(teacher.Questions))
	for i, tq := range teacher.Questions {
		opts := make([]string, len(tq.Options))
		for j, o := range tq.Options {
			opts[j] = o.Letter + ". " + o.Text
		}
		teacherRows[i] = []any{
			tq.Number,
			tq.Text,
			strings.Join(opts, "\n"),
			strings.TrimSpace(tq.CorrectLetter + ". " + tq.CorrectAnswer),
			tq.Explanation,
			tq.Difficulty.Label,
			tq.ELO,
			tq.Taxonomy,
		}
	}

	student := StudentView(q)
	studentRows := make([][]any, len(student.Questions))
	for i, sq := range student.Questions {
		opts := make([]string, len(sq.Options))
		for j, o := range sq.Options {
			opts[j] = o.Letter + ". " + o.Text
		}
		studentRows[i] = []any{sq.Number, sq.Text, strings.Join(opts, "\n")}
	}

	if err := writeSheet(f, sheetTeacher, teacher.Header, teacherColumns, teacherRows, bold, wrap); err != nil {
		return err
	}
	if err := writeSheet(f, sheetStudent, student.Header, studentColumns, studentRows, bold, wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetTeacher, "B", "C", 50); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetTeacher, "E", "E", 50); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetStudent, "B", "C", 60); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, h Header, columns []any, rows [][]any, bold, wrap int) error {
	meta := [][]any{
		{h.Name},
		{"Grade", h.Grade, "Subject", h.Subject, "Chapter", h.Chapter, "Questions", h.Total},
	}
	for i, row := range meta {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	if err := setRow(f, sheet, headerRow, columns); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("style %s title: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, headerRow, headerRow, bold); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		n := headerRow + 1 + i
		if err := setRow(f, sheet, n, row); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, n, n, wrap); err != nil {
			return fmt.Errorf("style %s row %d: %w", sheet, n, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
