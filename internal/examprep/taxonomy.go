package examprep

import (
	"context"
	"net/url"
	"strconv"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
)

type classData struct {
	ClassID   int    `json:"classid"`
	ClassName string `json:"classname"`
}

type subjectData struct {
	SubjectID   int    `json:"subjectid"`
	SubjectName string `json:"subjectname"`
}

type chapterData struct {
	ChapterID   int     `json:"chapterid"`
	ChapterName string  `json:"chaptername"`
	ChapterCode string  `json:"chaptercode"`
	ClassID     int     `json:"classid"`
	SubjectID   int     `json:"subjectid"`
	UnitsIDs    *string `json:"unitsids"`
}

type eloData struct {
	ELO       string `json:"elo"`
	ChapterID int    `json:"chapterid"`
}

type eloResponse struct {
	Details []eloData `json:"elo_details"`
}

// ListGrades implements curriculum.Source.
func (c *Client) ListGrades(ctx context.Context) ([]curriculum.Grade, error) {
	var data []classData
	if err := c.getJSON(ctx, pathGrades, nil, gradesSchema, &data); err != nil {
		return nil, &curriculum.FetchError{Level: curriculum.LevelGrade, Err: err}
	}

	grades := make([]curriculum.Grade, len(data))
	for i, d := range data {
		grades[i] = curriculum.Grade{ID: d.ClassID, Name: d.ClassName}
	}
	return grades, nil
}

// ListSubjects implements curriculum.Source.
func (c *Client) ListSubjects(ctx context.Context, gradeID int) ([]curriculum.Subject, error) {
	query := url.Values{"classid": {strconv.Itoa(gradeID)}}

	var data []subjectData
	if err := c.getJSON(ctx, pathSubjects, query, subjectsSchema, &data); err != nil {
		return nil, &curriculum.FetchError{Level: curriculum.LevelSubject, Err: err}
	}

	subjects := make([]curriculum.Subject, len(data))
	for i, d := range data {
		subjects[i] = curriculum.Subject{ID: d.SubjectID, Name: d.SubjectName}
	}
	return subjects, nil
}

// ListChapters implements curriculum.Source.
func (c *Client) ListChapters(ctx context.Context, gradeID, subjectID int) ([]curriculum.Chapter, error) {
	query := url.Values{
		"classid":   {strconv.Itoa(gradeID)},
		"subjectid": {strconv.Itoa(subjectID)},
	}

	var data []chapterData
	if err := c.getJSON(ctx, pathChapters, query, chaptersSchema, &data); err != nil {
		return nil, &curriculum.FetchError{Level: curriculum.LevelChapter, Err: err}
	}

	chapters := make([]curriculum.Chapter, len(data))
	for i, d := range data {
		chapters[i] = curriculum.Chapter{
			ID:        d.ChapterID,
			Name:      d.ChapterName,
			Code:      d.ChapterCode,
			GradeID:   d.ClassID,
			SubjectID: d.SubjectID,
		}
	}
	return chapters, nil
}

// ListOutcomes implements curriculum.Source.
func (c *Client) ListOutcomes(ctx context.Context, chapterID int) ([]curriculum.Outcome, error) {
	query := url.Values{"chapterid": {strconv.Itoa(chapterID)}}

	var data eloResponse
	if err := c.getJSON(ctx, pathOutcomes, query, outcomesSchema, &data); err != nil {
		return nil, &curriculum.FetchError{Level: curriculum.LevelOutcome, Err: err}
	}

	outcomes := make([]curriculum.Outcome, len(data.Details))
	for i, d := range data.Details {
		id := d.ChapterID
		if id == 0 {
			id = chapterID
		}
		outcomes[i] = curriculum.Outcome{Text: d.ELO, ChapterID: id}
	}
	return outcomes, nil
}
