package curriculum

// Grade is a class level offered by the curriculum (e.g. "Grade 1").
type Grade struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Subject is a subject taught within a grade.
type Subject struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Chapter is a chapter of a subject for a specific grade.
type Chapter struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Code      string `json:"code,omitempty" yaml:"code"`
	GradeID   int    `json:"grade_id"`
	SubjectID int    `json:"subject_id"`
}

// Outcome is an expected learning outcome (ELO) scoped to one chapter.
// It has no identity beyond its text within that chapter.
type Outcome struct {
	Text      string `json:"text"`
	ChapterID int    `json:"chapter_id"`
}

// Level identifies one tier of the grade → subject → chapter → outcome cascade.
type Level int

const (
	LevelGrade Level = iota
	LevelSubject
	LevelChapter
	LevelOutcome
)

// Levels lists every cascade level from the top down.
var Levels = []Level{LevelGrade, LevelSubject, LevelChapter, LevelOutcome}

func (l Level) String() string {
	switch l {
	case LevelGrade:
		return "grade"
	case LevelSubject:
		return "subject"
	case LevelChapter:
		return "chapter"
	case LevelOutcome:
		return "outcome"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
