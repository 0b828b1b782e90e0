// Package curriculum defines the four-level curriculum taxonomy and the
// contract for fetching it.
package curriculum

import (
	"context"
	"fmt"
)

// Source lists taxonomy nodes. Implementations return nodes in the order the
// backing service provides them; callers must not assume any sort order.
type Source interface {
	ListGrades(ctx context.Context) ([]Grade, error)
	ListSubjects(ctx context.Context, gradeID int) ([]Subject, error)
	ListChapters(ctx context.Context, gradeID, subjectID int) ([]Chapter, error)
	ListOutcomes(ctx context.Context, chapterID int) ([]Outcome, error)
}

// FetchError reports a failed taxonomy lookup at a given level.
type FetchError struct {
	Level Level
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s list: %v", e.Level, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
