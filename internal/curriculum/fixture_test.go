package curriculum_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/curriculum"
)

const testTaxonomy = `
grades:
  - id: 1
    name: "Grade 1"
    subjects:
      - id: 2
        name: "Math"
        chapters:
          - id: 3
            name: "Numbers"
            code: "M1-01"
            outcomes:
              - "Count to 10"
              - "Compare two numbers"
          - id: 4
            name: "Shapes"
            outcomes:
              - "Name basic shapes"
      - id: 5
        name: "English"
  - id: 6
    name: "Grade 2"
`

func TestFixtureSource_Lists(t *testing.T) {
	src, err := curriculum.ParseFixture([]byte(testTaxonomy))
	if err != nil {
		t.Fatalf("ParseFixture() error = %v", err)
	}
	ctx := context.Background()

	grades, _ := src.ListGrades(ctx)
	if len(grades) != 2 || grades[0].Name != "Grade 1" || grades[1].ID != 6 {
		t.Errorf("ListGrades() = %+v", grades)
	}

	subjects, _ := src.ListSubjects(ctx, 1)
	if len(subjects) != 2 || subjects[0].Name != "Math" {
		t.Errorf("ListSubjects(1) = %+v", subjects)
	}

	chapters, _ := src.ListChapters(ctx, 1, 2)
	if len(chapters) != 2 {
		t.Fatalf("ListChapters(1, 2) = %+v", chapters)
	}
	if chapters[0].Code != "M1-01" || chapters[0].GradeID != 1 || chapters[0].SubjectID != 2 {
		t.Errorf("chapter[0] = %+v", chapters[0])
	}

	outcomes, _ := src.ListOutcomes(ctx, 3)
	if len(outcomes) != 2 || outcomes[0].Text != "Count to 10" || outcomes[1].ChapterID != 3 {
		t.Errorf("ListOutcomes(3) = %+v", outcomes)
	}
}

func TestFixtureSource_UnknownIDsAreEmpty(t *testing.T) {
	src, err := curriculum.ParseFixture([]byte(testTaxonomy))
	if err != nil {
		t.Fatalf("ParseFixture() error = %v", err)
	}
	ctx := context.Background()

	if subjects, _ := src.ListSubjects(ctx, 99); len(subjects) != 0 {
		t.Errorf("ListSubjects(99) = %+v, want empty", subjects)
	}
	if chapters, _ := src.ListChapters(ctx, 6, 2); len(chapters) != 0 {
		t.Errorf("ListChapters(6, 2) = %+v, want empty", chapters)
	}
}

func TestFixtureSource_ReturnsCopies(t *testing.T) {
	src, _ := curriculum.ParseFixture([]byte(testTaxonomy))
	ctx := context.Background()

	grades, _ := src.ListGrades(ctx)
	grades[0].Name = "mutated"

	again, _ := src.ListGrades(ctx)
	if again[0].Name != "Grade 1" {
		t.Error("ListGrades() should not expose internal state")
	}
}

func TestNewFixtureSource_Directory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "primary.yaml"), []byte(testTaxonomy), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# not yaml"), 0o644)
	os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("grades: [::"), 0o644)

	src, err := curriculum.NewFixtureSource(dir)
	if err != nil {
		t.Fatalf("NewFixtureSource() error = %v", err)
	}

	grades, _ := src.ListGrades(context.Background())
	if len(grades) != 2 {
		t.Errorf("ListGrades() = %d grades, want 2 (broken YAML skipped)", len(grades))
	}
}

func TestNewFixtureSource_MissingPath(t *testing.T) {
	_, err := curriculum.NewFixtureSource(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("NewFixtureSource() should fail for a missing path")
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := os.ErrDeadlineExceeded
	err := &curriculum.FetchError{Level: curriculum.LevelSubject, Err: cause}

	if err.Error() != "fetch subject list: "+cause.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap() should return the cause")
	}
}
