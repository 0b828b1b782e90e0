package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// fixtureFile is the on-disk YAML shape of an offline taxonomy.
type fixtureFile struct {
	Grades []fixtureGrade `yaml:"grades"`
}

type fixtureGrade struct {
	Grade    `yaml:",inline"`
	Subjects []fixtureSubject `yaml:"subjects"`
}

type fixtureSubject struct {
	Subject  `yaml:",inline"`
	Chapters []fixtureChapter `yaml:"chapters"`
}

type fixtureChapter struct {
	ID       int      `yaml:"id"`
	Name     string   `yaml:"name"`
	Code     string   `yaml:"code"`
	Outcomes []string `yaml:"outcomes"`
}

type subjectKey struct{ grade, subject int }

// FixtureSource serves a taxonomy loaded from YAML files. It implements Source
// for offline development and tests.
type FixtureSource struct {
	rootDir  string
	grades   []Grade
	subjects map[int][]Subject
	chapters map[subjectKey][]Chapter
	outcomes map[int][]Outcome
	mu       sync.RWMutex
}

// NewFixtureSource loads every .yaml/.yml file under path (a file or a directory).
func NewFixtureSource(path string) (*FixtureSource, error) {
	s := newFixtureSource(path)
	if err := s.loadAll(); err != nil {
		return nil, fmt.Errorf("loading taxonomy fixture: %w", err)
	}

	slog.Info("taxonomy fixture loaded", "path", path, "grades", len(s.grades))
	return s, nil
}

// ParseFixture builds a FixtureSource from a single YAML document.
func ParseFixture(data []byte) (*FixtureSource, error) {
	s := newFixtureSource("")
	if err := s.load(data); err != nil {
		return nil, err
	}
	return s, nil
}

func newFixtureSource(rootDir string) *FixtureSource {
	return &FixtureSource{
		rootDir:  rootDir,
		subjects: make(map[int][]Subject),
		chapters: make(map[subjectKey][]Chapter),
		outcomes: make(map[int][]Outcome),
	}
}

func (s *FixtureSource) ListGrades(_ context.Context) ([]Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Grade(nil), s.grades...), nil
}

func (s *FixtureSource) ListSubjects(_ context.Context, gradeID int) ([]Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Subject(nil), s.subjects[gradeID]...), nil
}

func (s *FixtureSource) ListChapters(_ context.Context, gradeID, subjectID int) ([]Chapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Chapter(nil), s.chapters[subjectKey{gradeID, subjectID}]...), nil
}

func (s *FixtureSource) ListOutcomes(_ context.Context, chapterID int) ([]Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Outcome(nil), s.outcomes[chapterID]...), nil
}

func (s *FixtureSource) loadAll() error {
	return filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := s.load(data); err != nil {
			slog.Warn("skipping invalid taxonomy YAML", "path", path, "error", err)
		}
		return nil
	})
}

func (s *FixtureSource) load(data []byte) error {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse taxonomy YAML: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range file.Grades {
		s.grades = append(s.grades, g.Grade)
		for _, sub := range g.Subjects {
			s.subjects[g.ID] = append(s.subjects[g.ID], sub.Subject)
			key := subjectKey{g.ID, sub.ID}
			for _, ch := range sub.Chapters {
				s.chapters[key] = append(s.chapters[key], Chapter{
					ID:        ch.ID,
					Name:      ch.Name,
					Code:      ch.Code,
					GradeID:   g.ID,
					SubjectID: sub.ID,
				})
				for _, text := range ch.Outcomes {
					s.outcomes[ch.ID] = append(s.outcomes[ch.ID], Outcome{Text: text, ChapterID: ch.ID})
				}
			}
		}
	}
	return nil
}
