// Package library keeps saved quizzes and the workflow event log.
package library

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// ErrNotFound is returned for unknown quiz ids or quizzes owned by someone else.
var ErrNotFound = errors.New("saved quiz not found")

// SavedQuiz is a quiz stored in a user's library.
type SavedQuiz struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Quiz      quiz.Quiz `json:"quiz"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the list entry for a saved quiz.
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Grade         string    `json:"grade"`
	Subject       string    `json:"subject"`
	Chapter       string    `json:"chapter"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists saved quizzes per owner.
type Store interface {
	Save(ownerID string, q *quiz.Quiz) (SavedQuiz, error)
	Get(ownerID, id string) (*SavedQuiz, error)
	List(ownerID string) ([]Summary, error)
	Count(ownerID string) (int, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	quizzes map[string]*SavedQuiz
	order   []string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory quiz library.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes: make(map[string]*SavedQuiz),
	}
}

func (s *MemoryStore) Save(ownerID string, q *quiz.Quiz) (SavedQuiz, error) {
	if err := validateSave(ownerID, q); err != nil {
		return SavedQuiz{}, err
	}

	saved := SavedQuiz{
		ID:        newID(),
		OwnerID:   ownerID,
		Quiz:      *q.Clone(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[saved.ID] = &saved
	s.order = append(s.order, saved.ID)
	return saved, nil
}

func (s *MemoryStore) Get(ownerID, id string) (*SavedQuiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved, ok := s.quizzes[id]
	if !ok || saved.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *saved
	out.Quiz = *saved.Quiz.Clone()
	return &out, nil
}

// List returns the owner's quizzes, newest first.
func (s *MemoryStore) List(ownerID string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Summary{}
	for _, id := range slices.Backward(s.order) {
		if saved := s.quizzes[id]; saved.OwnerID == ownerID {
			out = append(out, summarize(saved))
		}
	}
	return out, nil
}

func (s *MemoryStore) Count(ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, saved := range s.quizzes {
		if saved.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func validateSave(ownerID string, q *quiz.Quiz) error {
	if ownerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if q == nil || len(q.Questions) == 0 {
		return fmt.Errorf("quiz has no questions")
	}
	return q.Validate()
}

func summarize(saved *SavedQuiz) Summary {
	return Summary{
		ID:            saved.ID,
		Name:          saved.Quiz.Name,
		Grade:         saved.Quiz.Grade,
		Subject:       saved.Quiz.Subject,
		Chapter:       saved.Quiz.Chapter,
		QuestionCount: len(saved.Quiz.Questions),
		CreatedAt:     saved.CreatedAt,
	}
}

func newID() string {
	return uuid.NewString()
}
