package generation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// MockGenerator is a test double for the generation service.
type MockGenerator struct {
	mu          sync.Mutex
	Questions   []quiz.Question // returned as-is when set
	Err         error
	Block       chan struct{} // if non-nil, calls wait until it is closed
	LastRequest *quiz.GenerationRequest
	Calls       int
}

// NewMockGenerator creates a MockGenerator that invents one valid question per
// requested slot.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) GenerateQuestions(ctx context.Context, req quiz.GenerationRequest) ([]quiz.Question, error) {
	m.mu.Lock()
	m.Calls++
	m.LastRequest = &req
	block, err, fixed := m.Block, m.Err, m.Questions
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if fixed != nil {
		out := make([]quiz.Question, len(fixed))
		for i, q := range fixed {
			q.Options = slices.Clone(q.Options)
			out[i] = q
		}
		return out, nil
	}

	out := make([]quiz.Question, req.QuestionCount)
	for i := range out {
		elo := ""
		if len(req.Outcomes) > 0 {
			elo = req.Outcomes[i%len(req.Outcomes)]
		}
		out[i] = quiz.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Text:          fmt.Sprintf("%s question %d", req.Chapter, i+1),
			Type:          "mcq",
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: "B",
			Explanation:   "B is correct.",
			Difficulty:    "medium",
			ELO:           elo,
			Taxonomy:      "Understand",
		}
	}
	return out, nil
}

// Requests returns how many calls were made.
func (m *MockGenerator) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}
