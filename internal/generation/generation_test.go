package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/p-n-ai/pai-quiz/internal/compose"
	"github.com/p-n-ai/pai-quiz/internal/curriculum"
	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

func fullSelection(outcomes ...string) compose.Selection {
	return compose.Selection{
		Grade:    &curriculum.Grade{ID: 1, Name: "Grade 1"},
		Subject:  &curriculum.Subject{ID: 2, Name: "Math"},
		Chapter:  &curriculum.Chapter{ID: 3, Name: "Numbers", GradeID: 1, SubjectID: 2},
		Outcomes: outcomes,
	}
}

func TestParseQuantityMode(t *testing.T) {
	tests := []struct {
		in      string
		want    QuantityMode
		wantErr bool
	}{
		{"5", Fixed5, false},
		{"10", Fixed10, false},
		{"12", Fixed12, false},
		{"elo", PerOutcome3, false},
		{"7", QuantityMode{}, true},
		{"", QuantityMode{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantityMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuantityMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseQuantityMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuantityMode_JSON(t *testing.T) {
	var body struct {
		Mode QuantityMode `json:"mode"`
	}
	if err := json.Unmarshal([]byte(`{"mode":"elo"}`), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body.Mode != PerOutcome3 {
		t.Errorf("Mode = %v, want elo", body.Mode)
	}
	if err := json.Unmarshal([]byte(`{"mode":"99"}`), &body); err == nil {
		t.Error("Unmarshal() of unknown mode should fail")
	}
	if err := json.Unmarshal([]byte(`{"mode":""}`), &body); err != nil || body.Mode.IsSet() {
		t.Errorf("empty mode should be unset, got %v (err %v)", body.Mode, err)
	}
}

func TestQuantityMode_QuestionCount(t *testing.T) {
	for k := 0; k <= 6; k++ {
		if got := PerOutcome3.QuestionCount(k); got != 3*k {
			t.Errorf("PerOutcome3.QuestionCount(%d) = %d, want %d", k, got, 3*k)
		}
		for _, tt := range []struct {
			mode QuantityMode
			n    int
		}{{Fixed5, 5}, {Fixed10, 10}, {Fixed12, 12}} {
			if got := tt.mode.QuestionCount(k); got != tt.n {
				t.Errorf("%v.QuestionCount(%d) = %d, want %d", tt.mode, k, got, tt.n)
			}
		}
	}
}

func TestBuildRequest_Scenario(t *testing.T) {
	req, err := BuildRequest("", fullSelection("Count to 10"), PerOutcome3)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.QuestionCount != 3 {
		t.Errorf("QuestionCount = %d, want 3", req.QuestionCount)
	}

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"grade":"Grade 1","subject":"Math","chapter":"Numbers","questionCount":3,"selectedELOs":["Count to 10"]}`
	if string(body) != want {
		t.Errorf("body = %s\nwant  %s", body, want)
	}
	if req.QuizName != "Numbers" {
		t.Errorf("QuizName = %q, want chapter name fallback", req.QuizName)
	}
}

func TestBuildRequest_Completeness(t *testing.T) {
	full := fullSelection("Count to 10")
	tests := []struct {
		name    string
		sel     func() compose.Selection
		mode    QuantityMode
		missing []string
	}{
		{"complete", func() compose.Selection { return full }, Fixed5, nil},
		{"no grade", func() compose.Selection { s := full; s.Grade = nil; return s }, Fixed5, []string{"grade"}},
		{"no subject", func() compose.Selection { s := full; s.Subject = nil; return s }, Fixed5, []string{"subject"}},
		{"no chapter", func() compose.Selection { s := full; s.Chapter = nil; return s }, Fixed5, []string{"chapter"}},
		{"no outcomes", func() compose.Selection { s := full; s.Outcomes = nil; return s }, Fixed5, []string{"learning outcomes"}},
		{"no mode", func() compose.Selection { return full }, QuantityMode{}, []string{"question quantity"}},
		{"empty", func() compose.Selection { return compose.Selection{} }, QuantityMode{},
			[]string{"grade", "subject", "chapter", "learning outcomes", "question quantity"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest("Quiz", tt.sel(), tt.mode)
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("BuildRequest() error = %v, want nil", err)
				}
				return
			}
			var incomplete *IncompleteSelectionError
			if !errors.As(err, &incomplete) {
				t.Fatalf("BuildRequest() error = %v, want *IncompleteSelectionError", err)
			}
			if !slices.Equal(incomplete.Missing, tt.missing) {
				t.Errorf("Missing = %v, want %v", incomplete.Missing, tt.missing)
			}
		})
	}
}

func TestBuildRequest_OutcomeOrderAndCount(t *testing.T) {
	sel := fullSelection("Order numbers", "Count to 10", "Compare two numbers")

	req, err := BuildRequest("  My quiz  ", sel, PerOutcome3)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	if req.QuestionCount != 9 {
		t.Errorf("QuestionCount = %d, want 9", req.QuestionCount)
	}
	if !slices.Equal(req.Outcomes, sel.Outcomes) {
		t.Errorf("Outcomes = %v, want insertion order %v", req.Outcomes, sel.Outcomes)
	}
	if req.QuizName != "My quiz" {
		t.Errorf("QuizName = %q", req.QuizName)
	}

	req, _ = BuildRequest("x", sel, Fixed12)
	if req.QuestionCount != 12 {
		t.Errorf("Fixed12 QuestionCount = %d, want 12", req.QuestionCount)
	}

	sel.Outcomes[0] = "mutated"
	if req.Outcomes[0] != "Order numbers" {
		t.Error("request should not alias the selection's outcomes")
	}
}

func TestPreview(t *testing.T) {
	sel := fullSelection("a", "b")
	if got := Preview(sel, PerOutcome3); got != 6 {
		t.Errorf("Preview(elo) = %d, want 6", got)
	}
	if got := Preview(sel, QuantityMode{}); got != 0 {
		t.Errorf("Preview(unset) = %d, want 0", got)
	}
}

func TestSubmit_Success(t *testing.T) {
	gen := NewMockGenerator()
	req, _ := BuildRequest("Numbers quiz", fullSelection("Count to 10", "Order numbers"), PerOutcome3)

	q, err := NewRequestor(gen).Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if q.Name != "Numbers quiz" || q.Grade != "Grade 1" || q.Subject != "Math" || q.Chapter != "Numbers" {
		t.Errorf("quiz header = %+v", q)
	}
	if len(q.Questions) != 6 {
		t.Fatalf("len(Questions) = %d, want 6", len(q.Questions))
	}
	for i, question := range q.Questions {
		if want := fmt.Sprintf("q%d", i+1); question.ID != want {
			t.Errorf("Questions[%d].ID = %q, order not preserved", i, question.ID)
		}
		if !slices.Contains(question.Options, question.CorrectAnswer) {
			t.Errorf("Questions[%d] answer %q not in options", i, question.CorrectAnswer)
		}
	}
	if gen.LastRequest.QuestionCount != 6 {
		t.Errorf("sent QuestionCount = %d, want 6", gen.LastRequest.QuestionCount)
	}
}

func TestSubmit_FillsMissingIDs(t *testing.T) {
	gen := NewMockGenerator()
	gen.Questions = []quiz.Question{
		{Text: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
		{ID: "keep", Text: "1+1?", Options: []string{"2", "3"}, CorrectAnswer: "2"},
	}

	q, err := NewRequestor(gen).Submit(context.Background(), quiz.GenerationRequest{QuestionCount: 2})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if q.Questions[0].ID == "" {
		t.Error("missing id should be filled")
	}
	if q.Questions[1].ID != "keep" {
		t.Errorf("existing id changed to %q", q.Questions[1].ID)
	}
}

func TestSubmit_Failures(t *testing.T) {
	upstream := errors.New("upstream 503")
	tests := []struct {
		name  string
		setup func(*MockGenerator)
		cause error
	}{
		{"transport error", func(m *MockGenerator) { m.Err = upstream }, upstream},
		{"empty list", func(m *MockGenerator) { m.Questions = []quiz.Question{} }, ErrNoQuestions},
		{"answer not in options", func(m *MockGenerator) {
			m.Questions = []quiz.Question{{ID: "1", Options: []string{"a", "b"}, CorrectAnswer: "c"}}
		}, quiz.ErrAnswerNotInOptions},
		{"answer matches twice", func(m *MockGenerator) {
			m.Questions = []quiz.Question{{ID: "1", Options: []string{"a", "a"}, CorrectAnswer: "a"}}
		}, quiz.ErrAnswerNotInOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewMockGenerator()
			tt.setup(gen)

			q, err := NewRequestor(gen).Submit(context.Background(), quiz.GenerationRequest{QuestionCount: 1})
			if q != nil {
				t.Errorf("Submit() returned quiz %+v on failure", q)
			}
			var genErr *GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("Submit() error = %v, want *GenerationError", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("cause = %v, want %v", genErr.Cause, tt.cause)
			}
		})
	}
}

func TestSubmit_NotCached(t *testing.T) {
	gen := NewMockGenerator()
	r := NewRequestor(gen)
	req, _ := BuildRequest("q", fullSelection("a"), Fixed5)

	for i := 0; i < 2; i++ {
		if _, err := r.Submit(context.Background(), req); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if gen.Requests() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Requests())
	}
}
