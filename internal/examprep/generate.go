package examprep

import (
	"context"
	"encoding/json"

	"github.com/p-n-ai/pai-quiz/internal/quiz"
)

// flexID accepts question ids sent either as strings or as numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type questionData struct {
	ID            flexID   `json:"id"`
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	ELO           string   `json:"elo"`
	Taxonomy      string   `json:"taxonomy"`
}

type questionsResponse struct {
	Questions []questionData `json:"questions"`
}

// GenerateQuestions posts req to the generation endpoint and returns the
// questions in the order received. Every call generates afresh.
func (c *Client) GenerateQuestions(ctx context.Context, req quiz.GenerationRequest) ([]quiz.Question, error) {
	var data questionsResponse
	if err := c.postJSON(ctx, pathGenerate, req, questionsSchema, &data); err != nil {
		return nil, err
	}

	questions := make([]quiz.Question, len(data.Questions))
	for i, d := range data.Questions {
		questions[i] = quiz.Question{
			ID:            string(d.ID),
			Text:          d.Text,
			Type:          d.Type,
			Options:       d.Options,
			CorrectAnswer: d.CorrectAnswer,
			Explanation:   d.Explanation,
			Difficulty:    d.Difficulty,
			ELO:           d.ELO,
			Taxonomy:      d.Taxonomy,
		}
	}
	return questions, nil
}
