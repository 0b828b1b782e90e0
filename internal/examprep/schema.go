package examprep

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DecodeError reports a response body that does not match the expected schema.
type DecodeError struct {
	Path     string
	Problems []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("examprep %s: invalid response: %s", e.Path, strings.Join(e.Problems, "; "))
}

var (
	gradesSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["classid", "classname"],
			"properties": {
				"classid": {"type": "integer"},
				"classname": {"type": "string"}
			}
		}
	}`)

	subjectsSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["subjectid", "subjectname"],
			"properties": {
				"subjectid": {"type": "integer"},
				"subjectname": {"type": "string"}
			}
		}
	}`)

	chaptersSchema = mustSchema(`{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["chapterid", "chaptername"],
			"properties": {
				"chapterid": {"type": "integer"},
				"chaptername": {"type": "string"},
				"chaptercode": {"type": ["string", "null"]},
				"classid": {"type": "integer"},
				"subjectid": {"type": "integer"},
				"unitsids": {"type": ["string", "null"]}
			}
		}
	}`)

	outcomesSchema = mustSchema(`{
		"type": "object",
		"required": ["elo_details"],
		"properties": {
			"elo_details": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["elo"],
					"properties": {
						"elo": {"type": "string"},
						"chapterid": {"type": "integer"}
					}
				}
			}
		}
	}`)

	questionsSchema = mustSchema(`{
		"type": "object",
		"required": ["questions"],
		"properties": {
			"questions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["text", "options", "correctAnswer"],
					"properties": {
						"id": {"type": ["string", "integer", "null"]},
						"text": {"type": "string"},
						"type": {"type": ["string", "null"]},
						"options": {"type": "array", "minItems": 1, "items": {"type": "string"}},
						"correctAnswer": {"type": "string"},
						"explanation": {"type": ["string", "null"]},
						"difficulty": {"type": ["string", "null"]},
						"elo": {"type": ["string", "null"]},
						"taxonomy": {"type": ["string", "null"]}
					}
				}
			}
		}
	}`)

	loginSchema = mustSchema(`{
		"type": "object",
		"required": ["username"],
		"properties": {
			"status": {"type": ["string", "null"]},
			"usercode": {"type": ["string", "null"]},
			"custcode": {"type": ["string", "null"]},
			"orgcode": {"type": ["string", "null"]},
			"username": {"type": "string", "minLength": 1},
			"userrole": {"type": ["string", "null"]}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("examprep: invalid JSON schema: %v", err))
	}
	return schema
}

// validate checks body against schema before it is decoded.
func validate(path string, schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &DecodeError{Path: path, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}
	return &DecodeError{Path: path, Problems: problems}
}
