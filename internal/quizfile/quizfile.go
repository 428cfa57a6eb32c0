// Package quizfile reads, validates and writes the quiz exchange format.
package quizfile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
)

const schemaURL = "https://live-quiz-service/quiz.schema.json"

//go:embed quiz.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf guesses the document format from a file name.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Parse decodes a quiz document, checks it against the exchange schema,
// normalises it and validates its semantic invariants.
func Parse(data []byte, format Format) (domain.Quiz, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return domain.Quiz{}, err
		}
		data = converted
	}
	return ParseJSON(data)
}

func ParseJSON(data []byte) (domain.Quiz, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return domain.Quiz{}, errors.InvalidArgument("malformed quiz json: %v", err)
	}

	s, err := compiled()
	if err != nil {
		return domain.Quiz{}, errors.Internal(err)
	}
	if err := s.Validate(doc); err != nil {
		return domain.Quiz{}, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("quiz does not match the exchange format: %s", schemaMessage(err)),
			errors.WithCause(err),
		)
	}

	var q domain.Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quiz{}, errors.InvalidArgument("decode quiz: %v", err)
	}

	Normalize(&q)
	if err := q.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return q, nil
}

// ParseDraft decodes a quiz that is still being authored. It normalises the
// document but skips the schema and semantic checks a half-written quiz fails.
func ParseDraft(data []byte, format Format) (domain.Quiz, error) {
	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return domain.Quiz{}, err
		}
		data = converted
	}
	var q domain.Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quiz{}, errors.InvalidArgument("decode quiz: %v", err)
	}
	Normalize(&q)
	return q, nil
}

// Normalize applies the lenient import rules: a missing time limit takes the
// default and a scalar correct answer on a multiple choice question becomes a
// one-element set.
func Normalize(q *domain.Quiz) {
	if q.TimeLimit == 0 {
		q.TimeLimit = domain.DefaultTimeLimit
	}
	for i := range q.Questions {
		question := &q.Questions[i]
		if question.Type != domain.QuestionMultiple {
			continue
		}
		if idx, ok := question.Correct.Index(); ok {
			question.Correct = domain.IndicesValue(idx)
		}
	}
}

// Export writes the quiz as indented exchange JSON.
func Export(q domain.Quiz) ([]byte, error) {
	out, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal quiz: %w", err)
	}
	return append(out, '\n'), nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.InvalidArgument("malformed quiz yaml: %v", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.InvalidArgument("quiz yaml cannot be represented as json: %v", err)
	}
	return out, nil
}

func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !stderrors.As(err, &ve) {
		return err.Error()
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	loc := leaf.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, leaf.Message)
}
