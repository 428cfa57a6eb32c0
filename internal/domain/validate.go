package domain

import (
	"slices"
	"strings"

	"live-quiz-service/internal/errors"
)

// Validate checks the semantic invariants of a quiz definition.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return errors.InvalidArgument("quiz title is required")
	}
	if len(q.Questions) == 0 {
		return errors.InvalidArgument("quiz must have at least one question")
	}
	if q.TimeLimit < MinTimeLimit || q.TimeLimit > MaxTimeLimit {
		return errors.InvalidArgument("time limit must be between %d and %d seconds, got %d", MinTimeLimit, MaxTimeLimit, q.TimeLimit)
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return errors.InvalidArgument("question %d: id is required", i+1)
		}
		if _, dup := seen[question.ID]; dup {
			return errors.InvalidArgument("question %d: duplicate id %q", i+1, question.ID)
		}
		seen[question.ID] = struct{}{}

		if err := question.Validate(); err != nil {
			return errors.InvalidArgument("question %q: %s", question.ID, errors.Convert(err).Message)
		}
	}
	return nil
}

// Validate checks a single question in isolation.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.InvalidArgument("prompt is required")
	}
	if q.TimeLimit < 0 {
		return errors.InvalidArgument("time limit must not be negative")
	}

	switch q.Type {
	case QuestionSingle, QuestionMultiple:
		if len(q.Options) < 2 {
			return errors.InvalidArgument("needs at least 2 options")
		}
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return errors.InvalidArgument("option %d is empty", i+1)
			}
		}
	case QuestionText:
		if len(q.Options) > 0 {
			return errors.InvalidArgument("text questions take no options")
		}
	default:
		return errors.InvalidArgument("unknown question type %q", q.Type)
	}

	switch q.Type {
	case QuestionSingle:
		idx, ok := q.Correct.Index()
		if !ok {
			return errors.InvalidArgument("correct answer must be an option index")
		}
		if idx < 0 || idx >= len(q.Options) {
			return errors.InvalidArgument("correct index %d out of range", idx)
		}
	case QuestionMultiple:
		ix, ok := q.Correct.Indices()
		if !ok {
			return errors.InvalidArgument("correct answer must be a list of option indices")
		}
		if len(ix) == 0 {
			return errors.InvalidArgument("at least one option must be correct")
		}
		for _, idx := range ix {
			if idx < 0 || idx >= len(q.Options) {
				return errors.InvalidArgument("correct index %d out of range", idx)
			}
		}
		slices.Sort(ix)
		if len(slices.Compact(ix)) != len(ix) {
			return errors.InvalidArgument("correct indices must be distinct")
		}
	case QuestionText:
		if q.Correct.Kind() != KindText && !q.Correct.IsEmpty() {
			return errors.InvalidArgument("correct answer must be text")
		}
	}
	return nil
}

// ValidateAnswer checks that a submitted value has the shape the question expects.
// The empty value is always accepted as a blank answer.
func (q Question) ValidateAnswer(v Value) error {
	if v.IsEmpty() {
		return nil
	}
	switch q.Type {
	case QuestionSingle:
		idx, ok := v.Index()
		if !ok {
			return errors.InvalidArgument("answer must be an option index")
		}
		if idx < 0 || idx >= len(q.Options) {
			return errors.InvalidArgument("option index %d out of range", idx)
		}
	case QuestionMultiple:
		ix, ok := v.Indices()
		if !ok {
			return errors.InvalidArgument("answer must be a list of option indices")
		}
		for _, idx := range ix {
			if idx < 0 || idx >= len(q.Options) {
				return errors.InvalidArgument("option index %d out of range", idx)
			}
		}
	case QuestionText:
		if v.Kind() != KindText {
			return errors.InvalidArgument("answer must be text")
		}
	}
	return nil
}
