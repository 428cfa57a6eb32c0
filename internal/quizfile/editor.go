package quizfile

import (
	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
)

// Editor applies authoring operations to a draft quiz. Drafts are not
// validated between edits; call Validate before creating a session.
type Editor struct {
	Quiz domain.Quiz
}

func NewEditor(q domain.Quiz) *Editor {
	return &Editor{Quiz: q.Clone()}
}

// IndexOf returns the position of the question with the given id.
func (e *Editor) IndexOf(questionID string) (int, error) {
	for i, q := range e.Quiz.Questions {
		if q.ID == questionID {
			return i, nil
		}
	}
	return -1, errors.InvalidArgument("no question with id %q", questionID)
}

// AddQuestion appends a blank question of the given type and returns its id.
func (e *Editor) AddQuestion(t domain.QuestionType) (string, error) {
	q := domain.Question{
		ID:   "q-" + uuid.NewString()[:8],
		Type: t,
	}
	switch t {
	case domain.QuestionSingle:
		q.Options = []string{"", "", "", ""}
		q.Correct = domain.IndexValue(0)
	case domain.QuestionMultiple:
		q.Options = []string{"", "", "", ""}
		q.Correct = domain.IndicesValue()
	case domain.QuestionText:
		q.Correct = domain.EmptyValue()
	default:
		return "", errors.InvalidArgument("unknown question type %q", t)
	}
	e.Quiz.Questions = append(e.Quiz.Questions, q)
	return q.ID, nil
}

func (e *Editor) RemoveQuestion(index int) error {
	if err := e.checkQuestion(index); err != nil {
		return err
	}
	qs := e.Quiz.Questions
	e.Quiz.Questions = append(qs[:index:index], qs[index+1:]...)
	return nil
}

// MoveQuestion swaps a question with its neighbour. Moving past either end is a no-op.
func (e *Editor) MoveQuestion(index int, up bool) error {
	if err := e.checkQuestion(index); err != nil {
		return err
	}
	target := index + 1
	if up {
		target = index - 1
	}
	if target < 0 || target >= len(e.Quiz.Questions) {
		return nil
	}
	qs := e.Quiz.Questions
	qs[index], qs[target] = qs[target], qs[index]
	return nil
}

func (e *Editor) AddOption(index int) error {
	q, err := e.choiceQuestion(index)
	if err != nil {
		return err
	}
	q.Options = append(q.Options, "")
	return nil
}

func (e *Editor) UpdateOption(index, option int, text string) error {
	q, err := e.choiceQuestion(index)
	if err != nil {
		return err
	}
	if option < 0 || option >= len(q.Options) {
		return errors.InvalidArgument("option %d out of range", option)
	}
	q.Options[option] = text
	return nil
}

// RemoveOption deletes an option and shifts correct indices to keep pointing
// at the same options. Questions keep at least two options; removing below
// that is a no-op. For single choice the correct index moves down when it is
// at or after the removed option and above zero, so removing the correct
// option selects its predecessor.
func (e *Editor) RemoveOption(index, option int) error {
	q, err := e.choiceQuestion(index)
	if err != nil {
		return err
	}
	if option < 0 || option >= len(q.Options) {
		return errors.InvalidArgument("option %d out of range", option)
	}
	if len(q.Options) <= 2 {
		return nil
	}

	q.Options = append(q.Options[:option:option], q.Options[option+1:]...)

	switch q.Type {
	case domain.QuestionSingle:
		if c, ok := q.Correct.Index(); ok && c >= option && c > 0 {
			q.Correct = domain.IndexValue(c - 1)
		}
	case domain.QuestionMultiple:
		ix, _ := q.Correct.Indices()
		shifted := make([]int, 0, len(ix))
		for _, c := range ix {
			switch {
			case c == option:
			case c > option:
				shifted = append(shifted, c-1)
			default:
				shifted = append(shifted, c)
			}
		}
		q.Correct = domain.IndicesValue(shifted...)
	}
	return nil
}

func (e *Editor) checkQuestion(index int) error {
	if index < 0 || index >= len(e.Quiz.Questions) {
		return errors.InvalidArgument("question %d out of range", index)
	}
	return nil
}

func (e *Editor) choiceQuestion(index int) (*domain.Question, error) {
	if err := e.checkQuestion(index); err != nil {
		return nil, err
	}
	q := &e.Quiz.Questions[index]
	if !q.Type.HasOptions() {
		return nil, errors.InvalidArgument("question %q has no options", q.ID)
	}
	return q, nil
}
