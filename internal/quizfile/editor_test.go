package quizfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/quizfile"
)

func TestEditor_RemoveOption(t *testing.T) {
	tests := map[string]struct {
		question    domain.Question
		remove      int
		wantOptions []string
		wantCorrect domain.Value
	}{
		"single: removing before correct shifts it down": {
			question:    domain.Question{Type: domain.QuestionSingle, Options: []string{"a", "b", "c"}, Correct: domain.IndexValue(2)},
			remove:      0,
			wantOptions: []string{"b", "c"},
			wantCorrect: domain.IndexValue(1),
		},
		"single: removing the correct option selects its predecessor": {
			question:    domain.Question{Type: domain.QuestionSingle, Options: []string{"a", "b", "c"}, Correct: domain.IndexValue(1)},
			remove:      1,
			wantOptions: []string{"a", "c"},
			wantCorrect: domain.IndexValue(0),
		},
		"single: correct zero stays zero": {
			question:    domain.Question{Type: domain.QuestionSingle, Options: []string{"a", "b", "c"}, Correct: domain.IndexValue(0)},
			remove:      0,
			wantOptions: []string{"b", "c"},
			wantCorrect: domain.IndexValue(0),
		},
		"single: removing after correct leaves it": {
			question:    domain.Question{Type: domain.QuestionSingle, Options: []string{"a", "b", "c"}, Correct: domain.IndexValue(0)},
			remove:      2,
			wantOptions: []string{"a", "b"},
			wantCorrect: domain.IndexValue(0),
		},
		"multiple: drops removed and shifts higher": {
			question:    domain.Question{Type: domain.QuestionMultiple, Options: []string{"a", "b", "c", "d"}, Correct: domain.IndicesValue(0, 1, 3)},
			remove:      1,
			wantOptions: []string{"a", "c", "d"},
			wantCorrect: domain.IndicesValue(0, 2),
		},
		"two options are kept": {
			question:    domain.Question{Type: domain.QuestionSingle, Options: []string{"a", "b"}, Correct: domain.IndexValue(1)},
			remove:      0,
			wantOptions: []string{"a", "b"},
			wantCorrect: domain.IndexValue(1),
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			tt.question.ID = "q1"
			e := quizfile.NewEditor(domain.Quiz{Questions: []domain.Question{tt.question}})

			require.NoError(t, e.RemoveOption(0, tt.remove))

			got := e.Quiz.Questions[0]
			assert.Equal(t, tt.wantOptions, got.Options)
			assert.Equal(t, tt.wantCorrect, got.Correct)
		})
	}
}

func TestEditor_AddAndMoveQuestions(t *testing.T) {
	e := quizfile.NewEditor(domain.Quiz{Title: "draft"})

	id1, err := e.AddQuestion(domain.QuestionSingle)
	require.NoError(t, err)
	id2, err := e.AddQuestion(domain.QuestionMultiple)
	require.NoError(t, err)
	id3, err := e.AddQuestion(domain.QuestionText)
	require.NoError(t, err)
	_, err = e.AddQuestion("essay")
	require.Error(t, err)

	qs := e.Quiz.Questions
	require.Len(t, qs, 3)
	assert.Equal(t, []string{"", "", "", ""}, qs[0].Options)
	assert.Equal(t, domain.IndexValue(0), qs[0].Correct)
	assert.Equal(t, domain.IndicesValue(), qs[1].Correct)
	assert.Nil(t, qs[2].Options)
	assert.True(t, qs[2].Correct.IsEmpty())

	require.NoError(t, e.MoveQuestion(0, true))
	assert.Equal(t, id1, e.Quiz.Questions[0].ID, "moving the first question up is a no-op")

	require.NoError(t, e.MoveQuestion(2, false))
	assert.Equal(t, id3, e.Quiz.Questions[2].ID, "moving the last question down is a no-op")

	require.NoError(t, e.MoveQuestion(0, false))
	assert.Equal(t, []string{id2, id1, id3}, ids(e.Quiz))

	require.NoError(t, e.RemoveQuestion(1))
	assert.Equal(t, []string{id2, id3}, ids(e.Quiz))

	idx, err := e.IndexOf(id3)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestEditor_Options(t *testing.T) {
	e := quizfile.NewEditor(domain.Quiz{Questions: []domain.Question{
		{ID: "q1", Type: domain.QuestionSingle, Options: []string{"a", "b"}},
		{ID: "q2", Type: domain.QuestionText},
	}})

	require.NoError(t, e.AddOption(0))
	require.NoError(t, e.UpdateOption(0, 2, "c"))
	assert.Equal(t, []string{"a", "b", "c"}, e.Quiz.Questions[0].Options)

	require.Error(t, e.UpdateOption(0, 3, "d"))
	require.Error(t, e.AddOption(1))
}

func TestNewEditor_CopiesSource(t *testing.T) {
	src := domain.Quiz{Questions: []domain.Question{{ID: "q1", Type: domain.QuestionSingle, Options: []string{"a", "b", "c"}}}}
	e := quizfile.NewEditor(src)

	require.NoError(t, e.UpdateOption(0, 0, "z"))
	assert.Equal(t, "a", src.Questions[0].Options[0])
}

func ids(q domain.Quiz) []string {
	out := make([]string, 0, len(q.Questions))
	for _, question := range q.Questions {
		out = append(out, question.ID)
	}
	return out
}
