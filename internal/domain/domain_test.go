package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
)

func TestValue_JSON(t *testing.T) {
	tests := map[string]struct {
		raw      string
		wantKind domain.ValueKind
		wantOut  string
	}{
		"index":        {raw: `2`, wantKind: domain.KindIndex, wantOut: `2`},
		"indices":      {raw: `[0, 2]`, wantKind: domain.KindIndices, wantOut: `[0,2]`},
		"empty list":   {raw: `[]`, wantKind: domain.KindIndices, wantOut: `[]`},
		"text":         {raw: `"Tokyo"`, wantKind: domain.KindText, wantOut: `"Tokyo"`},
		"blank answer": {raw: `""`, wantKind: domain.KindEmpty, wantOut: `""`},
		"null":         {raw: `null`, wantKind: domain.KindEmpty, wantOut: `""`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var v domain.Value
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.wantKind, v.Kind())

			out, err := json.Marshal(v)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, string(out))
		})
	}
}

func TestValue_RejectsNonIntegerIndex(t *testing.T) {
	var v domain.Value
	require.Error(t, json.Unmarshal([]byte(`1.5`), &v))
	require.Error(t, json.Unmarshal([]byte(`[1, "a"]`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestQuiz_Validate(t *testing.T) {
	tests := map[string]struct {
		arrange func(q *domain.Quiz)
		wantErr bool
	}{
		"valid quiz": {
			arrange: func(q *domain.Quiz) {},
		},
		"missing title": {
			arrange: func(q *domain.Quiz) { q.Title = "  " },
			wantErr: true,
		},
		"no questions": {
			arrange: func(q *domain.Quiz) { q.Questions = nil },
			wantErr: true,
		},
		"time limit below minimum": {
			arrange: func(q *domain.Quiz) { q.TimeLimit = 59 },
			wantErr: true,
		},
		"time limit above maximum": {
			arrange: func(q *domain.Quiz) { q.TimeLimit = 3601 },
			wantErr: true,
		},
		"duplicate question ids": {
			arrange: func(q *domain.Quiz) { q.Questions[1].ID = q.Questions[0].ID },
			wantErr: true,
		},
		"single choice with one option": {
			arrange: func(q *domain.Quiz) { q.Questions[0].Options = []string{"only"} },
			wantErr: true,
		},
		"correct index out of range": {
			arrange: func(q *domain.Quiz) { q.Questions[0].Correct = domain.IndexValue(4) },
			wantErr: true,
		},
		"multiple with no correct indices": {
			arrange: func(q *domain.Quiz) { q.Questions[1].Correct = domain.IndicesValue() },
			wantErr: true,
		},
		"multiple with repeated index": {
			arrange: func(q *domain.Quiz) { q.Questions[1].Correct = domain.IndicesValue(0, 0) },
			wantErr: true,
		},
		"empty option text": {
			arrange: func(q *domain.Quiz) { q.Questions[0].Options[1] = "" },
			wantErr: true,
		},
		"unknown type": {
			arrange: func(q *domain.Quiz) { q.Questions[2].Type = "essay" },
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			q := sampleQuiz()
			tt.arrange(&q)

			err := q.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidArgument, errors.Convert(err).Code)
		})
	}
}

func TestQuiz_RedactedDoesNotTouchSource(t *testing.T) {
	q := sampleQuiz()
	r := q.Redacted()

	assert.True(t, r.Questions[0].Correct.IsEmpty())
	assert.Empty(t, r.Questions[0].Explanation)
	idx, ok := q.Questions[0].Correct.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Paris is the capital.", q.Questions[0].Explanation)
}

func TestSession_Transitions(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := domain.Session{Status: domain.StatusWaiting}

	require.NoError(t, s.Finish(now), "waiting session can be aborted")
	assert.Equal(t, domain.StatusFinished, s.Status)
	require.ErrorIs(t, s.Start(now), domain.ErrInvalidTransition)
	require.ErrorIs(t, s.Finish(now), domain.ErrInvalidTransition)

	s = domain.Session{Status: domain.StatusWaiting}
	require.NoError(t, s.Start(now))
	require.NotNil(t, s.StartedAt)
	assert.Equal(t, now, *s.StartedAt)
	require.ErrorIs(t, s.Start(now), domain.ErrInvalidTransition)

	later := now.Add(time.Minute)
	require.NoError(t, s.Finish(later))
	assert.Equal(t, domain.StatusFinished, s.Status)
	assert.Equal(t, later, *s.FinishedAt)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		Title:     "Geography",
		TimeLimit: 300,
		Questions: []domain.Question{
			{
				ID:          "q1",
				Type:        domain.QuestionSingle,
				Prompt:      "Capital of France?",
				Options:     []string{"Lyon", "Paris", "Nice"},
				Correct:     domain.IndexValue(1),
				Explanation: "Paris is the capital.",
			},
			{
				ID:      "q2",
				Type:    domain.QuestionMultiple,
				Prompt:  "Which are oceans?",
				Options: []string{"Atlantic", "Sahara", "Pacific"},
				Correct: domain.IndicesValue(0, 2),
			},
			{
				ID:      "q3",
				Type:    domain.QuestionText,
				Prompt:  "Capital of Japan?",
				Correct: domain.TextValue("Tokyo"),
			},
		},
	}
}
