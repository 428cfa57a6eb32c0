// Package scoring grades answers and advances participant progress.
package scoring

import (
	"slices"
	"time"

	"live-quiz-service/internal/domain"
)

// PointsPerCorrect is awarded for every correct answer in a participant's history.
const PointsPerCorrect = 10

// Evaluate reports whether v is a correct answer to q.
func Evaluate(q domain.Question, v domain.Value, policy domain.FreeTextPolicy) bool {
	if v.IsEmpty() {
		return false
	}

	switch q.Type {
	case domain.QuestionSingle:
		got, ok := v.Index()
		want, wantOK := q.Correct.Index()
		return ok && wantOK && got == want
	case domain.QuestionMultiple:
		got, ok := v.Indices()
		want, wantOK := q.Correct.Indices()
		return ok && wantOK && sameSet(got, want)
	case domain.QuestionText:
		if policy == domain.FreeTextUngraded {
			return false
		}
		got, ok := v.Text()
		want, wantOK := q.Correct.Text()
		return ok && wantOK && got == want
	}
	return false
}

// sameSet compares as sets: order and duplicates are ignored.
func sameSet(a, b []int) bool {
	a, b = normalize(a), normalize(b)
	return slices.Equal(a, b)
}

func normalize(ix []int) []int {
	out := slices.Clone(ix)
	slices.Sort(out)
	return slices.Compact(out)
}

// Score recomputes the cumulative score from the full answer history.
func Score(answers []domain.Answer) int {
	n := 0
	for _, a := range answers {
		if a.IsCorrect {
			n++
		}
	}
	return n * PointsPerCorrect
}

// Apply records v as the answer to q, recomputes the score and advances the
// participant by one question. It reports whether this call completed the
// participant. Callers check that q is the participant's current question.
func Apply(p *domain.Participant, q domain.Question, v domain.Value, policy domain.FreeTextPolicy, questionCount int, now time.Time) (domain.Answer, bool) {
	answer := domain.Answer{
		QuestionID: q.ID,
		Value:      v,
		IsCorrect:  Evaluate(q, v, policy),
		AnsweredAt: now,
	}

	p.Answers = append(p.Answers, answer)
	p.Score = Score(p.Answers)
	p.CurrentQuestion++

	if p.CurrentQuestion >= questionCount && p.CompletedAt == nil {
		p.CompletedAt = &now
		return answer, true
	}
	return answer, false
}

// Timeout records the blank answer submitted when the countdown expires.
func Timeout(p *domain.Participant, q domain.Question, questionCount int, now time.Time) (domain.Answer, bool) {
	return Apply(p, q, domain.EmptyValue(), domain.FreeTextExact, questionCount, now)
}
