// Package results computes rankings and statistics for a session.
package results

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"live-quiz-service/internal/domain"
)

var hundred = decimal.NewFromInt(100)

type (
	Report struct {
		SessionID     string          `json:"sessionId"`
		Status        domain.Status   `json:"status"`
		QuestionCount int             `json:"questionCount"`
		Ranking       []Entry         `json:"ranking"`
		Questions     []QuestionStats `json:"questions"`
		Summary       Summary         `json:"summary"`
	}

	Entry struct {
		Rank            int             `json:"rank"`
		ParticipantID   string          `json:"participantId"`
		Name            string          `json:"name"`
		Score           int             `json:"score"`
		CorrectCount    int             `json:"correctCount"`
		CorrectRate     decimal.Decimal `json:"correctRate"`
		CurrentQuestion int             `json:"currentQuestion"`
		Progress        decimal.Decimal `json:"progress"`
		CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	}

	QuestionStats struct {
		QuestionID     string              `json:"questionId"`
		Prompt         string              `json:"question"`
		Type           domain.QuestionType `json:"type"`
		CorrectCount   int                 `json:"correctCount"`
		IncorrectCount int                 `json:"incorrectCount"`
		CorrectRate    decimal.Decimal     `json:"correctRate"`
		// Distribution lists every option in definition order. Choice questions only.
		Distribution []OptionCount `json:"distribution,omitempty"`
	}

	OptionCount struct {
		Index  int    `json:"index"`
		Option string `json:"option"`
		Count  int    `json:"count"`
	}

	Summary struct {
		Participants   int             `json:"participants"`
		Completed      int             `json:"completed"`
		CompletionRate decimal.Decimal `json:"completionRate"`
		AverageScore   decimal.Decimal `json:"averageScore"`
		TopScore       int             `json:"topScore"`
		TopName        string          `json:"topName,omitempty"`
		TopID          string          `json:"topParticipantId,omitempty"`
	}
)

// Compute builds the report. It is a pure function of its inputs.
func Compute(session domain.Session, participants []domain.Participant) Report {
	questions := session.Quiz.Questions
	ranked := Rank(participants)

	r := Report{
		SessionID:     session.ID,
		Status:        session.Status,
		QuestionCount: len(questions),
		Ranking:       make([]Entry, 0, len(ranked)),
		Questions:     make([]QuestionStats, 0, len(questions)),
	}

	for i, p := range ranked {
		correct := p.CorrectCount()
		r.Ranking = append(r.Ranking, Entry{
			Rank:            i + 1,
			ParticipantID:   p.ID,
			Name:            p.Name,
			Score:           p.Score,
			CorrectCount:    correct,
			CorrectRate:     percent(correct, len(questions)),
			CurrentQuestion: p.CurrentQuestion,
			Progress:        percent(min(p.CurrentQuestion, len(questions)), len(questions)),
			CompletedAt:     p.CompletedAt,
		})
	}

	for _, q := range questions {
		r.Questions = append(r.Questions, questionStats(q, participants))
	}

	r.Summary = summarize(ranked)
	return r
}

// Rank orders participants by score descending. Equal scores go to whoever
// completed first; completed participants precede unfinished ones, then
// earlier joiners, then id.
func Rank(participants []domain.Participant) []domain.Participant {
	out := slices.Clone(participants)
	slices.SortStableFunc(out, compare)
	return out
}

func compare(a, b domain.Participant) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	switch {
	case a.CompletedAt != nil && b.CompletedAt != nil:
		if c := a.CompletedAt.Compare(*b.CompletedAt); c != 0 {
			return c
		}
	case a.CompletedAt != nil:
		return -1
	case b.CompletedAt != nil:
		return 1
	}
	if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func questionStats(q domain.Question, participants []domain.Participant) QuestionStats {
	s := QuestionStats{
		QuestionID: q.ID,
		Prompt:     q.Prompt,
		Type:       q.Type,
	}
	if q.Type.HasOptions() {
		s.Distribution = make([]OptionCount, len(q.Options))
		for i, opt := range q.Options {
			s.Distribution[i] = OptionCount{Index: i, Option: opt}
		}
	}

	for _, p := range participants {
		a, ok := answerFor(p, q.ID)
		if !ok {
			continue
		}
		if a.IsCorrect {
			s.CorrectCount++
		} else {
			s.IncorrectCount++
		}
		for _, idx := range selected(a.Value) {
			if idx >= 0 && idx < len(s.Distribution) {
				s.Distribution[idx].Count++
			}
		}
	}

	s.CorrectRate = percent(s.CorrectCount, s.CorrectCount+s.IncorrectCount)
	return s
}

func answerFor(p domain.Participant, questionID string) (domain.Answer, bool) {
	for _, a := range p.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return domain.Answer{}, false
}

// selected returns the distinct option indices chosen in v.
func selected(v domain.Value) []int {
	if idx, ok := v.Index(); ok {
		return []int{idx}
	}
	if ix, ok := v.Indices(); ok {
		slices.Sort(ix)
		return slices.Compact(ix)
	}
	return nil
}

func summarize(ranked []domain.Participant) Summary {
	s := Summary{Participants: len(ranked)}
	if len(ranked) == 0 {
		s.CompletionRate = decimal.Zero
		s.AverageScore = decimal.Zero
		return s
	}

	total := 0
	for _, p := range ranked {
		total += p.Score
		if p.Completed() {
			s.Completed++
		}
	}

	s.CompletionRate = percent(s.Completed, len(ranked))
	s.AverageScore = decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(ranked)))).Round(2)
	s.TopScore = ranked[0].Score
	s.TopName = ranked[0].Name
	s.TopID = ranked[0].ID
	return s
}

func percent(n, of int) decimal.Decimal {
	if of == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(n)).Mul(hundred).Div(decimal.NewFromInt(int64(of))).Round(2)
}
