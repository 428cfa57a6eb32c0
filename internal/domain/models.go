package domain

import (
	"slices"
	"time"
)

// QuestionType is the exchange-format question type.
type QuestionType string

const (
	QuestionSingle   QuestionType = "choice"
	QuestionMultiple QuestionType = "multiple"
	QuestionText     QuestionType = "text"
)

// HasOptions reports whether answers to this type are option indices.
func (t QuestionType) HasOptions() bool {
	return t == QuestionSingle || t == QuestionMultiple
}

const (
	MinTimeLimit = 60
	MaxTimeLimit = 3600
	// DefaultTimeLimit is what the host screen proposes when creating a session.
	DefaultTimeLimit = 300
)

// Question is one quiz item.
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Type        QuestionType `json:"type" yaml:"type"`
	Prompt      string       `json:"question" yaml:"question"`
	Options     []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Correct     Value        `json:"correct" yaml:"correct"`
	TimeLimit   int          `json:"timeLimit,omitempty" yaml:"timeLimit,omitempty"`
	Explanation string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Quiz is the static quiz definition a session is built from.
type Quiz struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
	TimeLimit   int        `json:"timeLimit" yaml:"timeLimit"`
}

// Clone deep-copies the quiz so a session never shares slices with its source.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = slices.Clone(question.Options)
		question.Correct = question.Correct.clone()
		out.Questions[i] = question
	}
	return out
}

// Redacted hides correct answers and explanations.
func (q Quiz) Redacted() Quiz {
	out := q.Clone()
	for i := range out.Questions {
		out.Questions[i].Correct = Value{}
		out.Questions[i].Explanation = ""
	}
	return out
}

// QuestionAt returns the question at index i.
func (q Quiz) QuestionAt(i int) (Question, bool) {
	if i < 0 || i >= len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[i], true
}

func (v Value) clone() Value {
	v.indices = slices.Clone(v.indices)
	return v
}

// Status is the session lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// TimerMode selects how the answer countdown behaves across questions.
type TimerMode string

const (
	// TimerContinuous runs one countdown from session start for the whole quiz.
	TimerContinuous TimerMode = "continuous"
	// TimerPerQuestion restarts the countdown for every question.
	TimerPerQuestion TimerMode = "per_question"
)

// FreeTextPolicy selects how free-text answers are graded.
type FreeTextPolicy string

const (
	// FreeTextExact compares case-sensitively with the reference text.
	FreeTextExact FreeTextPolicy = "exact"
	// FreeTextUngraded never marks free text correct.
	FreeTextUngraded FreeTextPolicy = "ungraded"
)

// Session is one timed run of a quiz.
type Session struct {
	ID             string         `json:"id"`
	Code           string         `json:"code"`
	Quiz           Quiz           `json:"quizData"`
	Status         Status         `json:"status"`
	TimerMode      TimerMode      `json:"timerMode"`
	FreeTextPolicy FreeTextPolicy `json:"freeTextPolicy"`
	CreatedAt      time.Time      `json:"createdAt"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	FinishedAt     *time.Time     `json:"finishedAt,omitempty"`
}

// Start moves a waiting session to active.
func (s *Session) Start(now time.Time) error {
	if s.Status != StatusWaiting {
		return ErrInvalidTransition.Wrap(transitionError(s.Status, StatusActive))
	}
	s.Status = StatusActive
	s.StartedAt = &now
	return nil
}

// Finish ends an active session. A waiting session may be finished too, which
// aborts it before anyone played.
func (s *Session) Finish(now time.Time) error {
	if s.Status == StatusFinished {
		return ErrInvalidTransition.Wrap(transitionError(s.Status, StatusFinished))
	}
	s.Status = StatusFinished
	s.FinishedAt = &now
	return nil
}

// Participant is one joined user's progress within a session.
type Participant struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId"`
	Name            string     `json:"name"`
	CurrentQuestion int        `json:"currentQuestion"`
	Answers         []Answer   `json:"answers"`
	Score           int        `json:"score"`
	JoinedAt        time.Time  `json:"joinedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Completed reports whether the participant answered every question.
func (p Participant) Completed() bool {
	return p.CompletedAt != nil
}

// CorrectCount counts correct answers in the history.
func (p Participant) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// LastAnsweredAt returns the time of the latest answer, if any.
func (p Participant) LastAnsweredAt() (time.Time, bool) {
	if len(p.Answers) == 0 {
		return time.Time{}, false
	}
	return p.Answers[len(p.Answers)-1].AnsweredAt, true
}

// Answer is one submitted answer. Answers are append-only.
type Answer struct {
	QuestionID string    `json:"questionId"`
	Value      Value     `json:"answer"`
	IsCorrect  bool      `json:"isCorrect"`
	AnsweredAt time.Time `json:"answeredAt"`
}
