package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/countdown"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/scoring"
	"live-quiz-service/internal/store"
)

type Joined struct {
	Participant domain.Participant `json:"participant"`
	Token       string             `json:"token"`
}

// Submission is the outcome of one answer or timeout.
type Submission struct {
	Participant domain.Participant `json:"participant"`
	Answer      domain.Answer      `json:"answer"`
}

// Join validates the code and name, then registers a new participant.
func (s *Service) Join(ctx context.Context, code, name string) (Joined, error) {
	if !validCode(code) {
		return Joined{}, domain.ErrMalformedCode
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Joined{}, domain.ErrEmptyName
	}

	raw, err := s.store.Get(ctx, store.CodePath(code))
	if stderrors.Is(err, store.ErrNotFound) {
		return Joined{}, domain.ErrInvalidCode
	}
	if err != nil {
		return Joined{}, s.storeError(ctx, "resolve code", err)
	}

	session, err := s.loadSession(ctx, string(raw))
	if err != nil {
		return Joined{}, err
	}
	if session.Status == domain.StatusFinished {
		return Joined{}, domain.ErrSessionEnded
	}

	p := domain.Participant{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Name:      name,
		Answers:   []domain.Answer{},
		JoinedAt:  s.now(),
	}
	if err := s.saveParticipant(ctx, p); err != nil {
		return Joined{}, err
	}

	token, err := s.issuer.IssueParticipant(session.ID, p.ID)
	if err != nil {
		return Joined{}, errors.Internal(err)
	}

	log.Ctx(ctx).Info().Str("session", session.ID).Str("participant", p.ID).Msg("app: participant joined")
	s.bus.Publish(ctx, domain.EventParticipantJoined{Participant: p})

	return Joined{Participant: p, Token: token}, nil
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Participant returns one participant record, used to resume after a reload.
func (s *Service) Participant(ctx context.Context, sessionID, participantID string) (domain.Participant, error) {
	return s.loadParticipant(ctx, sessionID, participantID)
}

// Participants returns every participant of the session in join order.
func (s *Service) Participants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	records, err := s.store.Children(ctx, store.ParticipantsPath(sessionID))
	if err != nil {
		return nil, s.storeError(ctx, "list participants", err)
	}

	out := make([]domain.Participant, 0, len(records))
	for id, raw := range records {
		var p domain.Participant
		if err := json.Unmarshal(raw, &p); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("participant", id).Msg("app: skip malformed participant")
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.Participant) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// SubmitAnswer records the participant's answer to their current question.
func (s *Service) SubmitAnswer(ctx context.Context, sessionID, participantID, questionID string, answer domain.Value) (Submission, error) {
	return s.submit(ctx, sessionID, participantID, questionID, answer, false)
}

// SubmitTimeout records a blank answer for a question whose countdown expired.
func (s *Service) SubmitTimeout(ctx context.Context, sessionID, participantID, questionID string) (Submission, error) {
	return s.submit(ctx, sessionID, participantID, questionID, domain.EmptyValue(), true)
}

func (s *Service) submit(ctx context.Context, sessionID, participantID, questionID string, answer domain.Value, timeout bool) (Submission, error) {
	unlock := s.lockParticipant(participantID)
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return Submission{}, err
	}
	if session.Status != domain.StatusActive {
		return Submission{}, domain.ErrSessionNotActive
	}

	p, err := s.loadParticipant(ctx, sessionID, participantID)
	if err != nil {
		return Submission{}, err
	}
	if p.Completed() {
		return Submission{}, domain.ErrAlreadyCompleted
	}

	question, ok := session.Quiz.QuestionAt(p.CurrentQuestion)
	if !ok {
		return Submission{}, domain.ErrAlreadyCompleted
	}
	if question.ID != questionID {
		return Submission{}, domain.ErrQuestionMismatch
	}

	count := len(session.Quiz.Questions)
	now := s.now()
	var (
		recorded  domain.Answer
		completed bool
	)
	if timeout {
		recorded, completed = scoring.Timeout(&p, question, count, now)
	} else {
		if err := question.ValidateAnswer(answer); err != nil {
			return Submission{}, err
		}
		recorded, completed = scoring.Apply(&p, question, answer, session.FreeTextPolicy, count, now)
	}

	if err := s.saveParticipant(ctx, p); err != nil {
		return Submission{}, err
	}

	log.Ctx(ctx).Debug().
		Str("session", sessionID).
		Str("participant", participantID).
		Str("question", questionID).
		Bool("correct", recorded.IsCorrect).
		Bool("timeout", timeout).
		Msg("app: answer recorded")
	s.bus.Publish(ctx, domain.EventAnswerSubmitted{
		Participant:  p,
		QuestionType: question.Type,
		Answer:       recorded,
		Timeout:      timeout,
		Completed:    completed,
	})

	return Submission{Participant: p, Answer: recorded}, nil
}

// Deadline returns when the participant's current question times out. It
// reports false while the session is not active or the participant is done.
func Deadline(session domain.Session, p domain.Participant) (time.Time, bool) {
	if session.Status != domain.StatusActive || session.StartedAt == nil || p.Completed() {
		return time.Time{}, false
	}
	question, ok := session.Quiz.QuestionAt(p.CurrentQuestion)
	if !ok {
		return time.Time{}, false
	}
	last, _ := p.LastAnsweredAt()
	return countdown.Deadline(session.TimerMode, *session.StartedAt, last, question, session.Quiz.TimeLimit), true
}
