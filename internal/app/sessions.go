package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/quizfile"
	"live-quiz-service/internal/store"
)

const codeAttempts = 10

var (
	codeSpace = big.NewInt(1_000_000)

	errQuizRequired  = errors.InvalidArgument("either quiz or quizId is required")
	errCodeExhausted = errors.New(errors.CodeInternal, errors.WithMessagef("could not allocate a join code"))
)

type CreateSessionRequest struct {
	Quiz   *domain.Quiz `json:"quiz,omitempty"`
	QuizID string       `json:"quizId,omitempty"`
	// TimeLimit overrides the quiz time limit in seconds when positive.
	TimeLimit int `json:"timeLimit,omitempty"`
}

type CreatedSession struct {
	Session   domain.Session `json:"session"`
	HostToken string         `json:"hostToken"`
}

// CreateSession snapshots the quiz into a new waiting session and reserves a
// join code for it.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (CreatedSession, error) {
	var quiz domain.Quiz
	switch {
	case req.Quiz != nil:
		quiz = req.Quiz.Clone()
	case req.QuizID != "":
		q, err := s.quizzes.GetQuiz(ctx, req.QuizID)
		if err != nil {
			return CreatedSession{}, err
		}
		quiz = q
	default:
		return CreatedSession{}, errQuizRequired
	}

	if req.TimeLimit > 0 {
		quiz.TimeLimit = req.TimeLimit
	}
	quizfile.Normalize(&quiz)
	if err := quiz.Validate(); err != nil {
		return CreatedSession{}, err
	}

	session := domain.Session{
		ID:             uuid.NewString(),
		Quiz:           quiz,
		Status:         domain.StatusWaiting,
		TimerMode:      s.cfg.TimerMode,
		FreeTextPolicy: s.cfg.FreeTextPolicy,
		CreatedAt:      s.now(),
	}

	code, err := s.reserveCode(ctx, session.ID)
	if err != nil {
		return CreatedSession{}, err
	}
	session.Code = code

	if err := s.saveSession(ctx, session); err != nil {
		return CreatedSession{}, err
	}

	token, err := s.issuer.IssueHost(session.ID)
	if err != nil {
		return CreatedSession{}, errors.Internal(err)
	}

	log.Ctx(ctx).Info().Str("session", session.ID).Str("code", code).Msg("app: session created")
	s.bus.Publish(ctx, domain.EventSessionCreated{Session: session})

	return CreatedSession{Session: session, HostToken: token}, nil
}

// reserveCode maps a random unused 6-digit code to the session.
func (s *Service) reserveCode(ctx context.Context, sessionID string) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		n, err := rand.Int(rand.Reader, codeSpace)
		if err != nil {
			return "", errors.Internal(err)
		}
		code := fmt.Sprintf("%06d", n.Int64())

		ok, err := s.store.SetIfAbsent(ctx, store.CodePath(code), []byte(sessionID))
		if err != nil {
			return "", s.storeError(ctx, "reserve code", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", errCodeExhausted
}

// Session returns the session record.
func (s *Service) Session(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.loadSession(ctx, sessionID)
}

// StartSession opens a waiting session for answers.
func (s *Service) StartSession(ctx context.Context, sessionID string) (domain.Session, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := session.Start(s.now()); err != nil {
		return domain.Session{}, err
	}
	if err := s.saveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}

	log.Ctx(ctx).Info().Str("session", session.ID).Msg("app: session started")
	s.bus.Publish(ctx, domain.EventSessionStarted{Session: session})
	return session, nil
}

// FinishSession ends an active session, or aborts one that never started.
func (s *Service) FinishSession(ctx context.Context, sessionID string) (domain.Session, error) {
	// Submissions already past their status check land in the finished report.
	unlock := s.lockAllParticipants()
	defer unlock()

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if err := session.Finish(s.now()); err != nil {
		return domain.Session{}, err
	}
	if err := s.saveSession(ctx, session); err != nil {
		return domain.Session{}, err
	}

	participants, err := s.Participants(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}

	log.Ctx(ctx).Info().Str("session", session.ID).Int("participants", len(participants)).Msg("app: session finished")
	s.bus.Publish(ctx, domain.EventSessionFinished{Session: session, Participants: participants})
	return session, nil
}
