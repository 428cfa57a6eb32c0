package app

import (
	"context"
	stderrors "errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/event"
	"live-quiz-service/internal/results"
	"live-quiz-service/internal/store"
)

const participantStripes = 64

// QuizLibrary loads and stores reusable quiz definitions.
type QuizLibrary interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	SaveQuiz(ctx context.Context, quizID string, quiz domain.Quiz) error
}

// ResultsArchive keeps reports of finished sessions after the live records expire.
type ResultsArchive interface {
	SaveResults(ctx context.Context, session domain.Session, report results.Report) error
	LoadResults(ctx context.Context, sessionID string) (results.Report, error)
}

type Config struct {
	TimerMode      domain.TimerMode
	FreeTextPolicy domain.FreeTextPolicy
	// Archive is optional.
	Archive ResultsArchive
	// OnArchiveError is called when a finished session could not be archived.
	OnArchiveError func()
	Now            func() time.Time
}

// Service implements the host and participant use cases on top of the shared store.
// archiveConcurrency bounds parallel archive writes so a slow database does
// not pile connections onto the pool.
const archiveConcurrency = 4

type Service struct {
	store   store.Store
	quizzes QuizLibrary
	bus     *event.Bus
	issuer  *auth.Issuer
	cfg     Config
	now     func() time.Time

	stripes [participantStripes]sync.Mutex
}

func NewService(s store.Store, quizzes QuizLibrary, bus *event.Bus, issuer *auth.Issuer, cfg Config) *Service {
	if cfg.TimerMode == "" {
		cfg.TimerMode = domain.TimerContinuous
	}
	if cfg.FreeTextPolicy == "" {
		cfg.FreeTextPolicy = domain.FreeTextExact
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	svc := &Service{
		store:   s,
		quizzes: quizzes,
		bus:     bus,
		issuer:  issuer,
		cfg:     cfg,
		now:     func() time.Time { return now().UTC() },
	}
	if cfg.Archive != nil {
		bus.Subscribe(domain.EventNameSessionFinished, svc.archiveResults,
			event.WithLabel("results-archive"), event.WithConcurrency(archiveConcurrency))
	}
	return svc
}

// Issuer exposes the token issuer so transports can verify bearer tokens.
func (s *Service) Issuer() *auth.Issuer {
	return s.issuer
}

// WatchSession subscribes to writes of the session record.
func (s *Service) WatchSession(ctx context.Context, sessionID string) (<-chan store.Event, func(), error) {
	ch, cancel, err := s.store.Subscribe(ctx, store.SessionPath(sessionID))
	if err != nil {
		return nil, nil, s.storeError(ctx, "subscribe session", err)
	}
	return ch, cancel, nil
}

// WatchParticipants subscribes to writes of any participant record in the session.
func (s *Service) WatchParticipants(ctx context.Context, sessionID string) (<-chan store.Event, func(), error) {
	ch, cancel, err := s.store.Subscribe(ctx, store.ParticipantsPath(sessionID))
	if err != nil {
		return nil, nil, s.storeError(ctx, "subscribe participants", err)
	}
	return ch, cancel, nil
}

func (s *Service) lockParticipant(participantID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(participantID))
	mu := &s.stripes[h.Sum32()%participantStripes]
	mu.Lock()
	return mu.Unlock
}

// lockAllParticipants holds every stripe, so no submission is between its
// status check and its write while the caller runs.
func (s *Service) lockAllParticipants() func() {
	for i := range s.stripes {
		s.stripes[i].Lock()
	}
	return func() {
		for i := len(s.stripes) - 1; i >= 0; i-- {
			s.stripes[i].Unlock()
		}
	}
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var session domain.Session
	err := store.GetJSON(ctx, s.store, store.SessionPath(sessionID), &session)
	if stderrors.Is(err, store.ErrNotFound) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, s.storeError(ctx, "load session", err)
	}
	return session, nil
}

func (s *Service) saveSession(ctx context.Context, session domain.Session) error {
	if err := store.SetJSON(ctx, s.store, store.SessionPath(session.ID), session); err != nil {
		return s.storeError(ctx, "save session", err)
	}
	return nil
}

func (s *Service) loadParticipant(ctx context.Context, sessionID, participantID string) (domain.Participant, error) {
	var p domain.Participant
	err := store.GetJSON(ctx, s.store, store.ParticipantPath(sessionID, participantID), &p)
	if stderrors.Is(err, store.ErrNotFound) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, s.storeError(ctx, "load participant", err)
	}
	return p, nil
}

func (s *Service) saveParticipant(ctx context.Context, p domain.Participant) error {
	if err := store.SetJSON(ctx, s.store, store.ParticipantPath(p.SessionID, p.ID), p); err != nil {
		return s.storeError(ctx, "save participant", err)
	}
	return nil
}

// storeError logs a backend failure and reports it generically.
func (s *Service) storeError(ctx context.Context, op string, err error) error {
	log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("app: store failure")
	return errors.Internal(err)
}
