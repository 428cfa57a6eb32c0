package app

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/event"
	"live-quiz-service/internal/quizfile"
	"live-quiz-service/internal/results"
)

// Results computes the live report. Sessions that have left the store are
// served from the archive when one is configured.
func (s *Service) Results(ctx context.Context, sessionID string) (results.Report, error) {
	session, err := s.loadSession(ctx, sessionID)
	if stderrors.Is(err, domain.ErrSessionNotFound) && s.cfg.Archive != nil {
		return s.cfg.Archive.LoadResults(ctx, sessionID)
	}
	if err != nil {
		return results.Report{}, err
	}

	participants, err := s.Participants(ctx, sessionID)
	if err != nil {
		return results.Report{}, err
	}
	return results.Compute(session, participants), nil
}

// ResultsCSV writes the ranking as CSV.
func (s *Service) ResultsCSV(ctx context.Context, sessionID string, w io.Writer) error {
	report, err := s.Results(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := results.WriteCSV(w, report); err != nil {
		return errors.Internal(err)
	}
	return nil
}

func (s *Service) archiveResults(ctx context.Context, e event.Event) error {
	ev := e.(domain.EventSessionFinished)
	err := s.cfg.Archive.SaveResults(ctx, ev.Session, results.Compute(ev.Session, ev.Participants))
	if err != nil && s.cfg.OnArchiveError != nil {
		s.cfg.OnArchiveError()
	}
	return err
}

// SaveQuiz validates a definition and stores it in the library under a new id.
func (s *Service) SaveQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	quizfile.Normalize(&quiz)
	if err := quiz.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := s.quizzes.SaveQuiz(ctx, id, quiz); err != nil {
		return "", errors.Convert(err)
	}
	return id, nil
}

// Quiz returns a library quiz.
func (s *Service) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}
