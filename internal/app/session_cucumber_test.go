//go:build cucumber

package app_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/event"
	"live-quiz-service/internal/infra/memory"
)

// TestSessionScenarios runs the session lifecycle feature scenarios.
func TestSessionScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "session-lifecycle",
		ScenarioInitializer: initializeSessionScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{"features/session_lifecycle.feature"},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

func initializeSessionScenario(ctx *godog.ScenarioContext) {
	state := &sessionScenario{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		state.bus.Stop()
		return ctx, err
	})

	ctx.Step(`^a quiz with (\d+) single choice questions$`, state.givenQuiz)
	ctx.Step(`^the host creates a session$`, state.hostCreates)
	ctx.Step(`^the host starts the session$`, state.hostStarts)
	ctx.Step(`^the host finishes the session$`, state.hostFinishes)
	ctx.Step(`^"([^"]+)" joins with code "(\d+)"$`, state.joinWithCode)
	ctx.Step(`^"([^"]+)" joins with the session code$`, state.joinSession)
	ctx.Step(`^the join fails with "([^"]+)"$`, state.joinFails)
	ctx.Step(`^"([^"]+)" answers option (\d+) to question "([^"]+)"$`, state.answer)
	ctx.Step(`^the countdown for "([^"]+)" expires on question "([^"]+)"$`, state.timeout)
	ctx.Step(`^"([^"]+)" has score (\d+)$`, state.hasScore)
	ctx.Step(`^"([^"]+)" has completed the quiz$`, state.hasCompleted)
	ctx.Step(`^"([^"]+)" is on question (\d+)$`, state.isOnQuestion)
	ctx.Step(`^the ranking is "([^"]+)"$`, state.rankingIs)
}

type sessionScenario struct {
	svc          *app.Service
	bus          *event.Bus
	clock        *testClock
	quiz         domain.Quiz
	session      domain.Session
	participants map[string]string
	joinErr      error
}

func (s *sessionScenario) reset() {
	s.clock = &testClock{now: base}
	s.bus = event.NewBus()
	library := memory.NewQuizRepository(memory.NewQuizLibrary(nil), time.Minute)
	s.svc = app.NewService(memory.NewStore(), library, s.bus, auth.NewIssuer("scenario", time.Hour), app.Config{Now: s.clock.Now})
	s.quiz = domain.Quiz{}
	s.session = domain.Session{}
	s.participants = map[string]string{}
	s.joinErr = nil
}

func (s *sessionScenario) givenQuiz(n int) error {
	s.quiz = domain.Quiz{Title: "Scenario", TimeLimit: 300}
	for i := 1; i <= n; i++ {
		s.quiz.Questions = append(s.quiz.Questions, domain.Question{
			ID:      fmt.Sprintf("q%d", i),
			Type:    domain.QuestionSingle,
			Prompt:  fmt.Sprintf("Question %d", i),
			Options: []string{"right", "wrong"},
			Correct: domain.IndexValue(0),
		})
	}
	return nil
}

func (s *sessionScenario) hostCreates() error {
	created, err := s.svc.CreateSession(context.Background(), app.CreateSessionRequest{Quiz: &s.quiz})
	if err != nil {
		return err
	}
	s.session = created.Session
	return nil
}

func (s *sessionScenario) hostStarts() error {
	_, err := s.svc.StartSession(context.Background(), s.session.ID)
	return err
}

func (s *sessionScenario) hostFinishes() error {
	_, err := s.svc.FinishSession(context.Background(), s.session.ID)
	return err
}

func (s *sessionScenario) joinWithCode(name, code string) error {
	joined, err := s.svc.Join(context.Background(), code, name)
	s.joinErr = err
	if err == nil {
		s.participants[name] = joined.Participant.ID
	}
	return nil
}

func (s *sessionScenario) joinSession(name string) error {
	return s.joinWithCode(name, s.session.Code)
}

func (s *sessionScenario) joinFails(message string) error {
	if s.joinErr == nil {
		return fmt.Errorf("expected join to fail with %q", message)
	}
	if got := errors.Convert(s.joinErr).Message; got != message {
		return fmt.Errorf("expected %q, got %q", message, got)
	}
	return nil
}

func (s *sessionScenario) participant(name string) (domain.Participant, error) {
	id, ok := s.participants[name]
	if !ok {
		return domain.Participant{}, fmt.Errorf("%s has not joined", name)
	}
	return s.svc.Participant(context.Background(), s.session.ID, id)
}

func (s *sessionScenario) answer(name string, option int, questionID string) error {
	s.clock.Advance(time.Second)
	_, err := s.svc.SubmitAnswer(context.Background(), s.session.ID, s.participants[name], questionID, domain.IndexValue(option))
	return err
}

func (s *sessionScenario) timeout(name, questionID string) error {
	_, err := s.svc.SubmitTimeout(context.Background(), s.session.ID, s.participants[name], questionID)
	return err
}

func (s *sessionScenario) hasScore(name string, score int) error {
	p, err := s.participant(name)
	if err != nil {
		return err
	}
	if p.Score != score {
		return fmt.Errorf("expected score %d, got %d", score, p.Score)
	}
	return nil
}

func (s *sessionScenario) hasCompleted(name string) error {
	p, err := s.participant(name)
	if err != nil {
		return err
	}
	if !p.Completed() {
		return fmt.Errorf("%s has not completed", name)
	}
	return nil
}

func (s *sessionScenario) isOnQuestion(name string, number int) error {
	p, err := s.participant(name)
	if err != nil {
		return err
	}
	if p.CurrentQuestion+1 != number {
		return fmt.Errorf("expected question %d, got %d", number, p.CurrentQuestion+1)
	}
	return nil
}

func (s *sessionScenario) rankingIs(expected string) error {
	report, err := s.svc.Results(context.Background(), s.session.ID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(report.Ranking))
	for _, e := range report.Ranking {
		names = append(names, e.Name)
	}
	if got := strings.Join(names, ", "); got != expected {
		return fmt.Errorf("expected ranking %q, got %q", expected, got)
	}
	return nil
}
