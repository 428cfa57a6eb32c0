package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/event"
	"live-quiz-service/internal/metrics"
)

func TestMetrics_FollowEvents(t *testing.T) {
	bus := event.NewBus()
	m := metrics.New(prometheus.NewRegistry(), bus)
	ctx := context.Background()
	started := time.Now()

	bus.Publish(ctx, domain.EventSessionCreated{})
	bus.Publish(ctx, domain.EventSessionStarted{})
	bus.Publish(ctx, domain.EventParticipantJoined{})
	bus.Publish(ctx, domain.EventAnswerSubmitted{QuestionType: domain.QuestionSingle, Answer: domain.Answer{IsCorrect: true}})
	bus.Publish(ctx, domain.EventAnswerSubmitted{QuestionType: domain.QuestionText, Timeout: true, Completed: true})
	bus.Stop()

	bus.Publish(ctx, domain.EventSessionFinished{Session: domain.Session{StartedAt: &started}})
	bus.Stop()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsFinished))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveSessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParticipantsJoined))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ParticipantsDone))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("choice", "correct")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("text", "timeout")))
}

func TestMetrics_TrackConnection(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry(), nil)

	done := m.TrackConnection("host")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveConnections.WithLabelValues("host")))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LiveConnections.WithLabelValues("host")))
}
