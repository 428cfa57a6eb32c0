// Package metrics exports Prometheus collectors fed from domain events.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/event"
)

const namespace = "livequiz"

type Metrics struct {
	SessionsCreated     prometheus.Counter
	SessionsStarted     prometheus.Counter
	SessionsFinished    prometheus.Counter
	ActiveSessions      prometheus.Gauge
	ParticipantsJoined  prometheus.Counter
	ParticipantsDone    prometheus.Counter
	Answers             *prometheus.CounterVec
	LiveConnections     *prometheus.GaugeVec
	ResultsArchiveFails prometheus.Counter
}

// New registers the collectors on reg and subscribes them to bus.
func New(reg prometheus.Registerer, bus *event.Bus) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_created_total",
			Help: "Sessions created.",
		}),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_started_total",
			Help: "Sessions moved to active.",
		}),
		SessionsFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_finished_total",
			Help: "Sessions moved to finished.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_sessions",
			Help: "Sessions started by this process and not yet finished.",
		}),
		ParticipantsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "participants_joined_total",
			Help: "Participants that joined a session.",
		}),
		ParticipantsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "participants_completed_total",
			Help: "Participants that answered every question.",
		}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "answers_total",
			Help: "Recorded answers by question type and outcome.",
		}, []string{"type", "outcome"}),
		LiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "live_connections",
			Help: "Open websocket connections by role.",
		}, []string{"role"}),
		ResultsArchiveFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "results_archive_failures_total",
			Help: "Finished sessions whose results could not be archived.",
		}),
	}

	reg.MustRegister(
		m.SessionsCreated, m.SessionsStarted, m.SessionsFinished, m.ActiveSessions,
		m.ParticipantsJoined, m.ParticipantsDone, m.Answers, m.LiveConnections, m.ResultsArchiveFails,
	)

	if bus != nil {
		m.subscribe(bus)
	}
	return m
}

func (m *Metrics) subscribe(bus *event.Bus) {
	bus.Subscribe(domain.EventNameSessionCreated, func(_ context.Context, _ event.Event) error {
		m.SessionsCreated.Inc()
		return nil
	})
	bus.Subscribe(domain.EventNameSessionStarted, func(_ context.Context, _ event.Event) error {
		m.SessionsStarted.Inc()
		m.ActiveSessions.Inc()
		return nil
	})
	bus.Subscribe(domain.EventNameSessionFinished, func(_ context.Context, e event.Event) error {
		m.SessionsFinished.Inc()
		if e.(domain.EventSessionFinished).Session.StartedAt != nil {
			m.ActiveSessions.Dec()
		}
		return nil
	})
	bus.Subscribe(domain.EventNameParticipantJoined, func(_ context.Context, _ event.Event) error {
		m.ParticipantsJoined.Inc()
		return nil
	})
	bus.Subscribe(domain.EventNameAnswerSubmitted, func(_ context.Context, e event.Event) error {
		ev := e.(domain.EventAnswerSubmitted)
		m.Answers.WithLabelValues(string(ev.QuestionType), outcome(ev)).Inc()
		if ev.Completed {
			m.ParticipantsDone.Inc()
		}
		return nil
	})
}

func outcome(ev domain.EventAnswerSubmitted) string {
	switch {
	case ev.Timeout:
		return "timeout"
	case ev.Answer.IsCorrect:
		return "correct"
	default:
		return "incorrect"
	}
}

// TrackConnection counts an open connection until the returned func is called.
func (m *Metrics) TrackConnection(role string) func() {
	g := m.LiveConnections.WithLabelValues(role)
	g.Inc()
	return g.Dec
}
