package http

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/countdown"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/metrics"
	"live-quiz-service/internal/results"
)

const (
	msgSession     = "session"
	msgParticipant = "participant"
	msgProgress    = "progress"
	msgTimer       = "timer"
	msgResults     = "results"
	msgFinished    = "finished"
	msgError       = "error"

	msgAnswer = "answer"

	writeWait = 10 * time.Second
)

type WSHandler struct {
	service  *app.Service
	metrics  *metrics.Metrics
	clock    countdown.Clock
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service, m *metrics.Metrics, clock countdown.Clock) *WSHandler {
	if clock == nil {
		clock = countdown.System
	}
	return &WSHandler{
		service: service,
		metrics: m,
		clock:   clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type (
	inboundMessage struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	answerPayload struct {
		QuestionID string       `json:"questionId"`
		Answer     domain.Value `json:"answer"`
	}

	outboundMessage struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}

	errorPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	timerPayload struct {
		QuestionID       string    `json:"questionId"`
		RemainingSeconds int       `json:"remainingSeconds"`
		Deadline         time.Time `json:"deadline"`
	}

	// progressEntry is what peers see of each other: name and question number.
	progressEntry struct {
		ParticipantID   string `json:"participantId"`
		Name            string `json:"name"`
		CurrentQuestion int    `json:"currentQuestion"`
		Completed       bool   `json:"completed"`
	}

	clientMessage struct {
		answer  answerPayload
		invalid string
	}

	finishedPayload struct {
		SessionID string          `json:"sessionId"`
		Results   *results.Report `json:"results,omitempty"`
	}
)

// Serve upgrades the request to a live feed for the session named in the
// path. The token decides the role: hosts receive results on every change,
// participants receive their own record, peers' progress and the countdown.
func (h *WSHandler) Serve(c *gin.Context) {
	sessionID := c.Param("id")
	claims := claimsFrom(c)
	if claims == nil || claims.SessionID != sessionID {
		abort(c, auth.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Ctx(c.Request.Context()).Warn().Err(err).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		defer h.metrics.TrackConnection(string(claims.Role))()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	logger := log.Ctx(ctx).With().Str("session", sessionID).Str("role", string(claims.Role)).Str("participant", claims.ParticipantID).Logger()
	ctx = logger.WithContext(ctx)

	f := &feed{
		svc:       h.service,
		claims:    claims,
		sessionID: sessionID,
		send:      make(chan outboundMessage, 16),
		expired:   make(chan struct{}, 1),
		inbound:   make(chan clientMessage),
		clock:     h.clock,
		log:       &logger,
	}
	f.timer = countdown.New(h.clock, func() {
		select {
		case f.expired <- struct{}{}:
		default:
		}
	})
	defer f.timer.Cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range f.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws: write failed")
				cancel()
				// Drain so the feed never blocks on a dead connection.
				for range f.send {
				}
				return
			}
		}
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			var in inboundMessage
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			msg := clientMessage{}
			switch {
			case claims.Role != auth.RoleParticipant || in.Type != msgAnswer:
				msg.invalid = "unsupported message type"
			case json.Unmarshal(in.Payload, &msg.answer) != nil:
				msg.invalid = "invalid answer payload"
			}
			select {
			case f.inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info().Msg("ws: feed opened")
	if err := f.run(ctx); err != nil {
		f.emitError(ctx, err)
	}
	logger.Info().Msg("ws: feed closed")

	cancel()
	close(f.send)
	<-writerDone
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = conn.Close()
	<-readerDone
}

// feed is the per-connection state. Only run touches session and self.
type feed struct {
	svc       *app.Service
	claims    *auth.Claims
	sessionID string

	send    chan outboundMessage
	expired chan struct{}
	inbound chan clientMessage
	timer   *countdown.Countdown
	clock   countdown.Clock
	log     *zerolog.Logger

	session domain.Session
	self    domain.Participant
}

func (f *feed) participant() bool {
	return f.claims.Role == auth.RoleParticipant
}

// run forwards store changes until the session finishes or ctx is done.
func (f *feed) run(ctx context.Context) error {
	sessions, stopSessions, err := f.svc.WatchSession(ctx, f.sessionID)
	if err != nil {
		return err
	}
	defer stopSessions()

	participants, stopParticipants, err := f.svc.WatchParticipants(ctx, f.sessionID)
	if err != nil {
		return err
	}
	defer stopParticipants()

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-sessions:
			if !ok {
				return nil
			}
			done, err := f.onSession(ctx)
			if err != nil || done {
				return err
			}

		case _, ok := <-participants:
			if !ok {
				return nil
			}
			if err := f.onParticipants(ctx); err != nil {
				return err
			}

		case <-f.expired:
			f.onExpired(ctx)

		case msg := <-f.inbound:
			if msg.invalid != "" {
				f.emitError(ctx, errors.InvalidArgument("%s", msg.invalid))
				continue
			}
			a := msg.answer
			if _, err := f.svc.SubmitAnswer(ctx, f.sessionID, f.claims.ParticipantID, a.QuestionID, a.Answer); err != nil {
				f.emitError(ctx, err)
			}
		}
	}
}

func (f *feed) onSession(ctx context.Context) (bool, error) {
	session, err := f.svc.Session(ctx, f.sessionID)
	if err != nil {
		return false, err
	}
	f.session = session
	f.emit(ctx, msgSession, visibleSession(session, f.claims))

	if session.Status == domain.StatusFinished {
		f.timer.Cancel()
		payload := finishedPayload{SessionID: session.ID}
		if report, err := f.svc.Results(ctx, session.ID); err == nil {
			payload.Results = &report
		}
		f.emit(ctx, msgFinished, payload)
		return true, nil
	}

	if f.participant() && f.self.ID != "" {
		f.rearm(ctx)
	}
	return false, nil
}

func (f *feed) onParticipants(ctx context.Context) error {
	if !f.participant() {
		report, err := f.svc.Results(ctx, f.sessionID)
		if err != nil {
			return err
		}
		f.emit(ctx, msgResults, report)
		return nil
	}

	all, err := f.svc.Participants(ctx, f.sessionID)
	if err != nil {
		return err
	}

	progress := make([]progressEntry, 0, len(all))
	for _, p := range all {
		if p.ID == f.claims.ParticipantID {
			f.self = p
		}
		progress = append(progress, progressEntry{
			ParticipantID:   p.ID,
			Name:            p.Name,
			CurrentQuestion: p.CurrentQuestion,
			Completed:       p.Completed(),
		})
	}
	if f.self.ID == "" {
		return domain.ErrParticipantNotFound
	}

	f.emit(ctx, msgParticipant, f.self)
	f.emit(ctx, msgProgress, progress)
	f.rearm(ctx)
	return nil
}

// rearm points the countdown at the current question's deadline. In
// continuous mode every question shares one deadline, so an expired
// countdown is armed again and times out the next question at once.
func (f *feed) rearm(ctx context.Context) {
	deadline, ok := app.Deadline(f.session, f.self)
	if !ok {
		f.timer.Cancel()
		return
	}
	if f.timer.State() != countdown.Armed || !f.timer.Deadline().Equal(deadline) {
		f.timer.Arm(deadline)
	}

	question, _ := f.session.Quiz.QuestionAt(f.self.CurrentQuestion)
	f.emit(ctx, msgTimer, timerPayload{
		QuestionID:       question.ID,
		RemainingSeconds: int(countdown.Remaining(deadline, f.clock.Now()).Round(time.Second) / time.Second),
		Deadline:         deadline,
	})
}

// onExpired submits the blank answer for the current question. An expiry
// that raced with a manual answer finds a later deadline and is dropped.
func (f *feed) onExpired(ctx context.Context) {
	deadline, ok := app.Deadline(f.session, f.self)
	if !ok || countdown.Remaining(deadline, f.clock.Now()) > 0 {
		return
	}
	question, _ := f.session.Quiz.QuestionAt(f.self.CurrentQuestion)
	_, err := f.svc.SubmitTimeout(ctx, f.sessionID, f.claims.ParticipantID, question.ID)
	if err != nil && !stderrors.Is(err, domain.ErrQuestionMismatch) {
		f.emitError(ctx, err)
	}
}

func (f *feed) emit(ctx context.Context, typ string, payload any) {
	select {
	case f.send <- outboundMessage{Type: typ, Payload: payload}:
	case <-ctx.Done():
	}
}

func (f *feed) emitError(ctx context.Context, err error) {
	e := errors.Convert(err)
	msg := e.Message
	if e.HTTPStatusCode() >= http.StatusInternalServerError {
		f.log.Error().Err(err).Msg("ws: feed failed")
		msg = "internal error"
	}
	f.emit(ctx, msgError, errorPayload{Code: e.GRPCStatus().Code().String(), Message: msg})
}
