package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"live-quiz-service/internal/domain"
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (e *testEnv) dial(t *testing.T, sessionID, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/sessions/" + sessionID + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil skips messages until one of type typ satisfies match.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ && (match == nil || match(msg.Payload)) {
			return msg.Payload
		}
	}
}

func participantAt(question int) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var p domain.Participant
		return json.Unmarshal(raw, &p) == nil && p.CurrentQuestion == question
	}
}

func timerFor(questionID string) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var tp timerPayload
		return json.Unmarshal(raw, &tp) == nil && tp.QuestionID == questionID
	}
}

func TestWebSocketParticipantFeed(t *testing.T) {
	env := newTestEnv(t, domain.TimerPerQuestion)
	created := env.createSession(t)
	id := created.Session.ID

	ann := env.join(t, created.Session.Code, "Ann")
	if status, body := env.do(t, http.MethodPost, "/api/sessions/"+id+"/start", created.HostToken, "", ""); status != http.StatusOK {
		t.Fatalf("start: %d %s", status, body)
	}

	conn := env.dial(t, id, ann.Token)

	raw := readUntil(t, conn, msgTimer, timerFor("q1"))
	var tp timerPayload
	if err := json.Unmarshal(raw, &tp); err != nil {
		t.Fatalf("decode timer: %v", err)
	}
	if tp.RemainingSeconds != 120 {
		t.Fatalf("expected 120 seconds left, got %d", tp.RemainingSeconds)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "answer": 1},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	raw = readUntil(t, conn, msgParticipant, participantAt(1))
	var p domain.Participant
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode participant: %v", err)
	}
	if p.Score != 10 {
		t.Fatalf("expected score 10, got %d", p.Score)
	}
	readUntil(t, conn, msgProgress, nil)

	// The countdown for q2 is armed before its timer message is sent.
	readUntil(t, conn, msgTimer, timerFor("q2"))
	env.clock.Advance(121 * time.Second)

	raw = readUntil(t, conn, msgParticipant, participantAt(2))
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("decode participant: %v", err)
	}
	if p.CompletedAt == nil || len(p.Answers) != 2 || !p.Answers[1].Value.IsEmpty() {
		t.Fatalf("expected a blank timeout answer completing the quiz, got %+v", p)
	}

	if status, body := env.do(t, http.MethodPost, "/api/sessions/"+id+"/finish", created.HostToken, "", ""); status != http.StatusOK {
		t.Fatalf("finish: %d %s", status, body)
	}
	readUntil(t, conn, msgFinished, nil)
}

func TestWebSocketRejectsInvalidMessages(t *testing.T) {
	env := newTestEnv(t, domain.TimerContinuous)
	created := env.createSession(t)
	ann := env.join(t, created.Session.Code, "Ann")

	conn := env.dial(t, created.Session.ID, ann.Token)
	readUntil(t, conn, msgParticipant, nil)

	if err := conn.WriteJSON(map[string]any{"type": "cheat"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := readUntil(t, conn, msgError, nil)
	if !strings.Contains(string(raw), "unsupported message type") {
		t.Fatalf("unexpected error payload %s", raw)
	}

	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"questionId": "q1", "answer": 1},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw = readUntil(t, conn, msgError, nil)
	if !strings.Contains(string(raw), "session is not active") {
		t.Fatalf("unexpected error payload %s", raw)
	}
}

func TestWebSocketHostFeed(t *testing.T) {
	env := newTestEnv(t, domain.TimerContinuous)
	created := env.createSession(t)

	conn := env.dial(t, created.Session.ID, created.HostToken)
	readUntil(t, conn, msgSession, nil)

	env.join(t, created.Session.Code, "Ann")
	readUntil(t, conn, msgResults, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"name":"Ann"`)
	})
}

func TestWebSocketRequiresSessionToken(t *testing.T) {
	env := newTestEnv(t, domain.TimerContinuous)
	first := env.createSession(t)
	second := env.createSession(t)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/sessions/" + first.Session.ID + "?token=" + second.HostToken
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}
