package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"rextro-quiz-service/internal/domain"
)

func dialWS(t *testing.T, env *testEnv, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketSubmitFlow(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env, "quizId=1&userId=s1")

	send(t, conn, "open", map[string]any{"questionId": "q1"})
	var attempt domain.Attempt
	readNext(t, conn, "attempt", &attempt)
	if attempt.OpenedAt == nil || attempt.QuestionID != "q1" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}

	send(t, conn, "submit", map[string]any{"questionId": "q1", "answer": "b"})
	var result answerResult
	readNext(t, conn, "answerResult", &result)
	if !result.Correct || result.Attempt.ID != attempt.ID {
		t.Fatalf("expected correct answer on opened attempt, got %+v", result)
	}

	var entries []domain.StandingsEntry
	readNext(t, conn, "leaderboard", &entries)
	if len(entries) != 1 || entries[0].StudentID != "s1" || entries[0].CorrectCount != 1 {
		t.Fatalf("unexpected leaderboard push %+v", entries)
	}

	send(t, conn, "submit", map[string]any{"questionId": "q1", "answer": "a"})
	var rejected errorPayload
	readNext(t, conn, "error", &rejected)
	if rejected.Code != CodeConflict || rejected.Attempt == nil || *rejected.Attempt.Answer != "b" {
		t.Fatalf("expected conflict carrying stored attempt, got %+v", rejected)
	}

	send(t, conn, "attempts", nil)
	var attempts []domain.Attempt
	readNext(t, conn, "attempts", &attempts)
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}

	send(t, conn, "schools", map[string]any{"limit": 5})
	var schools []domain.SchoolStanding
	readNext(t, conn, "schools", &schools)
	if len(schools) != 1 || schools[0].School != "North High" {
		t.Fatalf("unexpected schools %+v", schools)
	}
}

func TestWebSocketErrors(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env, "quizId=1&userId=s2")

	send(t, conn, "dance", nil)
	var unsupported errorPayload
	readNext(t, conn, "error", &unsupported)
	if unsupported.Code != CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", unsupported)
	}

	send(t, conn, "submit", map[string]any{"questionId": "q1", "answer": nil})
	var invalid errorPayload
	readNext(t, conn, "error", &invalid)
	if invalid.Code != CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %+v", invalid)
	}

	send(t, conn, "open", map[string]any{"questionId": "missing"})
	var missing errorPayload
	readNext(t, conn, "error", &missing)
	if missing.Code != CodeNotFound {
		t.Fatalf("expected not found, got %+v", missing)
	}
}

func TestWebSocketRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?quizId=abc&userId=s1"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %+v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn, expect string, into any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	if into != nil {
		if err := json.Unmarshal(msg.Payload, into); err != nil {
			t.Fatalf("decode %s payload: %v", expect, err)
		}
	}
}
