package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"rextro-quiz-service/internal/app"
	"rextro-quiz-service/internal/domain"
)

type WSHandler struct {
	attempts *app.AttemptService
	board    *app.LeaderboardService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(attempts *app.AttemptService, board *app.LeaderboardService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		board:    board,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type questionPayload struct {
	QuestionID string `json:"questionId"`
}

type submitPayload struct {
	QuestionID string `json:"questionId"`
	Answer     any    `json:"answer"`
}

type limitPayload struct {
	Limit int `json:"limit"`
}

type answerResult struct {
	QuestionID string         `json:"questionId"`
	Correct    bool           `json:"correct"`
	Attempt    domain.Attempt `json:"attempt"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    ErrCode         `json:"code"`
	Message string          `json:"message"`
	Attempt *domain.Attempt `json:"attempt,omitempty"`
}

// session is one student's connection scoped to a single quiz.
type session struct {
	studentID string
	quizID    int64
	send      chan<- outboundMessage[any]
	done      <-chan struct{}
}

// ServeWS upgrades HTTP requests to websockets and maps client messages onto
// the attempt and leaderboard use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	quizID, err := strconv.ParseInt(r.URL.Query().Get("quizId"), 10, 64)
	if err != nil || quizID <= 0 || userID == "" {
		http.Error(w, "missing or invalid quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("student", userID).Msg("ws write error")
				_ = conn.Close()
				return
			}
		}
	}()

	s := session{studentID: userID, quizID: quizID, send: send, done: writerDone}
	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, s, inbound)
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, s session, in inboundMessage) {
	switch in.Type {
	case "open":
		var p questionPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.fail(err, nil)
			return
		}
		attempt, err := h.attempts.Open(ctx, s.key(p.QuestionID))
		if err != nil {
			s.fail(err, nil)
			return
		}
		s.push(outboundMessage[any]{Type: "attempt", Payload: attempt})

	case "submit":
		var p submitPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.fail(err, nil)
			return
		}
		answer, ok := AnswerString(p.Answer)
		if !ok {
			s.fail(domain.Invalid("answer", "must be a string, number or boolean"), nil)
			return
		}
		result, err := h.attempts.Submit(ctx, s.key(p.QuestionID), answer)
		if err != nil {
			var stored *domain.Attempt
			if result.Attempt.ID != "" {
				stored = &result.Attempt
			}
			s.fail(err, stored)
			return
		}
		s.push(outboundMessage[any]{Type: "answerResult", Payload: answerResult{
			QuestionID: p.QuestionID,
			Correct:    result.IsCorrect,
			Attempt:    result.Attempt,
		}})
		h.pushLeaderboard(ctx, s, 0)

	case "leaderboard":
		var p limitPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.fail(err, nil)
			return
		}
		h.pushLeaderboard(ctx, s, p.Limit)

	case "schools":
		var p limitPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			s.fail(err, nil)
			return
		}
		standings, err := h.board.SchoolLeaderboard(ctx, s.quizID, p.Limit)
		if err != nil {
			s.fail(err, nil)
			return
		}
		s.push(outboundMessage[any]{Type: "schools", Payload: standings})

	case "attempts":
		attempts, err := h.attempts.List(ctx, s.studentID, s.quizID)
		if err != nil {
			s.fail(err, nil)
			return
		}
		s.push(outboundMessage[any]{Type: "attempts", Payload: attempts})

	default:
		s.fail(domain.Invalid("type", "unsupported message type"), nil)
	}
}

func (h *WSHandler) pushLeaderboard(ctx context.Context, s session, limit int) {
	entries, err := h.board.Leaderboard(ctx, s.quizID, limit)
	if err != nil {
		if domain.Kind(err) == domain.ErrInternal {
			h.log.Error().Err(err).Int64("quiz", s.quizID).Msg("leaderboard failed")
		}
		s.fail(err, nil)
		return
	}
	s.push(outboundMessage[any]{Type: "leaderboard", Payload: entries})
}

func (s session) key(questionID string) domain.AttemptKey {
	return domain.AttemptKey{StudentID: s.studentID, QuizID: s.quizID, QuestionID: questionID}
}

func (s session) push(msg outboundMessage[any]) {
	select {
	case s.send <- msg:
	case <-s.done:
	}
}

func (s session) fail(err error, stored *domain.Attempt) {
	_, body := errorBodyFor(err)
	s.push(outboundMessage[any]{Type: "error", Payload: errorPayload{
		Code:    body.Code,
		Message: body.Message,
		Attempt: stored,
	}})
}

// decodePayload accepts an absent payload as the zero value.
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := decodeStrict(raw, v); err != nil {
		return fmt.Errorf("%w: payload: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}
